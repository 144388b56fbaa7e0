package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("API_ADDR", "")
	t.Setenv("STOREFRONT_ACCESS_TTL_SECONDS", "")
	t.Setenv("NATS_URL", "")

	cfg := Load()
	if cfg.Addr != ":8790" {
		t.Fatalf("Addr = %q", cfg.Addr)
	}
	if cfg.AccessTTL != 12*time.Hour {
		t.Fatalf("AccessTTL = %v", cfg.AccessTTL)
	}
	if cfg.NATSURL != "" {
		t.Fatalf("expected events disabled by default, got %q", cfg.NATSURL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("API_ADDR", ":9000")
	t.Setenv("STOREFRONT_ACCESS_TTL_SECONDS", "60")
	t.Setenv("STOREFRONT_PUBLIC_BASE_URL", "https://shop.example.com/")

	cfg := Load()
	if cfg.Addr != ":9000" {
		t.Fatalf("Addr = %q", cfg.Addr)
	}
	if cfg.AccessTTL != time.Minute {
		t.Fatalf("AccessTTL = %v", cfg.AccessTTL)
	}
	if cfg.PublicBaseURL != "https://shop.example.com" {
		t.Fatalf("PublicBaseURL = %q", cfg.PublicBaseURL)
	}
}

func TestGetenvIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("STOREFRONT_TEST_INT", "ten")
	if got := getenvInt("STOREFRONT_TEST_INT", 7); got != 7 {
		t.Fatalf("getenvInt = %d", got)
	}
}
