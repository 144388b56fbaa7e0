package util

import (
	"strings"
	"testing"
)

func TestNewIDPrefix(t *testing.T) {
	id := NewID("sec")
	if !strings.HasPrefix(id, "sec_") {
		t.Fatalf("expected sec_ prefix, got %q", id)
	}
	if len(id) != len("sec_")+26 {
		t.Fatalf("unexpected id length %d for %q", len(id), id)
	}
	if strings.ToLower(id) != id {
		t.Fatalf("expected lowercase id, got %q", id)
	}
}

func TestNewIDUnique(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := NewID("")
		if _, ok := seen[id]; ok {
			t.Fatalf("duplicate id %q after %d iterations", id, i)
		}
		seen[id] = struct{}{}
	}
}
