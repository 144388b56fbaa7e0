package authpw

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"storefront/cms/internal/rbac"
)

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return string(hash)
}

func TestSignIn(t *testing.T) {
	svc := NewService(
		Account{Username: "admin", Role: rbac.RoleAdmin, PasswordHash: mustHash(t, "admin-pass")},
		Account{Username: "editor", Role: rbac.RoleEditor, PasswordHash: mustHash(t, "editor-pass")},
	)

	account, err := svc.SignIn("Admin", "admin-pass")
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if account.Role != rbac.RoleAdmin {
		t.Fatalf("expected admin role, got %q", account.Role)
	}

	if _, err := svc.SignIn("editor", "admin-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.SignIn("nobody", "whatever"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
	if _, err := svc.SignIn("", ""); err == nil {
		t.Fatal("expected error for empty credentials")
	}
}

func TestAccountsWithoutHashAreDisabled(t *testing.T) {
	svc := NewService(Account{Username: "admin", Role: rbac.RoleAdmin})
	if svc.Enabled() {
		t.Fatal("expected no enabled accounts")
	}
	if _, err := svc.SignIn("admin", "anything"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestHashPassword(t *testing.T) {
	if _, err := HashPassword("short"); err == nil {
		t.Fatal("expected short password to be rejected")
	}
	hash, err := HashPassword("long-enough")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("long-enough")); err != nil {
		t.Fatalf("hash does not verify: %v", err)
	}
}
