// Package authpw checks operator passwords against bcrypt hashes.
package authpw

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"storefront/cms/internal/rbac"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

const MinPasswordLength = 8

// Account is one operator login. Username doubles as the display name.
type Account struct {
	Username     string
	Role         rbac.Role
	PasswordHash string
}

// Service authenticates against a fixed set of accounts. Accounts with an
// empty hash are disabled.
type Service struct {
	accounts map[string]Account
}

func NewService(accounts ...Account) *Service {
	s := &Service{accounts: make(map[string]Account, len(accounts))}
	for _, a := range accounts {
		if strings.TrimSpace(a.PasswordHash) == "" {
			continue
		}
		s.accounts[strings.ToLower(a.Username)] = a
	}
	return s
}

// Enabled reports whether any account can log in.
func (s *Service) Enabled() bool {
	return len(s.accounts) > 0
}

func (s *Service) SignIn(username, password string) (Account, error) {
	if username == "" || password == "" {
		return Account{}, errors.New("username and password are required")
	}
	account, ok := s.accounts[strings.ToLower(strings.TrimSpace(username))]
	if !ok {
		_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
		return Account{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return Account{}, ErrInvalidCredentials
	}
	return account, nil
}

// HashPassword produces a hash suitable for the *_PASSWORD_HASH settings.
func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Well-formed cost-10 hash used only to equalize timing.
const dummyHash = "$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z3b0IY7QH1T2o5G8lQ4pYhX6"
