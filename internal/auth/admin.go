package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// AdminCredentials verifies console operator logins against a configured
// login id and bcrypt password hash. There is no admin user row — the
// console is a capability, not an account.
type AdminCredentials struct {
	loginID      string
	passwordHash string
}

// NewAdminCredentials creates AdminCredentials. Empty values disable the
// console: Verify then always fails.
func NewAdminCredentials(loginID, passwordHash string) *AdminCredentials {
	return &AdminCredentials{loginID: loginID, passwordHash: passwordHash}
}

// Enabled reports whether console login is configured at all.
func (a *AdminCredentials) Enabled() bool {
	return a.loginID != "" && a.passwordHash != ""
}

// Verify checks a login attempt. Both the id comparison (constant-time) and
// the bcrypt comparison run on every attempt so response timing doesn't
// reveal whether the login id was right.
func (a *AdminCredentials) Verify(loginID, password string) error {
	if !a.Enabled() {
		return fmt.Errorf("auth: admin login is not configured")
	}

	idMatch := subtle.ConstantTimeCompare([]byte(a.loginID), []byte(loginID)) == 1
	err := bcrypt.CompareHashAndPassword([]byte(a.passwordHash), []byte(password))

	if !idMatch || err != nil {
		if err != nil && !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return fmt.Errorf("auth: comparing admin password hash: %w", err)
		}
		return fmt.Errorf("auth: invalid admin credentials")
	}
	return nil
}

// HashPassword hashes a plaintext admin password for configuration. Cost 12
// takes ~250ms on current hardware.
func HashPassword(plaintext string) (string, error) {
	if len(plaintext) > 72 {
		// bcrypt silently truncates beyond 72 bytes; reject instead.
		return "", fmt.Errorf("auth: password must be 72 bytes or fewer")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), 12)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hashed), nil
}

// HashPasswordForTest hashes with the bcrypt minimum cost. Tests only —
// cost 4 is far too weak for production.
func HashPasswordForTest(plaintext string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.MinCost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hashed), nil
}
