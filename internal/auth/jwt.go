// Package auth provides session tokens, the Google sign-in handshake, and
// the middleware that turns a token into an explicit per-request principal.
//
// Sessions are stateless JWTs in an HttpOnly cookie. The token carries the
// subject (internal user id, or the admin login id) and a role claim. There
// is no ambient session state: every handler that needs a principal reads it
// from the request context, where the middleware put it.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Roles carried in the token's role claim.
const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

// SessionTTL is how long an issued session token stays valid.
const SessionTTL = 7 * 24 * time.Hour

const issuer = "scrapbook"

// TokenService signs and verifies session tokens. It holds the HMAC secret;
// the same secret must be used for both operations.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
// The secret should be at least 32 bytes of random data in production.
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// claims is the JWT payload: the standard registered claims plus our role.
// Subject holds the internal user id (members) or the login id (admin).
type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Generate creates and signs a session token for the given subject and role.
func (s *TokenService) Generate(subject, role string) (string, error) {
	return s.GenerateWithDuration(subject, role, SessionTTL)
}

// GenerateWithDuration creates a token with a custom expiry. Used by tests
// to exercise expiry without waiting a week.
func (s *TokenService) GenerateWithDuration(subject, role string, d time.Duration) (string, error) {
	if role != RoleMember && role != RoleAdmin {
		return "", fmt.Errorf("auth: unknown role %q", role)
	}

	now := time.Now()
	c := claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a token string, returning its subject and
// role. Pinning the algorithm to HS256 prevents algorithm-confusion
// attacks; the issuer check rejects tokens minted by other apps sharing
// the secret.
func (s *TokenService) Validate(tokenStr string) (subject, role string, err error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", "", fmt.Errorf("auth: token expired")
		}
		return "", "", fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", "", fmt.Errorf("auth: invalid token claims")
	}
	if c.Subject == "" {
		return "", "", fmt.Errorf("auth: token has no subject")
	}
	if c.Role != RoleMember && c.Role != RoleAdmin {
		return "", "", fmt.Errorf("auth: token has unknown role %q", c.Role)
	}

	return c.Subject, c.Role, nil
}
