// Package jwtauth is a JWT encode/decode collaborator with one concrete
// requirement: JwtEnabled toggles between real HS256 tokens and a
// pass-through mock. Grounded on bolt/middleware/jwt/jwt.go's
// HS256-default, "Bearer " prefix convention — bolt's background
// token-cache cleanup goroutine is not carried over, since a
// single-threaded reactor has no business spawning background
// goroutines.
package jwtauth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMissingToken is returned by VerifyHeader when the Authorization
	// value is empty or is not of the form "Bearer <token>", and by
	// Verify in mock mode when the token is empty.
	ErrMissingToken = errors.New("jwtauth: missing bearer token")
	// ErrInvalidToken is returned by Verify when the token does not
	// parse or its signature/claims do not validate.
	ErrInvalidToken = errors.New("jwtauth: invalid or expired token")
)

type claims struct {
	Subject string `json:"sub"`
	jwt.RegisteredClaims
}

// Authenticator issues and verifies bearer tokens. When Enabled is
// false it is a pass-through mock that toggles real-JWT verification
// off entirely.
type Authenticator struct {
	Enabled bool
	Secret  []byte
	TTL     time.Duration
}

// New constructs an Authenticator. secret is ignored when enabled is
// false.
func New(enabled bool, secret string) *Authenticator {
	return &Authenticator{Enabled: enabled, Secret: []byte(secret), TTL: time.Hour}
}

// Issue mints a bearer token for subject.
func (a *Authenticator) Issue(subject string) (string, error) {
	if !a.Enabled {
		return subject, nil
	}
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Subject: subject,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.TTL)),
		},
	})
	return tok.SignedString(a.Secret)
}

// VerifyHeader extracts and verifies a "Bearer <token>" Authorization
// header value, returning the authenticated subject.
func (a *Authenticator) VerifyHeader(authorization string) (string, error) {
	if authorization == "" {
		return "", ErrMissingToken
	}
	parts := strings.SplitN(authorization, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", ErrMissingToken
	}
	return a.Verify(parts[1])
}

// Verify validates a raw token string and returns its subject.
func (a *Authenticator) Verify(token string) (string, error) {
	if !a.Enabled {
		if token == "" {
			return "", ErrMissingToken
		}
		return token, nil
	}

	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return a.Secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	c, ok := parsed.Claims.(*claims)
	if !ok || c.Subject == "" {
		return "", ErrInvalidToken
	}
	return c.Subject, nil
}
