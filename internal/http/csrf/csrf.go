// Package csrf issues and verifies the opaque tokens the public booking
// form round-trips. Tokens are short-lived HMAC-signed JWTs; no server-side
// state is kept.
package csrf

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// HeaderName is where clients echo the token back.
const HeaderName = "X-CSRF-Token"

const purpose = "booking_form"

// Minter issues and verifies booking-form tokens.
type Minter struct {
	secret []byte
	ttl    time.Duration
}

// NewMinter creates a Minter. Returns nil when no secret is configured, and
// callers treat a nil Minter as "CSRF disabled".
func NewMinter(secret string, ttl time.Duration) *Minter {
	if secret == "" {
		return nil
	}
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &Minter{secret: []byte(secret), ttl: ttl}
}

// Issue mints a fresh token.
func (m *Minter) Issue() (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"purpose": purpose,
		"jti":     uuid.NewString(),
		"iat":     now.Unix(),
		"exp":     now.Add(m.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("csrf: sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, expiry, and purpose.
func (m *Minter) Verify(tokenStr string) error {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return fmt.Errorf("csrf: invalid token: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims["purpose"] != purpose {
		return errors.New("csrf: token purpose mismatch")
	}
	return nil
}

// Require rejects state-changing requests without a valid token. A nil
// Minter disables the check, for deployments fronted by a gateway that
// enforces CSRF itself.
func Require(m *Minter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m == nil {
				next.ServeHTTP(w, r)
				return
			}
			if err := m.Verify(r.Header.Get(HeaderName)); err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error": "invalid or missing CSRF token"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
