// Package auth guards mutating control-plane endpoints with HS256 bearer
// tokens. A debug-token escape hatch exists for local development and must
// be enabled explicitly.
package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type Verifier struct {
	secret          []byte
	allowDebugToken bool
	debugToken      string
}

func NewVerifier(secret string, allowDebugToken bool, debugToken string) *Verifier {
	return &Verifier{
		secret:          []byte(secret),
		allowDebugToken: allowDebugToken,
		debugToken:      debugToken,
	}
}

// VerifyToken parses and validates an HS256 token against the shared secret.
func (v *Verifier) VerifyToken(raw string) error {
	if len(v.secret) == 0 {
		return fmt.Errorf("no auth secret configured")
	}
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return fmt.Errorf("invalid token")
	}
	return nil
}

// Middleware rejects requests without a valid bearer token (or, when
// enabled, the debug token header).
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if v.allowDebugToken {
			if token := r.Header.Get("X-Debug-Token"); token != "" && token == v.debugToken {
				next.ServeHTTP(w, r)
				return
			}
		}
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			unauthorized(w, "bearer token required")
			return
		}
		if err := v.VerifyToken(strings.TrimPrefix(header, "Bearer ")); err != nil {
			unauthorized(w, "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	fmt.Fprintf(w, `{"error":%q}`, msg)
}
