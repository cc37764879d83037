package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "ops"})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func protectedHandler(v *Verifier) http.Handler {
	return v.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
}

func TestMiddlewareAcceptsValidToken(t *testing.T) {
	v := NewVerifier("shared-secret", false, "")
	req := httptest.NewRequest(http.MethodPost, "/control-plane/run", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "shared-secret"))
	rec := httptest.NewRecorder()
	protectedHandler(v).ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}

func TestMiddlewareRejectsWrongSecret(t *testing.T) {
	v := NewVerifier("shared-secret", false, "")
	req := httptest.NewRequest(http.MethodPost, "/control-plane/run", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "other-secret"))
	rec := httptest.NewRecorder()
	protectedHandler(v).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestMiddlewareRejectsMissingHeader(t *testing.T) {
	v := NewVerifier("shared-secret", false, "")
	req := httptest.NewRequest(http.MethodPost, "/control-plane/run", nil)
	rec := httptest.NewRecorder()
	protectedHandler(v).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestMiddlewareDebugToken(t *testing.T) {
	v := NewVerifier("", true, "dev-token")
	req := httptest.NewRequest(http.MethodPost, "/control-plane/run", nil)
	req.Header.Set("X-Debug-Token", "dev-token")
	rec := httptest.NewRecorder()
	protectedHandler(v).ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	req2 := httptest.NewRequest(http.MethodPost, "/control-plane/run", nil)
	req2.Header.Set("X-Debug-Token", "wrong")
	rec2 := httptest.NewRecorder()
	protectedHandler(v).ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong debug token, got %d", rec2.Code)
	}
}
