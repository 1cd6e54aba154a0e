package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGenerateAndValidate(t *testing.T) {
	t.Parallel()
	m := NewAuthManager("test-secret", time.Hour)

	token, err := m.Generate("5", RoleDriver)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.UserID != "5" {
		t.Errorf("user id = %q, want %q", claims.UserID, "5")
	}
	if claims.Role != RoleDriver {
		t.Errorf("role = %q, want %q", claims.Role, RoleDriver)
	}
}

func TestValidateStripsBearerPrefix(t *testing.T) {
	t.Parallel()
	m := NewAuthManager("test-secret", time.Hour)

	token, err := m.Generate("5", RoleAdmin)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if _, err := m.Validate("Bearer " + token); err != nil {
		t.Errorf("Validate with prefix: %v", err)
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	t.Parallel()
	m := NewAuthManager("test-secret", time.Hour)
	other := NewAuthManager("other-secret", time.Hour)

	token, err := m.Generate("5", RoleDriver)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if _, err := other.Validate(token); err == nil {
		t.Error("token signed with another secret accepted")
	}
}

func TestMiddleware(t *testing.T) {
	t.Parallel()
	m := NewAuthManager("test-secret", time.Hour)

	var gotClaims *Claims
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotClaims = claimsFrom(r)
	}))

	// No header.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/driver/orders", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no header status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	// Garbage token.
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/driver/orders", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	// Valid token reaches the handler with claims in context.
	token, err := m.Generate("5", RoleDriver)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/driver/orders", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid token status = %d, want %d", rec.Code, http.StatusOK)
	}
	if gotClaims == nil || gotClaims.UserID != "5" {
		t.Errorf("claims = %+v, want user 5", gotClaims)
	}
}
