package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/alemudanse/dispatch/internal/domain"
)

const (
	RoleDriver = "driver"
	RoleAdmin  = "admin"
)

type Claims struct {
	UserID string `json:"sub"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// AuthManager signs and verifies the bearer tokens used on the driver and
// admin surfaces. The public endpoints authenticate by order token instead
// and never pass through here.
type AuthManager struct {
	secret   []byte
	tokenTTL time.Duration
}

func NewAuthManager(secret string, tokenTTL time.Duration) *AuthManager {
	return &AuthManager{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
	}
}

func (m *AuthManager) Generate(userID, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *AuthManager) Validate(tokenString string) (*Claims, error) {
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

type contextKey string

const claimsContextKey = contextKey("claims")

// Middleware rejects requests without a valid bearer token and stores the
// claims on the request context.
func (m *AuthManager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			writeError(w, domain.E(domain.KindUnauthenticated, "authorization header required"))
			return
		}

		claims, err := m.Validate(header)
		if err != nil {
			writeError(w, domain.E(domain.KindUnauthenticated, "invalid token"))
			return
		}

		ctx := context.WithValue(r.Context(), claimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func claimsFrom(r *http.Request) *Claims {
	claims, ok := r.Context().Value(claimsContextKey).(*Claims)
	if !ok {
		return nil
	}
	return claims
}

// TokenHandler mints a bearer token for local development. Production
// deployments front this with a real identity provider.
func (m *AuthManager) TokenHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
		Role   string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.E(domain.KindInvalidParams, "invalid request body"))
		return
	}

	if req.UserID == "" {
		writeError(w, domain.E(domain.KindInvalidParams, "user_id is required"))
		return
	}
	if req.Role == "" {
		req.Role = RoleDriver
	}

	token, err := m.Generate(req.UserID, req.Role)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}
