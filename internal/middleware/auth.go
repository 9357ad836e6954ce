// Package middleware provides HTTP middleware for the raffle engine.
package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/R3E-Network/raffle-engine/pkg/logger"
)

type contextKey string

const callerKey contextKey = "caller"

// CallerFromContext returns the authenticated caller identity, if any.
func CallerFromContext(ctx context.Context) string {
	caller, _ := ctx.Value(callerKey).(string)
	return caller
}

// WithCaller returns a context carrying the caller identity.
func WithCaller(ctx context.Context, caller string) context.Context {
	return context.WithValue(ctx, callerKey, caller)
}

// Claims are the JWT claims the engine understands.
type Claims struct {
	Identity string `json:"identity"`
	jwt.RegisteredClaims
}

// AuthMiddleware resolves the caller identity for each request. With a
// configured secret it requires an HMAC-signed bearer token; without one it
// trusts the X-Caller-Identity header, which is only acceptable for local
// development.
type AuthMiddleware struct {
	secret    []byte
	log       *logger.Logger
	skipPaths map[string]bool
}

// NewAuthMiddleware creates the authentication middleware. Paths in
// skipPaths pass through without identity resolution.
func NewAuthMiddleware(secret []byte, log *logger.Logger, skipPaths []string) *AuthMiddleware {
	skip := make(map[string]bool)
	for _, path := range skipPaths {
		skip[path] = true
	}
	return &AuthMiddleware{secret: secret, log: log, skipPaths: skip}
}

// Handler returns the middleware handler.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.skipPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		identity, err := m.resolveIdentity(r)
		if err != nil {
			m.log.WithError(err).WithField("path", r.URL.Path).Warn("authentication failed")
			respondUnauthorized(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), identity)))
	})
}

func (m *AuthMiddleware) resolveIdentity(r *http.Request) (string, error) {
	if len(m.secret) == 0 {
		identity := strings.TrimSpace(r.Header.Get("X-Caller-Identity"))
		if identity == "" {
			return "", fmt.Errorf("missing X-Caller-Identity header")
		}
		return identity, nil
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", fmt.Errorf("missing Authorization header")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", fmt.Errorf("invalid Authorization header format")
	}

	claims, err := m.validateToken(parts[1])
	if err != nil {
		return "", err
	}
	if claims.Identity == "" {
		return "", fmt.Errorf("token carries no identity")
	}
	return claims.Identity, nil
}

func (m *AuthMiddleware) validateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

func respondUnauthorized(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
