package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/barrybecker4/applets-sub001/internal/auth"
)

type contextKey string

const (
	ClientContextKey contextKey = "client"
)

type AuthMiddleware struct {
	jwtService *auth.JWTService
}

func NewAuthMiddleware(jwtService *auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{jwtService: jwtService}
}

// RequireAuth validates the access token and puts its claims in the
// request context. Returns 401 if the token is missing or invalid.
//
// Browsers cannot set headers on a websocket upgrade, so the token may
// also arrive as the "token" query parameter.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, ok := bearerToken(r)
		if !ok {
			http.Error(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		claims, err := m.jwtService.ValidateAccessToken(tokenString)
		if err != nil {
			if errors.Is(err, auth.ErrExpiredToken) {
				http.Error(w, "Token has expired", http.StatusUnauthorized)
				return
			}
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), ClientContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		t := r.URL.Query().Get("token")
		return t, t != ""
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// GetClientFromContext retrieves the authenticated client's claims
func GetClientFromContext(ctx context.Context) (*auth.AccessTokenClaims, bool) {
	claims, ok := ctx.Value(ClientContextKey).(*auth.AccessTokenClaims)
	return claims, ok
}
