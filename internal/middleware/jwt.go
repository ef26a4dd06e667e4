package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/devplane-io/devplane/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

type ctxKey string

const (
	// UserIDKey holds the authenticated user's id in the request context.
	UserIDKey ctxKey = "user_id"
	// RoleKey holds the authenticated user's role in the request context.
	RoleKey ctxKey = "role"
	// UsernameKey holds the authenticated username in the request context.
	UsernameKey ctxKey = "username"
)

func authError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// JWT validates the Bearer token and places user id, username, and role in
// the request context.
func JWT(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				authError(w, "missing authorization header")
				return
			}

			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

			token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return secret, nil
			})
			if err != nil || !token.Valid {
				authError(w, "invalid token")
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				authError(w, "invalid token claims")
				return
			}
			userID, ok := claims["user_id"].(float64)
			if !ok {
				authError(w, "invalid token claims")
				return
			}
			role, _ := claims["role"].(string)
			username, _ := claims["username"].(string)

			ctx := context.WithValue(r.Context(), UserIDKey, int(userID))
			ctx = context.WithValue(ctx, RoleKey, role)
			ctx = context.WithValue(ctx, UsernameKey, username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects requests whose authenticated role is below min.
// Must run after JWT.
func RequireRole(min string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, _ := r.Context().Value(RoleKey).(string)
			if !models.RoleAtLeast(role, min) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				json.NewEncoder(w).Encode(map[string]string{"error": "insufficient role"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserID returns the authenticated user id from the context, 0 when absent.
func UserID(ctx context.Context) int {
	id, _ := ctx.Value(UserIDKey).(int)
	return id
}

// Username returns the authenticated username from the context.
func Username(ctx context.Context) string {
	u, _ := ctx.Value(UsernameKey).(string)
	return u
}
