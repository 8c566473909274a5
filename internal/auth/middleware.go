package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/sally-https/book-api-v2/internal/httputil"
)

type contextKey string

const (
	SubjectIDKey contextKey = "subject_id"
	EmailKey     contextKey = "email"
	RoleKey      contextKey = "role"
)

// GetSubjectID returns the authenticated principal's record id.
func GetSubjectID(ctx context.Context) (int, bool) {
	id, ok := ctx.Value(SubjectIDKey).(int)
	return id, ok
}

func GetEmail(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(EmailKey).(string)
	return email, ok
}

func GetRole(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(RoleKey).(string)
	return role, ok
}

// RequireAuth validates the access token from the "token" cookie or the
// Authorization header and stores the claims in the request context.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			httputil.RespondWithError(w, http.StatusUnauthorized, "missing authentication token")
			return
		}

		claims, err := ValidateAccessToken(token)
		if err != nil {
			httputil.RespondWithError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), SubjectIDKey, claims.SubjectID)
		ctx = context.WithValue(ctx, EmailKey, claims.Email)
		ctx = context.WithValue(ctx, RoleKey, claims.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole rejects authenticated requests whose token was issued for a
// different role.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := GetRole(r.Context())
			if !ok || got != role {
				httputil.RespondWithError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractToken(r *http.Request) string {
	if cookie, err := r.Cookie("token"); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
