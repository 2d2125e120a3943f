package middleware

import (
	"context"
	"net/http"
	"strings"

	apperrors "github.com/utafrali/customerdash/pkg/errors"
	"github.com/utafrali/customerdash/pkg/httputil"
	"github.com/utafrali/customerdash/pkg/logger"
)

type contextKeyType string

const userIDKey contextKeyType = "user_id"

// Claims represents the token claims the auth middleware cares about.
type Claims struct {
	UserID string `json:"user_id"`
}

// TokenValidator validates a raw token and returns its claims.
type TokenValidator func(token string) (*Claims, error)

// AuthOptions controls where Auth looks for a token and what it does when
// there is none.
type AuthOptions struct {
	// CookieName is checked when no Authorization header is sent.
	CookieName string

	// Optional lets requests without any token through anonymously.
	// A token that is present but invalid is always rejected.
	Optional bool
}

// Auth validates a bearer token (or the configured cookie) and stores the
// user ID in the request context.
func Auth(validate TokenValidator, opts AuthOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := extractToken(r, opts.CookieName)
			if err != nil {
				writeAuthError(w, r, "malformed authorization header")
				return
			}
			if token == "" {
				if opts.Optional {
					next.ServeHTTP(w, r)
					return
				}
				writeAuthError(w, r, "missing authorization header")
				return
			}

			claims, err := validate(token)
			if err != nil || claims.UserID == "" {
				writeAuthError(w, r, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithUserID(r.Context(), claims.UserID)))
		})
	}
}

func extractToken(r *http.Request, cookieName string) (string, error) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
			return "", apperrors.ErrUnauthorized
		}
		return strings.TrimSpace(parts[1]), nil
	}

	if cookieName != "" {
		if c, err := r.Cookie(cookieName); err == nil {
			return c.Value, nil
		}
	}
	return "", nil
}

// ContextWithUserID returns ctx carrying the authenticated user ID, also
// tagged for log enrichment.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return logger.WithUserID(ctx, userID)
}

// UserIDFromContext extracts the user ID from the request context.
func UserIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok {
		return id
	}
	return ""
}

func writeAuthError(w http.ResponseWriter, r *http.Request, message string) {
	httputil.WriteError(w, r, apperrors.Unauthorized(message), nil)
}
