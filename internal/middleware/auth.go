package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/mobilerecharge/server/internal/model"
)

type contextKey string

const sessionKey contextKey = "admin_session"

// SessionSource resolves the admin session of a request. *auth.SessionManager satisfies it.
type SessionSource interface {
	Current(r *http.Request) (*model.AdminSession, bool)
}

// RequireAdmin rejects requests without an authenticated admin session with a 401 JSON error
func RequireAdmin(sessions SessionSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, ok := sessions.Current(r)
			if !ok {
				respondWithError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}

// RequireAdminPage redirects unauthenticated page requests to loginPath
func RequireAdminPage(sessions SessionSource, loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, ok := sessions.Current(r)
			if !ok {
				http.Redirect(w, r, loginPath, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}

// WithSession attaches an admin session to ctx
func WithSession(ctx context.Context, session *model.AdminSession) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}

// GetSession returns the admin session attached by RequireAdmin or RequireAdminPage
func GetSession(ctx context.Context) (*model.AdminSession, bool) {
	s, ok := ctx.Value(sessionKey).(*model.AdminSession)
	return s, ok && s != nil
}

// respondWithError sends a JSON error response
func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
