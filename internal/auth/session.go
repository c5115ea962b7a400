package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mobilerecharge/server/internal/model"
	"github.com/mobilerecharge/server/internal/repo"
)

const (
	// SessionCookieName is the cookie carrying the signed session reference
	SessionCookieName = "admin_session"
	// DefaultSessionTTL is used when no lifetime is configured
	DefaultSessionTTL = 8 * time.Hour
)

// SessionConfig holds cookie and lifetime settings for admin sessions
type SessionConfig struct {
	TTL          time.Duration
	CookieSecure bool
}

// SessionManager keeps admin session state server-side, referenced by a signed cookie
type SessionManager struct {
	repo   repo.SessionRepo
	tokens *JWTService
	config SessionConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewSessionManager creates a new session manager
func NewSessionManager(sessionRepo repo.SessionRepo, tokens *JWTService, config SessionConfig, logger *slog.Logger) *SessionManager {
	if config.TTL <= 0 {
		config.TTL = DefaultSessionTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionManager{
		repo:   sessionRepo,
		tokens: tokens,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// Establish stores a new session for the provider token and sets the session cookie.
// A session already referenced by the request is discarded first.
func (m *SessionManager) Establish(ctx context.Context, w http.ResponseWriter, r *http.Request, token model.ProviderToken) error {
	if id, ok := m.sessionID(r); ok {
		if err := m.repo.Delete(ctx, id); err != nil {
			m.logger.WarnContext(ctx, "failed to drop previous session", slog.String("error", err.Error()))
		}
	}
	if n, err := m.repo.DeleteExpired(ctx); err != nil {
		m.logger.WarnContext(ctx, "failed to purge expired sessions", slog.String("error", err.Error()))
	} else if n > 0 {
		m.logger.DebugContext(ctx, "purged expired sessions", slog.Int64("count", n))
	}

	expiresAt := m.now().Add(m.config.TTL)
	session, err := m.repo.Create(ctx, token, expiresAt)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	signed, err := m.tokens.SignSessionToken(session.ID, expiresAt)
	if err != nil {
		return fmt.Errorf("sign session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    signed,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(m.config.TTL.Seconds()),
		HttpOnly: true,
		Secure:   m.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Current returns the authenticated session for the request, if any.
// The provider token is not re-validated.
func (m *SessionManager) Current(r *http.Request) (*model.AdminSession, bool) {
	id, ok := m.sessionID(r)
	if !ok {
		return nil, false
	}

	session, err := m.repo.FindActive(r.Context(), id)
	if err != nil {
		if !errors.Is(err, repo.ErrSessionNotFound) {
			m.logger.ErrorContext(r.Context(), "session lookup failed", slog.String("error", err.Error()))
		}
		return nil, false
	}
	if session.AccessToken == "" {
		return nil, false
	}
	return &session, true
}

// Clear removes the session referenced by the request and expires the cookie.
// It is safe to call without a session.
func (m *SessionManager) Clear(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	id, ok := m.sessionID(r)
	if !ok {
		return nil
	}
	if err := m.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// sessionID extracts and verifies the session id from the request cookie
func (m *SessionManager) sessionID(r *http.Request) (uuid.UUID, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return uuid.Nil, false
	}
	claims, err := m.tokens.VerifySessionToken(cookie.Value)
	if err != nil {
		m.logger.DebugContext(r.Context(), "rejected session cookie", slog.String("error", err.Error()))
		return uuid.Nil, false
	}
	return claims.SessionID, true
}
