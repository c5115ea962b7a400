package auth

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mobilerecharge/server/internal/model"
	"github.com/mobilerecharge/server/internal/repo"
)

func newTestSessionManager(t *testing.T, sessionRepo repo.SessionRepo) (*SessionManager, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return NewSessionManager(sessionRepo, NewJWTService("test-session-secret"), SessionConfig{TTL: time.Hour}, logger), &buf
}

// establish runs Establish and returns a request carrying the issued cookie
func establish(t *testing.T, m *SessionManager, token model.ProviderToken) *http.Request {
	t.Helper()
	rec := httptest.NewRecorder()
	require.NoError(t, m.Establish(context.Background(), rec, httptest.NewRequest(http.MethodPost, "/login", nil), token))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)

	req := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
	req.AddCookie(cookies[0])
	return req
}

func TestSessionManager_EstablishAndCurrent(t *testing.T) {
	m, _ := newTestSessionManager(t, repo.NewMemorySessionRepo())

	req := establish(t, m, model.ProviderToken{AccessToken: "abc", InstanceURL: "https://x"})

	s, ok := m.Current(req)
	require.True(t, ok)
	assert.Equal(t, "abc", s.AccessToken)
	assert.Equal(t, "https://x", s.InstanceURL)
}

func TestSessionManager_CurrentWithoutCookie(t *testing.T) {
	m, _ := newTestSessionManager(t, repo.NewMemorySessionRepo())

	_, ok := m.Current(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, ok)
}

func TestSessionManager_rejectsForgedCookie(t *testing.T) {
	sessions := repo.NewMemorySessionRepo()
	m, _ := newTestSessionManager(t, sessions)
	s, err := sessions.Create(context.Background(), model.ProviderToken{AccessToken: "abc"}, time.Now().Add(time.Hour))
	require.NoError(t, err)

	forged, err := NewJWTService("attacker-secret").SignSessionToken(s.ID, time.Now().Add(time.Hour))
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: forged})

	_, ok := m.Current(req)
	assert.False(t, ok)
}

func TestSessionManager_rejectsUnknownSession(t *testing.T) {
	m, _ := newTestSessionManager(t, repo.NewMemorySessionRepo())

	signed, err := m.tokens.SignSessionToken(uuid.New(), time.Now().Add(time.Hour))
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: signed})

	_, ok := m.Current(req)
	assert.False(t, ok)
}

func TestSessionManager_rejectsEmptyAccessToken(t *testing.T) {
	m, _ := newTestSessionManager(t, repo.NewMemorySessionRepo())

	req := establish(t, m, model.ProviderToken{AccessToken: ""})
	_, ok := m.Current(req)
	assert.False(t, ok)
}

func TestSessionManager_Clear(t *testing.T) {
	m, _ := newTestSessionManager(t, repo.NewMemorySessionRepo())
	req := establish(t, m, model.ProviderToken{AccessToken: "abc"})

	rec := httptest.NewRecorder()
	require.NoError(t, m.Clear(context.Background(), rec, req))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookieName, cookies[0].Name)
	assert.Equal(t, "", cookies[0].Value)
	assert.Less(t, cookies[0].MaxAge, 0)

	// the old cookie no longer authenticates, even if the browser keeps sending it
	_, ok := m.Current(req)
	assert.False(t, ok)

	require.NoError(t, m.Clear(context.Background(), httptest.NewRecorder(), req), "clear is idempotent")
	require.NoError(t, m.Clear(context.Background(), httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil)))
}

func TestSessionManager_EstablishReplacesPreviousSession(t *testing.T) {
	m, _ := newTestSessionManager(t, repo.NewMemorySessionRepo())
	first := establish(t, m, model.ProviderToken{AccessToken: "first"})

	rec := httptest.NewRecorder()
	require.NoError(t, m.Establish(context.Background(), rec, first, model.ProviderToken{AccessToken: "second"}))

	_, ok := m.Current(first)
	assert.False(t, ok, "previous session must be dropped on re-login")
}

func TestSessionManager_expiry(t *testing.T) {
	m, _ := newTestSessionManager(t, repo.NewMemorySessionRepo())
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	rec := httptest.NewRecorder()
	err := m.Establish(context.Background(), rec, httptest.NewRequest(http.MethodPost, "/login", nil), model.ProviderToken{AccessToken: "abc"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	_, ok := m.Current(req)
	assert.False(t, ok, "sessions past their TTL are unauthenticated")
}

type failingSessionRepo struct {
	repo.SessionRepo
}

func (failingSessionRepo) Create(ctx context.Context, token model.ProviderToken, expiresAt time.Time) (model.AdminSession, error) {
	return model.AdminSession{}, errors.New("db down")
}

func (failingSessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	return 0, errors.New("db down")
}

func TestSessionManager_EstablishStoreFailure(t *testing.T) {
	m, logs := newTestSessionManager(t, failingSessionRepo{})

	rec := httptest.NewRecorder()
	err := m.Establish(context.Background(), rec, httptest.NewRequest(http.MethodPost, "/login", nil), model.ProviderToken{AccessToken: "abc"})
	require.Error(t, err)
	assert.Empty(t, rec.Result().Cookies(), "no cookie without a stored session")
	assert.Contains(t, logs.String(), "failed to purge expired sessions")
}
