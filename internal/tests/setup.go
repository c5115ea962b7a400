package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/mobilerecharge/server/internal/auth"
	httphandler "github.com/mobilerecharge/server/internal/http"
	"github.com/mobilerecharge/server/internal/http/handlers"
	"github.com/mobilerecharge/server/internal/logger"
	"github.com/mobilerecharge/server/internal/metrics"
	"github.com/mobilerecharge/server/internal/model"
	"github.com/mobilerecharge/server/internal/repo"
)

// MemoryProfileRepo is an in-process ProfileRepo with the same conditional semantics as the
// DynamoDB implementation: create fails on an existing key, update and delete of a missing
// key are no-ops.
type MemoryProfileRepo struct {
	mu       sync.Mutex
	profiles map[int64]model.UserProfile
	// Fail makes every call behave like an unreachable store
	Fail atomic.Bool
}

// NewMemoryProfileRepo creates an empty MemoryProfileRepo
func NewMemoryProfileRepo() *MemoryProfileRepo {
	return &MemoryProfileRepo{profiles: make(map[int64]model.UserProfile)}
}

func (r *MemoryProfileRepo) Exists(_ context.Context, mobile int64) (bool, error) {
	if r.Fail.Load() {
		return false, repo.ErrStoreUnavailable
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.profiles[mobile]
	return ok, nil
}

func (r *MemoryProfileRepo) Create(_ context.Context, p model.UserProfile) error {
	if r.Fail.Load() {
		return repo.ErrStoreUnavailable
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.profiles[p.Mobile]; ok {
		return repo.ErrDuplicateKey
	}
	r.profiles[p.Mobile] = p
	return nil
}

func (r *MemoryProfileRepo) Update(_ context.Context, mobile int64, upd model.ProfileUpdate) error {
	if r.Fail.Load() {
		return repo.ErrStoreUnavailable
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[mobile]
	if !ok || upd.IsEmpty() {
		return nil
	}
	if upd.FirstName != nil {
		p.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		p.LastName = *upd.LastName
	}
	if upd.Email != nil {
		p.Email = *upd.Email
	}
	r.profiles[mobile] = p
	return nil
}

func (r *MemoryProfileRepo) Delete(_ context.Context, mobile int64) error {
	if r.Fail.Load() {
		return repo.ErrStoreUnavailable
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.profiles, mobile)
	return nil
}

func (r *MemoryProfileRepo) ListAll(context.Context) []model.UserProfile {
	if r.Fail.Load() {
		return []model.UserProfile{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.UserProfile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p)
	}
	return out
}

// Get returns the stored profile for mobile
func (r *MemoryProfileRepo) Get(mobile int64) (model.UserProfile, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[mobile]
	return p, ok
}

var _ repo.ProfileRepo = (*MemoryProfileRepo)(nil)

// FakeIdentityProvider is an httptest token endpoint. Status and Body are served to every
// password grant; Calls counts the grants received.
type FakeIdentityProvider struct {
	Server *httptest.Server

	mu     sync.Mutex
	status int
	body   map[string]string
	calls  atomic.Int32
}

func newFakeIdentityProvider(t *testing.T) *FakeIdentityProvider {
	t.Helper()
	idp := &FakeIdentityProvider{
		status: http.StatusOK,
		body:   map[string]string{"access_token": "abc", "instance_url": "https://example.my.salesforce.com"},
	}
	idp.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		idp.calls.Add(1)
		idp.mu.Lock()
		status, body := idp.status, idp.body
		idp.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(idp.Server.Close)
	return idp
}

// Respond sets the status and JSON body returned by the token endpoint
func (p *FakeIdentityProvider) Respond(status int, body map[string]string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = status
	p.body = body
}

// Calls returns the number of token requests received
func (p *FakeIdentityProvider) Calls() int {
	return int(p.calls.Load())
}

// testServer holds the running API and its in-memory collaborators
type testServer struct {
	Server   *httptest.Server
	Profiles *MemoryProfileRepo
	IdP      *FakeIdentityProvider
	Registry *prometheus.Registry
}

type serverOptions struct {
	tokenURL    string
	sessionRepo repo.SessionRepo
}

type serverOption func(*serverOptions)

// withTokenURL points the identity client somewhere other than the fake provider
func withTokenURL(u string) serverOption {
	return func(o *serverOptions) { o.tokenURL = u }
}

// withSessionRepo replaces the in-memory session store
func withSessionRepo(r repo.SessionRepo) serverOption {
	return func(o *serverOptions) { o.sessionRepo = r }
}

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()

	idp := newFakeIdentityProvider(t)
	o := serverOptions{tokenURL: idp.Server.URL, sessionRepo: repo.NewMemorySessionRepo()}
	for _, opt := range opts {
		opt(&o)
	}

	log := logger.Setup(testWriter{t}, true)
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	profiles := NewMemoryProfileRepo()

	sessions := auth.NewSessionManager(o.sessionRepo, auth.NewJWTService("test-session-secret"), auth.SessionConfig{}, log)
	identity := auth.NewSalesforceClient(auth.SalesforceConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		TokenURL:     o.tokenURL,
	})

	h, err := handlers.New(handlers.Deps{
		Profiles: profiles,
		Identity: identity,
		Sessions: sessions,
		Logger:   log,
		Metrics:  collector,
	})
	require.NoError(t, err)

	router := httphandler.NewRouter(httphandler.RouterConfig{
		Handler:  h,
		Sessions: sessions,
		Logger:   log,
		Metrics:  collector,
		Gatherer: reg,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testServer{Server: srv, Profiles: profiles, IdP: idp, Registry: reg}
}

// BaseURL returns the server base URL
func (ts *testServer) BaseURL() string {
	return ts.Server.URL
}

// NewClient returns a client with its own cookie jar that does not follow redirects
func (ts *testServer) NewClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// SessionCookie returns the admin session cookie held by client, if any
func (ts *testServer) SessionCookie(t *testing.T, client *http.Client) *http.Cookie {
	t.Helper()
	u, err := url.Parse(ts.BaseURL())
	require.NoError(t, err)
	for _, c := range client.Jar.Cookies(u) {
		if c.Name == auth.SessionCookieName {
			return c
		}
	}
	return nil
}

// testWriter routes server logs through t.Log so they show up only for failing tests
type testWriter struct {
	t *testing.T
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(string(p))
	return len(p), nil
}
