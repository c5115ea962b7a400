package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokenServer(t *testing.T, status int, body any) (*httptest.Server, *http.Request) {
	t.Helper()
	var captured http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		captured = *r
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv, &captured
}

func newTestClient(tokenURL string) *SalesforceClient {
	return NewSalesforceClient(SalesforceConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		TokenURL:     tokenURL,
	})
}

func TestSalesforceClient_success(t *testing.T) {
	srv, captured := newTokenServer(t, http.StatusOK, map[string]string{
		"access_token": "abc",
		"instance_url": "https://example.my.salesforce.com",
	})

	token, err := newTestClient(srv.URL).Authenticate(context.Background(), "admin@test.com", "pass123token")
	require.NoError(t, err)
	assert.Equal(t, "abc", token.AccessToken)
	assert.Equal(t, "https://example.my.salesforce.com", token.InstanceURL)

	assert.Equal(t, http.MethodPost, captured.Method)
	assert.Equal(t, "password", captured.PostForm.Get("grant_type"))
	assert.Equal(t, "client-id", captured.PostForm.Get("client_id"))
	assert.Equal(t, "client-secret", captured.PostForm.Get("client_secret"))
	assert.Equal(t, "admin@test.com", captured.PostForm.Get("username"))
	assert.Equal(t, "pass123token", captured.PostForm.Get("password"))
}

func TestSalesforceClient_rejectedWithDescription(t *testing.T) {
	srv, _ := newTokenServer(t, http.StatusBadRequest, map[string]string{
		"error":             "invalid_grant",
		"error_description": "bad creds",
	})

	_, err := newTestClient(srv.URL).Authenticate(context.Background(), "u", "p")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthFailure)
	assert.NotErrorIs(t, err, ErrUnreachable)

	var authErr *AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, "bad creds", authErr.Description)
	assert.Equal(t, http.StatusBadRequest, authErr.StatusCode)
}

func TestSalesforceClient_okWithoutToken(t *testing.T) {
	srv, _ := newTokenServer(t, http.StatusOK, map[string]string{"instance_url": "https://x"})

	_, err := newTestClient(srv.URL).Authenticate(context.Background(), "u", "p")
	var authErr *AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, "Authentication failed", authErr.Description)
}

func TestSalesforceClient_nonJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Authenticate(context.Background(), "u", "p")
	assert.ErrorIs(t, err, ErrAuthFailure)
}

func TestSalesforceClient_unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newTestClient(url).Authenticate(context.Background(), "u", "p")
	assert.ErrorIs(t, err, ErrUnreachable)
	assert.NotErrorIs(t, err, ErrAuthFailure)
}

func TestSalesforceClient_timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	client := NewSalesforceClient(SalesforceConfig{TokenURL: srv.URL, Timeout: 50 * time.Millisecond})
	_, err := client.Authenticate(context.Background(), "u", "p")
	assert.ErrorIs(t, err, ErrUnreachable)
}

func TestNewSalesforceClient_defaults(t *testing.T) {
	c := NewSalesforceClient(SalesforceConfig{})
	assert.Equal(t, DefaultTokenURL, c.config.TokenURL)
	assert.Equal(t, DefaultAuthTimeout, c.httpClient.Timeout)
}
