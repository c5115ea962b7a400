package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mobilerecharge/server/internal/model"
)

const (
	// DefaultTokenURL is the Salesforce production token endpoint
	DefaultTokenURL = "https://login.salesforce.com/services/oauth2/token"
	// DefaultAuthTimeout bounds the single outbound token request
	DefaultAuthTimeout = 10 * time.Second

	genericAuthFailure = "Authentication failed"
	maxTokenBodyBytes  = 1 << 20
)

var (
	// ErrAuthFailure matches any rejection by the identity provider
	ErrAuthFailure = errors.New("identity provider rejected credentials")
	// ErrUnreachable is returned when the identity provider cannot be reached
	ErrUnreachable = errors.New("identity provider unreachable")
)

// AuthError is a rejection by the identity provider. Description is safe to show to the user.
type AuthError struct {
	StatusCode  int
	Description string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("identity provider returned %d: %s", e.StatusCode, e.Description)
}

// Is lets errors.Is(err, ErrAuthFailure) match any *AuthError
func (e *AuthError) Is(target error) bool {
	return target == ErrAuthFailure
}

// IdentityProvider exchanges admin credentials for a provider access token
type IdentityProvider interface {
	Authenticate(ctx context.Context, username, password string) (*model.ProviderToken, error)
}

// SalesforceConfig holds the OAuth client settings for the password grant
type SalesforceConfig struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	Timeout      time.Duration
}

// SalesforceClient implements IdentityProvider with the OAuth 2.0 username-password flow
type SalesforceClient struct {
	config     SalesforceConfig
	httpClient *http.Client
}

// NewSalesforceClient creates a SalesforceClient, filling in default URL and timeout
func NewSalesforceClient(config SalesforceConfig) *SalesforceClient {
	if config.TokenURL == "" {
		config.TokenURL = DefaultTokenURL
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultAuthTimeout
	}
	return &SalesforceClient{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// tokenResponse covers both the success and the error shape of the token endpoint
type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	InstanceURL      string `json:"instance_url"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// Authenticate performs a single password-grant request. It never retries.
func (c *SalesforceClient) Authenticate(ctx context.Context, username, password string) (*model.ProviderToken, error) {
	form := url.Values{
		"grant_type":    {"password"},
		"client_id":     {c.config.ClientID},
		"client_secret": {c.config.ClientSecret},
		"username":      {username},
		"password":      {password},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read token response: %w", ErrUnreachable, err)
	}

	var tr tokenResponse
	// A non-JSON body still maps to a rejection, just without a description
	_ = json.Unmarshal(body, &tr)

	if resp.StatusCode == http.StatusOK && tr.AccessToken != "" {
		return &model.ProviderToken{
			AccessToken: tr.AccessToken,
			InstanceURL: tr.InstanceURL,
		}, nil
	}

	description := tr.ErrorDescription
	if description == "" {
		description = genericAuthFailure
	}
	return nil, &AuthError{StatusCode: resp.StatusCode, Description: description}
}

// compile-time interface check
var _ IdentityProvider = (*SalesforceClient)(nil)
