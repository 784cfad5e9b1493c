package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/platinummonkey/backwindow/pkg/identity"
)

const (
	// AssertionTTL bounds the blast radius of a leaked assertion
	AssertionTTL = 180 * time.Second

	// JWTBearerGrantType is the OAuth2 JWT-bearer grant type URN
	JWTBearerGrantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"

	tokenEndpointPath = "/services/oauth2/token"
)

// Engine performs the JWT-bearer token exchange against a Salesforce
// login server. It makes exactly one attempt per request: assertions are
// single-use and time-boxed, so a transient failure surfaces to the
// caller instead of being retried.
type Engine struct {
	httpClient         *http.Client
	productionLoginURL string
	sandboxLoginURL    string
	now                func() time.Time
}

// Option configures an Engine
type Option func(*Engine)

// WithHTTPClient overrides the HTTP client used for the token POST
func WithHTTPClient(c *http.Client) Option {
	return func(e *Engine) { e.httpClient = c }
}

// WithLoginURLs overrides the production and sandbox login servers
func WithLoginURLs(production, sandbox string) Option {
	return func(e *Engine) {
		e.productionLoginURL = production
		e.sandboxLoginURL = sandbox
	}
}

// WithClock overrides the assertion clock. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates a token exchange engine
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		httpClient:         &http.Client{Timeout: 30 * time.Second},
		productionLoginURL: identity.DefaultLoginURL,
		sandboxLoginURL:    identity.SandboxLoginURL,
		now:                time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// LoginURL returns the login server for the environment
func (e *Engine) LoginURL(env Environment) string {
	if env == EnvironmentSandbox {
		return e.sandboxLoginURL
	}
	return e.productionLoginURL
}

// MintAssertion builds and signs the JWT bearer assertion:
// iss = the org's Connected App client ID, sub = the target username,
// aud = the login server for the environment, exp = now + AssertionTTL.
// A malformed key or signing fault is fatal for the request.
func (e *Engine) MintAssertion(appClientID, appPrivateKeyPEM, username string, env Environment) (string, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(appPrivateKeyPEM))
	if err != nil {
		return "", fmt.Errorf("exchange: parse private key: %w", err)
	}

	claims := jwt.RegisteredClaims{
		Issuer:    appClientID,
		Subject:   username,
		Audience:  jwt.ClaimStrings{e.LoginURL(env)},
		ExpiresAt: jwt.NewNumericDate(e.now().Add(AssertionTTL)),
	}

	assertion, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("exchange: sign assertion: %w", err)
	}
	return assertion, nil
}

// Exchange POSTs the assertion to the login server's token endpoint.
// On a non-2xx response the provider's error description is returned as
// a *ProviderError; the assertion never appears in any error.
func (e *Engine) Exchange(ctx context.Context, env Environment, assertion string) (*Grant, error) {
	endpoint := e.LoginURL(env) + tokenEndpointPath

	form := url.Values{}
	form.Set("grant_type", JWTBearerGrantType)
	form.Set("assertion", assertion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("exchange: build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("exchange: token endpoint request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		provErr := &ProviderError{StatusCode: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(provErr); err != nil {
			provErr.Description = resp.Status
		}
		return nil, provErr
	}

	grant := &Grant{}
	if err := json.NewDecoder(resp.Body).Decode(grant); err != nil {
		return nil, fmt.Errorf("exchange: decode token response: %w", err)
	}
	if grant.AccessToken == "" || grant.InstanceURL == "" {
		return nil, fmt.Errorf("exchange: token response missing access_token or instance_url")
	}
	return grant, nil
}
