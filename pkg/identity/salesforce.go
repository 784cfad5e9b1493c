package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

const (
	// DefaultLoginURL is the Salesforce production login server
	DefaultLoginURL = "https://login.salesforce.com"
	// SandboxLoginURL is the Salesforce sandbox login server
	SandboxLoginURL = "https://test.salesforce.com"

	defaultAPIVersion = "v59.0"
)

// SalesforceConfig holds the Connected App credentials for the broker's
// own Salesforce login flow (distinct from per-org DevHub credentials).
type SalesforceConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	LoginURL     string // defaults to DefaultLoginURL
	APIVersion   string // defaults to "v59.0"
}

// SalesforceLogin is the result of a completed authorization-code round
// trip: the normalized identity plus the org facts needed for the admin
// determination.
type SalesforceLogin struct {
	Identity Identity

	SfUserID string
	SfOrgID  string
	Username string

	// DevHub is the capability probe result: can this org own scratch orgs?
	DevHub Capability
	// CanModifyAllData is the user's org-wide modify-all-data privilege.
	CanModifyAllData bool
}

// SalesforceResolver implements the Salesforce branch of the identity
// resolver.
type SalesforceResolver struct {
	oauth      *oauth2.Config
	apiVersion string
	httpClient *http.Client
}

// NewSalesforceResolver creates a Salesforce identity resolver
func NewSalesforceResolver(cfg SalesforceConfig) *SalesforceResolver {
	loginURL := cfg.LoginURL
	if loginURL == "" {
		loginURL = DefaultLoginURL
	}
	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = defaultAPIVersion
	}
	return &SalesforceResolver{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:  loginURL + "/services/oauth2/authorize",
				TokenURL: loginURL + "/services/oauth2/token",
			},
		},
		apiVersion: apiVersion,
	}
}

// SetHTTPClient overrides the HTTP client used for the token exchange and
// identity queries. Intended for tests.
func (r *SalesforceResolver) SetHTTPClient(c *http.Client) {
	r.httpClient = c
}

// AuthorizeURL builds the Salesforce authorization URL carrying the CSRF
// state token. prompt=login forces interactive credential entry so a
// lingering Salesforce session cannot be silently reused.
func (r *SalesforceResolver) AuthorizeURL(state string) string {
	return r.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "login"))
}

// Login exchanges the authorization code and resolves the identity, org
// settings, and DevHub capability for the authenticated user.
func (r *SalesforceResolver) Login(ctx context.Context, code string) (*SalesforceLogin, error) {
	if r.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, r.httpClient)
	}

	token, err := r.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("salesforce code exchange: %w", err)
	}

	instanceURL, _ := token.Extra("instance_url").(string)
	identityURL, _ := token.Extra("id").(string)
	if instanceURL == "" || identityURL == "" {
		return nil, fmt.Errorf("salesforce token response missing instance_url or id")
	}

	client := r.oauth.Client(ctx, token)

	var id struct {
		UserID         string `json:"user_id"`
		OrganizationID string `json:"organization_id"`
		Username       string `json:"username"`
	}
	if err := getJSON(ctx, client, identityURL, &id); err != nil {
		return nil, fmt.Errorf("salesforce identity query: %w", err)
	}

	var org struct {
		UserSettings struct {
			CanModifyAllData bool `json:"canModifyAllData"`
		} `json:"userSettings"`
	}
	orgURL := instanceURL + "/services/data/" + r.apiVersion + "/connect/organization"
	if err := getJSON(ctx, client, orgURL, &org); err != nil {
		return nil, fmt.Errorf("salesforce organization query: %w", err)
	}

	login := &SalesforceLogin{
		Identity: Identity{
			Subject:  id.Username,
			Provider: ProviderSalesforce,
		},
		SfUserID:         id.UserID,
		SfOrgID:          id.OrganizationID,
		Username:         id.Username,
		CanModifyAllData: org.UserSettings.CanModifyAllData,
	}

	// Only orgs with admin users can possibly be DevHubs; skip the probe
	// otherwise since the result cannot grant anything.
	if org.UserSettings.CanModifyAllData {
		login.DevHub = r.probeDevHub(ctx, client, instanceURL)
	}

	return login, nil
}

// probeDevHub asks whether the org can own scratch orgs by describing a
// DevHub-only object. A definitive upstream answer (2xx or a 4xx "no such
// object") maps to yes/no; a transport fault is indeterminate and must
// not be reported as "no".
func (r *SalesforceResolver) probeDevHub(ctx context.Context, client *http.Client, instanceURL string) Capability {
	url := instanceURL + "/services/data/" + r.apiVersion + "/sobjects/ScratchOrgInfo/describe"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return CapabilityIndeterminate
	}
	resp, err := client.Do(req)
	if err != nil {
		return CapabilityIndeterminate
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return CapabilityYes
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return CapabilityNo
	default:
		return CapabilityIndeterminate
	}
}

func getJSON(ctx context.Context, client *http.Client, url string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}
