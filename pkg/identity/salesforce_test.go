package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOrg stands up a Salesforce login server and API instance in one
type fakeOrg struct {
	srv *httptest.Server

	canModifyAllData bool
	probeStatus      int
}

func newFakeOrg(t *testing.T) *fakeOrg {
	t.Helper()
	f := &fakeOrg{probeStatus: http.StatusOK}

	mux := http.NewServeMux()
	mux.HandleFunc("/services/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "session-token",
			"token_type":   "Bearer",
			"instance_url": f.srv.URL,
			"id":           f.srv.URL + "/id/00D000000000001AAA/005000000000001AAA",
		})
	})
	mux.HandleFunc("/id/00D000000000001AAA/005000000000001AAA", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"user_id":         "005000000000001AAA",
			"organization_id": "00D000000000001AAA",
			"username":        "admin@example.com.devhub",
		})
	})
	mux.HandleFunc("/services/data/v59.0/connect/organization", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"userSettings": map[string]bool{"canModifyAllData": f.canModifyAllData},
		})
	})
	mux.HandleFunc("/services/data/v59.0/sobjects/ScratchOrgInfo/describe", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(f.probeStatus)
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeOrg) resolver() *SalesforceResolver {
	r := NewSalesforceResolver(SalesforceConfig{
		ClientID:     "broker-client",
		ClientSecret: "broker-secret",
		RedirectURL:  "http://localhost/auth/salesforce/callback",
		LoginURL:     f.srv.URL,
	})
	r.SetHTTPClient(f.srv.Client())
	return r
}

func TestAuthorizeURL(t *testing.T) {
	resolver := NewSalesforceResolver(SalesforceConfig{
		ClientID:    "broker-client",
		RedirectURL: "http://localhost/auth/salesforce/callback",
	})

	raw := resolver.AuthorizeURL("state-token")
	u, err := url.Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, "login.salesforce.com", u.Host)
	assert.Equal(t, "/services/oauth2/authorize", u.Path)
	assert.Equal(t, "state-token", u.Query().Get("state"))
	assert.Equal(t, "login", u.Query().Get("prompt"))
	assert.Equal(t, "broker-client", u.Query().Get("client_id"))
}

func TestSalesforceLoginAdmin(t *testing.T) {
	org := newFakeOrg(t)
	org.canModifyAllData = true
	org.probeStatus = http.StatusOK

	login, err := org.resolver().Login(context.Background(), "auth-code")
	require.NoError(t, err)

	assert.Equal(t, "admin@example.com.devhub", login.Identity.Subject)
	assert.Equal(t, ProviderSalesforce, login.Identity.Provider)
	assert.Equal(t, "005000000000001AAA", login.SfUserID)
	assert.Equal(t, "00D000000000001AAA", login.SfOrgID)
	assert.True(t, login.CanModifyAllData)
	assert.Equal(t, CapabilityYes, login.DevHub)
}

func TestSalesforceLoginNonDevHub(t *testing.T) {
	org := newFakeOrg(t)
	org.canModifyAllData = true
	org.probeStatus = http.StatusNotFound

	login, err := org.resolver().Login(context.Background(), "auth-code")
	require.NoError(t, err)
	assert.Equal(t, CapabilityNo, login.DevHub)
}

func TestSalesforceLoginProbeFault(t *testing.T) {
	org := newFakeOrg(t)
	org.canModifyAllData = true
	org.probeStatus = http.StatusBadGateway

	login, err := org.resolver().Login(context.Background(), "auth-code")
	require.NoError(t, err)
	assert.Equal(t, CapabilityIndeterminate, login.DevHub)
}

func TestSalesforceLoginNonAdminSkipsProbe(t *testing.T) {
	org := newFakeOrg(t)
	org.canModifyAllData = false

	login, err := org.resolver().Login(context.Background(), "auth-code")
	require.NoError(t, err)
	assert.False(t, login.CanModifyAllData)
	assert.Equal(t, CapabilityNo, login.DevHub)
}
