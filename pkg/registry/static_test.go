package registry

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/backwindow/pkg/identity"
)

func TestLoadStaticFile(t *testing.T) {
	keyB64 := base64.StdEncoding.EncodeToString([]byte("PEM KEY"))
	yamlBody := `
orgs:
  - sf_org_id: 00D000000000001AAA
    sf_user_id: 005000000000001AAA
    app_client_id: app-client
    app_private_key_base64: ` + keyB64 + `
    allowed:
      - provider: google
        email: dev@example.com
      - provider: salesforce
        email: dev@example.com.devhub
`
	path := filepath.Join(t.TempDir(), "registry.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0o600))

	reg, err := LoadStaticFile(path)
	require.NoError(t, err)

	org, err := reg.FindBySfOrgID(context.Background(), "00D000000000001AAA")
	require.NoError(t, err)
	assert.Equal(t, "app-client", org.AppClientID)
	assert.Equal(t, "PEM KEY", org.AppPrivateKey)
	assert.True(t, org.Configured())
	require.Len(t, org.AllowedList, 2)
	assert.Equal(t, identity.ProviderGoogle, org.AllowedList[0].Provider)
}

func TestLoadStaticFileRejectsUnknownProvider(t *testing.T) {
	yamlBody := `
orgs:
  - sf_org_id: 00D000000000001AAA
    allowed:
      - provider: github
        email: dev@example.com
`
	path := filepath.Join(t.TempDir(), "registry.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0o600))

	_, err := LoadStaticFile(path)
	assert.Error(t, err)
}

func TestNewStaticSingleOrg(t *testing.T) {
	keyB64 := base64.StdEncoding.EncodeToString([]byte("PEM KEY"))
	reg, err := NewStaticSingleOrg("00D000000000001AAA", "app-client", keyB64, "a@example.com, b@example.com,")
	require.NoError(t, err)

	org, err := reg.FindBySfOrgID(context.Background(), "00D000000000001AAA")
	require.NoError(t, err)
	assert.Equal(t, "PEM KEY", org.AppPrivateKey)
	require.Len(t, org.AllowedList, 2)
	for _, e := range org.AllowedList {
		assert.Equal(t, identity.ProviderGoogle, e.Provider)
	}
	assert.Equal(t, "a@example.com", org.AllowedList[0].Email)
	assert.Equal(t, "b@example.com", org.AllowedList[1].Email)
}

func TestNewStaticSingleOrgBadKey(t *testing.T) {
	_, err := NewStaticSingleOrg("00D000000000001AAA", "app-client", "!!! not base64 !!!", "")
	assert.Error(t, err)
}

func TestStaticRegistryNotFound(t *testing.T) {
	reg := &StaticRegistry{orgs: map[string]*OrgRegistration{}}
	_, err := reg.FindBySfOrgID(context.Background(), "00D000000000009ZZZ")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStaticRegistryCreateIfAbsent(t *testing.T) {
	keyB64 := base64.StdEncoding.EncodeToString([]byte("PEM KEY"))
	reg, err := NewStaticSingleOrg("00D000000000001AAA", "app-client", keyB64, "a@example.com")
	require.NoError(t, err)

	org, err := reg.CreateIfAbsent(context.Background(), "00D000000000001AAA", "005000000000001AAA")
	require.NoError(t, err)
	assert.Equal(t, "00D000000000001AAA", org.SfOrgID)

	_, err = reg.CreateIfAbsent(context.Background(), "00D000000000002BBB", "005000000000001AAA")
	assert.ErrorIs(t, err, ErrReadOnly)
}

func TestStaticRegistryReturnsCopies(t *testing.T) {
	keyB64 := base64.StdEncoding.EncodeToString([]byte("PEM KEY"))
	reg, err := NewStaticSingleOrg("00D000000000001AAA", "app-client", keyB64, "a@example.com")
	require.NoError(t, err)

	first, err := reg.FindBySfOrgID(context.Background(), "00D000000000001AAA")
	require.NoError(t, err)
	first.AppClientID = "tampered"

	second, err := reg.FindBySfOrgID(context.Background(), "00D000000000001AAA")
	require.NoError(t, err)
	assert.Equal(t, "app-client", second.AppClientID)
}
