package registry

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/backwindow/pkg/identity"
)

// StaticRegistry is a read-only registry for deployments configured from
// a YAML file or environment variables instead of a database. Admin
// logins against a listed org succeed without owner stamping; orgs with
// an empty SfUserID accept any org admin.
type StaticRegistry struct {
	orgs map[string]*OrgRegistration
}

// staticFile is the YAML shape of a static registry file
type staticFile struct {
	Orgs []staticOrg `yaml:"orgs"`
}

type staticOrg struct {
	SfOrgID             string        `yaml:"sf_org_id"`
	SfUserID            string        `yaml:"sf_user_id"`
	AppClientID         string        `yaml:"app_client_id"`
	AppPrivateKey       string        `yaml:"app_private_key"`
	AppPrivateKeyBase64 string        `yaml:"app_private_key_base64"`
	Allowed             []staticEntry `yaml:"allowed"`
}

type staticEntry struct {
	Provider string `yaml:"provider"`
	Email    string `yaml:"email"`
}

// LoadStaticFile loads a static registry from a YAML file
func LoadStaticFile(path string) (*StaticRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("registry: read static file: %w", err)
	}

	var file staticFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("registry: parse static file: %w", err)
	}

	orgs := make(map[string]*OrgRegistration, len(file.Orgs))
	for i, o := range file.Orgs {
		if o.SfOrgID == "" {
			return nil, fmt.Errorf("registry: static org %d missing sf_org_id", i)
		}
		key := o.AppPrivateKey
		if key == "" && o.AppPrivateKeyBase64 != "" {
			decoded, err := base64.StdEncoding.DecodeString(o.AppPrivateKeyBase64)
			if err != nil {
				return nil, fmt.Errorf("registry: static org %s: decode private key: %w", o.SfOrgID, err)
			}
			key = string(decoded)
		}

		org := &OrgRegistration{
			ID:            int64(i + 1),
			SfOrgID:       o.SfOrgID,
			SfUserID:      o.SfUserID,
			AppClientID:   o.AppClientID,
			AppPrivateKey: key,
		}
		for j, e := range o.Allowed {
			provider := identity.Provider(e.Provider)
			if !provider.Valid() {
				return nil, fmt.Errorf("registry: static org %s: unknown provider %q", o.SfOrgID, e.Provider)
			}
			org.AllowedList = append(org.AllowedList, AllowedEntry{
				ID:       int64(j + 1),
				OrgID:    org.ID,
				Provider: provider,
				Email:    e.Email,
			})
		}
		orgs[org.SfOrgID] = org
	}

	return &StaticRegistry{orgs: orgs}, nil
}

// NewStaticSingleOrg builds a one-org static registry from discrete
// values for env-var deployments: the private key arrives
// base64-encoded and the allowed emails are a comma-split list of
// Google identities.
func NewStaticSingleOrg(sfOrgID, appClientID, privateKeyBase64, allowedEmails string) (*StaticRegistry, error) {
	if sfOrgID == "" {
		return nil, fmt.Errorf("registry: static org id is required")
	}
	key, err := base64.StdEncoding.DecodeString(privateKeyBase64)
	if err != nil {
		return nil, fmt.Errorf("registry: decode private key: %w", err)
	}

	org := &OrgRegistration{
		ID:            1,
		SfOrgID:       sfOrgID,
		AppClientID:   appClientID,
		AppPrivateKey: string(key),
	}
	for i, email := range strings.Split(allowedEmails, ",") {
		email = strings.TrimSpace(email)
		if email == "" {
			continue
		}
		org.AllowedList = append(org.AllowedList, AllowedEntry{
			ID:       int64(i + 1),
			OrgID:    1,
			Provider: identity.ProviderGoogle,
			Email:    email,
		})
	}

	return &StaticRegistry{orgs: map[string]*OrgRegistration{sfOrgID: org}}, nil
}

// FindBySfOrgID returns the registration or ErrNotFound
func (r *StaticRegistry) FindBySfOrgID(ctx context.Context, sfOrgID string) (*OrgRegistration, error) {
	org, ok := r.orgs[sfOrgID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *org
	return &copied, nil
}

// CreateIfAbsent returns the existing registration for listed orgs and
// ErrReadOnly otherwise; static registrations cannot be created at login.
func (r *StaticRegistry) CreateIfAbsent(ctx context.Context, sfOrgID, sfUserID string) (*OrgRegistration, error) {
	if org, ok := r.orgs[sfOrgID]; ok {
		copied := *org
		return &copied, nil
	}
	return nil, ErrReadOnly
}
