package registry

import (
	"time"

	"github.com/platinummonkey/backwindow/pkg/identity"
)

// OrgRegistration is a registered DevHub org. AppClientID and
// AppPrivateKey start empty on first registration and are set by an
// operator before the org can broker logins. SfUserID pins ownership to
// the Salesforce user who first registered the org.
type OrgRegistration struct {
	ID            int64          `json:"id"`
	SfOrgID       string         `json:"sfOrgId"`
	SfUserID      string         `json:"sfUserId,omitempty"`
	AppClientID   string         `json:"appClientId,omitempty"`
	AppPrivateKey string         `json:"-"` // PEM, never serialized
	AllowedList   []AllowedEntry `json:"allowedList"`
	CreatedAt     time.Time      `json:"createdAt,omitempty"`
	UpdatedAt     time.Time      `json:"updatedAt,omitempty"`
}

// Configured reports whether the org has Connected App credentials set
func (o *OrgRegistration) Configured() bool {
	return o.AppClientID != "" && o.AppPrivateKey != ""
}

// AllowedEntry pre-authorizes a (provider, email) pair for one org. The
// same email under different providers is a distinct identity and must
// be listed separately.
type AllowedEntry struct {
	ID       int64             `json:"id"`
	OrgID    int64             `json:"orgId"`
	Provider identity.Provider `json:"provider"`
	Email    string            `json:"email"`
}
