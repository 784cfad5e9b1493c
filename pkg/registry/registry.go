package registry

import (
	"context"
	"errors"

	"github.com/platinummonkey/backwindow/pkg/identity"
)

var (
	// ErrNotFound indicates no registration exists for the org ID
	ErrNotFound = errors.New("registry: org not found")

	// ErrReadOnly indicates the backend does not accept writes
	ErrReadOnly = errors.New("registry: backend is read-only")
)

// Registry is the read/register interface the broker core consumes.
// Reads return current state on every call; nothing is cached, since
// org configuration can change between requests.
type Registry interface {
	// FindBySfOrgID returns the registration including its allow-list,
	// or ErrNotFound.
	FindBySfOrgID(ctx context.Context, sfOrgID string) (*OrgRegistration, error)

	// CreateIfAbsent registers the org on first admin login, stamping
	// sfUserID as owner. Idempotent on the unique sf_org_id: concurrent
	// creates converge to one row, and the existing row (with its
	// original owner) is returned when the org is already registered.
	CreateIfAbsent(ctx context.Context, sfOrgID, sfUserID string) (*OrgRegistration, error)
}

// Writer is the maintenance interface consumed by the admin CLI
type Writer interface {
	// SetCredentials sets the org's Connected App client ID and private key
	SetCredentials(ctx context.Context, sfOrgID, appClientID, appPrivateKey string) error

	// AddAllowedEntry appends a (provider, email) pair to the org's allow-list
	AddAllowedEntry(ctx context.Context, sfOrgID string, provider identity.Provider, email string) (*AllowedEntry, error)

	// RemoveAllowedEntry deletes an allow-list entry by ID
	RemoveAllowedEntry(ctx context.Context, entryID int64) error
}
