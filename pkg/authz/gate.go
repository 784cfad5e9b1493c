package authz

import (
	"github.com/platinummonkey/backwindow/pkg/identity"
	"github.com/platinummonkey/backwindow/pkg/registry"
)

// Decision is the outcome of an allow-list check
type Decision int

const (
	Deny Decision = iota
	Allow
)

func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}

// Decide returns Allow iff the org's allow-list contains an entry whose
// provider and email exactly match the identity. Matching is
// case-sensitive with no normalization: emails are attacker-influenced
// input, and the same email string under different providers is a
// distinct identity. A linear scan is fine at admin-curated list sizes.
func Decide(id identity.Identity, org *registry.OrgRegistration) Decision {
	if org == nil {
		return Deny
	}
	for _, entry := range org.AllowedList {
		if entry.Provider == id.Provider && entry.Email == id.Subject {
			return Allow
		}
	}
	return Deny
}
