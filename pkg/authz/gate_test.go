package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/platinummonkey/backwindow/pkg/identity"
	"github.com/platinummonkey/backwindow/pkg/registry"
)

func TestDecide(t *testing.T) {
	org := &registry.OrgRegistration{
		SfOrgID: "00D000000000001AAA",
		AllowedList: []registry.AllowedEntry{
			{Provider: identity.ProviderGoogle, Email: "dev@example.com"},
			{Provider: identity.ProviderSalesforce, Email: "dev@example.com.devhub"},
		},
	}

	tests := []struct {
		name     string
		identity identity.Identity
		org      *registry.OrgRegistration
		want     Decision
	}{
		{
			name:     "google entry matches",
			identity: identity.Identity{Subject: "dev@example.com", Provider: identity.ProviderGoogle},
			org:      org,
			want:     Allow,
		},
		{
			name:     "salesforce entry matches",
			identity: identity.Identity{Subject: "dev@example.com.devhub", Provider: identity.ProviderSalesforce},
			org:      org,
			want:     Allow,
		},
		{
			name:     "same email under wrong provider is denied",
			identity: identity.Identity{Subject: "dev@example.com", Provider: identity.ProviderSalesforce},
			org:      org,
			want:     Deny,
		},
		{
			name:     "case differences do not match",
			identity: identity.Identity{Subject: "Dev@Example.com", Provider: identity.ProviderGoogle},
			org:      org,
			want:     Deny,
		},
		{
			name:     "whitespace differences do not match",
			identity: identity.Identity{Subject: " dev@example.com", Provider: identity.ProviderGoogle},
			org:      org,
			want:     Deny,
		},
		{
			name:     "unknown subject is denied",
			identity: identity.Identity{Subject: "intruder@example.com", Provider: identity.ProviderGoogle},
			org:      org,
			want:     Deny,
		},
		{
			name:     "empty allow-list denies everyone",
			identity: identity.Identity{Subject: "dev@example.com", Provider: identity.ProviderGoogle},
			org:      &registry.OrgRegistration{SfOrgID: "00D000000000002AAA"},
			want:     Deny,
		},
		{
			name:     "nil org denies",
			identity: identity.Identity{Subject: "dev@example.com", Provider: identity.ProviderGoogle},
			org:      nil,
			want:     Deny,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.identity, tt.org))
		})
	}
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "allow", Allow.String())
	assert.Equal(t, "deny", Deny.String())
}
