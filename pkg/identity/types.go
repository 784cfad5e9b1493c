package identity

import "errors"

// Provider identifies the upstream identity provider
type Provider string

const (
	ProviderGoogle     Provider = "google"
	ProviderSalesforce Provider = "salesforce"
)

// Valid reports whether p is a known provider
func (p Provider) Valid() bool {
	return p == ProviderGoogle || p == ProviderSalesforce
}

// Identity is the normalized identity record carried in the session
type Identity struct {
	// Subject is the email (Google) or username (Salesforce)
	Subject  string   `json:"subject"`
	Provider Provider `json:"provider"`
}

// Capability is the tri-state result of a capability probe. A transport
// fault yields CapabilityIndeterminate, which callers must not collapse
// into CapabilityNo.
type Capability int

const (
	CapabilityNo Capability = iota
	CapabilityYes
	CapabilityIndeterminate
)

func (c Capability) String() string {
	switch c {
	case CapabilityYes:
		return "yes"
	case CapabilityNo:
		return "no"
	default:
		return "indeterminate"
	}
}

var (
	// ErrCSRFMismatch indicates the double-submit CSRF token pair differed
	// or the cookie was absent.
	ErrCSRFMismatch = errors.New("identity: CSRF token validation error")

	// ErrTokenInvalid indicates ID-token verification failed.
	ErrTokenInvalid = errors.New("identity: ID token verification failed")

	// ErrEmailNotVerified indicates the ID token does not assert a
	// verified email.
	ErrEmailNotVerified = errors.New("identity: email not verified")
)

// CheckDoubleSubmit validates a double-submit CSRF cookie/body pair.
// The cookie must be present and byte-equal to the body value.
func CheckDoubleSubmit(cookieValue, bodyValue string) error {
	if cookieValue == "" || cookieValue != bodyValue {
		return ErrCSRFMismatch
	}
	return nil
}
