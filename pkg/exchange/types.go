package exchange

import (
	"fmt"
)

// Environment selects the Salesforce login server the assertion targets
type Environment string

const (
	EnvironmentProduction Environment = "production"
	EnvironmentSandbox    Environment = "sandbox"
)

// ParseEnvironment parses the ls query parameter. Empty defaults to
// production; anything else is an error.
func ParseEnvironment(s string) (Environment, error) {
	switch s {
	case "", string(EnvironmentProduction):
		return EnvironmentProduction, nil
	case string(EnvironmentSandbox):
		return EnvironmentSandbox, nil
	default:
		return "", fmt.Errorf("exchange: unknown login environment %q", s)
	}
}

// Grant is a successful token-endpoint response
type Grant struct {
	AccessToken string `json:"access_token"`
	InstanceURL string `json:"instance_url"`
}

// ProviderError is a token-endpoint rejection. It carries the provider's
// error description for surfacing to the caller; the assertion itself is
// never included.
type ProviderError struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *ProviderError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("exchange: token endpoint returned %d: %s", e.StatusCode, e.Description)
	}
	return fmt.Sprintf("exchange: token endpoint returned %d: %s", e.StatusCode, e.Code)
}

// Message returns the user-visible description of the failure
func (e *ProviderError) Message() string {
	if e.Description != "" {
		return e.Description
	}
	return e.Code
}
