package session

import (
	"time"
)

// Session is the explicit per-browser state object. Fields are cleared
// individually: RedirectPath and State are consumed by the login round
// trip; identity fields persist until logout.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`

	// Authenticated identity. Empty Subject means anonymous.
	Subject  string `json:"subject,omitempty"`
	Provider string `json:"provider,omitempty"`

	// Admin grant. SfOrgID is set only when the user logged in as the
	// owning admin of a registered DevHub.
	IsAdmin bool   `json:"is_admin,omitempty"`
	SfOrgID string `json:"sf_org_id,omitempty"`

	// Login round-trip state.
	State        string `json:"state,omitempty"`
	RedirectPath string `json:"redirect_path,omitempty"`
}

// Authenticated reports whether the session carries an identity
func (s *Session) Authenticated() bool {
	return s != nil && s.Subject != "" && s.Provider != ""
}

// ConsumeRedirectPath returns the stashed redirect path (or the fallback)
// and clears the stash. The caller must save the session afterwards.
func (s *Session) ConsumeRedirectPath(fallback string) string {
	path := s.RedirectPath
	s.RedirectPath = ""
	if path == "" {
		return fallback
	}
	return path
}
