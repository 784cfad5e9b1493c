// Package session implements the per-browser session for the backwindow
// broker. A session carries the authenticated identity, the admin grant
// when present, and the short-lived login round-trip state (CSRF state
// token, stashed redirect path). Sessions live in an external store and
// are referenced by an opaque cookie.
package session
