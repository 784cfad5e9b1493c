package session

import (
	"context"
	"net/http"
	"time"

	"github.com/platinummonkey/backwindow/pkg/observability"
)

// CookieName is the session cookie issued to browsers
const CookieName = "bw_session"

// Manager binds a session store to the cookie transport and owns the
// session lifecycle: created on first contact, destroyed on logout.
type Manager struct {
	store   Store
	ttl     time.Duration
	secure  bool
	metrics *observability.Metrics
}

// NewManager creates a session manager. secure controls the cookie's
// Secure attribute and should be true behind TLS.
func NewManager(store Store, ttl time.Duration, secure bool) *Manager {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{
		store:  store,
		ttl:    ttl,
		secure: secure,
	}
}

// SetMetrics enables the active-session gauge. Sessions reaped by store
// TTL alone are not decremented, so the gauge tracks opens minus
// explicit logouts.
func (m *Manager) SetMetrics(metrics *observability.Metrics) {
	m.metrics = metrics
}

// Load returns the request's session, or nil if the browser has none
func (m *Manager) Load(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil, nil
	}
	return m.store.Get(r.Context(), cookie.Value)
}

// LoadOrCreate returns the request's session, creating one (and setting
// the cookie) when the browser has none.
func (m *Manager) LoadOrCreate(w http.ResponseWriter, r *http.Request) (*Session, error) {
	s, err := m.Load(r)
	if err != nil {
		return nil, err
	}
	if s != nil {
		return s, nil
	}

	id, err := GenerateID()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	s = &Session{
		ID:        id,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.store.Save(r.Context(), s); err != nil {
		return nil, err
	}
	if m.metrics != nil {
		m.metrics.SessionOpened()
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		Expires:  s.ExpiresAt,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return s, nil
}

// Save persists session mutations
func (m *Manager) Save(ctx context.Context, s *Session) error {
	return m.store.Save(ctx, s)
}

// Destroy removes the session from the store and clears the cookie
func (m *Manager) Destroy(w http.ResponseWriter, r *http.Request) error {
	cookie, err := r.Cookie(CookieName)
	if err == nil {
		if derr := m.store.Delete(r.Context(), cookie.Value); derr != nil {
			return derr
		}
		if m.metrics != nil {
			m.metrics.SessionClosed()
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
