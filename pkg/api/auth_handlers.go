package api

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/backwindow/pkg/httputil"
	"github.com/platinummonkey/backwindow/pkg/identity"
	"github.com/platinummonkey/backwindow/pkg/session"
)

const csrfCookieName = "g_csrf_token"

// handleSalesforceLogin starts the Salesforce authorization-code round
// trip. A fresh state token is stashed in the session before redirecting.
func (s *Server) handleSalesforceLogin(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.LoadOrCreate(w, r)
	if err != nil {
		s.log.WithError(err).Error("session load failed")
		httputil.WriteInternalError(w, "session unavailable")
		return
	}

	state, err := session.GenerateID()
	if err != nil {
		s.log.WithError(err).Error("state generation failed")
		httputil.WriteInternalError(w, "session unavailable")
		return
	}

	sess.State = state
	if err := s.sessions.Save(r.Context(), sess); err != nil {
		s.log.WithError(err).Error("session save failed")
		httputil.WriteInternalError(w, "session unavailable")
		return
	}

	http.Redirect(w, r, s.salesforce.AuthorizeURL(state), http.StatusFound)
}

// handleSalesforceCallback completes the Salesforce login. Alongside the
// identity it computes the admin grant: the user must hold modify-all-data
// in a DevHub org, and the registration's owner must match.
func (s *Server) handleSalesforceCallback(w http.ResponseWriter, r *http.Request) {
	// The provider reports refusals (denied consent, disabled user) in the
	// error parameter; there is no code to exchange in that case.
	if provErr := httputil.ParseQueryString(r, "error", ""); provErr != "" {
		s.log.WithField("error", provErr).Warn("salesforce callback returned provider error")
		if s.metrics != nil {
			s.metrics.ObserveLoginFailure(string(identity.ProviderSalesforce), "provider_error")
		}
		http.Redirect(w, r, "/#error="+url.QueryEscape(provErr), http.StatusFound)
		return
	}

	sess, err := s.sessions.Load(r)
	if err != nil {
		s.log.WithError(err).Error("session load failed")
		httputil.WriteInternalError(w, "session unavailable")
		return
	}

	state := httputil.ParseQueryString(r, "state", "")
	if sess == nil || sess.State == "" || state != sess.State {
		s.log.Warn("salesforce callback state mismatch")
		if s.metrics != nil {
			s.metrics.ObserveLoginFailure(string(identity.ProviderSalesforce), "state_mismatch")
		}
		http.Redirect(w, r, "/#error=invalid_state", http.StatusFound)
		return
	}
	// Consume the state before the code exchange so a failed login cannot
	// be replayed with the same state.
	sess.State = ""
	if err := s.sessions.Save(r.Context(), sess); err != nil {
		s.log.WithError(err).Error("session save failed")
		httputil.WriteInternalError(w, "session unavailable")
		return
	}

	code := httputil.ParseQueryString(r, "code", "")
	login, err := s.salesforce.Login(r.Context(), code)
	if err != nil {
		s.log.WithError(err).Warn("salesforce login failed")
		if s.metrics != nil {
			s.metrics.ObserveLoginFailure(string(identity.ProviderSalesforce), "exchange_failed")
		}
		http.Redirect(w, r, "/#error=salesforce_login_failed", http.StatusFound)
		return
	}

	sess.Subject = login.Identity.Subject
	sess.Provider = string(login.Identity.Provider)
	sess.IsAdmin = false
	sess.SfOrgID = ""

	log := s.log.WithFields(logrus.Fields{
		"provider": identity.ProviderSalesforce,
		"uid":      login.Identity.Subject,
		"sf_org":   login.SfOrgID,
	})

	switch {
	case login.CanModifyAllData && login.DevHub == identity.CapabilityYes:
		org, err := s.registry.CreateIfAbsent(r.Context(), login.SfOrgID, login.SfUserID)
		if err != nil {
			log.WithError(err).Error("org registration failed")
		} else if org.SfUserID == "" || org.SfUserID == login.SfUserID {
			sess.IsAdmin = true
			sess.SfOrgID = login.SfOrgID
			log.Info("admin grant issued")
		} else {
			log.Warn("admin grant withheld: org owned by a different user")
		}
	case login.DevHub == identity.CapabilityIndeterminate:
		// A transport fault during the probe is not evidence the org is
		// not a DevHub. Fail closed on the grant but keep the log
		// distinguishable from a definitive "no".
		log.Warn("devhub probe indeterminate, admin grant withheld")
	}

	if s.metrics != nil {
		s.metrics.ObserveLogin(string(identity.ProviderSalesforce))
	}

	target := sess.ConsumeRedirectPath("/")
	if err := s.sessions.Save(r.Context(), sess); err != nil {
		log.WithError(err).Error("session save failed")
		httputil.WriteInternalError(w, "session unavailable")
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// handleGoogleCallback receives the Google Sign-In credential POST. The
// double-submit CSRF pair is checked before the ID token is verified.
func (s *Server) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httputil.WriteBadRequest(w, "malformed form body")
		return
	}

	cookieToken := httputil.CookieValue(r, csrfCookieName)
	bodyToken := r.PostFormValue(csrfCookieName)
	if err := identity.CheckDoubleSubmit(cookieToken, bodyToken); err != nil {
		s.log.Warn("google callback CSRF mismatch")
		if s.metrics != nil {
			s.metrics.ObserveLoginFailure(string(identity.ProviderGoogle), "csrf_mismatch")
		}
		httputil.WriteBadRequest(w, "CSRF Token validation error")
		return
	}

	id, err := s.google.Login(r.Context(), r.PostFormValue("credential"))
	if err != nil {
		reason := "token_invalid"
		if errors.Is(err, identity.ErrEmailNotVerified) {
			reason = "email_not_verified"
		}
		s.log.WithError(err).Warn("google login failed")
		if s.metrics != nil {
			s.metrics.ObserveLoginFailure(string(identity.ProviderGoogle), reason)
		}
		httputil.WriteUnauthorized(w, "ID token verification failed")
		return
	}

	sess, err := s.sessions.LoadOrCreate(w, r)
	if err != nil {
		s.log.WithError(err).Error("session load failed")
		httputil.WriteInternalError(w, "session unavailable")
		return
	}

	sess.Subject = id.Subject
	sess.Provider = string(id.Provider)
	sess.IsAdmin = false
	sess.SfOrgID = ""

	if s.metrics != nil {
		s.metrics.ObserveLogin(string(identity.ProviderGoogle))
	}

	target := sess.ConsumeRedirectPath("/")
	if err := s.sessions.Save(r.Context(), sess); err != nil {
		s.log.WithError(err).Error("session save failed")
		httputil.WriteInternalError(w, "session unavailable")
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// handleLogout destroys the session and returns to the login page
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Destroy(w, r); err != nil {
		s.log.WithError(err).Error("session destroy failed")
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// handleMe reports the session's identity for frontend use
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Load(r)
	if err != nil {
		s.log.WithError(err).Error("session load failed")
		httputil.WriteErrors(w, http.StatusInternalServerError, "session unavailable")
		return
	}
	if !sess.Authenticated() {
		httputil.WriteErrors(w, http.StatusUnauthorized, "User is not logged in")
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{
		"uid":     sess.Subject,
		"isAdmin": sess.IsAdmin,
	})
}
