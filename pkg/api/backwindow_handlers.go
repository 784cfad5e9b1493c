package api

import (
	"errors"
	"net/http"
	"regexp"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/backwindow/pkg/authz"
	"github.com/platinummonkey/backwindow/pkg/exchange"
	"github.com/platinummonkey/backwindow/pkg/httputil"
	"github.com/platinummonkey/backwindow/pkg/identity"
	"github.com/platinummonkey/backwindow/pkg/registry"
)

var (
	// Salesforce org IDs are 15 or 18 character alphanumeric keys
	hubPattern = regexp.MustCompile(`^[a-zA-Z0-9]{15,18}$`)

	// retURL must be a relative path so the frontdoor hand-off cannot be
	// turned into an open redirect.
	retURLPattern = regexp.MustCompile(`^/[\w\-:/?#\[\]@!$&'()*+,;=%]+$`)
)

// handleBackwindow is the hand-off endpoint. An authenticated, allowed
// user lands inside the requested org's session; everyone else gets a
// taxonomy of refusals.
func (s *Server) handleBackwindow(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Load(r)
	if err != nil {
		s.log.WithError(err).Error("session load failed")
		httputil.WriteInternalError(w, "session unavailable")
		return
	}

	// Unauthenticated requests stash the full URI so the hand-off resumes
	// automatically after login.
	if !sess.Authenticated() {
		sess, err = s.sessions.LoadOrCreate(w, r)
		if err != nil {
			s.log.WithError(err).Error("session create failed")
			httputil.WriteInternalError(w, "session unavailable")
			return
		}
		sess.RedirectPath = httputil.FullRequestURI(r)
		if err := s.sessions.Save(r.Context(), sess); err != nil {
			s.log.WithError(err).Error("session save failed")
			httputil.WriteInternalError(w, "session unavailable")
			return
		}
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	hub := httputil.ParseQueryString(r, "hub", "")
	username := httputil.ParseQueryString(r, "un", "")
	lsParam := httputil.ParseQueryString(r, "ls", "")
	retURL := httputil.ParseQueryString(r, "retURL", "")

	log := s.log.WithFields(logrus.Fields{
		"provider": sess.Provider,
		"uid":      sess.Subject,
		"hub":      hub,
		"username": username,
		"ls":       lsParam,
	})

	if !hubPattern.MatchString(hub) {
		log.Warn("rejected hand-off: bad hub parameter")
		httputil.WriteBadRequest(w, "invalid_backwindow_parameter")
		return
	}
	if username == "" {
		log.Warn("rejected hand-off: missing un parameter")
		httputil.WriteBadRequest(w, "invalid_backwindow_parameter")
		return
	}
	env, err := exchange.ParseEnvironment(lsParam)
	if err != nil {
		log.Warn("rejected hand-off: bad ls parameter")
		httputil.WriteBadRequest(w, "invalid_backwindow_parameter")
		return
	}
	if retURL != "" && !retURLPattern.MatchString(retURL) {
		log.Warn("rejected hand-off: bad retURL parameter")
		httputil.WriteBadRequest(w, "invalid_backwindow_parameter")
		return
	}

	org, err := s.registry.FindBySfOrgID(r.Context(), hub)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			log.Warn("rejected hand-off: hub org not registered")
			s.observeHandoff(env, "org_not_found")
			httputil.WriteNotFound(w, "hub_org_not_found")
			return
		}
		log.WithError(err).Error("registry lookup failed")
		httputil.WriteInternalError(w, "registry unavailable")
		return
	}

	id := identity.Identity{
		Subject:  sess.Subject,
		Provider: identity.Provider(sess.Provider),
	}
	if authz.Decide(id, org) != authz.Allow {
		log.Warn("rejected hand-off: not on allow-list")
		s.observeHandoff(env, "access_denied")
		httputil.WriteForbidden(w, "access_not_allowed")
		return
	}

	if !org.Configured() {
		log.Error("rejected hand-off: org has no connected app credentials")
		s.observeHandoff(env, "misconfigured")
		httputil.WriteInternalError(w, "hub_org_not_configured")
		return
	}

	assertion, err := s.engine.MintAssertion(org.AppClientID, org.AppPrivateKey, username, env)
	if err != nil {
		log.WithError(err).Error("assertion mint failed")
		s.observeHandoff(env, "mint_failed")
		httputil.WriteInternalError(w, "hub_org_not_configured")
		return
	}

	start := time.Now()
	grant, err := s.engine.Exchange(r.Context(), env, assertion)
	if s.metrics != nil {
		s.metrics.ObserveTokenExchange(string(env), time.Since(start))
	}
	if err != nil {
		var provErr *exchange.ProviderError
		if errors.As(err, &provErr) {
			log.WithError(err).Warn("token exchange rejected by provider")
			s.observeHandoff(env, "exchange_rejected")
			httputil.WriteInternalError(w, provErr.Message())
			return
		}
		log.WithError(err).Error("token exchange failed")
		s.observeHandoff(env, "exchange_failed")
		httputil.WriteInternalError(w, "token exchange failed")
		return
	}

	body, err := exchange.FrontdoorForm(grant, retURL)
	if err != nil {
		log.WithError(err).Error("frontdoor render failed")
		s.observeHandoff(env, "render_failed")
		httputil.WriteInternalError(w, "hand-off failed")
		return
	}

	log.Info("hand-off granted")
	s.observeHandoff(env, "granted")
	httputil.WriteHTML(w, body)
}

func (s *Server) observeHandoff(env exchange.Environment, outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveHandoff(string(env), outcome)
	}
}
