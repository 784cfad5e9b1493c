package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/backwindow/pkg/exchange"
	"github.com/platinummonkey/backwindow/pkg/identity"
	"github.com/platinummonkey/backwindow/pkg/middleware"
	"github.com/platinummonkey/backwindow/pkg/observability"
	"github.com/platinummonkey/backwindow/pkg/registry"
	"github.com/platinummonkey/backwindow/pkg/session"
)

// Server hosts the broker's HTTP handlers
type Server struct {
	log        *logrus.Logger
	baseLogger *observability.Logger
	metrics    *observability.Metrics

	sessions   *session.Manager
	registry   registry.Registry
	salesforce *identity.SalesforceResolver
	google     *identity.GoogleResolver
	engine     *exchange.Engine

	googleClientID string
}

// Deps are the collaborators a Server needs
type Deps struct {
	Log        *logrus.Logger
	BaseLogger *observability.Logger
	Metrics    *observability.Metrics
	Sessions   *session.Manager
	Registry   registry.Registry
	Salesforce *identity.SalesforceResolver
	Google     *identity.GoogleResolver
	Engine     *exchange.Engine

	// GoogleClientID is rendered into the sign-in page
	GoogleClientID string
}

// NewServer creates the API server
func NewServer(deps Deps) *Server {
	log := deps.Log
	if log == nil {
		log = logrus.New()
	}
	return &Server{
		log:        log,
		baseLogger: deps.BaseLogger,
		metrics:    deps.Metrics,
		sessions:   deps.Sessions,
		registry:   deps.Registry,
		salesforce: deps.Salesforce,
		google:     deps.Google,
		engine:     deps.Engine,

		googleClientID: deps.GoogleClientID,
	}
}

// Router builds the full handler chain
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/backwindow", s.handleBackwindow).Methods(http.MethodGet)
	r.HandleFunc("/me", s.handleMe).Methods(http.MethodGet)

	auth := r.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/salesforce", s.handleSalesforceLogin).Methods(http.MethodGet)
	auth.HandleFunc("/salesforce/callback", s.handleSalesforceCallback).Methods(http.MethodGet)
	auth.HandleFunc("/google/callback", s.handleGoogleCallback).Methods(http.MethodPost)
	auth.HandleFunc("/logout", s.handleLogout).Methods(http.MethodGet)

	r.Use(middleware.RequestID)
	if s.baseLogger != nil {
		r.Use(middleware.Logging(s.baseLogger))
	}
	if s.metrics != nil {
		r.Use(middleware.Metrics(s.metrics))
	}
	r.Use(middleware.Recovery)

	return otelhttp.NewHandler(r, "backwindow")
}
