package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Login metrics
	LoginsTotal        *prometheus.CounterVec
	LoginFailuresTotal *prometheus.CounterVec

	// Hand-off metrics
	HandoffsTotal         *prometheus.CounterVec
	TokenExchangeDuration *prometheus.HistogramVec

	// Registry metrics
	RegistryOperationsTotal *prometheus.CounterVec
	RegistryErrorsTotal     *prometheus.CounterVec

	// Session metrics
	SessionsActive prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backwindow_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "backwindow_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backwindow_logins_total",
				Help: "Total number of successful provider logins",
			},
			[]string{"provider"},
		),
		LoginFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backwindow_login_failures_total",
				Help: "Total number of failed provider logins",
			},
			[]string{"provider", "reason"},
		),
		HandoffsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backwindow_handoffs_total",
				Help: "Total number of backwindow hand-off attempts",
			},
			[]string{"environment", "outcome"},
		),
		TokenExchangeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "backwindow_token_exchange_duration_seconds",
				Help:    "JWT-bearer token exchange duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"environment"},
		),
		RegistryOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backwindow_registry_operations_total",
				Help: "Total number of org registry operations",
			},
			[]string{"operation"},
		),
		RegistryErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backwindow_registry_errors_total",
				Help: "Total number of org registry errors",
			},
			[]string{"operation"},
		),
		SessionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "backwindow_sessions_active",
				Help: "Number of active browser sessions",
			},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.LoginsTotal,
		m.LoginFailuresTotal,
		m.HandoffsTotal,
		m.TokenExchangeDuration,
		m.RegistryOperationsTotal,
		m.RegistryErrorsTotal,
		m.SessionsActive,
	)

	return m
}

// Handler returns an HTTP handler for the /metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTPRequest records metrics for a completed HTTP request
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// ObserveHandoff records the outcome of a backwindow hand-off attempt
func (m *Metrics) ObserveHandoff(environment, outcome string) {
	m.HandoffsTotal.WithLabelValues(environment, outcome).Inc()
}

// ObserveTokenExchange records a JWT-bearer exchange duration
func (m *Metrics) ObserveTokenExchange(environment string, duration time.Duration) {
	m.TokenExchangeDuration.WithLabelValues(environment).Observe(duration.Seconds())
}

// ObserveLogin records a successful provider login
func (m *Metrics) ObserveLogin(provider string) {
	m.LoginsTotal.WithLabelValues(provider).Inc()
}

// ObserveLoginFailure records a failed provider login
func (m *Metrics) ObserveLoginFailure(provider, reason string) {
	m.LoginFailuresTotal.WithLabelValues(provider, reason).Inc()
}

// ObserveRegistryOp records an org registry operation; a non-nil err
// also increments the error counter.
func (m *Metrics) ObserveRegistryOp(operation string, err error) {
	m.RegistryOperationsTotal.WithLabelValues(operation).Inc()
	if err != nil {
		m.RegistryErrorsTotal.WithLabelValues(operation).Inc()
	}
}

// SessionOpened increments the active-session gauge
func (m *Metrics) SessionOpened() {
	m.SessionsActive.Inc()
}

// SessionClosed decrements the active-session gauge
func (m *Metrics) SessionClosed() {
	m.SessionsActive.Dec()
}
