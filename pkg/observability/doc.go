// Package observability provides structured logging, Prometheus metrics,
// health checks, OpenTelemetry tracing, and graceful shutdown for the
// backwindow broker.
package observability
