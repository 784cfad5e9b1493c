// Package middleware provides HTTP middleware for request identification,
// structured request logging and Prometheus instrumentation.
package middleware
