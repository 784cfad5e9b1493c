// Package api wires the HTTP surface of the broker: provider login
// round trips, the backwindow hand-off endpoint, and the session
// introspection endpoint.
package api
