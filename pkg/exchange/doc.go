// Package exchange implements the JWT-bearer token exchange: it mints a
// short-lived RS256 assertion against a DevHub org's Connected App and
// trades it at the Salesforce token endpoint for a session, then renders
// the frontdoor hand-off that drops the browser into that session.
package exchange
