// Package identity normalizes the two upstream login protocols, the
// Salesforce OAuth2 authorization-code flow and the Google OpenID ID
// token, into a single internal identity record. For Salesforce logins
// it additionally determines whether the authenticated org is a DevHub
// and whether the user holds org-wide modify-all-data privilege.
package identity
