// Package authz decides whether an authenticated identity may broker a
// login into a registered org.
package authz
