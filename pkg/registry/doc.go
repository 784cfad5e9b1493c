// Package registry stores DevHub org registrations: each org's Connected
// App credentials and the allow-list of identities permitted to broker a
// login into that org. Backends: PostgreSQL or SQLite via database/sql,
// or a read-only static registry loaded from a YAML file or environment
// variables.
package registry
