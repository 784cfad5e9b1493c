package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/platinummonkey/backwindow/pkg/identity"
	"github.com/platinummonkey/backwindow/pkg/observability"
)

// Dialect selects the id-column syntax for schema creation. Query
// placeholders and ON CONFLICT syntax are shared by PostgreSQL (lib/pq)
// and SQLite (mattn/go-sqlite3), so one implementation serves both.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

const schemaTemplate = `
CREATE TABLE IF NOT EXISTS org_registrations (
	id %[1]s,
	sf_org_id TEXT NOT NULL UNIQUE,
	sf_user_id TEXT NOT NULL DEFAULT '',
	app_client_id TEXT NOT NULL DEFAULT '',
	app_private_key TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS allowed_entries (
	id %[1]s,
	org_id BIGINT NOT NULL REFERENCES org_registrations(id) ON DELETE CASCADE,
	provider TEXT NOT NULL,
	email TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_allowed_entries_org_id ON allowed_entries(org_id);
`

// Schema returns the registry DDL for a dialect
func Schema(dialect Dialect) string {
	idColumn := "INTEGER PRIMARY KEY"
	if dialect == DialectPostgres {
		idColumn = "BIGSERIAL PRIMARY KEY"
	}
	return fmt.Sprintf(schemaTemplate, idColumn)
}

// SQLRegistry is a database/sql-backed org registry. It implements both
// Registry and Writer.
type SQLRegistry struct {
	db      *sql.DB
	dialect Dialect
	metrics *observability.Metrics
}

// NewSQLRegistry creates a registry over an open database handle
func NewSQLRegistry(db *sql.DB, dialect Dialect) *SQLRegistry {
	return &SQLRegistry{db: db, dialect: dialect}
}

// SetMetrics enables per-operation counters
func (r *SQLRegistry) SetMetrics(m *observability.Metrics) {
	r.metrics = m
}

// observe counts the operation. ErrNotFound is a routine outcome, not
// a registry error.
func (r *SQLRegistry) observe(operation string, err error) {
	if r.metrics == nil {
		return
	}
	if errors.Is(err, ErrNotFound) {
		err = nil
	}
	r.metrics.ObserveRegistryOp(operation, err)
}

// EnsureSchema creates the registry tables if they do not exist
func (r *SQLRegistry) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, Schema(r.dialect)); err != nil {
		return fmt.Errorf("registry: schema: %w", err)
	}
	return nil
}

// FindBySfOrgID returns the registration including its allow-list
func (r *SQLRegistry) FindBySfOrgID(ctx context.Context, sfOrgID string) (_ *OrgRegistration, err error) {
	defer func() { r.observe("find", err) }()

	org := &OrgRegistration{}
	err = r.db.QueryRowContext(ctx, `
		SELECT id, sf_org_id, sf_user_id, app_client_id, app_private_key, created_at, updated_at
		FROM org_registrations
		WHERE sf_org_id = $1
	`, sfOrgID).Scan(
		&org.ID, &org.SfOrgID, &org.SfUserID, &org.AppClientID, &org.AppPrivateKey,
		&org.CreatedAt, &org.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("registry: find org: %w", err)
	}

	entries, err := r.loadAllowedList(ctx, org.ID)
	if err != nil {
		return nil, err
	}
	org.AllowedList = entries
	return org, nil
}

// CreateIfAbsent registers the org on first admin login. The unique
// sf_org_id constraint makes concurrent first logins converge to one
// row; the loser of the race reads back the winner's row.
func (r *SQLRegistry) CreateIfAbsent(ctx context.Context, sfOrgID, sfUserID string) (_ *OrgRegistration, err error) {
	defer func() { r.observe("create", err) }()

	now := time.Now().UTC()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO org_registrations (sf_org_id, sf_user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (sf_org_id) DO NOTHING
	`, sfOrgID, sfUserID, now, now)
	if err != nil {
		return nil, fmt.Errorf("registry: create org: %w", err)
	}
	return r.FindBySfOrgID(ctx, sfOrgID)
}

// SetCredentials sets the org's Connected App client ID and private key
func (r *SQLRegistry) SetCredentials(ctx context.Context, sfOrgID, appClientID, appPrivateKey string) (err error) {
	defer func() { r.observe("set_credentials", err) }()

	res, err := r.db.ExecContext(ctx, `
		UPDATE org_registrations
		SET app_client_id = $1, app_private_key = $2, updated_at = $3
		WHERE sf_org_id = $4
	`, appClientID, appPrivateKey, time.Now().UTC(), sfOrgID)
	if err != nil {
		return fmt.Errorf("registry: set credentials: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("registry: set credentials: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// AddAllowedEntry appends a (provider, email) pair to the org's allow-list.
// Entries are stored verbatim; callers validate before writing.
func (r *SQLRegistry) AddAllowedEntry(ctx context.Context, sfOrgID string, provider identity.Provider, email string) (_ *AllowedEntry, err error) {
	defer func() { r.observe("add_entry", err) }()

	var orgID int64
	err = r.db.QueryRowContext(ctx,
		`SELECT id FROM org_registrations WHERE sf_org_id = $1`, sfOrgID).Scan(&orgID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("registry: add entry: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO allowed_entries (org_id, provider, email)
		VALUES ($1, $2, $3)
	`, orgID, string(provider), email)
	if err != nil {
		return nil, fmt.Errorf("registry: add entry: %w", err)
	}

	entry := &AllowedEntry{
		OrgID:    orgID,
		Provider: provider,
		Email:    email,
	}
	// lib/pq does not support LastInsertId; the zero ID is tolerable there
	// since the CLI re-lists entries after a write.
	if id, err := res.LastInsertId(); err == nil {
		entry.ID = id
	}
	return entry, nil
}

// RemoveAllowedEntry deletes an allow-list entry by ID
func (r *SQLRegistry) RemoveAllowedEntry(ctx context.Context, entryID int64) (err error) {
	defer func() { r.observe("remove_entry", err) }()

	res, err := r.db.ExecContext(ctx,
		`DELETE FROM allowed_entries WHERE id = $1`, entryID)
	if err != nil {
		return fmt.Errorf("registry: remove entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("registry: remove entry: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLRegistry) loadAllowedList(ctx context.Context, orgID int64) ([]AllowedEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, org_id, provider, email
		FROM allowed_entries
		WHERE org_id = $1
		ORDER BY id
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("registry: load allow-list: %w", err)
	}
	defer rows.Close()

	var entries []AllowedEntry
	for rows.Next() {
		var e AllowedEntry
		var provider string
		if err := rows.Scan(&e.ID, &e.OrgID, &provider, &e.Email); err != nil {
			return nil, fmt.Errorf("registry: load allow-list: %w", err)
		}
		e.Provider = identity.Provider(provider)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
