package registry

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/backwindow/pkg/identity"
	"github.com/platinummonkey/backwindow/pkg/observability"
)

func newSQLiteRegistry(t *testing.T) *SQLRegistry {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	reg := NewSQLRegistry(db, DialectSQLite)
	require.NoError(t, reg.EnsureSchema(context.Background()))
	return reg
}

func TestSQLRegistryCreateAndFind(t *testing.T) {
	reg := newSQLiteRegistry(t)
	ctx := context.Background()

	org, err := reg.CreateIfAbsent(ctx, "00D000000000001AAA", "005000000000001AAA")
	require.NoError(t, err)
	assert.Equal(t, "00D000000000001AAA", org.SfOrgID)
	assert.Equal(t, "005000000000001AAA", org.SfUserID)
	assert.False(t, org.Configured())
	assert.Empty(t, org.AllowedList)

	found, err := reg.FindBySfOrgID(ctx, "00D000000000001AAA")
	require.NoError(t, err)
	assert.Equal(t, org.ID, found.ID)
}

func TestSQLRegistryCreateIfAbsentKeepsOwner(t *testing.T) {
	reg := newSQLiteRegistry(t)
	ctx := context.Background()

	first, err := reg.CreateIfAbsent(ctx, "00D000000000001AAA", "005000000000001AAA")
	require.NoError(t, err)

	// A different admin logging into the same org must not take ownership
	second, err := reg.CreateIfAbsent(ctx, "00D000000000001AAA", "005000000000002BBB")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "005000000000001AAA", second.SfUserID)
}

func TestSQLRegistryFindMissing(t *testing.T) {
	reg := newSQLiteRegistry(t)
	_, err := reg.FindBySfOrgID(context.Background(), "00D000000000009ZZZ")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLRegistrySetCredentials(t *testing.T) {
	reg := newSQLiteRegistry(t)
	ctx := context.Background()

	_, err := reg.CreateIfAbsent(ctx, "00D000000000001AAA", "005000000000001AAA")
	require.NoError(t, err)

	require.NoError(t, reg.SetCredentials(ctx, "00D000000000001AAA", "app-client", "PEM KEY"))

	org, err := reg.FindBySfOrgID(ctx, "00D000000000001AAA")
	require.NoError(t, err)
	assert.True(t, org.Configured())
	assert.Equal(t, "app-client", org.AppClientID)
	assert.Equal(t, "PEM KEY", org.AppPrivateKey)
}

func TestSQLRegistrySetCredentialsMissingOrg(t *testing.T) {
	reg := newSQLiteRegistry(t)
	err := reg.SetCredentials(context.Background(), "00D000000000009ZZZ", "app-client", "PEM KEY")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLRegistryAllowList(t *testing.T) {
	reg := newSQLiteRegistry(t)
	ctx := context.Background()

	_, err := reg.CreateIfAbsent(ctx, "00D000000000001AAA", "005000000000001AAA")
	require.NoError(t, err)

	entry, err := reg.AddAllowedEntry(ctx, "00D000000000001AAA", identity.ProviderGoogle, "dev@example.com")
	require.NoError(t, err)
	_, err = reg.AddAllowedEntry(ctx, "00D000000000001AAA", identity.ProviderSalesforce, "dev@example.com.devhub")
	require.NoError(t, err)

	org, err := reg.FindBySfOrgID(ctx, "00D000000000001AAA")
	require.NoError(t, err)
	require.Len(t, org.AllowedList, 2)
	assert.Equal(t, identity.ProviderGoogle, org.AllowedList[0].Provider)
	assert.Equal(t, "dev@example.com", org.AllowedList[0].Email)

	require.NoError(t, reg.RemoveAllowedEntry(ctx, entry.ID))

	org, err = reg.FindBySfOrgID(ctx, "00D000000000001AAA")
	require.NoError(t, err)
	require.Len(t, org.AllowedList, 1)
	assert.Equal(t, identity.ProviderSalesforce, org.AllowedList[0].Provider)
}

func TestSQLRegistryAddEntryMissingOrg(t *testing.T) {
	reg := newSQLiteRegistry(t)
	_, err := reg.AddAllowedEntry(context.Background(), "00D000000000009ZZZ", identity.ProviderGoogle, "dev@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLRegistryRemoveMissingEntry(t *testing.T) {
	reg := newSQLiteRegistry(t)
	err := reg.RemoveAllowedEntry(context.Background(), 12345)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLRegistryOperationCounters(t *testing.T) {
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	reg := newSQLiteRegistry(t)
	reg.SetMetrics(metrics)
	ctx := context.Background()

	_, err := reg.CreateIfAbsent(ctx, "00D000000000001AAA", "005000000000001AAA")
	require.NoError(t, err)
	_, err = reg.FindBySfOrgID(ctx, "00D000000000009ZZZ")
	assert.ErrorIs(t, err, ErrNotFound)

	// create reads the row back, so find counts twice
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.RegistryOperationsTotal.WithLabelValues("create")))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.RegistryOperationsTotal.WithLabelValues("find")))

	// not-found is a routine outcome, not a registry error
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.RegistryErrorsTotal.WithLabelValues("find")))
}

func TestSQLRegistryErrorCounter(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id, sf_org_id").
		WillReturnError(errors.New("connection refused"))

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	reg := NewSQLRegistry(db, DialectPostgres)
	reg.SetMetrics(metrics)

	_, err = reg.FindBySfOrgID(context.Background(), "00D000000000001AAA")
	require.Error(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.RegistryErrorsTotal.WithLabelValues("find")))
}

func TestSQLRegistryFindQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id, sf_org_id").
		WillReturnError(errors.New("connection refused"))

	reg := NewSQLRegistry(db, DialectPostgres)
	_, err = reg.FindBySfOrgID(context.Background(), "00D000000000001AAA")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
