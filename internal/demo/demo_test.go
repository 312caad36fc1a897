package demo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeffladiray/forest-vercel-test/internal/schema"
	"github.com/jeffladiray/forest-vercel-test/internal/testutil"
	"github.com/jeffladiray/forest-vercel-test/pkg/adapter"
	"github.com/jeffladiray/forest-vercel-test/pkg/adapters/sqlite"
	"github.com/jeffladiray/forest-vercel-test/pkg/core"
)

func TestMigrate_SQLite(t *testing.T) {
	s, err := schema.Default()
	require.NoError(t, err)
	db := sqlite.New(testutil.NewTestLogger(t))
	ctx := context.Background()
	require.NoError(t, db.Connect(ctx, adapter.Config{Catalog: s}))
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, Migrate(db.SQLDB(), "sqlite", testutil.NewTestLogger(t)))
	require.NoError(t, Migrate(db.SQLDB(), "sqlite", nil), "migrating twice is a no-op")

	version, err := Version(db.SQLDB(), "sqlite")
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)

	// Every collection of the embedded schema is backed by a table with its columns.
	for _, c := range s.Collections {
		_, err := db.Read(ctx, c.Name, core.PaginatedFilter{}, core.Projection(c.ColumnNames()))
		assert.NoError(t, err, c.Name)
	}

	tickets, err := db.Read(ctx, "tickets", core.PaginatedFilter{
		Sort: core.Sort{{Field: "id", Ascending: true}},
	}, core.Projection{"subject", "is_resolved"})
	require.NoError(t, err)
	assert.Equal(t, []core.Record{
		{"subject": "Login broken", "is_resolved": false},
		{"subject": "Invoice missing", "is_resolved": true},
	}, tickets)
}

func TestMigrate_UnsupportedDialect(t *testing.T) {
	err := Migrate(nil, "duckdb", nil)
	assert.ErrorContains(t, err, `no demo migrations for "duckdb"`)
}
