// Package adapter provides the storage adapter contract and its shared
// database/sql implementation.
//
// Adapters execute physical operations only: every field they receive is a
// column of a collection, possibly reached through joinable relations.
// Concrete adapter implementations are in pkg/adapters/ subdirectories.
package adapter

import (
	"context"
	"database/sql"

	"github.com/jeffladiray/forest-vercel-test/pkg/core"
	"github.com/jeffladiray/forest-vercel-test/pkg/dialect"
)

// Config is an alias for core.AdapterConfig.
type Config = core.AdapterConfig

// Adapter defines the interface that all storage adapters must implement.
type Adapter interface {
	// Connect establishes a connection using the provided config.
	// cfg.Catalog describes the collections to serve.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the connection and releases resources.
	Close() error

	// Read returns the records of collection matching filter, restricted to projection.
	Read(ctx context.Context, collection string, filter core.PaginatedFilter, projection core.Projection) ([]core.Record, error)

	// Create inserts records and returns them as stored.
	Create(ctx context.Context, collection string, records []core.Record) ([]core.Record, error)

	// Update applies patch to every record of collection matching tree.
	Update(ctx context.Context, collection string, tree core.ConditionTree, patch core.Record) error

	// RawAggregate counts records of collection grouped by groupField,
	// restricted to the groups listed in values.
	RawAggregate(ctx context.Context, collection, groupField string, values []any) ([]core.AggregateRow, error)
}

// SQLAdapter is implemented by adapters backed by database/sql.
type SQLAdapter interface {
	Adapter

	// SQLDB returns the underlying connection pool, nil before Connect.
	SQLDB() *sql.DB

	// Dialect returns the SQL dialect of this adapter.
	Dialect() *dialect.Dialect
}
