package core

import "context"

// CollectionAccess is the data access handed to computed fields and actions.
// Reads go through the same field resolution as client requests, so computed
// fields may be listed and filtered on.
type CollectionAccess interface {
	// Name returns the collection name.
	Name() string

	// List returns the records matching filter, restricted to fields.
	List(ctx context.Context, filter PaginatedFilter, fields Projection) ([]Record, error)

	// Create inserts records and returns them as stored.
	Create(ctx context.Context, records []Record) ([]Record, error)

	// Update applies patch to every record matching tree.
	Update(ctx context.Context, tree ConditionTree, patch Record) error

	// RawAggregate counts records grouped by groupField, restricted to the
	// groups in values. Groups without any record are absent from the result
	// and rows come back in no particular order.
	RawAggregate(ctx context.Context, groupField string, values []any) ([]AggregateRow, error)
}

// DataSource resolves collections by name.
type DataSource interface {
	Collection(name string) (CollectionAccess, error)
}
