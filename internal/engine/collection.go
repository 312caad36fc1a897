package engine

import (
	"context"
	"log/slog"

	"github.com/jeffladiray/forest-vercel-test/pkg/core"
)

// List returns the records of a collection matching filter with the
// requested fields, computed ones included. An empty field list selects
// every field of the collection.
func (e *Engine) List(ctx context.Context, collection string, filter core.PaginatedFilter, fields []string) ([]core.Record, error) {
	plan, err := e.rewriter.Expand(collection, fields)
	if err != nil {
		return nil, err
	}
	physical, err := e.rewriter.Filter(collection, filter)
	if err != nil {
		return nil, err
	}
	db, err := e.storage(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.Read(ctx, collection, physical, plan.Physical)
	if err != nil {
		return nil, core.NewStorageError(collection, "read", err)
	}
	if err := e.computer.Run(ctx, plan, rows); err != nil {
		return nil, err
	}

	paths, err := plan.Requested.Paths()
	if err != nil {
		return nil, err
	}
	out := make([]core.Record, len(rows))
	for i, r := range rows {
		out[i] = r.Project(paths)
	}
	e.logger.Debug("list",
		slog.String("collection", collection),
		slog.Int("physical_fields", len(plan.Physical)),
		slog.Int("computed_fields", len(plan.Steps)),
		slog.Int("records", len(out)))
	return out, nil
}

// Create splits computed fields of every record into columns, then inserts
// them. Nothing is written when any record is invalid.
func (e *Engine) Create(ctx context.Context, collection string, records []core.Record) ([]core.Record, error) {
	physical, err := e.rewriter.WriteAll(collection, records)
	if err != nil {
		return nil, err
	}
	if len(physical) == 0 {
		return []core.Record{}, nil
	}
	db, err := e.storage(ctx)
	if err != nil {
		return nil, err
	}
	created, err := db.Create(ctx, collection, physical)
	if err != nil {
		return nil, core.NewStorageError(collection, "create", err)
	}
	return created, nil
}

// Update applies patch to every record matching tree. Both may reference
// computed fields.
func (e *Engine) Update(ctx context.Context, collection string, tree core.ConditionTree, patch core.Record) error {
	physical, err := e.rewriter.Write(collection, patch)
	if err != nil {
		return err
	}
	where, err := e.rewriter.Predicate(collection, tree)
	if err != nil {
		return err
	}
	if len(physical) == 0 {
		return nil
	}
	db, err := e.storage(ctx)
	if err != nil {
		return err
	}
	if err := db.Update(ctx, collection, where, physical); err != nil {
		return core.NewStorageError(collection, "update", err)
	}
	e.logger.Debug("update", slog.String("collection", collection), slog.Int("fields", len(physical)))
	return nil
}

// Aggregate counts records per value of a column, restricted to values.
func (e *Engine) Aggregate(ctx context.Context, collection, groupField string, values []any) ([]core.AggregateRow, error) {
	c, err := e.registry.MustCollection(collection)
	if err != nil {
		return nil, err
	}
	if f, ok := c.Field(groupField); !ok || f.IsComputed() {
		return nil, &core.UnknownFieldError{Collection: collection, Field: groupField}
	}
	if len(values) == 0 {
		return nil, nil
	}
	db, err := e.storage(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := db.RawAggregate(ctx, collection, groupField, values)
	if err != nil {
		return nil, core.NewStorageError(collection, "aggregate", err)
	}
	return rows, nil
}

// Collection implements core.DataSource.
func (e *Engine) Collection(name string) (core.CollectionAccess, error) {
	if _, err := e.registry.MustCollection(name); err != nil {
		return nil, err
	}
	return &collectionAccess{engine: e, name: name}, nil
}

// collectionAccess binds the engine to one collection.
type collectionAccess struct {
	engine *Engine
	name   string
}

func (c *collectionAccess) Name() string { return c.name }

func (c *collectionAccess) List(ctx context.Context, filter core.PaginatedFilter, fields core.Projection) ([]core.Record, error) {
	return c.engine.List(ctx, c.name, filter, fields)
}

func (c *collectionAccess) Create(ctx context.Context, records []core.Record) ([]core.Record, error) {
	return c.engine.Create(ctx, c.name, records)
}

func (c *collectionAccess) Update(ctx context.Context, tree core.ConditionTree, patch core.Record) error {
	return c.engine.Update(ctx, c.name, tree, patch)
}

func (c *collectionAccess) RawAggregate(ctx context.Context, groupField string, values []any) ([]core.AggregateRow, error) {
	return c.engine.Aggregate(ctx, c.name, groupField, values)
}
