package action

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jeffladiray/forest-vercel-test/pkg/core"
)

// Context is what an action body sees. Collection and DataSource go through
// the write guard of the execution.
type Context struct {
	InvocationID string
	// Collection is the collection the action is registered on.
	Collection core.CollectionAccess
	// DataSource reaches the other collections.
	DataSource core.DataSource
	FormValues map[string]any
	Logger     *slog.Logger

	selection Selection
	records   []core.Record
}

// RecordIDs returns the primary keys of the selected records.
func (c *Context) RecordIDs() []any {
	return append([]any(nil), c.selection.IDs...)
}

// RecordID returns the primary key of the single selected record.
func (c *Context) RecordID() (any, error) {
	if len(c.selection.IDs) != 1 {
		return nil, fmt.Errorf("expected one selected record, got %d", len(c.selection.IDs))
	}
	return c.selection.IDs[0], nil
}

// Records returns the selected records with the declared fields.
func (c *Context) Records() []core.Record {
	return c.records
}

// Record returns the single selected record.
func (c *Context) Record() (core.Record, error) {
	if len(c.records) != 1 {
		return nil, fmt.Errorf("expected one selected record, found %d", len(c.records))
	}
	return c.records[0], nil
}

// SelectionFilter returns the condition matching the selected records.
func (c *Context) SelectionFilter() core.ConditionTree {
	return c.selection.Filter()
}

// DecodeForm decodes the submitted values into out. See DecodeValues.
func (c *Context) DecodeForm(out any) error {
	return DecodeValues(c.FormValues, out)
}

// UpdateSelection applies patch to the selected records.
func (c *Context) UpdateSelection(ctx context.Context, patch core.Record) error {
	return c.Collection.Update(ctx, c.SelectionFilter(), patch)
}

// WriteRefusedError is returned for a write attempted after an earlier
// write of the same execution failed.
type WriteRefusedError struct {
	Cause error
}

func (e *WriteRefusedError) Error() string {
	return "write refused after a previous failure: " + e.Cause.Error()
}

func (e *WriteRefusedError) Unwrap() error { return e.Cause }

// IsWriteRefused reports whether err is a refused write.
func IsWriteRefused(err error) bool {
	var refused *WriteRefusedError
	return errors.As(err, &refused)
}

// guardedSource hands out guarded collections.
type guardedSource struct {
	core.DataSource
	run *run
}

func (g guardedSource) Collection(name string) (core.CollectionAccess, error) {
	c, err := g.DataSource.Collection(name)
	if err != nil {
		return nil, err
	}
	return guardedCollection{CollectionAccess: c, run: g.run}, nil
}

// guardedCollection routes writes through the execution so that a failed
// write blocks every later one.
type guardedCollection struct {
	core.CollectionAccess
	run *run
}

func (g guardedCollection) Create(ctx context.Context, records []core.Record) ([]core.Record, error) {
	if err := g.run.beginWrite(); err != nil {
		return nil, err
	}
	out, err := g.CollectionAccess.Create(ctx, records)
	g.run.endWrite(g.Name(), err)
	return out, err
}

func (g guardedCollection) Update(ctx context.Context, tree core.ConditionTree, patch core.Record) error {
	if err := g.run.beginWrite(); err != nil {
		return err
	}
	err := g.CollectionAccess.Update(ctx, tree, patch)
	g.run.endWrite(g.Name(), err)
	return err
}
