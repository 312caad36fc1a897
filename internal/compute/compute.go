// Package compute derives the values of computed fields for a batch of
// fetched records.
//
// Fields of the same dependency level are computed concurrently, one call
// per field for the whole batch. Values are written back to the records only
// once every field of a level is done.
package compute

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/jeffladiray/forest-vercel-test/internal/registry"
	"github.com/jeffladiray/forest-vercel-test/internal/rewrite"
	"github.com/jeffladiray/forest-vercel-test/pkg/core"
)

// Computer evaluates computed fields.
type Computer struct {
	dataSource core.DataSource
	logger     *slog.Logger
}

// New creates a computer. The data source is exposed to computations that query storage.
func New(ds core.DataSource, logger *slog.Logger) *Computer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Computer{dataSource: ds, logger: logger}
}

// LengthMismatchError is returned when a computation does not return one
// value per record.
type LengthMismatchError struct {
	Collection string
	Field      string
	Got, Want  int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("computed field %s.%s returned %d values for %d records", e.Collection, e.Field, e.Got, e.Want)
}

// Batch computes one field for records holding its dependencies. The result
// has the same length and order as records. An empty batch returns an
// empty result without running the computation.
func (c *Computer) Batch(ctx context.Context, collection string, f *registry.Field, records []core.Record) ([]any, error) {
	if len(records) == 0 {
		return []any{}, nil
	}
	if !f.IsComputed() {
		return nil, fmt.Errorf("field %s.%s is not computed", collection, f.Name)
	}
	capability := registry.Context{
		CollectionName: collection,
		DataSource:     c.dataSource,
		Logger:         c.logger.With(slog.String("collection", collection), slog.String("field", f.Name)),
	}

	var (
		values []any
		err    error
	)
	if f.Computed.Values != nil {
		values, err = f.Computed.Values(records, capability)
	} else {
		values, err = f.Computed.ValuesContext(ctx, records, capability)
	}
	if err != nil {
		return nil, fmt.Errorf("compute %s.%s: %w", collection, f.Name, err)
	}
	if len(values) != len(records) {
		return nil, &LengthMismatchError{Collection: collection, Field: f.Name, Got: len(values), Want: len(records)}
	}
	return values, nil
}

// Run evaluates every step of plan on records, in place.
func (c *Computer) Run(ctx context.Context, plan *rewrite.Plan, records []core.Record) error {
	if len(records) == 0 || !plan.HasComputed() {
		return nil
	}

	for depth, level := range plan.Levels() {
		owners := make([][]core.Record, len(level))
		results := make([][]any, len(level))

		g, gctx := errgroup.WithContext(ctx)
		for i, step := range level {
			owners[i] = ownersOf(records, step.Prefix)
			inputs := make([]core.Record, len(owners[i]))
			for j, owner := range owners[i] {
				inputs[j] = owner.Project(step.Dependencies)
			}
			g.Go(func() error {
				values, err := c.Batch(gctx, step.Collection.Name, step.Field, inputs)
				results[i] = values
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		for i, step := range level {
			for j, owner := range owners[i] {
				owner[step.Field.Name] = results[i][j]
			}
		}
		c.logger.Debug("computed level",
			slog.Int("level", depth),
			slog.Int("fields", len(level)),
			slog.Int("records", len(records)))
	}
	return nil
}

// ownersOf returns the sub-records reached through prefix. Records whose
// relation is missing are skipped.
func ownersOf(records []core.Record, prefix string) []core.Record {
	if prefix == "" {
		return records
	}
	rels := strings.Split(prefix, core.PathSeparator)
	out := make([]core.Record, 0, len(records))
	for _, r := range records {
		cur := r
		for _, rel := range rels {
			if cur = cur.Relation(rel); cur == nil {
				break
			}
		}
		if cur != nil {
			out = append(out, cur)
		}
	}
	return out
}
