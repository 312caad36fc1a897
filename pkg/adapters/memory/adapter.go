// Package memory provides an in-process storage adapter. Records live in
// maps guarded by a mutex and filters are evaluated with core.Match, so the
// adapter follows the same semantics as the SQL adapters without a database.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/jeffladiray/forest-vercel-test/pkg/adapter"
	"github.com/jeffladiray/forest-vercel-test/pkg/core"
)

func init() {
	adapter.Register("memory", "in-process records, lost on exit", func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}

// Adapter implements adapter.Adapter on in-memory tables.
type Adapter struct {
	mu      sync.RWMutex
	catalog *core.Schema
	tables  map[string][]core.Record
	logger  *slog.Logger
}

// New creates an empty in-memory adapter.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{tables: make(map[string][]core.Record), logger: logger}
}

// Connect installs the catalog. Existing rows are kept.
func (a *Adapter) Connect(_ context.Context, cfg adapter.Config) error {
	if cfg.Catalog == nil {
		return fmt.Errorf("memory adapter requires a catalog")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.catalog = cfg.Catalog
	return nil
}

// Close is a no-op.
func (a *Adapter) Close() error { return nil }

// Seed replaces the rows of a collection. Rows are stored as given, without validation.
func (a *Adapter) Seed(collection string, rows ...core.Record) {
	a.mu.Lock()
	defer a.mu.Unlock()
	stored := make([]core.Record, len(rows))
	for i, r := range rows {
		stored[i] = r.Clone()
	}
	a.tables[collection] = stored
}

// Rows returns a copy of the stored rows of a collection.
func (a *Adapter) Rows(collection string) []core.Record {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]core.Record, len(a.tables[collection]))
	for i, r := range a.tables[collection] {
		out[i] = r.Clone()
	}
	return out
}

func (a *Adapter) collection(name string) (*core.CollectionSchema, error) {
	if a.catalog == nil {
		return nil, fmt.Errorf("database connection not established")
	}
	c, ok := a.catalog.Collection(name)
	if !ok {
		return nil, &core.UnknownCollectionError{Name: name, Available: a.catalog.Names()}
	}
	return c, nil
}

// Read evaluates the filter on rows joined with the relations it references.
func (a *Adapter) Read(_ context.Context, collection string, filter core.PaginatedFilter, projection core.Projection) ([]core.Record, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	c, err := a.collection(collection)
	if err != nil {
		return nil, err
	}
	requested, err := projection.Paths()
	if err != nil {
		return nil, err
	}

	fields := append([]string(nil), projection...)
	for _, l := range core.Leaves(filter.ConditionTree) {
		fields = append(fields, l.Field)
	}
	for _, s := range filter.Sort {
		fields = append(fields, s.Field)
	}
	plan, err := a.joinPlan(c, fields)
	if err != nil {
		return nil, err
	}

	var matched []core.Record
	for _, row := range a.tables[collection] {
		view := a.expand(c, row, plan)
		ok, err := core.Match(filter.ConditionTree, view)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, view)
		}
	}
	filter.Sort.Apply(matched)
	matched = filter.Page.Apply(matched)

	out := make([]core.Record, len(matched))
	for i, view := range matched {
		out[i] = view.Project(requested)
	}
	a.logger.Debug("memory read", slog.String("collection", collection), slog.Int("rows", len(out)))
	return out, nil
}

// joinTree lists, per relation name, the relations reached below it.
type joinTree map[string]joinTree

// joinPlan validates every field path against the catalog and returns the relations to expand.
func (a *Adapter) joinPlan(root *core.CollectionSchema, fields []string) (joinTree, error) {
	plan := joinTree{}
	for _, f := range fields {
		p, err := core.ParsePath(f)
		if err != nil {
			return nil, err
		}
		c, node := root, plan
		for _, rel := range p.Relations() {
			r, ok := c.Relation(rel)
			if !ok {
				return nil, &core.UnknownFieldError{Collection: c.Name, Field: rel}
			}
			if !r.Joinable() {
				return nil, fmt.Errorf("relation %s.%s (%s) cannot be joined", c.Name, r.Name, r.Kind)
			}
			if c, err = a.collection(r.Target); err != nil {
				return nil, err
			}
			if node[rel] == nil {
				node[rel] = joinTree{}
			}
			node = node[rel]
		}
		if _, ok := c.Column(p.Field()); !ok {
			return nil, &core.UnknownFieldError{Collection: c.Name, Field: p.Field()}
		}
	}
	return plan, nil
}

// expand returns a copy of row with the planned relations attached as sub-records.
// A relation without a matching row is attached as a nil record.
func (a *Adapter) expand(c *core.CollectionSchema, row core.Record, plan joinTree) core.Record {
	view := make(core.Record, len(c.Columns)+len(plan))
	for _, col := range c.Columns {
		view[col.Name] = row[col.Name]
	}
	for relName, sub := range plan {
		rel, _ := c.Relation(relName)
		target, _ := a.catalog.Collection(rel.Target)
		var related core.Record
		for _, candidate := range a.tables[rel.Target] {
			var match bool
			if rel.Kind == core.ManyToOne {
				match = row[rel.ForeignKey] != nil && core.Equal(candidate[rel.TargetKey], row[rel.ForeignKey])
			} else {
				match = row[rel.TargetKey] != nil && core.Equal(candidate[rel.ForeignKey], row[rel.TargetKey])
			}
			if match {
				related = a.expand(target, candidate, sub)
				break
			}
		}
		view[relName] = related
	}
	return view
}

// Create appends records, assigning the next integer key when none is given.
func (a *Adapter) Create(_ context.Context, collection string, records []core.Record) ([]core.Record, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	c, err := a.collection(collection)
	if err != nil {
		return nil, err
	}
	pk := c.PrimaryKey()

	// Validate everything first so a bad record leaves the table untouched.
	for _, rec := range records {
		for k, v := range rec {
			if _, ok := c.Column(k); !ok {
				return nil, &core.UnknownFieldError{Collection: collection, Field: k}
			}
			if _, nested := v.(core.Record); nested {
				return nil, fmt.Errorf("field %s.%s cannot hold a record", collection, k)
			}
		}
	}

	out := make([]core.Record, 0, len(records))
	for _, rec := range records {
		stored := make(core.Record, len(c.Columns))
		for _, col := range c.Columns {
			stored[col.Name] = rec[col.Name]
		}
		if stored[pk] == nil {
			stored[pk] = a.nextKey(collection, pk)
		}
		a.tables[collection] = append(a.tables[collection], stored)
		out = append(out, stored.Clone())
	}
	return out, nil
}

func (a *Adapter) nextKey(collection, pk string) int64 {
	var maxKey int64
	for _, row := range a.tables[collection] {
		if n, err := core.ToInt64(row[pk]); err == nil && n > maxKey {
			maxKey = n
		}
	}
	return maxKey + 1
}

// Update applies patch to every row matching tree.
func (a *Adapter) Update(_ context.Context, collection string, tree core.ConditionTree, patch core.Record) error {
	if len(patch) == 0 {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	c, err := a.collection(collection)
	if err != nil {
		return err
	}
	for k := range patch {
		if _, ok := c.Column(k); !ok {
			return &core.UnknownFieldError{Collection: collection, Field: k}
		}
	}
	var fields []string
	for _, l := range core.Leaves(tree) {
		fields = append(fields, l.Field)
	}
	plan, err := a.joinPlan(c, fields)
	if err != nil {
		return err
	}

	// Match first, then write, so conditions see the rows as they were.
	var targets []int
	for i, row := range a.tables[collection] {
		ok, err := core.Match(tree, a.expand(c, row, plan))
		if err != nil {
			return err
		}
		if ok {
			targets = append(targets, i)
		}
	}
	for _, i := range targets {
		for k, v := range patch {
			a.tables[collection][i][k] = v
		}
	}
	a.logger.Debug("memory update", slog.String("collection", collection), slog.Int("rows", len(targets)))
	return nil
}

// RawAggregate counts rows per group value for the given groups.
// Rows are returned ordered by group key, groups without rows are omitted.
func (a *Adapter) RawAggregate(_ context.Context, collection, groupField string, values []any) ([]core.AggregateRow, error) {
	if len(values) == 0 {
		return nil, nil
	}
	a.mu.RLock()
	defer a.mu.RUnlock()

	c, err := a.collection(collection)
	if err != nil {
		return nil, err
	}
	if _, ok := c.Column(groupField); !ok {
		return nil, &core.UnknownFieldError{Collection: collection, Field: groupField}
	}

	wanted := make(map[string]bool, len(values))
	for _, v := range values {
		wanted[core.KeyOf(v)] = true
	}
	counts := map[string]*core.AggregateRow{}
	for _, row := range a.tables[collection] {
		g := row[groupField]
		key := core.KeyOf(g)
		if g == nil || !wanted[key] {
			continue
		}
		if counts[key] == nil {
			counts[key] = &core.AggregateRow{Group: g, Count: int64(0)}
		}
		counts[key].Count = counts[key].Count.(int64) + 1
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]core.AggregateRow, len(keys))
	for i, k := range keys {
		out[i] = *counts[k]
	}
	return out, nil
}
