// Package rewrite turns requests that mention computed fields into requests
// storage can run: projections are expanded to the physical fields needed,
// filters and sorts on computed fields are replaced by their registered
// equivalents, and writes are split into column assignments.
package rewrite

import (
	"log/slog"

	"github.com/jeffladiray/forest-vercel-test/internal/registry"
	"github.com/jeffladiray/forest-vercel-test/pkg/core"
)

// Rewriter rewrites requests against a registry. It holds no mutable state
// and is safe for concurrent use.
type Rewriter struct {
	registry   *registry.Registry
	dataSource core.DataSource
	logger     *slog.Logger
}

// New creates a rewriter. The data source is handed to replacement
// functions through their registry.Context.
func New(reg *registry.Registry, ds core.DataSource, logger *slog.Logger) *Rewriter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Rewriter{registry: reg, dataSource: ds, logger: logger}
}

// Registry returns the registry requests are rewritten against.
func (rw *Rewriter) Registry() *registry.Registry { return rw.registry }

func (rw *Rewriter) capability(collection string) registry.Context {
	return registry.Context{
		CollectionName: collection,
		DataSource:     rw.dataSource,
		Logger:         rw.logger.With(slog.String("collection", collection)),
	}
}

// Filter rewrites the condition tree and sort of a paginated filter.
func (rw *Rewriter) Filter(collection string, filter core.PaginatedFilter) (core.PaginatedFilter, error) {
	tree, err := rw.Predicate(collection, filter.ConditionTree)
	if err != nil {
		return core.PaginatedFilter{}, err
	}
	sort, err := rw.Sort(collection, filter.Sort)
	if err != nil {
		return core.PaginatedFilter{}, err
	}
	return core.PaginatedFilter{ConditionTree: tree, Sort: sort, Page: filter.Page}, nil
}
