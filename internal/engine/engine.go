// Package engine serves collection requests through the translation layer.
// It rewrites filters, sorts and writes on computed fields, fetches the
// physical fields from the storage adapter, computes the requested values
// and runs actions.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jeffladiray/forest-vercel-test/internal/action"
	"github.com/jeffladiray/forest-vercel-test/internal/compute"
	"github.com/jeffladiray/forest-vercel-test/internal/registry"
	"github.com/jeffladiray/forest-vercel-test/internal/rewrite"
	"github.com/jeffladiray/forest-vercel-test/pkg/adapter"
	"github.com/jeffladiray/forest-vercel-test/pkg/core"
)

// Engine serves requests on the customized collections.
type Engine struct {
	// Storage adapter (lazy initialized)
	db          adapter.Adapter
	dbConfig    adapter.Config
	dbConnected bool
	dbMu        sync.Mutex

	logger *slog.Logger

	registry *registry.Registry
	rewriter *rewrite.Rewriter
	computer *compute.Computer
	executor *action.Executor
}

// Config holds engine configuration.
type Config struct {
	// Schema is the physical schema of the data source.
	Schema *core.Schema
	// Customize registers computed fields and actions on the builder (optional).
	Customize func(*registry.Builder)
	// AdapterConfig selects and configures the storage adapter.
	AdapterConfig adapter.Config
	// Adapter, when set, is used instead of creating one from AdapterConfig.
	// It is connected on first use unless it reports being connected already.
	Adapter adapter.Adapter
	// OnTransition observes action state changes (optional).
	OnTransition func(action.Transition)
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// New builds the registry and creates an engine with a lazy storage connection.
// Declaration mistakes in customizations are returned here.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	b := registry.NewBuilder(cfg.Schema, logger)
	if cfg.Customize != nil {
		cfg.Customize(b)
	}
	reg, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build collections: %w", err)
	}

	dbConfig := cfg.AdapterConfig
	dbConfig.Catalog = cfg.Schema

	e := &Engine{
		db:       cfg.Adapter,
		dbConfig: dbConfig,
		logger:   logger,
		registry: reg,
	}
	e.rewriter = rewrite.New(reg, e, logger)
	e.computer = compute.New(e, logger)
	e.executor = action.NewExecutor(action.Config{Logger: logger, OnTransition: cfg.OnTransition})

	logger.Debug("engine initialized",
		slog.String("adapter_type", dbConfig.Type),
		slog.Int("collections", len(reg.Collections())))
	return e, nil
}

// ensureDBConnected lazily connects to the storage.
func (e *Engine) ensureDBConnected(ctx context.Context) error {
	e.dbMu.Lock()
	defer e.dbMu.Unlock()

	if e.dbConnected {
		return nil
	}

	e.logger.Debug("connecting to database", "adapter_type", e.dbConfig.Type)

	db := e.db
	if db == nil {
		var err error
		if db, err = adapter.NewAdapter(e.dbConfig, e.logger); err != nil {
			return fmt.Errorf("failed to create database adapter: %w", err)
		}
	}
	if c, ok := db.(interface{ IsConnected() bool }); !ok || !c.IsConnected() {
		if err := db.Connect(ctx, e.dbConfig); err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
	}

	e.db = db
	e.dbConnected = true
	e.logger.Debug("database connected")
	return nil
}

// storage returns the connected adapter.
func (e *Engine) storage(ctx context.Context) (adapter.Adapter, error) {
	if err := e.ensureDBConnected(ctx); err != nil {
		return nil, err
	}
	return e.db, nil
}

// Adapter connects if needed and returns the storage adapter.
func (e *Engine) Adapter(ctx context.Context) (adapter.Adapter, error) {
	return e.storage(ctx)
}

// Close releases the storage connection.
func (e *Engine) Close() error {
	e.logger.Debug("closing engine")

	e.dbMu.Lock()
	defer e.dbMu.Unlock()

	var errs []error
	if e.db != nil && e.dbConnected {
		if err := e.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	e.dbConnected = false
	if len(errs) > 0 {
		return fmt.Errorf("errors closing engine: %v", errs)
	}
	return nil
}

// Registry returns the customized collections.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// Rewriter returns the request rewriter.
func (e *Engine) Rewriter() *rewrite.Rewriter {
	return e.rewriter
}
