package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/jeffladiray/forest-vercel-test/pkg/adapter"
	"github.com/jeffladiray/forest-vercel-test/pkg/dialect"
)

// Dialect is the SQLite dialect. SQLite requires a LIMIT before OFFSET.
var Dialect = dialect.NewDialect("sqlite").
	DefaultSchema("main").
	PlaceholderStyle(dialect.PlaceholderQuestion).
	UnboundedLimit("-1").
	Build()

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Adapter implements the adapter.Adapter interface for SQLite.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new SQLite adapter instance.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger, SQLDialect: Dialect},
	}
}

// Connect opens the database file named by cfg.Path (or cfg.Database).
// An empty path opens an in-memory database restricted to one connection,
// since every connection to :memory: sees its own database.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	path := cfg.Path
	if path == "" {
		path = cfg.Database
	}
	if path == "" {
		path = MemoryPath
	}

	a.Logger.Debug("connecting to sqlite", slog.String("path", path))

	db, err := sql.Open("sqlite", buildDSN(path))
	if err != nil {
		return fmt.Errorf("failed to open sqlite connection: %w", err)
	}
	if path == MemoryPath {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// buildDSN enables foreign keys and case sensitive LIKE on every connection,
// so Contains behaves as on the other backends.
func buildDSN(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=case_sensitive_like(1)"
}
