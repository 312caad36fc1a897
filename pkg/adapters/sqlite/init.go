// Package sqlite provides a SQLite storage adapter backed by the pure Go
// modernc.org/sqlite driver.
//
// This file registers the SQLite adapter with the adapter registry.
// Import this package with a blank identifier to register the adapter:
//
//	import _ "github.com/jeffladiray/forest-vercel-test/pkg/adapters/sqlite"
package sqlite

import (
	"log/slog"

	"github.com/jeffladiray/forest-vercel-test/pkg/adapter"
)

func init() {
	adapter.Register("sqlite", "SQLite file or in-memory database", func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}
