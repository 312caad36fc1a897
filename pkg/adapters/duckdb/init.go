// Package duckdb provides a DuckDB storage adapter.
//
// This file registers the DuckDB adapter with the adapter registry.
// Import this package with a blank identifier to register the adapter:
//
//	import _ "github.com/jeffladiray/forest-vercel-test/pkg/adapters/duckdb"
package duckdb

import (
	"log/slog"

	"github.com/jeffladiray/forest-vercel-test/pkg/adapter"
)

func init() {
	adapter.Register("duckdb", "DuckDB file or in-memory database", func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}
