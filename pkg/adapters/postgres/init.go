// Package postgres provides a PostgreSQL storage adapter.
//
// This file registers the PostgreSQL adapter with the adapter registry.
// Import this package with a blank identifier to register the adapter:
//
//	import _ "github.com/jeffladiray/forest-vercel-test/pkg/adapters/postgres"
package postgres

import (
	"log/slog"

	"github.com/jeffladiray/forest-vercel-test/pkg/adapter"
)

func init() {
	adapter.Register("postgres", "PostgreSQL through pgx", func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}
