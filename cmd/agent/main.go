// Package main provides the CLI of the admin agent.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jeffladiray/forest-vercel-test/internal/cli"

	// Storage adapters register themselves on import.
	_ "github.com/jeffladiray/forest-vercel-test/pkg/adapters/duckdb"
	_ "github.com/jeffladiray/forest-vercel-test/pkg/adapters/memory"
	_ "github.com/jeffladiray/forest-vercel-test/pkg/adapters/postgres"
	_ "github.com/jeffladiray/forest-vercel-test/pkg/adapters/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
