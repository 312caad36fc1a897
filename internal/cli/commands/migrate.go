package commands

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeffladiray/forest-vercel-test/internal/demo"
	"github.com/jeffladiray/forest-vercel-test/pkg/adapter"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the store tables with sample records",
		Long: `Apply the embedded store migrations to the target database.

The migrations create every table of the store schema and insert sample
users, orders, coupons and tickets. Applied migrations are skipped, so the
command can be run repeatedly.`,
		Example: `  # Create a local SQLite store
  agent migrate --target-type sqlite --database store.db`,
		Args: cobra.NoArgs,
		RunE: runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	dialect := cmdCtx.Cfg.Target.Type
	if !slices.Contains(demo.Supported, dialect) {
		return fmt.Errorf("migrations are not available for %q targets\nHint: use one of %s", dialect, strings.Join(demo.Supported, ", "))
	}

	db, err := cmdCtx.Engine.Adapter(cmd.Context())
	if err != nil {
		return err
	}
	sqlAdapter, ok := db.(adapter.SQLAdapter)
	if !ok {
		return fmt.Errorf("target %q is not backed by database/sql", dialect)
	}

	if err := demo.Migrate(sqlAdapter.SQLDB(), dialect, cmdCtx.Logger); err != nil {
		return err
	}
	version, err := demo.Version(sqlAdapter.SQLDB(), dialect)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Store migrated to version %d\n", version)
	return nil
}
