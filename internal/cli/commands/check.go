package commands

import (
	"github.com/spf13/cobra"

	"github.com/jeffladiray/forest-vercel-test/internal/server"
)

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate customizations and show computed fields",
		Long: `Build the collections with their customizations without touching storage.

Dependency cycles, unknown dependencies and invalid actions are reported.
On success every computed field is printed with the physical fields it
is resolved to.`,
		Example: `  # Validate the customizations
  agent check

  # Describe collections as JSON
  agent check --output json`,
		Args: cobra.NoArgs,
		RunE: runCheck,
	}
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	reg := cmdCtx.Engine.Registry()
	collections := reg.Collections()
	infos := make([]server.CollectionInfo, len(collections))
	for i, c := range collections {
		infos[i] = server.Describe(reg, c)
	}

	w := cmd.OutOrStdout()
	return renderCollections(w, outputMode(cmdCtx.Cfg.OutputFormat, w), infos)
}
