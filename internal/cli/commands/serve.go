package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeffladiray/forest-vercel-test/internal/server"
)

// ServeOptions holds options for the serve command.
type ServeOptions struct {
	Port int
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the collections over HTTP",
		Long: `Start an HTTP server exposing the customized collections.

Routes:
  GET   /healthz
  GET   /collections
  GET   /collections/{collection}
  POST  /collections/{collection}
  PATCH /collections/{collection}
  GET   /collections/{collection}/actions/{action}/form
  POST  /collections/{collection}/actions/{action}`,
		Example: `  # Serve on the configured port
  agent serve

  # Serve on a custom port
  agent serve --port 8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Port, "port", 0, "Port to serve on (default: server.port)")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	// CLI flag overrides config file
	port := cmdCtx.Cfg.Server.Port
	if opts.Port != 0 {
		port = opts.Port
	}

	srv := server.NewServer(server.Config{
		Engine:            cmdCtx.Engine,
		Port:              port,
		ReadHeaderTimeout: cmdCtx.Cfg.Server.ReadHeaderTimeout,
		Logger:            cmdCtx.Logger,
	})

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Serving collections on http://localhost:%d\n", port)
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl+C to stop")

	return srv.Serve(cmd.Context())
}
