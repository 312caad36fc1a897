// Package commands implements the agent subcommands.
package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jeffladiray/forest-vercel-test/internal/cli/config"
	"github.com/jeffladiray/forest-vercel-test/internal/customizations"
	"github.com/jeffladiray/forest-vercel-test/internal/engine"
	"github.com/jeffladiray/forest-vercel-test/internal/schema"
)

// CommandContext holds common resources for command execution.
type CommandContext struct {
	Cfg    *config.Config
	Logger *slog.Logger
	Engine *engine.Engine
}

// NewCommandContext loads the collection schema and creates an engine with
// the store customizations. The storage is connected on first use. The
// returned cleanup closes the engine.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	eng, err := createEngine(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		_ = eng.Close()
	}

	return &CommandContext{
		Cfg:    cfg,
		Logger: logger,
		Engine: eng,
	}, cleanup, nil
}

// getConfig returns the configuration loaded by the root command, or the
// defaults when a command runs without it.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return &config.Config{
		Environment:  config.DefaultEnv,
		Log:          config.LogConfig{Level: config.DefaultLogLevel, Format: config.DefaultLogFormat},
		Target:       config.TargetConfig{Type: config.DefaultTargetType},
		Server:       config.ServerConfig{Port: config.DefaultServerPort, ReadHeaderTimeout: config.DefaultReadHeaderTimeout},
		OutputFormat: config.DefaultOutput,
	}
}

func createEngine(cfg *config.Config, logger *slog.Logger) (*engine.Engine, error) {
	s, err := schema.Load(cfg.SchemaPath)
	if err != nil {
		return nil, err
	}
	eng, err := engine.New(engine.Config{
		Schema: s,
		Customize: customizations.Apply(customizations.Options{
			ImpersonationURL: cfg.Impersonation.URL,
			AdminToken:       cfg.Impersonation.AdminToken,
		}),
		AdapterConfig: cfg.Target.AdapterConfig(),
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	return eng, nil
}
