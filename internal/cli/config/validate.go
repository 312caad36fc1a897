package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/jeffladiray/forest-vercel-test/pkg/adapter"
)

var (
	logLevels     = []string{"debug", "info", "warn", "error"}
	logFormats    = []string{"text", "json"}
	outputFormats = []string{"auto", "table", "json"}
)

// Validate checks if the configuration is valid.
// Every problem is reported, not only the first one.
func (c *Config) Validate() error {
	var errs []error

	if c.Target.Type == "" {
		errs = append(errs, errors.New("target.type is required"))
	} else if !adapter.IsRegistered(c.Target.Type) {
		errs = append(errs, fmt.Errorf("unknown target type %q\nHint: registered adapters are %s",
			c.Target.Type, strings.Join(adapter.ListAdapters(), ", ")))
	}
	if c.Target.Port < 0 || c.Target.Port > 65535 {
		errs = append(errs, fmt.Errorf("target.port must be between 0 and 65535, got %d", c.Target.Port))
	}
	if !slices.Contains(logLevels, strings.ToLower(c.Log.Level)) {
		errs = append(errs, fmt.Errorf("log.level must be one of %s, got %q", strings.Join(logLevels, ", "), c.Log.Level))
	}
	if !slices.Contains(logFormats, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format must be one of %s, got %q", strings.Join(logFormats, ", "), c.Log.Format))
	}
	if !slices.Contains(outputFormats, c.OutputFormat) {
		errs = append(errs, fmt.Errorf("output must be one of %s, got %q", strings.Join(outputFormats, ", "), c.OutputFormat))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 0 and 65535, got %d", c.Server.Port))
	}
	if c.Server.ReadHeaderTimeout < 0 {
		errs = append(errs, fmt.Errorf("server.read_header_timeout must not be negative, got %s", c.Server.ReadHeaderTimeout))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
