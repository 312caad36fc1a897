// Package config provides configuration management for the agent CLI.
//
// Values are layered from defaults, a YAML file, FOREST_ prefixed
// environment variables, the well-known variables of the hosted agent
// (DATABASE_URL, APPLICATION_PORT, ...) and explicitly set flags.
package config

import (
	"time"

	"github.com/jeffladiray/forest-vercel-test/pkg/adapter"
)

// Default configuration values.
const (
	DefaultEnv               = "development"
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
	DefaultTargetType        = "sqlite"
	DefaultServerPort        = 3310
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultOutput            = "auto" // Auto-detect: TTY=table, non-TTY=json
)

// Config holds all CLI configuration options.
type Config struct {
	Environment   string              `koanf:"environment"`
	Log           LogConfig           `koanf:"log"`
	Target        TargetConfig        `koanf:"target"`
	SchemaPath    string              `koanf:"schema_path"`
	Server        ServerConfig        `koanf:"server"`
	Impersonation ImpersonationConfig `koanf:"impersonation"`
	OutputFormat  string              `koanf:"output"`
}

// LogConfig selects the level and handler of the logger.
type LogConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // text, json
}

// TargetConfig holds the storage target configuration.
type TargetConfig struct {
	Type string `koanf:"type"` // postgres, duckdb, sqlite, memory

	// URL is a complete connection string and wins over the discrete fields.
	URL string `koanf:"url"`

	// File-based databases (DuckDB, SQLite)
	Database string `koanf:"database"` // file path or database name

	// Network databases
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`

	Schema string `koanf:"schema"`

	// Additional driver-specific options (sslmode, ...)
	Options map[string]string `koanf:"options"`
}

// ServerConfig holds configuration for the HTTP server.
type ServerConfig struct {
	Port              int           `koanf:"port"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
}

// ImpersonationConfig configures the "Impersonate this user" webhook.
type ImpersonationConfig struct {
	URL        string `koanf:"url"`
	AdminToken string `koanf:"admin_token"`
}

// AdapterConfig converts the target into the storage adapter configuration.
func (t TargetConfig) AdapterConfig() adapter.Config {
	options := make(map[string]string, len(t.Options))
	for k, v := range t.Options {
		options[k] = v
	}
	return adapter.Config{
		Type:     t.Type,
		URL:      t.URL,
		Path:     t.Database,
		Database: t.Database,
		Host:     t.Host,
		Port:     t.Port,
		Username: t.User,
		Password: t.Password,
		Schema:   t.Schema,
		Options:  options,
	}
}

// IsProduction reports whether the agent runs in the production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
