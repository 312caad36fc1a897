// Package demo creates the store database with sample records.
package demo

import (
	"database/sql"
	"embed"
	"fmt"
	"log/slog"

	"github.com/pressly/goose/v3"
)

//go:embed migrations
var migrations embed.FS

// Supported lists the dialects with embedded migrations.
var Supported = []string{"postgres", "sqlite"}

// Migrate creates the store tables and inserts the sample records.
// Migrations already applied are skipped.
func Migrate(db *sql.DB, dialect string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	dir, err := migrationsDir(dialect)
	if err != nil {
		return err
	}

	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{logger})
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	if err := goose.Up(db, dir); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Version returns the last applied migration.
func Version(db *sql.DB, dialect string) (int64, error) {
	if _, err := migrationsDir(dialect); err != nil {
		return 0, err
	}
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect(dialect); err != nil {
		return 0, fmt.Errorf("failed to set dialect: %w", err)
	}
	return goose.GetDBVersion(db)
}

func migrationsDir(dialect string) (string, error) {
	switch dialect {
	case "postgres", "sqlite":
		return "migrations/" + dialect, nil
	}
	return "", fmt.Errorf("no demo migrations for %q (supported: %v)", dialect, Supported)
}

// gooseLogger routes goose output to slog at debug level.
type gooseLogger struct {
	logger *slog.Logger
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	l.logger.Error(fmt.Sprintf(format, v...))
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.logger.Debug(fmt.Sprintf(format, v...))
}
