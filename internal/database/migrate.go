package database

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // postgres migrate driver
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"tubemirror/internal/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrateUp applies all pending schema migrations.
func MigrateUp(cfg config.DatabaseConfig) error {
	m, err := newMigrator(cfg)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	if upErr := m.Up(); upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", upErr)
	}
	return nil
}

// MigrateDown rolls back all schema migrations.
func MigrateDown(cfg config.DatabaseConfig) error {
	m, err := newMigrator(cfg)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	if downErr := m.Down(); downErr != nil && !errors.Is(downErr, migrate.ErrNoChange) {
		return fmt.Errorf("migrate down: %w", downErr)
	}
	return nil
}

// newMigrator builds a migrator over the embedded migration files.
func newMigrator(cfg config.DatabaseConfig) (*migrate.Migrate, error) {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName, cfg.SSLMode,
	)

	m, err := migrate.NewWithSourceInstance("iofs", source, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	return m, nil
}
