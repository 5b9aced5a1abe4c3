package persistence

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // PostgreSQL driver
	_ "github.com/golang-migrate/migrate/v4/source/file"       // File source driver
)

const fileScheme = "file://"

// migrationSource accepts either a bare directory or a file:// URL
func migrationSource(migrationsPath string) string {
	if strings.HasPrefix(migrationsPath, fileScheme) {
		return migrationsPath
	}
	return fileScheme + migrationsPath
}

// RunMigrations brings the ledger store schema (accounts, ledger entries, sagas,
// outbox, users, idempotency records) up to the latest version in migrationsPath
func RunMigrations(logger *slog.Logger, databaseURL string, migrationsPath string) error {
	if migrationsPath == "" {
		return errors.New("migrations path cannot be empty")
	}
	if databaseURL == "" {
		return errors.New("database URL cannot be empty")
	}

	m, err := migrate.New(migrationSource(migrationsPath), databaseURL)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer func() {
		sourceErr, dbErr := m.Close()
		if sourceErr != nil || dbErr != nil {
			logger.Warn("Failed to close migrate instance", "source_error", sourceErr, "db_error", dbErr)
		}
	}()

	switch err := m.Up(); {
	case errors.Is(err, migrate.ErrNoChange):
		logger.Info("Ledger schema is up to date")
	case err != nil:
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if dirty {
		return fmt.Errorf("ledger schema version %d is dirty", version)
	}
	logger.Info("Ledger schema migrated", "version", version)

	return nil
}
