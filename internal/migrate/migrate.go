// Package migrate applies the runtime's embedded SQL migrations on boot
// (SPEC_FULL.md boot order step 2), grounded on the teacher's
// pkg/database.runMigrations: golang-migrate driven off an embed.FS so the
// binary carries its schema with it, with no external migration files
// required at deploy time.
package migrate

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationsFS embed.FS

// schemaName is passed to golang-migrate as the migration target's logical
// name; it only labels the schema_migrations bookkeeping table, not a real
// database identifier, so a constant is sufficient here.
const schemaName = "agentruntime"

// Run applies every pending migration in migrations/ against db. Safe to
// call on every process boot: a schema already at the latest version
// returns migrate.ErrNoChange, which Run treats as success.
func Run(db *sql.DB) error {
	hasMigrations, err := hasEmbeddedMigrations()
	if err != nil {
		return fmt.Errorf("check embedded migrations: %w", err)
	}
	if !hasMigrations {
		return fmt.Errorf("no embedded migration files found, binary built incorrectly")
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create postgres migration driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, schemaName, driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	// Close only the source driver. Calling m.Close() would also close the
	// database driver, which closes the shared *sql.DB passed in above via
	// postgres.WithInstance() — breaking every other user of db.
	if err := sourceDriver.Close(); err != nil {
		return fmt.Errorf("close migration source: %w", err)
	}
	return nil
}

// hasEmbeddedMigrations reports whether the embedded FS carries any .sql
// migration files, so a misbuilt binary fails loudly on boot rather than
// silently skipping schema setup.
func hasEmbeddedMigrations() (bool, error) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("read embedded migrations: %w", err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() && len(name) > 4 && name[len(name)-4:] == ".sql" {
			return true, nil
		}
	}
	return false, nil
}
