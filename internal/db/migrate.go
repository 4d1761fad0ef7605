package db

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// Schema migrations ship inside the binary so the CLI can bring any
// database up to date without a checkout.
//
//go:embed migrations/*.sql
var migrationsFS embed.FS

// runMigration builds a migrate instance and applies op, treating
// ErrNoChange as success. The instance is deliberately never closed:
// closing it would also close the underlying DB connection.
func (db *DB) runMigration(desc string, op func(*migrate.Migrate) error) error {
	m, err := db.newMigrate()
	if err != nil {
		return err
	}
	if err := op(m); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%s failed: %w", desc, err)
	}
	return nil
}

// MigrateUp applies every pending migration. Already being at the
// latest version is not an error.
func (db *DB) MigrateUp() error {
	return db.runMigration("migration up", (*migrate.Migrate).Up)
}

// MigrateDown rolls back the most recent migration.
func (db *DB) MigrateDown() error {
	return db.runMigration("migration down", func(m *migrate.Migrate) error {
		return m.Steps(-1)
	})
}

// MigrateForce stamps the schema version without running anything.
// Only for recovering from a dirty migration state.
func (db *DB) MigrateForce(version int) error {
	return db.runMigration(fmt.Sprintf("force to version %d", version), func(m *migrate.Migrate) error {
		return m.Force(version)
	})
}

// MigrateTo migrates up or down to a specific version.
func (db *DB) MigrateTo(version uint) error {
	return db.runMigration(fmt.Sprintf("migration to version %d", version), func(m *migrate.Migrate) error {
		return m.Migrate(version)
	})
}

// MigrateVersion reports the current schema version and dirty state.
// A database with no applied migrations reports 0, false, nil.
func (db *DB) MigrateVersion() (uint, bool, error) {
	m, err := db.newMigrate()
	if err != nil {
		return 0, false, err
	}

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// newMigrate creates a migrate instance backed by the embedded migration
// files and this database.
func (db *DB) newMigrate() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded migrations: %w", err)
	}

	driver, err := sqlite.WithInstance(db.DB, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	m.Log = &migrateLogger{}

	return m, nil
}

// migrateLogger routes golang-migrate's progress output through the
// standard logger with a recognizable prefix.
type migrateLogger struct{}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	log.Printf("[migrate] "+format, v...)
}

func (l *migrateLogger) Verbose() bool { return false }

// LatestMigrationVersion returns the newest version shipped in the
// embedded migration files.
func LatestMigrationVersion() (uint, error) {
	entries, err := fs.Glob(migrationsFS, "migrations/*.up.sql")
	if err != nil {
		return 0, fmt.Errorf("failed to read embedded migrations: %w", err)
	}
	if len(entries) == 0 {
		return 0, errors.New("no migration files embedded")
	}

	var maxVersion uint
	for _, entry := range entries {
		var version uint
		// Migration files follow format: migrations/000001_name.up.sql
		if _, err := fmt.Sscanf(entry, "migrations/%d_", &version); err == nil {
			if version > maxVersion {
				maxVersion = version
			}
		}
	}

	if maxVersion == 0 {
		return 0, errors.New("could not determine latest migration version")
	}

	return maxVersion, nil
}
