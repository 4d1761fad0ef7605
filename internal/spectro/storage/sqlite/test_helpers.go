package sqlite

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/gammalab-data/specfit/internal/db"
)

// setupTestDB creates a test database with the full schema applied through
// the embedded migrations. This avoids hardcoded CREATE TABLE statements
// that can get out of sync with the real schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	d, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	if err := d.MigrateUp(); err != nil {
		t.Fatalf("Failed to migrate database: %v", err)
	}

	return d.DB
}
