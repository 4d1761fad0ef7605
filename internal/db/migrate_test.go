package db

import (
	"testing"
)

func tableExists(t *testing.T, d *DB, name string) bool {
	t.Helper()
	var n int
	err := d.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n)
	if err != nil {
		t.Fatalf("check table %s: %v", name, err)
	}
	return n > 0
}

func TestMigrateVersionFreshDatabase(t *testing.T) {
	d := openTestDB(t)

	version, dirty, err := d.MigrateVersion()
	if err != nil {
		t.Fatalf("MigrateVersion on fresh db: %v", err)
	}
	if version != 0 || dirty {
		t.Errorf("fresh db version = %d dirty = %v, want 0 clean", version, dirty)
	}
}

func TestMigrateUp(t *testing.T) {
	d := openTestDB(t)

	if err := d.MigrateUp(); err != nil {
		t.Fatalf("MigrateUp: %v", err)
	}

	latest, err := LatestMigrationVersion()
	if err != nil {
		t.Fatalf("LatestMigrationVersion: %v", err)
	}
	version, dirty, err := d.MigrateVersion()
	if err != nil {
		t.Fatalf("MigrateVersion: %v", err)
	}
	if version != latest || dirty {
		t.Errorf("version = %d dirty = %v, want %d clean", version, dirty, latest)
	}

	for _, table := range []string{"sessions", "fits", "runs", "channels"} {
		if !tableExists(t, d, table) {
			t.Errorf("table %s missing after MigrateUp", table)
		}
	}

	// Re-running is a no-op.
	if err := d.MigrateUp(); err != nil {
		t.Errorf("second MigrateUp: %v", err)
	}
}

func TestMigrateDown(t *testing.T) {
	d := openTestDB(t)
	if err := d.MigrateUp(); err != nil {
		t.Fatalf("MigrateUp: %v", err)
	}

	if err := d.MigrateDown(); err != nil {
		t.Fatalf("MigrateDown: %v", err)
	}

	version, _, err := d.MigrateVersion()
	if err != nil {
		t.Fatalf("MigrateVersion: %v", err)
	}
	if version != 1 {
		t.Errorf("version after down = %d, want 1", version)
	}
	if tableExists(t, d, "channels") {
		t.Error("channels table should be dropped by the down migration")
	}
	if !tableExists(t, d, "sessions") {
		t.Error("sessions table should survive rolling back the channels migration")
	}
}

func TestMigrateTo(t *testing.T) {
	d := openTestDB(t)

	if err := d.MigrateTo(1); err != nil {
		t.Fatalf("MigrateTo(1): %v", err)
	}
	version, _, err := d.MigrateVersion()
	if err != nil {
		t.Fatalf("MigrateVersion: %v", err)
	}
	if version != 1 {
		t.Errorf("version = %d, want 1", version)
	}
	if tableExists(t, d, "channels") {
		t.Error("channels table should not exist at version 1")
	}
}

func TestMigrateForce(t *testing.T) {
	d := openTestDB(t)
	if err := d.MigrateUp(); err != nil {
		t.Fatalf("MigrateUp: %v", err)
	}

	if err := d.MigrateForce(1); err != nil {
		t.Fatalf("MigrateForce: %v", err)
	}
	version, dirty, err := d.MigrateVersion()
	if err != nil {
		t.Fatalf("MigrateVersion: %v", err)
	}
	if version != 1 || dirty {
		t.Errorf("after force, version = %d dirty = %v, want 1 clean", version, dirty)
	}
}

func TestLatestMigrationVersion(t *testing.T) {
	latest, err := LatestMigrationVersion()
	if err != nil {
		t.Fatalf("LatestMigrationVersion: %v", err)
	}
	if latest != 2 {
		t.Errorf("latest embedded migration = %d, want 2", latest)
	}
}
