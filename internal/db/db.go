// Package db opens the analysis database and manages its schema through
// embedded migrations.
package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps the application database handle.
type DB struct {
	*sql.DB
}

// pragmas are applied once per Open. WAL keeps readers from blocking the
// writer; the busy timeout covers the remaining contention.
var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA temp_store=MEMORY",
	"PRAGMA foreign_keys=ON",
}

// Open opens the sqlite database at path, creating it if needed, and
// applies the connection pragmas. Schema management is left to the
// migration wrappers.
func Open(path string) (*DB, error) {
	sqldb, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	for _, pragma := range pragmas {
		if _, err := sqldb.Exec(pragma); err != nil {
			sqldb.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return &DB{sqldb}, nil
}
