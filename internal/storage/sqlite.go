package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Open initialises the SQLite database and applies the records schema. The
// parent directory must already exist.
func Open(path string) (*sql.DB, error) {
	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("apply pragma %s: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS records (
            id TEXT PRIMARY KEY,
            created_at TIMESTAMP NOT NULL,
            sink TEXT NOT NULL,
            level TEXT NOT NULL,
            levelno INTEGER NOT NULL,
            message TEXT NOT NULL,
            line TEXT NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_records_created ON records(created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_records_sink ON records(sink);`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}

	return nil
}
