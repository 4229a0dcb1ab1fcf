package store

import (
	"fmt"
	"time"
)

// migrate brings the schema from whatever version the file was last left at
// up to the current version. Safe to re-run on every startup.
func (s *Store) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version    INTEGER PRIMARY KEY,
		applied_at INTEGER NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	var version int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	if version >= len(migrations) {
		return nil
	}

	for i := version; i < len(migrations); i++ {
		if err := s.applyMigration(i+1, migrations[i]); err != nil {
			return fmt.Errorf("migration v%d: %w", i+1, err)
		}
	}

	return nil
}

// applyMigration runs one migration step and records it in the same
// transaction, so a crash leaves either both or neither.
func (s *Store) applyMigration(version int, ddl string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(ddl); err != nil {
		return err
	}
	if _, err := tx.Exec(
		"INSERT INTO schema_version (version, applied_at) VALUES (?, ?)",
		version, time.Now().UnixMilli(),
	); err != nil {
		return err
	}

	return tx.Commit()
}
