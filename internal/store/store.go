// Package store owns the SQLite event store: schema, migrations, writes, and
// retention. All mutation goes through a single write handle; readers open
// their own pool via OpenReadPool and rely on WAL snapshot isolation.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // register sqlite driver
)

// Store wraps the single write handle to the event database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the event database at the given path, applies any
// pending migrations, and returns the write handle. A migration failure is
// fatal to the caller: there is no safe way to run against a partially
// migrated schema.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating store dir: %w", err)
	}

	db, err := sql.Open("sqlite", writeDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("opening store db: %w", err)
	}

	// The writer is the only mutator; one connection keeps every flush on
	// the same handle and sidesteps SQLITE_BUSY between our own writes.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	return s, nil
}

// OpenReadPool opens a pool of read-only connections against the same
// database file. WAL mode guarantees readers see a consistent snapshot
// without waiting on the writer's in-flight transaction.
func OpenReadPool(dbPath string, poolSize int) (*sql.DB, error) {
	if poolSize < 1 {
		poolSize = 4
	}

	db, err := sql.Open("sqlite", readDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("opening read pool: %w", err)
	}
	db.SetMaxOpenConns(poolSize)

	return db, nil
}

func writeDSN(path string) string {
	return path + "?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=busy_timeout(5000)"
}

func readDSN(path string) string {
	return path + "?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)&_pragma=query_only(1)"
}

// Begin starts a write transaction. Only the batch writer calls this.
func (s *Store) Begin() (*sql.Tx, error) {
	return s.db.Begin()
}

// Close closes the write handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// SchemaVersion reports the highest applied migration version.
func (s *Store) SchemaVersion() (int, error) {
	var v int
	err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&v)
	return v, err
}
