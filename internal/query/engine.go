// Package query provides read-only, ranked access to the event store over a
// pool of connections fully decoupled from the batch writer.
package query

import (
	"database/sql"

	"github.com/trailhound-dev/trailhound/internal/store"
)

// Engine wraps the read pool. Connections are checked out per query by
// database/sql and never shared concurrently.
type Engine struct {
	db *sql.DB
}

// Open opens a read engine against the store file at dbPath.
func Open(dbPath string, poolSize int) (*Engine, error) {
	db, err := store.OpenReadPool(dbPath, poolSize)
	if err != nil {
		return nil, err
	}
	return &Engine{db: db}, nil
}

// Close releases the read pool.
func (e *Engine) Close() error {
	return e.db.Close()
}
