package store

import (
	"database/sql"
	"fmt"
	"time"
)

// ftsSyncedTables maps each indexed base table to its full-text index. The
// index entry must be removed before the base row: the external-content index
// needs the still-present base content to tokenize the delete, and removing
// base first would leave index entries pointing at nothing.
var ftsSyncedTables = []struct {
	base string
	fts  string
}{
	{"thinking_blocks", "thinking_fts"},
	{"user_prompts", "prompts_fts"},
	{"assistant_responses", "responses_fts"},
}

var plainTables = []string{"tool_calls", "tool_results", "api_usage"}

// Cleanup deletes rows older than the horizon, index-then-base per table,
// finishing with any session row left with zero referencing children.
// A zero horizon disables cleanup entirely.
func (s *Store) Cleanup(horizon time.Duration) (int64, error) {
	if horizon <= 0 {
		return 0, nil
	}
	cutoff := time.Now().Add(-horizon).UTC().UnixMilli()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin cleanup: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var removed int64

	for _, t := range ftsSyncedTables {
		n, err := cleanupIndexed(tx, t.base, t.fts, cutoff)
		if err != nil {
			return 0, err
		}
		removed += n
	}

	for _, table := range plainTables {
		//nolint:gosec // table names are compile-time constants
		res, err := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE ts < ?", table), cutoff)
		if err != nil {
			return 0, fmt.Errorf("cleanup %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		removed += n
	}

	n, err := sweepOrphanSessions(tx)
	if err != nil {
		return 0, err
	}
	removed += n

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit cleanup: %w", err)
	}
	return removed, nil
}

func cleanupIndexed(tx *sql.Tx, base, fts string, cutoff int64) (int64, error) {
	// Index first: the 'delete' command re-tokenizes the outgoing content.
	//nolint:gosec // table names are compile-time constants
	_, err := tx.Exec(fmt.Sprintf(
		"INSERT INTO %s (%s, rowid, content) SELECT 'delete', id, content FROM %s WHERE ts < ?",
		fts, fts, base,
	), cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup index %s: %w", fts, err)
	}

	//nolint:gosec // table names are compile-time constants
	res, err := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE ts < ?", base), cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup %s: %w", base, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// sweepOrphanSessions removes sessions no remaining row refers to.
func sweepOrphanSessions(tx *sql.Tx) (int64, error) {
	res, err := tx.Exec(`
		DELETE FROM sessions WHERE
		  NOT EXISTS (SELECT 1 FROM thinking_blocks      WHERE session_id = sessions.id) AND
		  NOT EXISTS (SELECT 1 FROM tool_calls           WHERE session_id = sessions.id) AND
		  NOT EXISTS (SELECT 1 FROM tool_results         WHERE session_id = sessions.id) AND
		  NOT EXISTS (SELECT 1 FROM api_usage            WHERE session_id = sessions.id) AND
		  NOT EXISTS (SELECT 1 FROM user_prompts         WHERE session_id = sessions.id) AND
		  NOT EXISTS (SELECT 1 FROM assistant_responses  WHERE session_id = sessions.id)`)
	if err != nil {
		return 0, fmt.Errorf("sweep orphan sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
