package store

import (
	"database/sql"
	"fmt"

	"github.com/trailhound-dev/trailhound/internal/model"
)

// StoreEvent persists one event inside the given write transaction. Base row
// and full-text index entry are written together; the caller decides whether
// a per-event failure aborts the batch (the writer does not).
func StoreEvent(tx *sql.Tx, ev model.Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}

	ts := ev.Timestamp.UTC().UnixMilli()

	var err error
	switch ev.Kind {
	case model.KindThinking:
		err = storeThinking(tx, ev, ts)
	case model.KindToolCall:
		err = storeToolCall(tx, ev, ts)
	case model.KindToolResult:
		err = storeToolResult(tx, ev, ts)
	case model.KindAPIUsage:
		err = storeUsage(tx, ev, ts)
	case model.KindPrompt:
		err = storePrompt(tx, ev, ts)
	case model.KindResponse:
		err = storeResponse(tx, ev, ts)
	}
	if err != nil {
		return err
	}

	return touchSession(tx, ev, ts)
}

func storeThinking(tx *sql.Tx, ev model.Event, ts int64) error {
	res, err := tx.Exec(
		`INSERT INTO thinking_blocks (session_id, ts, content, token_estimate) VALUES (?, ?, ?, ?)`,
		ev.SessionID, ts, ev.Thinking.Content, ev.Thinking.TokenEstimate,
	)
	if err != nil {
		return fmt.Errorf("insert thinking block: %w", err)
	}
	return indexContent(res, tx, "thinking_fts", ev.Thinking.Content)
}

func storePrompt(tx *sql.Tx, ev model.Event, ts int64) error {
	res, err := tx.Exec(
		`INSERT INTO user_prompts (session_id, ts, content) VALUES (?, ?, ?)`,
		ev.SessionID, ts, ev.Prompt.Content,
	)
	if err != nil {
		return fmt.Errorf("insert user prompt: %w", err)
	}
	return indexContent(res, tx, "prompts_fts", ev.Prompt.Content)
}

func storeResponse(tx *sql.Tx, ev model.Event, ts int64) error {
	res, err := tx.Exec(
		`INSERT INTO assistant_responses (session_id, ts, content) VALUES (?, ?, ?)`,
		ev.SessionID, ts, ev.Response.Content,
	)
	if err != nil {
		return fmt.Errorf("insert assistant response: %w", err)
	}
	return indexContent(res, tx, "responses_fts", ev.Response.Content)
}

// indexContent adds the just-inserted base row to its external-content index.
func indexContent(res sql.Result, tx *sql.Tx, ftsTable, content string) error {
	rowid, err := res.LastInsertId()
	if err != nil {
		return err
	}
	//nolint:gosec // ftsTable is one of three compile-time constants
	_, err = tx.Exec(fmt.Sprintf("INSERT INTO %s (rowid, content) VALUES (?, ?)", ftsTable), rowid, content)
	if err != nil {
		return fmt.Errorf("index %s: %w", ftsTable, err)
	}
	return nil
}

// storeToolCall upserts by producer-supplied call ID: a retried call replaces
// the earlier row instead of duplicating it.
func storeToolCall(tx *sql.Tx, ev model.Event, ts int64) error {
	_, err := tx.Exec(
		`INSERT INTO tool_calls (id, session_id, ts, tool_name, input)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   session_id = excluded.session_id,
		   ts         = excluded.ts,
		   tool_name  = excluded.tool_name,
		   input      = excluded.input`,
		ev.ToolCall.ID, ev.SessionID, ts, ev.ToolCall.ToolName, ev.ToolCall.Input,
	)
	if err != nil {
		return fmt.Errorf("upsert tool call: %w", err)
	}
	return nil
}

func storeToolResult(tx *sql.Tx, ev model.Event, ts int64) error {
	success := 0
	if ev.ToolResult.Success {
		success = 1
	}
	_, err := tx.Exec(
		`INSERT INTO tool_results (tool_call_id, session_id, ts, output, duration_ms, success)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		ev.ToolResult.ToolCallID, ev.SessionID, ts, ev.ToolResult.Output,
		ev.ToolResult.DurationMs, success,
	)
	if err != nil {
		return fmt.Errorf("insert tool result: %w", err)
	}
	return nil
}

func storeUsage(tx *sql.Tx, ev model.Event, ts int64) error {
	u := ev.Usage
	_, err := tx.Exec(
		`INSERT INTO api_usage (session_id, ts, model, input_tokens, output_tokens,
		                        cache_creation_tokens, cache_read_tokens, cost_usd)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.SessionID, ts, u.Model, u.InputTokens, u.OutputTokens,
		u.CacheCreationTokens, u.CacheReadTokens, u.CostUSD,
	)
	if err != nil {
		return fmt.Errorf("insert api usage: %w", err)
	}
	return nil
}

// touchSession creates the session row on first sight and rolls its
// aggregates forward. Events without a session ID are stored unattached.
func touchSession(tx *sql.Tx, ev model.Event, ts int64) error {
	if ev.SessionID == "" {
		return nil
	}

	var inTok, outTok, totTok int64
	var cost float64
	if ev.Kind == model.KindAPIUsage {
		inTok = ev.Usage.InputTokens
		outTok = ev.Usage.OutputTokens
		totTok = ev.Usage.TotalTokens()
		cost = ev.Usage.CostUSD
	}

	_, err := tx.Exec(
		`INSERT INTO sessions (id, user_id, source, start_time, end_time,
		                       input_tokens, output_tokens, total_tokens, cost_usd)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   user_id       = CASE WHEN sessions.user_id = '' THEN excluded.user_id ELSE sessions.user_id END,
		   start_time    = MIN(sessions.start_time, excluded.start_time),
		   end_time      = MAX(sessions.end_time, excluded.end_time),
		   input_tokens  = sessions.input_tokens + excluded.input_tokens,
		   output_tokens = sessions.output_tokens + excluded.output_tokens,
		   total_tokens  = sessions.total_tokens + excluded.total_tokens,
		   cost_usd      = sessions.cost_usd + excluded.cost_usd`,
		ev.SessionID, ev.UserID, ev.Source(), ts, ts, inTok, outTok, totTok, cost,
	)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}
