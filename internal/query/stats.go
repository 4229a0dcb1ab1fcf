package query

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/trailhound-dev/trailhound/internal/model"
)

// Stats computes the lifetime statistics snapshot over the retained history
// with a handful of grouped queries, never by iterating rows in process.
func (e *Engine) Stats(ctx context.Context) (model.UsageStats, error) {
	var stats model.UsageStats

	var first, last sql.NullInt64
	err := e.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total_tokens), 0), COALESCE(SUM(cost_usd), 0),
		       MIN(start_time), MAX(end_time)
		FROM sessions`).Scan(
		&stats.TotalSessions, &stats.TotalTokens, &stats.TotalCostUSD, &first, &last)
	if err != nil {
		return stats, fmt.Errorf("session totals: %w", err)
	}
	if first.Valid {
		stats.FirstSession = time.UnixMilli(first.Int64).UTC()
	}
	if last.Valid {
		stats.LastSession = time.UnixMilli(last.Int64).UTC()
	}

	if stats.ByModel, err = e.modelBreakdown(ctx); err != nil {
		return stats, err
	}
	if stats.ByTool, err = e.toolBreakdown(ctx); err != nil {
		return stats, err
	}

	return stats, nil
}

func (e *Engine) modelBreakdown(ctx context.Context) ([]model.ModelStats, error) {
	rows, err := e.db.QueryContext(ctx, `
		SELECT model, COUNT(*), SUM(input_tokens), SUM(output_tokens), SUM(cost_usd)
		FROM api_usage
		GROUP BY model
		ORDER BY SUM(cost_usd) DESC, model`)
	if err != nil {
		return nil, fmt.Errorf("model breakdown: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.ModelStats
	for rows.Next() {
		var ms model.ModelStats
		if err := rows.Scan(&ms.Model, &ms.APICalls, &ms.InputTokens, &ms.OutputTokens, &ms.CostUSD); err != nil {
			return nil, err
		}
		out = append(out, ms)
	}
	return out, rows.Err()
}

func (e *Engine) toolBreakdown(ctx context.Context) ([]model.ToolStats, error) {
	// Results join calls by ID value only; a call whose result never arrived
	// contributes no duration or success sample.
	rows, err := e.db.QueryContext(ctx, `
		SELECT c.tool_name, COUNT(DISTINCT c.id),
		       AVG(r.duration_ms), AVG(CAST(r.success AS REAL))
		FROM tool_calls c
		LEFT JOIN tool_results r ON r.tool_call_id = c.id
		GROUP BY c.tool_name
		ORDER BY COUNT(DISTINCT c.id) DESC, c.tool_name`)
	if err != nil {
		return nil, fmt.Errorf("tool breakdown: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.ToolStats
	for rows.Next() {
		var ts model.ToolStats
		var avgDur, avgSuccess sql.NullFloat64
		if err := rows.Scan(&ts.Tool, &ts.Calls, &avgDur, &avgSuccess); err != nil {
			return nil, err
		}
		ts.AvgDurationMs = avgDur.Float64
		ts.SuccessRate = avgSuccess.Float64
		out = append(out, ts)
	}
	return out, rows.Err()
}

// RecentSessions lists sessions ordered by most recent activity.
func (e *Engine) RecentSessions(ctx context.Context, limit int) ([]model.Session, error) {
	if limit < 1 {
		limit = 20
	}
	rows, err := e.db.QueryContext(ctx, `
		SELECT id, user_id, source, start_time, end_time,
		       input_tokens, output_tokens, total_tokens, cost_usd
		FROM sessions
		ORDER BY end_time DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Session
	for rows.Next() {
		var s model.Session
		var start, end int64
		if err := rows.Scan(&s.ID, &s.UserID, &s.Source, &start, &end,
			&s.InputTokens, &s.OutputTokens, &s.TotalTokens, &s.CostUSD); err != nil {
			return nil, err
		}
		s.StartTime = time.UnixMilli(start).UTC()
		s.EndTime = time.UnixMilli(end).UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}
