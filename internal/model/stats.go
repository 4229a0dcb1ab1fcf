package model

import "time"

// SearchSource tags which base table a search hit came from.
type SearchSource string

const (
	SourceThinking  SearchSource = "thinking"
	SourcePrompts   SearchSource = "prompts"
	SourceResponses SearchSource = "responses"
)

// SearchHit is one ranked full-text match. Rank is the store's BM25 score;
// more negative means a better match, so ascending order is best-first.
type SearchHit struct {
	Source    SearchSource `json:"source"`
	SessionID string       `json:"session_id"`
	Timestamp time.Time    `json:"timestamp"`
	Snippet   string       `json:"snippet"`
	Rank      float64      `json:"rank"`
}

// ModelStats is the per-model slice of the lifetime breakdown.
type ModelStats struct {
	Model        string  `json:"model"`
	APICalls     int64   `json:"api_calls"`
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd"`
}

// ToolStats is the per-tool slice of the lifetime breakdown. Duration and
// success come from tool results joined to calls by ID, so tools whose
// results never arrived report zero for both.
type ToolStats struct {
	Tool          string  `json:"tool"`
	Calls         int64   `json:"calls"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
	SuccessRate   float64 `json:"success_rate"`
}

// UsageStats is the lifetime statistics snapshot over the retained history.
type UsageStats struct {
	TotalSessions int64     `json:"total_sessions"`
	TotalTokens   int64     `json:"total_tokens"`
	TotalCostUSD  float64   `json:"total_cost_usd"`
	FirstSession  time.Time `json:"first_session,omitzero"`
	LastSession   time.Time `json:"last_session,omitzero"`

	ByModel []ModelStats `json:"by_model"`
	ByTool  []ToolStats  `json:"by_tool"`
}
