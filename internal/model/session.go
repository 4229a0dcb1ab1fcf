package model

import "time"

// Session is one logical run of the observed agent. The row is created on the
// first event carrying its ID and its aggregates roll forward with every
// subsequent event.
type Session struct {
	ID        string
	UserID    string
	Source    string // "live" or "simulation"
	StartTime time.Time
	EndTime   time.Time

	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
	CostUSD      float64
}
