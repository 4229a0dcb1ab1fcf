// Package model defines domain types for trailhound events and statistics.
package model

import (
	"fmt"
	"time"
)

// Kind identifies which variant an Event carries.
type Kind string

const (
	KindThinking   Kind = "thinking"
	KindToolCall   Kind = "tool_call"
	KindToolResult Kind = "tool_result"
	KindAPIUsage   Kind = "api_usage"
	KindPrompt     Kind = "user_prompt"
	KindResponse   Kind = "assistant_response"
)

// Event is the tagged envelope handed from the producer to the ingest path.
// Exactly one payload pointer matching Kind is set. Adding a new capturable
// event means adding one Kind, one payload struct, and one storage arm.
type Event struct {
	Kind      Kind      `json:"kind"`
	SessionID string    `json:"session_id,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Demo      bool      `json:"demo,omitempty"`

	Thinking   *ThinkingBlock     `json:"thinking,omitempty"`
	ToolCall   *ToolCall          `json:"tool_call,omitempty"`
	ToolResult *ToolResult        `json:"tool_result,omitempty"`
	Usage      *APIUsage          `json:"api_usage,omitempty"`
	Prompt     *UserPrompt        `json:"user_prompt,omitempty"`
	Response   *AssistantResponse `json:"assistant_response,omitempty"`
}

// Validate checks that the envelope carries the payload its Kind promises.
func (e Event) Validate() error {
	var ok bool
	switch e.Kind {
	case KindThinking:
		ok = e.Thinking != nil
	case KindToolCall:
		ok = e.ToolCall != nil
	case KindToolResult:
		ok = e.ToolResult != nil
	case KindAPIUsage:
		ok = e.Usage != nil
	case KindPrompt:
		ok = e.Prompt != nil
	case KindResponse:
		ok = e.Response != nil
	default:
		return fmt.Errorf("unknown event kind %q", e.Kind)
	}
	if !ok {
		return fmt.Errorf("event kind %q missing payload", e.Kind)
	}
	return nil
}

// Source returns the stored session source tag for this event.
func (e Event) Source() string {
	if e.Demo {
		return "simulation"
	}
	return "live"
}

// ThinkingBlock is a captured internal-reasoning span.
type ThinkingBlock struct {
	Content       string `json:"content"`
	TokenEstimate int64  `json:"token_estimate,omitempty"`
}

// ToolCall is an invoked action with its input payload. IDs are
// producer-supplied and may repeat on retry; storage upserts by ID.
type ToolCall struct {
	ID       string `json:"id"`
	ToolName string `json:"tool_name"`
	Input    string `json:"input,omitempty"`
}

// ToolResult is the outcome of a ToolCall, linked by call ID. It may arrive
// before or after its call; the link is advisory, never enforced.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Output     string `json:"output,omitempty"`
	DurationMs int64  `json:"duration_ms,omitempty"`
	Success    bool   `json:"success"`
}

// APIUsage is one billed request's token and cost accounting.
type APIUsage struct {
	Model               string  `json:"model"`
	InputTokens         int64   `json:"input_tokens"`
	OutputTokens        int64   `json:"output_tokens"`
	CacheCreationTokens int64   `json:"cache_creation_tokens,omitempty"`
	CacheReadTokens     int64   `json:"cache_read_tokens,omitempty"`
	CostUSD             float64 `json:"cost_usd,omitempty"`
}

// TotalTokens returns the billed token total for this request.
func (u APIUsage) TotalTokens() int64 {
	return u.InputTokens + u.OutputTokens + u.CacheCreationTokens
}

// UserPrompt is text submitted by the operator.
type UserPrompt struct {
	Content string `json:"content"`
}

// AssistantResponse is text produced by the agent.
type AssistantResponse struct {
	Content string `json:"content"`
}
