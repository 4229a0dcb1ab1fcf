package model

import "testing"

func TestEventValidate(t *testing.T) {
	cases := []struct {
		name    string
		ev      Event
		wantErr bool
	}{
		{"thinking ok", Event{Kind: KindThinking, Thinking: &ThinkingBlock{Content: "x"}}, false},
		{"thinking missing payload", Event{Kind: KindThinking}, true},
		{"tool call ok", Event{Kind: KindToolCall, ToolCall: &ToolCall{ID: "c1", ToolName: "Bash"}}, false},
		{"tool result ok", Event{Kind: KindToolResult, ToolResult: &ToolResult{ToolCallID: "c1"}}, false},
		{"usage ok", Event{Kind: KindAPIUsage, Usage: &APIUsage{Model: "m"}}, false},
		{"prompt ok", Event{Kind: KindPrompt, Prompt: &UserPrompt{Content: "x"}}, false},
		{"response ok", Event{Kind: KindResponse, Response: &AssistantResponse{Content: "x"}}, false},
		{"unknown kind", Event{Kind: "heartbeat"}, true},
		{"wrong payload for kind", Event{Kind: KindPrompt, Response: &AssistantResponse{Content: "x"}}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.ev.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestEventSource(t *testing.T) {
	if got := (Event{Demo: true}).Source(); got != "simulation" {
		t.Errorf("demo Source() = %q, want simulation", got)
	}
	if got := (Event{}).Source(); got != "live" {
		t.Errorf("Source() = %q, want live", got)
	}
}

func TestAPIUsageTotalTokens(t *testing.T) {
	u := APIUsage{InputTokens: 100, OutputTokens: 50, CacheCreationTokens: 25, CacheReadTokens: 1000}
	if got := u.TotalTokens(); got != 175 {
		t.Fatalf("TotalTokens() = %d, want 175 (cache reads not billed as new tokens)", got)
	}
}
