package ingest

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/trailhound-dev/trailhound/internal/config"
	"github.com/trailhound-dev/trailhound/internal/model"
	"github.com/trailhound-dev/trailhound/internal/store"
	"github.com/trailhound-dev/trailhound/internal/writer"
)

// newTestPipeline wires a processor to a real store in a temp dir and
// returns a drain func that flushes everything and opens a read handle.
func newTestPipeline(t *testing.T, cfg config.Config) (*Processor, func() *sql.DB) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")

	st, err := store.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	w := writer.New(st, writer.Config{QueueCapacity: 64, BatchSize: 100, FlushInterval: time.Hour})
	p := New(w, cfg)

	drain := func() *sql.DB {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := w.Shutdown(ctx); err != nil {
			t.Fatalf("Shutdown: %v", err)
		}
		db, err := store.OpenReadPool(path, 1)
		if err != nil {
			t.Fatalf("OpenReadPool: %v", err)
		}
		t.Cleanup(func() { _ = db.Close() })
		return db
	}
	return p, drain
}

func TestProcess_ThinkingToggleSkips(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Capture.Thinking = false
	p, drain := newTestPipeline(t, cfg)

	out := p.Process(context.Background(), model.Event{
		Kind: model.KindThinking, SessionID: "s1", Timestamp: time.Now(),
		Thinking: &model.ThinkingBlock{Content: "hidden"},
	})
	if out != OutcomeSkipped {
		t.Fatalf("outcome = %v, want OutcomeSkipped", out)
	}

	db := drain()
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM thinking_blocks").Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("thinking_blocks = %d, want 0", n)
	}
}

func TestProcess_ToolIOStripped(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Capture.ToolIO = false
	p, drain := newTestPipeline(t, cfg)

	ctx := context.Background()
	if out := p.Process(ctx, model.Event{
		Kind: model.KindToolCall, SessionID: "s1", Timestamp: time.Now(),
		ToolCall: &model.ToolCall{ID: "c1", ToolName: "Bash", Input: "rm -rf scratch"},
	}); out != OutcomeQueued {
		t.Fatalf("tool call outcome = %v, want OutcomeQueued", out)
	}
	if out := p.Process(ctx, model.Event{
		Kind: model.KindToolResult, SessionID: "s1", Timestamp: time.Now(),
		ToolResult: &model.ToolResult{ToolCallID: "c1", Output: "done", DurationMs: 12, Success: true},
	}); out != OutcomeQueued {
		t.Fatalf("tool result outcome = %v, want OutcomeQueued", out)
	}

	db := drain()
	var input, output string
	if err := db.QueryRow("SELECT input FROM tool_calls WHERE id = 'c1'").Scan(&input); err != nil {
		t.Fatalf("select input: %v", err)
	}
	if err := db.QueryRow("SELECT output FROM tool_results WHERE tool_call_id = 'c1'").Scan(&output); err != nil {
		t.Fatalf("select output: %v", err)
	}
	if input != "" || output != "" {
		t.Fatalf("input/output = %q/%q, want both empty with tool_io off", input, output)
	}

	// The call and result rows themselves still land.
	var calls int
	if err := db.QueryRow("SELECT COUNT(*) FROM tool_calls").Scan(&calls); err != nil {
		t.Fatalf("count: %v", err)
	}
	if calls != 1 {
		t.Fatalf("tool_calls = %d, want 1", calls)
	}
}

func TestProcess_TruncatesOnUTF8Boundary(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Capture.MaxBlockBytes = 7
	p, drain := newTestPipeline(t, cfg)

	// "héllo wörld": byte 7 lands inside a multi-byte rune.
	if out := p.Process(context.Background(), model.Event{
		Kind: model.KindPrompt, SessionID: "s1", Timestamp: time.Now(),
		Prompt: &model.UserPrompt{Content: "héllo wörld"},
	}); out != OutcomeQueued {
		t.Fatalf("outcome = %v, want OutcomeQueued", out)
	}

	db := drain()
	var content string
	if err := db.QueryRow("SELECT content FROM user_prompts").Scan(&content); err != nil {
		t.Fatalf("select content: %v", err)
	}
	if len(content) > 7 {
		t.Fatalf("content = %d bytes, want <= 7", len(content))
	}
	if !strings.HasPrefix("héllo wörld", content) {
		t.Fatalf("content = %q is not a clean prefix", content)
	}
}

func TestProcess_FillsMissingCost(t *testing.T) {
	p, drain := newTestPipeline(t, config.DefaultConfig())

	if out := p.Process(context.Background(), model.Event{
		Kind: model.KindAPIUsage, SessionID: "s1", Timestamp: time.Now(),
		Usage: &model.APIUsage{Model: "claude-sonnet-4-5", InputTokens: 1_000_000, OutputTokens: 0},
	}); out != OutcomeQueued {
		t.Fatalf("outcome = %v, want OutcomeQueued", out)
	}

	db := drain()
	var cost float64
	if err := db.QueryRow("SELECT cost_usd FROM api_usage").Scan(&cost); err != nil {
		t.Fatalf("select cost: %v", err)
	}
	if cost < 2.99 || cost > 3.01 {
		t.Fatalf("cost_usd = %f, want 3.00 for 1M sonnet input tokens", cost)
	}
}

func TestProcess_PreservesReportedCost(t *testing.T) {
	p, drain := newTestPipeline(t, config.DefaultConfig())

	p.Process(context.Background(), model.Event{
		Kind: model.KindAPIUsage, SessionID: "s1", Timestamp: time.Now(),
		Usage: &model.APIUsage{Model: "claude-sonnet-4-5", InputTokens: 1_000_000, CostUSD: 1.23},
	})

	db := drain()
	var cost float64
	if err := db.QueryRow("SELECT cost_usd FROM api_usage").Scan(&cost); err != nil {
		t.Fatalf("select cost: %v", err)
	}
	if cost != 1.23 {
		t.Fatalf("cost_usd = %f, want the producer-reported 1.23", cost)
	}
}

func TestProcess_InvalidEnvelope(t *testing.T) {
	p, _ := newTestPipeline(t, config.DefaultConfig())

	out := p.Process(context.Background(), model.Event{Kind: "telemetry", Timestamp: time.Now()})
	if out != OutcomeInvalid {
		t.Fatalf("outcome = %v, want OutcomeInvalid", out)
	}
}

func TestProcess_CancelledContext(t *testing.T) {
	p, _ := newTestPipeline(t, config.DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := p.Process(ctx, model.Event{
		Kind: model.KindPrompt, SessionID: "s1", Timestamp: time.Now(),
		Prompt: &model.UserPrompt{Content: "late"},
	})
	if out != OutcomeDropped {
		t.Fatalf("outcome = %v, want OutcomeDropped", out)
	}
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"abcdef", 0, "abcdef"},
		{"abcdef", 10, "abcdef"},
		{"abcdef", 3, "abc"},
		{"héllo", 2, "h"},
		{"héllo", 3, "hé"},
	}
	for _, tc := range cases {
		if got := truncate(tc.in, tc.max); got != tc.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
		}
	}
}
