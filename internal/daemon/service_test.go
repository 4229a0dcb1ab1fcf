package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/trailhound-dev/trailhound/internal/config"
	"github.com/trailhound-dev/trailhound/internal/ingest"
	"github.com/trailhound-dev/trailhound/internal/model"
	"github.com/trailhound-dev/trailhound/internal/query"
	"github.com/trailhound-dev/trailhound/internal/store"
	"github.com/trailhound-dev/trailhound/internal/writer"
)

// newTestService assembles a service over a temp store without the HTTP
// listener; handlers are exercised directly.
func newTestService(t *testing.T) *Service {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")

	st, err := store.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	appCfg := config.DefaultConfig()
	s := New(Config{Addr: "127.0.0.1:0", StorePath: path, App: appCfg})
	s.w = writer.New(st, writer.Config{QueueCapacity: 64, BatchSize: 100, FlushInterval: time.Hour})
	s.proc = ingest.New(s.w, appCfg)

	s.engine, err = query.Open(path, 2)
	if err != nil {
		t.Fatalf("query.Open: %v", err)
	}
	t.Cleanup(func() { _ = s.engine.Close() })

	return s
}

func drainWriter(t *testing.T, s *Service) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.w.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestDecodeEvents(t *testing.T) {
	single := `{"kind":"user_prompt","session_id":"s1","user_prompt":{"content":"hi"}}`
	events, err := decodeEvents([]byte(single))
	if err != nil {
		t.Fatalf("single: %v", err)
	}
	if len(events) != 1 || events[0].Kind != model.KindPrompt {
		t.Fatalf("single decoded %+v", events)
	}

	array := "[" + single + "," + single + "]"
	events, err = decodeEvents([]byte("  \n" + array))
	if err != nil {
		t.Fatalf("array: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("array decoded %d events, want 2", len(events))
	}

	if _, err := decodeEvents([]byte("   ")); err == nil {
		t.Error("empty body accepted")
	}
	if _, err := decodeEvents([]byte("{broken")); err == nil {
		t.Error("malformed body accepted")
	}
}

func TestHandleEvents_CountsOutcomes(t *testing.T) {
	s := newTestService(t)

	body := `[
		{"kind":"user_prompt","session_id":"s1","user_prompt":{"content":"find the race"}},
		{"kind":"heartbeat"},
		{"kind":"api_usage","session_id":"s1","api_usage":{"model":"claude-sonnet-4-5","input_tokens":10,"output_tokens":5}}
	]`
	req := httptest.NewRequest(http.MethodPost, "/v1/events", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.handleEvents(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	var counts map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &counts); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if counts["queued"] != 2 || counts["invalid"] != 1 {
		t.Fatalf("counts = %v, want 2 queued / 1 invalid", counts)
	}
}

func TestHandleEvents_MethodNotAllowed(t *testing.T) {
	s := newTestService(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/events", nil)
	rec := httptest.NewRecorder()
	s.handleEvents(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestIngestThenSearch(t *testing.T) {
	s := newTestService(t)

	body := `{"kind":"assistant_response","session_id":"s9","assistant_response":{"content":"the flag lives in the scheduler"}}`
	req := httptest.NewRequest(http.MethodPost, "/v1/events", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.handleEvents(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("ingest status = %d, want 202", rec.Code)
	}

	drainWriter(t, s)

	req = httptest.NewRequest(http.MethodGet, "/v1/search?q=scheduler+flag&mode=natural", nil)
	rec = httptest.NewRecorder()
	s.handleSearch(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("search status = %d: %s", rec.Code, rec.Body.String())
	}

	var hits []model.SearchHit
	if err := json.Unmarshal(rec.Body.Bytes(), &hits); err != nil {
		t.Fatalf("decode hits: %v", err)
	}
	if len(hits) != 1 || hits[0].SessionID != "s9" {
		t.Fatalf("hits = %+v, want one hit in s9", hits)
	}
}

func TestHandleSearch_BadQuery(t *testing.T) {
	s := newTestService(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/search?q=&mode=phrase", nil)
	rec := httptest.NewRecorder()
	s.handleSearch(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty term status = %d, want 400", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/search?q=x&mode=psychic", nil)
	rec = httptest.NewRecorder()
	s.handleSearch(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad mode status = %d, want 400", rec.Code)
	}
}

func TestHandleStatus(t *testing.T) {
	s := newTestService(t)

	rec := httptest.NewRecorder()
	s.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/v1/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var st Status
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if st.StorePath == "" || st.StartedAt.IsZero() {
		t.Fatalf("status body incomplete: %+v", st)
	}
}
