// Package daemon provides the long-running observe service: it hosts the
// batch writer and exposes the ingest and query surfaces over local HTTP.
package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/trailhound-dev/trailhound/internal/config"
	"github.com/trailhound-dev/trailhound/internal/ingest"
	"github.com/trailhound-dev/trailhound/internal/model"
	"github.com/trailhound-dev/trailhound/internal/query"
	"github.com/trailhound-dev/trailhound/internal/store"
	"github.com/trailhound-dev/trailhound/internal/writer"
)

// Config controls the daemon runtime behavior.
type Config struct {
	Addr      string
	StorePath string
	App       config.Config
}

// Status is served at /v1/status.
type Status struct {
	StartedAt     time.Time       `json:"started_at"`
	Addr          string          `json:"addr"`
	StorePath     string          `json:"store_path"`
	RetentionDays int             `json:"retention_days"`
	Writer        writer.Snapshot `json:"writer"`
}

// Service wires store, writer, processor, and query engine behind HTTP.
type Service struct {
	cfg       Config
	startedAt time.Time

	proc   *ingest.Processor
	w      *writer.Writer
	engine *query.Engine
}

// New returns a new daemon service with the provided config.
func New(cfg Config) *Service {
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8790"
	}
	if cfg.StorePath == "" {
		cfg.StorePath = cfg.App.Store.Path
	}
	return &Service{cfg: cfg, startedAt: time.Now()}
}

// Run opens the store, starts the writer, and serves HTTP until ctx is
// canceled. The writer is drained before Run returns, bounded by a timeout
// so a stuck flush cannot prevent process exit.
func (s *Service) Run(ctx context.Context) error {
	st, err := store.Open(s.cfg.StorePath)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	s.w = writer.New(st, writer.Config{
		QueueCapacity:    s.cfg.App.Writer.QueueCapacity,
		BatchSize:        s.cfg.App.Writer.BatchSize,
		FlushInterval:    s.cfg.App.Writer.FlushInterval(),
		RetentionHorizon: s.cfg.App.Retention.Horizon(),
	})
	s.proc = ingest.New(s.w, s.cfg.App)

	s.engine, err = query.Open(s.cfg.StorePath, 4)
	if err != nil {
		return fmt.Errorf("open query engine: %w", err)
	}
	defer func() { _ = s.engine.Close() }()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/status", s.handleStatus)
	mux.HandleFunc("/v1/events", s.handleEvents)
	mux.HandleFunc("/v1/search", s.handleSearch)
	mux.HandleFunc("/v1/stats", s.handleStats)
	mux.HandleFunc("/v1/sessions", s.handleSessions)
	mux.HandleFunc("/v1/metrics", s.handleMetrics)

	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		serverErr := server.Shutdown(shutdownCtx)

		drainCtx, cancelDrain := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelDrain()
		if err := s.w.Shutdown(drainCtx); err != nil {
			log.Printf("trailhound daemon: writer drain timed out: %v", err)
		}
		return serverErr
	case err := <-errCh:
		drainCtx, cancelDrain := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelDrain()
		_ = s.w.Shutdown(drainCtx)
		return fmt.Errorf("daemon http server: %w", err)
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, Status{
		StartedAt:     s.startedAt,
		Addr:          s.cfg.Addr,
		StorePath:     s.cfg.StorePath,
		RetentionDays: s.cfg.App.Retention.Days,
		Writer:        s.w.Metrics(),
	})
}

// handleEvents accepts one event envelope or a JSON array of them. Every
// event gets a non-blocking push; the response reports per-outcome counts
// and never signals storage failure as an HTTP error.
func (s *Service) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 16<<20))
	if err != nil {
		http.Error(w, "read body: "+err.Error(), http.StatusBadRequest)
		return
	}

	events, err := decodeEvents(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	counts := map[string]int{}
	for _, ev := range events {
		if ev.Timestamp.IsZero() {
			ev.Timestamp = time.Now().UTC()
		}
		switch s.proc.Process(r.Context(), ev) {
		case ingest.OutcomeQueued:
			counts["queued"]++
		case ingest.OutcomeSkipped:
			counts["skipped"]++
		case ingest.OutcomeDropped:
			counts["dropped"]++
		case ingest.OutcomeInvalid:
			counts["invalid"]++
		}
	}

	writeJSON(w, http.StatusAccepted, counts)
}

func decodeEvents(body []byte) ([]model.Event, error) {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, errors.New("empty body")
	}

	if trimmed[0] == '[' {
		var events []model.Event
		if err := json.Unmarshal(trimmed, &events); err != nil {
			return nil, fmt.Errorf("decode event array: %w", err)
		}
		return events, nil
	}

	var ev model.Event
	if err := json.Unmarshal(trimmed, &ev); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return []model.Event{ev}, nil
}

func (s *Service) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	term := q.Get("q")

	mode, err := query.ParseMode(q.Get("mode"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	limit := 20
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	var hits []model.SearchHit
	if src := q.Get("source"); src != "" {
		hits, err = s.engine.SearchSource(r.Context(), model.SearchSource(src), term, mode, limit)
	} else {
		hits, err = s.engine.Search(r.Context(), term, mode, limit)
	}
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, query.ErrInvalidQuery) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	writeJSON(w, http.StatusOK, hits)
}

func (s *Service) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.engine.Stats(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Service) handleSessions(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	sessions, err := s.engine.RecentSessions(r.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Service) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.w.Metrics())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
