package writer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/trailhound-dev/trailhound/internal/model"
	"github.com/trailhound-dev/trailhound/internal/store"
)

func openTestStore(t *testing.T) (*store.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := store.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func promptEvent(i int) model.Event {
	return model.Event{
		Kind:      model.KindPrompt,
		SessionID: "s1",
		Timestamp: time.Now(),
		Prompt:    &model.UserPrompt{Content: fmt.Sprintf("prompt number %d", i)},
	}
}

func shutdownWriter(t *testing.T, w *Writer) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := w.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestWriter_BatchesAcrossFlushes(t *testing.T) {
	st, path := openTestStore(t)
	w := New(st, Config{
		QueueCapacity: 256,
		BatchSize:     100,
		FlushInterval: time.Hour, // size threshold and final drain do the work
	})

	for i := 0; i < 150; i++ {
		if err := w.Enqueue(promptEvent(i)); err != nil {
			t.Fatalf("Enqueue(%d): %v", i, err)
		}
	}
	shutdownWriter(t, w)

	snap := w.Metrics()
	if snap.Stored != 150 {
		t.Fatalf("Stored = %d, want 150", snap.Stored)
	}
	if snap.Flushes < 2 {
		t.Fatalf("Flushes = %d, want at least 2 (size flush plus final drain)", snap.Flushes)
	}
	if snap.Dropped != 0 || snap.StoreFailed != 0 {
		t.Fatalf("Dropped/StoreFailed = %d/%d, want 0/0", snap.Dropped, snap.StoreFailed)
	}

	db, err := store.OpenReadPool(path, 1)
	if err != nil {
		t.Fatalf("OpenReadPool: %v", err)
	}
	defer db.Close()

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM user_prompts").Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 150 {
		t.Fatalf("user_prompts = %d, want 150", n)
	}
}

func TestWriter_FullQueueDropsWithoutBlocking(t *testing.T) {
	st, _ := openTestStore(t)

	// Hold the store's only connection so every flush stalls; the queue
	// then fills and further enqueues must drop, not block.
	tx, err := st.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}

	w := New(st, Config{
		QueueCapacity: 2,
		BatchSize:     1,
		FlushInterval: time.Hour,
	})

	var full int
	for i := 0; i < 6; i++ {
		if err := w.Enqueue(promptEvent(i)); errors.Is(err, ErrQueueFull) {
			full++
		}
	}
	if full == 0 {
		t.Fatal("no Enqueue reported a full queue")
	}
	if got := w.Metrics().Dropped; got != int64(full) {
		t.Fatalf("Dropped = %d, want %d", got, full)
	}

	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	shutdownWriter(t, w)

	snap := w.Metrics()
	if snap.Stored+snap.Dropped != 6 {
		t.Fatalf("Stored+Dropped = %d, want 6", snap.Stored+snap.Dropped)
	}
}

func TestWriter_PerEventFailureDoesNotPoisonBatch(t *testing.T) {
	st, _ := openTestStore(t)
	w := New(st, Config{QueueCapacity: 16, BatchSize: 100, FlushInterval: time.Hour})

	if err := w.Enqueue(promptEvent(1)); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	// Payload missing for its kind: storage rejects it inside the batch.
	if err := w.Enqueue(model.Event{Kind: model.KindThinking, Timestamp: time.Now()}); err != nil {
		t.Fatalf("Enqueue invalid: %v", err)
	}
	if err := w.Enqueue(promptEvent(2)); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	shutdownWriter(t, w)

	snap := w.Metrics()
	if snap.Stored != 2 {
		t.Fatalf("Stored = %d, want 2", snap.Stored)
	}
	if snap.StoreFailed != 1 {
		t.Fatalf("StoreFailed = %d, want 1", snap.StoreFailed)
	}
}

func TestWriter_ShutdownIdempotent(t *testing.T) {
	st, _ := openTestStore(t)
	w := New(st, Config{QueueCapacity: 16, BatchSize: 10, FlushInterval: time.Hour})

	if err := w.Enqueue(promptEvent(1)); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	shutdownWriter(t, w)
	shutdownWriter(t, w) // second call returns immediately

	if err := w.Enqueue(promptEvent(2)); !errors.Is(err, ErrClosed) {
		t.Fatalf("Enqueue after shutdown = %v, want ErrClosed", err)
	}
	if got := w.Metrics().Stored; got != 1 {
		t.Fatalf("Stored = %d, want 1", got)
	}
}

func TestWriter_TimerFlush(t *testing.T) {
	st, _ := openTestStore(t)
	w := New(st, Config{QueueCapacity: 16, BatchSize: 100, FlushInterval: 20 * time.Millisecond})
	defer shutdownWriter(t, w)

	if err := w.Enqueue(promptEvent(1)); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for w.Metrics().Stored == 0 {
		if time.Now().After(deadline) {
			t.Fatal("timer flush never committed the event")
		}
		time.Sleep(5 * time.Millisecond)
	}

	snap := w.Metrics()
	if snap.Stored != 1 || snap.Flushes < 1 {
		t.Fatalf("Stored/Flushes = %d/%d, want 1/>=1", snap.Stored, snap.Flushes)
	}
}
