// Package writer implements the single-goroutine batch writer that owns all
// mutation of the event store. Producers hand events over a bounded queue and
// are never blocked on disk I/O; a full queue drops the event and counts it.
package writer

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/trailhound-dev/trailhound/internal/model"
	"github.com/trailhound-dev/trailhound/internal/store"
)

// ErrQueueFull is returned by Enqueue when the inbound queue has no capacity.
// The event has been dropped and counted; the producer carries on.
var ErrQueueFull = errors.New("writer queue full")

// ErrClosed is returned by Enqueue after shutdown has begun.
var ErrClosed = errors.New("writer closed")

// Config controls the writer's queue and cadences.
type Config struct {
	QueueCapacity     int
	BatchSize         int
	FlushInterval     time.Duration
	RetentionHorizon  time.Duration // zero disables cleanup
	RetentionInterval time.Duration
}

// Writer drains the queue into transactional batches. Everything past the
// queue boundary (batch buffer, write handle, counters) is touched only by
// the run goroutine, so the hot path needs no locks.
type Writer struct {
	st  *store.Store
	cfg Config

	queue chan model.Event

	closed   atomic.Bool
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	metrics metrics
}

// New creates a writer and starts its run goroutine.
func New(st *store.Store, cfg Config) *Writer {
	if cfg.QueueCapacity < 1 {
		cfg.QueueCapacity = 1024
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Second
	}
	if cfg.RetentionInterval <= 0 {
		cfg.RetentionInterval = 6 * time.Hour
	}

	w := &Writer{
		st:    st,
		cfg:   cfg,
		queue: make(chan model.Event, cfg.QueueCapacity),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go w.run()
	return w
}

// Enqueue hands an event to the writer without blocking beyond the queue's
// own push. On a full queue the event is dropped and counted.
func (w *Writer) Enqueue(ev model.Event) error {
	if w.closed.Load() {
		return ErrClosed
	}
	select {
	case w.queue <- ev:
		return nil
	default:
		w.metrics.dropped.Add(1)
		return ErrQueueFull
	}
}

// Shutdown stops the writer: remaining queued events are drained, a final
// flush commits, then the goroutine exits. Idempotent; a second call after
// completion returns immediately. The context bounds how long the caller
// waits — a stuck writer must not prevent process exit.
func (w *Writer) Shutdown(ctx context.Context) error {
	w.stopOnce.Do(func() {
		w.closed.Store(true)
		close(w.stop)
	})

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Metrics returns a snapshot of the writer's counters.
func (w *Writer) Metrics() Snapshot {
	return w.metrics.snapshot()
}

func (w *Writer) run() {
	defer close(w.done)

	flushTicker := time.NewTicker(w.cfg.FlushInterval)
	defer flushTicker.Stop()

	// Retention runs on its own long interval, independent of flush cadence.
	var retentionC <-chan time.Time
	if w.cfg.RetentionHorizon > 0 {
		retentionTicker := time.NewTicker(w.cfg.RetentionInterval)
		defer retentionTicker.Stop()
		retentionC = retentionTicker.C
	}

	batch := make([]model.Event, 0, w.cfg.BatchSize)

	for {
		select {
		case ev := <-w.queue:
			batch = append(batch, ev)
			w.metrics.pending.Store(int64(len(batch)))
			if len(batch) >= w.cfg.BatchSize {
				batch = w.flush(batch)
			}

		case <-flushTicker.C:
			if len(batch) > 0 {
				batch = w.flush(batch)
			}

		case <-retentionC:
			w.runCleanup()

		case <-w.stop:
			batch = w.drain(batch)
			w.flush(batch)
			return
		}
	}
}

// drain empties whatever is still queued at shutdown without waiting for
// new arrivals.
func (w *Writer) drain(batch []model.Event) []model.Event {
	for {
		select {
		case ev := <-w.queue:
			batch = append(batch, ev)
			if len(batch) >= w.cfg.BatchSize {
				batch = w.flush(batch)
			}
		default:
			return batch
		}
	}
}

// flush commits the batch in one transaction. Each event is stored
// independently: a per-event failure is counted and logged while the rest of
// the batch still commits. Returns the reset batch slice.
func (w *Writer) flush(batch []model.Event) []model.Event {
	if len(batch) == 0 {
		return batch
	}

	start := time.Now()

	tx, err := w.st.Begin()
	if err != nil {
		log.Printf("trailhound writer: begin flush failed, %d events lost: %v", len(batch), err)
		w.metrics.storeFailed.Add(int64(len(batch)))
		w.metrics.pending.Store(0)
		return batch[:0]
	}

	var stored, failed int64
	for _, ev := range batch {
		if err := store.StoreEvent(tx, ev); err != nil {
			failed++
			log.Printf("trailhound writer: store %s event failed: %v", ev.Kind, err)
			continue
		}
		stored++
	}

	if err := tx.Commit(); err != nil {
		log.Printf("trailhound writer: commit failed, %d events lost: %v", len(batch), err)
		w.metrics.storeFailed.Add(int64(len(batch)))
		w.metrics.pending.Store(0)
		return batch[:0]
	}

	w.metrics.stored.Add(stored)
	w.metrics.storeFailed.Add(failed)
	w.metrics.flushes.Add(1)
	w.metrics.flushNanos.Add(time.Since(start).Nanoseconds())
	w.metrics.pending.Store(0)

	return batch[:0]
}

func (w *Writer) runCleanup() {
	removed, err := w.st.Cleanup(w.cfg.RetentionHorizon)
	if err != nil {
		log.Printf("trailhound writer: retention cleanup failed: %v", err)
		return
	}
	if removed > 0 {
		log.Printf("trailhound writer: retention removed %d rows", removed)
	}
}
