package writer

import (
	"sync/atomic"
	"time"
)

// metrics are plain atomics: increments happen only on the writer goroutine
// (except dropped, bumped on the producer path), reads from anywhere.
type metrics struct {
	stored      atomic.Int64
	dropped     atomic.Int64
	storeFailed atomic.Int64
	flushes     atomic.Int64
	flushNanos  atomic.Int64
	pending     atomic.Int64
}

// Snapshot is a point-in-time view of the writer's counters.
type Snapshot struct {
	Stored          int64         `json:"stored"`
	Dropped         int64         `json:"dropped"`
	StoreFailed     int64         `json:"store_failed"`
	Flushes         int64         `json:"flushes"`
	PendingBatch    int64         `json:"pending_batch"`
	AvgWriteLatency time.Duration `json:"avg_write_latency_ns"`
}

func (m *metrics) snapshot() Snapshot {
	s := Snapshot{
		Stored:       m.stored.Load(),
		Dropped:      m.dropped.Load(),
		StoreFailed:  m.storeFailed.Load(),
		Flushes:      m.flushes.Load(),
		PendingBatch: m.pending.Load(),
	}
	if s.Flushes > 0 {
		s.AvgWriteLatency = time.Duration(m.flushNanos.Load() / s.Flushes)
	}
	return s
}
