// Package ingest is the producer-facing front door: it shapes an event per
// the capture config and hands it to the batch writer without ever letting
// storage latency reach the producer.
package ingest

import (
	"context"
	"errors"

	"github.com/trailhound-dev/trailhound/internal/config"
	"github.com/trailhound-dev/trailhound/internal/model"
	"github.com/trailhound-dev/trailhound/internal/writer"
)

// Outcome reports what happened to a processed event. None of the outcomes
// stop the event from flowing onward to other consumers.
type Outcome int

const (
	// OutcomeQueued means the event was accepted onto the writer's queue.
	OutcomeQueued Outcome = iota
	// OutcomeSkipped means a capture toggle excluded the event.
	OutcomeSkipped
	// OutcomeDropped means the queue was full or the writer is shutting
	// down; the drop is visible in the metrics snapshot.
	OutcomeDropped
	// OutcomeInvalid means the envelope failed validation.
	OutcomeInvalid
)

// Processor bridges the event-processing path and the batch writer.
type Processor struct {
	w   *writer.Writer
	cfg config.Config
}

// New returns a processor feeding the given writer.
func New(w *writer.Writer, cfg config.Config) *Processor {
	return &Processor{w: w, cfg: cfg}
}

// Process shapes and enqueues one event. It never blocks on disk I/O and
// never returns an error to the producer: storage pressure is reported via
// counters, not by rejecting live traffic.
func (p *Processor) Process(ctx context.Context, ev model.Event) Outcome {
	if ctx.Err() != nil {
		return OutcomeDropped
	}
	if err := ev.Validate(); err != nil {
		return OutcomeInvalid
	}

	capture := p.cfg.Capture

	switch ev.Kind {
	case model.KindThinking:
		if !capture.Thinking {
			return OutcomeSkipped
		}
		ev.Thinking = &model.ThinkingBlock{
			Content:       truncate(ev.Thinking.Content, capture.MaxBlockBytes),
			TokenEstimate: ev.Thinking.TokenEstimate,
		}

	case model.KindToolCall:
		tc := *ev.ToolCall
		if capture.ToolIO {
			tc.Input = truncate(tc.Input, capture.MaxBlockBytes)
		} else {
			tc.Input = ""
		}
		ev.ToolCall = &tc

	case model.KindToolResult:
		tr := *ev.ToolResult
		if capture.ToolIO {
			tr.Output = truncate(tr.Output, capture.MaxBlockBytes)
		} else {
			tr.Output = ""
		}
		ev.ToolResult = &tr

	case model.KindAPIUsage:
		u := *ev.Usage
		if u.CostUSD == 0 {
			u.CostUSD = config.CalculateCost(p.cfg, u.Model,
				u.InputTokens, u.OutputTokens, u.CacheCreationTokens, u.CacheReadTokens)
		}
		ev.Usage = &u

	case model.KindPrompt:
		ev.Prompt = &model.UserPrompt{Content: truncate(ev.Prompt.Content, capture.MaxBlockBytes)}

	case model.KindResponse:
		ev.Response = &model.AssistantResponse{Content: truncate(ev.Response.Content, capture.MaxBlockBytes)}
	}

	if err := p.w.Enqueue(ev); err != nil {
		if errors.Is(err, writer.ErrQueueFull) || errors.Is(err, writer.ErrClosed) {
			return OutcomeDropped
		}
		return OutcomeDropped
	}
	return OutcomeQueued
}

// Metrics returns the writer's counter snapshot — the primary visibility
// mechanism for write-side degradation.
func (p *Processor) Metrics() writer.Snapshot {
	return p.w.Metrics()
}

// truncate caps content at max bytes without splitting a UTF-8 sequence.
// Oversized content is cut, never rejected.
func truncate(s string, maxBytes int) string {
	if maxBytes <= 0 || len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	for cut > 0 && s[cut]&0xC0 == 0x80 {
		cut--
	}
	return s[:cut]
}
