package core

// events.go defines the typed progress events emitted by import, matching
// and delete runs. Components receive an EventSink instead of logging
// free text, so callers decide where progress goes.

import (
	"context"
	"log/slog"
	"sync"
)

// Event is implemented by every progress event.
type Event interface {
	EventName() string
}

// RowRejected is emitted once per row that failed validation.
type RowRejected struct {
	RunID string
	Kind  RecordKind
	Row   RowError
}

// BatchCompleted is emitted after every import batch, successful or not.
type BatchCompleted struct {
	RunID    string
	Index    int
	Size     int
	Written  int
	Conflict bool
	Err      error
}

// MatchProgress is emitted after every matched chunk.
type MatchProgress struct {
	RunID     string
	Processed int
	Total     int
	Matched   int
}

// DeleteProgress is emitted after every delete batch.
type DeleteProgress struct {
	RunID      string
	BatchIndex int
	Deleted    int
	Requested  int
	Percent    int
	Err        error
}

func (RowRejected) EventName() string    { return "row_rejected" }
func (BatchCompleted) EventName() string { return "batch_completed" }
func (MatchProgress) EventName() string  { return "match_progress" }
func (DeleteProgress) EventName() string { return "delete_progress" }

// EventSink receives progress events. Implementations must be safe for
// concurrent use because runs may overlap.
type EventSink interface {
	Emit(ctx context.Context, e Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(ctx context.Context, e Event)

// Emit calls f(ctx, e).
func (f EventSinkFunc) Emit(ctx context.Context, e Event) { f(ctx, e) }

// NopSink discards events.
type NopSink struct{}

// Emit does nothing.
func (NopSink) Emit(context.Context, Event) {}

// MultiSink fans events out to several sinks in order.
type MultiSink []EventSink

// Emit forwards e to every sink.
func (m MultiSink) Emit(ctx context.Context, e Event) {
	for _, s := range m {
		s.Emit(ctx, e)
	}
}

// SlogSink renders events as structured log records.
// Row rejections log at debug, failures at warn, progress at info.
type SlogSink struct {
	Logger *slog.Logger // nil means slog.Default()
}

// Emit logs e.
func (s SlogSink) Emit(ctx context.Context, e Event) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	switch ev := e.(type) {
	case RowRejected:
		logger.DebugContext(ctx, "row rejected",
			"run_id", ev.RunID, "kind", ev.Kind,
			"row", ev.Row.Row, "field", ev.Row.Field, "reason", ev.Row.Reason)
	case BatchCompleted:
		if ev.Err != nil {
			logger.WarnContext(ctx, "import batch failed",
				"run_id", ev.RunID, "batch", ev.Index, "size", ev.Size,
				"conflict", ev.Conflict, "error", ev.Err)
			return
		}
		logger.InfoContext(ctx, "import batch completed",
			"run_id", ev.RunID, "batch", ev.Index, "size", ev.Size, "written", ev.Written)
	case MatchProgress:
		logger.InfoContext(ctx, "match progress",
			"run_id", ev.RunID, "processed", ev.Processed, "total", ev.Total, "matched", ev.Matched)
	case DeleteProgress:
		if ev.Err != nil {
			logger.WarnContext(ctx, "delete batch failed",
				"run_id", ev.RunID, "batch", ev.BatchIndex, "percent", ev.Percent, "error", ev.Err)
			return
		}
		logger.InfoContext(ctx, "delete progress",
			"run_id", ev.RunID, "batch", ev.BatchIndex,
			"deleted", ev.Deleted, "requested", ev.Requested, "percent", ev.Percent)
	default:
		logger.InfoContext(ctx, e.EventName())
	}
}

// RecordingSink keeps every event in memory. Used by tests.
type RecordingSink struct {
	mu     sync.Mutex
	events []Event
}

// Emit records e.
func (r *RecordingSink) Emit(_ context.Context, e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (r *RecordingSink) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

func sinkOrNop(s EventSink) EventSink {
	if s == nil {
		return NopSink{}
	}
	return s
}
