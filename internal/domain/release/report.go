package release

import (
	"context"
	"sync"
)

// Level is the severity of a reported event.
type Level int

const (
	// LevelDebug is for diagnostic detail.
	LevelDebug Level = iota
	// LevelInfo is for progress.
	LevelInfo
	// LevelWarn is for degraded but non-fatal conditions.
	LevelWarn
	// LevelError is for failures.
	LevelError
)

// String returns the lowercase level name.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// Reporter receives structured events from the packaging pipeline.
type Reporter interface {
	Report(ctx context.Context, level Level, message string, kvs ...any)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(ctx context.Context, level Level, message string, kvs ...any)

// Report calls f.
func (f ReporterFunc) Report(ctx context.Context, level Level, message string, kvs ...any) {
	f(ctx, level, message, kvs...)
}

// Discard is a Reporter that drops every event.
var Discard Reporter = ReporterFunc(func(context.Context, Level, string, ...any) {})

// Event is a recorded report.
type Event struct {
	Level   Level
	Message string
	KVs     []any
}

// Recorder is a Reporter that keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Report records the event.
func (r *Recorder) Report(_ context.Context, level Level, message string, kvs ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, Event{
		Level:   level,
		Message: message,
		KVs:     append([]any(nil), kvs...),
	})
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]Event(nil), r.events...)
}

// Count returns how many events of the given level were recorded.
func (r *Recorder) Count(level Level) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, e := range r.events {
		if e.Level == level {
			n++
		}
	}

	return n
}
