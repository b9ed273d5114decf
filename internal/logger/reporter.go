package logger

import (
	"context"

	"github.com/oshokin/distpack/internal/domain/release"
)

// reporter forwards pipeline events to the logger stored in the context.
type reporter struct{}

// NewReporter returns a release.Reporter backed by the context logger.
//
//nolint:ireturn // Callers depend on the release.Reporter contract only.
func NewReporter() release.Reporter {
	return reporter{}
}

// Report writes the event at the matching zap level.
func (reporter) Report(ctx context.Context, level release.Level, message string, kvs ...any) {
	switch level {
	case release.LevelDebug:
		DebugKV(ctx, message, kvs...)
	case release.LevelInfo:
		InfoKV(ctx, message, kvs...)
	case release.LevelWarn:
		WarnKV(ctx, message, kvs...)
	default:
		ErrorKV(ctx, message, kvs...)
	}
}
