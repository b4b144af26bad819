package s3vkit

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/hupe1980/s3vkit/model"
)

// Logger wraps slog.Logger with workflow-specific helpers.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs to w.
func NewJSONLogger(w io.Writer, level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs to w.
func NewTextLogger(w io.Writer, level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewFormatLogger picks the JSON or text handler by format name.
// Unknown formats fall back to text.
func NewFormatLogger(w io.Writer, format string, level slog.Level) *Logger {
	if strings.EqualFold(format, "json") {
		return NewJSONLogger(w, level)
	}
	return NewTextLogger(w, level)
}

// ParseLevel parses debug, info, warn or error.
func ParseLevel(name string) (slog.Level, error) {
	var l slog.Level
	err := l.UnmarshalText([]byte(name))
	return l, err
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(io.Discard, nil))
}

// WithIndex adds bucket and index fields to the logger.
func (l *Logger) WithIndex(desc model.IndexDescriptor) *Logger {
	return &Logger{
		Logger: l.Logger.With("bucket", desc.Bucket, "index", desc.Index),
	}
}

// LogProvision logs a bucket or index reconciliation.
func (l *Logger) LogProvision(ctx context.Context, kind, name string, outcome Outcome, err error) {
	if err != nil {
		l.ErrorContext(ctx, "provision failed",
			"kind", kind,
			"name", name,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "provision completed",
		"kind", kind,
		"name", name,
		"outcome", outcome.String(),
	)
}

// LogPut logs a batch insert.
func (l *Logger) LogPut(ctx context.Context, count int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "put vectors failed",
			"count", count,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "put vectors completed",
		"count", count,
	)
}

// LogQuery logs a similarity query.
func (l *Logger) LogQuery(ctx context.Context, k, returned, kept int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "query failed",
			"k", k,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "query completed",
		"k", k,
		"returned", returned,
		"kept", kept,
	)
}

// LogCleanup logs deletion of written vectors.
func (l *Logger) LogCleanup(ctx context.Context, count int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "cleanup failed",
			"count", count,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "cleanup completed",
		"count", count,
	)
}
