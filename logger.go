package voyager

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with voyager-specific context.
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

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithLabel adds a label field to the logger.
func (l *Logger) WithLabel(label uint64) *Logger {
	return &Logger{
		Logger: l.Logger.With("label", label),
	}
}

// WithK adds a k (neighbor count) field to the logger.
func (l *Logger) WithK(k int) *Logger {
	return &Logger{
		Logger: l.Logger.With("k", k),
	}
}

// WithDimension adds a dimension field to the logger.
func (l *Logger) WithDimension(dim int) *Logger {
	return &Logger{
		Logger: l.Logger.With("dimension", dim),
	}
}

// WithCount adds a count field to the logger.
func (l *Logger) WithCount(count int) *Logger {
	return &Logger{
		Logger: l.Logger.With("count", count),
	}
}

// LogInsert logs an insert operation.
func (l *Logger) LogInsert(ctx context.Context, label uint64, dimension int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "insert failed",
			"label", label,
			"dimension", dimension,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "insert completed",
			"label", label,
			"dimension", dimension,
		)
	}
}

// LogBatchInsert logs a batch insert operation.
func (l *Logger) LogBatchInsert(ctx context.Context, count, failed int, err error) {
	if err != nil {
		l.WarnContext(ctx, "batch insert completed with failures",
			"total", count,
			"failed", failed,
			"success", count-failed,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "batch insert completed",
			"count", count,
		)
	}
}

// LogSearch logs a search operation.
func (l *Logger) LogSearch(ctx context.Context, k, resultsFound int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "search failed",
			"k", k,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "search completed",
			"k", k,
			"results", resultsFound,
		)
	}
}

// LogDelete logs a mark or unmark deleted operation.
func (l *Logger) LogDelete(ctx context.Context, label uint64, deleted bool, err error) {
	if err != nil {
		l.ErrorContext(ctx, "delete flag update failed",
			"label", label,
			"deleted", deleted,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "delete flag updated",
			"label", label,
			"deleted", deleted,
		)
	}
}

// LogResize logs a capacity change.
func (l *Logger) LogResize(ctx context.Context, from, to int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "resize failed",
			"from", from,
			"to", to,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "index resized",
			"from", from,
			"to", to,
		)
	}
}

// LogSave logs a save operation. target is a file path, blob name or
// "buffer".
func (l *Logger) LogSave(ctx context.Context, target string, bytes int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "save failed",
			"target", target,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "index saved",
			"target", target,
			"bytes", bytes,
		)
	}
}

// LogLoad logs a load operation.
func (l *Logger) LogLoad(ctx context.Context, source string, elements int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "load failed",
			"source", source,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "index loaded",
			"source", source,
			"elements", elements,
		)
	}
}
