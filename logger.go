package spatialgo

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with consistent field names for dataset
// operations.
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
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithDataset adds a dataset title field to the logger.
func (l *Logger) WithDataset(title string) *Logger {
	return &Logger{Logger: l.Logger.With("dataset", title)}
}

// WithSpace adds a reference space field to the logger.
func (l *Logger) WithSpace(name string) *Logger {
	return &Logger{Logger: l.Logger.With("space", name)}
}

// LogBuild logs a dataset build.
func (l *Logger) LogBuild(ctx context.Context, objects, spaces int, took time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "build failed",
			"objects", objects,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "build completed",
			"objects", objects,
			"spaces", spaces,
			"took", took,
		)
	}
}

// LogLoad logs loading a dataset from a blob store.
func (l *Logger) LogLoad(ctx context.Context, name string, size int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "load failed",
			"name", name,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "load completed",
			"name", name,
			"bytes", size,
		)
	}
}

// LogSave logs writing a dataset to a blob store.
func (l *Logger) LogSave(ctx context.Context, name string, size int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "save failed",
			"name", name,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "save completed",
			"name", name,
			"bytes", size,
		)
	}
}

// LogQuery logs a query execution.
func (l *Logger) LogQuery(ctx context.Context, op string, results int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "query failed",
			"op", op,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "query completed",
			"op", op,
			"results", results,
		)
	}
}
