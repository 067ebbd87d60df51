package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// contextKey is a type for context keys
type contextKey string

const (
	// RunIDKey is the context key for the replay run ID
	RunIDKey contextKey = "run_id"
	// DatasetKey is the context key for the trace dataset path
	DatasetKey contextKey = "dataset"
)

// Config holds logging configuration
type Config struct {
	Level  string // "debug", "info", "warn", "error"
	Format string // "json" or "text"
	Output io.Writer
}

// Setup configures the global logger
func Setup(cfg Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	if strings.ToLower(cfg.Format) == "json" {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}

	// Wrap with context handler
	handler = &ContextHandler{Handler: handler}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}

// ContextHandler adds context values to log records
type ContextHandler struct {
	slog.Handler
}

// Handle adds context values to the record before passing to the wrapped handler
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if runID, ok := ctx.Value(RunIDKey).(string); ok && runID != "" {
		r.AddAttrs(slog.String("run_id", runID))
	}
	if dataset, ok := ctx.Value(DatasetKey).(string); ok && dataset != "" {
		r.AddAttrs(slog.String("dataset", dataset))
	}
	return h.Handler.Handle(ctx, r)
}

// WithRunID adds a run ID to the context
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// WithDataset adds the dataset path to the context
func WithDataset(ctx context.Context, dataset string) context.Context {
	return context.WithValue(ctx, DatasetKey, dataset)
}

// Logger returns a logger with additional context
func Logger(ctx context.Context) *slog.Logger {
	logger := slog.Default()

	var attrs []any
	if runID, ok := ctx.Value(RunIDKey).(string); ok && runID != "" {
		attrs = append(attrs, "run_id", runID)
	}
	if dataset, ok := ctx.Value(DatasetKey).(string); ok && dataset != "" {
		attrs = append(attrs, "dataset", dataset)
	}

	if len(attrs) > 0 {
		return logger.With(attrs...)
	}
	return logger
}
