package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Logger wraps slog.Logger with docqa field names.
type Logger struct {
	*slog.Logger
}

// New builds a logger writing to stderr. format is "text" or "json".
func New(level, format string) *Logger {
	return NewWithWriter(os.Stderr, level, format)
}

func NewWithWriter(w io.Writer, level, format string) *Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return &Logger{Logger: slog.New(handler)}
}

// Noop discards all output.
func Noop() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// ParseLevel maps debug, info, warn and error; anything else is info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *Logger) WithDocument(id string) *Logger {
	return &Logger{Logger: l.Logger.With("doc_id", id)}
}

func (l *Logger) LogIngest(ctx context.Context, id, name string, fragments int, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "ingest failed",
			"doc_id", id,
			"name", name,
			"elapsed", elapsed,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "document ingested",
		"doc_id", id,
		"name", name,
		"fragments", fragments,
		"elapsed", elapsed,
	)
}

func (l *Logger) LogQuery(ctx context.Context, id string, topK, found int, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "query failed",
			"doc_id", id,
			"k", topK,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "query completed",
		"doc_id", id,
		"k", topK,
		"results", found,
		"elapsed", elapsed,
	)
}

func (l *Logger) LogGenerate(ctx context.Context, id, model string, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "generation failed",
			"doc_id", id,
			"model", model,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "answer generated",
		"doc_id", id,
		"model", model,
		"elapsed", elapsed,
	)
}

func (l *Logger) LogEviction(id, reason string) {
	l.Info("document evicted",
		"doc_id", id,
		"reason", reason,
	)
}
