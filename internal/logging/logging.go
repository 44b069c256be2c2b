package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// New creates the process logger and installs it as the slog default.
// format selects the stderr encoding ("json" or "text"). When logFile is set,
// records are also appended to it as JSON. Callers must defer the returned
// cleanup func.
func New(level, format, logFile string) (*slog.Logger, func(), error) {
	return newLogger(os.Stderr, level, format, logFile)
}

func newLogger(stderr io.Writer, level, format, logFile string) (*slog.Logger, func(), error) {
	opts := &slog.HandlerOptions{Level: parseLevel(level), ReplaceAttr: errorMessage}

	var console slog.Handler
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		console = slog.NewJSONHandler(stderr, opts)
	case "text":
		console = slog.NewTextHandler(stderr, opts)
	default:
		return nil, nil, fmt.Errorf("unknown log format %q", format)
	}

	handler := console
	cleanup := func() {}
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		handler = fanout{console, slog.NewJSONHandler(f, opts)}
		cleanup = func() { _ = f.Close() }
	}

	logger := slog.New(handler).With("app", "hoardings")
	slog.SetDefault(logger)
	return logger, cleanup, nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// errorMessage logs error values by their message. The text handler would
// otherwise use %+v, which prints cockroachdb/errors stack traces.
func errorMessage(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() != slog.KindAny {
		return a
	}
	if err, ok := a.Value.Any().(error); ok {
		return slog.String(a.Key, err.Error())
	}
	return a
}

// fanout sends every record to each handler in turn.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
