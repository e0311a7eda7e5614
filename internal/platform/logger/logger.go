package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LoggerConfig holds the settings used to build the application logger.
type LoggerConfig struct {
	// Level is one of debug, info, warn or error (case-insensitive).
	Level string
	// Output receives JSON log lines. Defaults to os.Stdout.
	Output io.Writer
}

type ctxKey struct{}

// ParseLevel converts a textual log level into a slog.Level.
// The boolean result is false when the level is not recognized,
// in which case slog.LevelInfo is returned.
func ParseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// Setup initializes the application's logging system. It creates a structured
// JSON logger with the configured level and sets it as the slog default.
func Setup(cfg LoggerConfig) (*slog.Logger, error) {
	level, ok := ParseLevel(cfg.Level)
	if !ok {
		// Use a temporary text logger so the warning is visible even before
		// the JSON handler is installed.
		tmp := slog.New(slog.NewTextHandler(os.Stderr, nil))
		tmp.Warn("invalid log level configured, using default level",
			"configured_level", cfg.Level,
			"default_level", "info")
	}

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
	l := slog.New(handler)
	slog.SetDefault(l)

	return l, nil
}

// WithLogger returns a copy of ctx carrying l.
// It panics if l is nil.
func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	if l == nil {
		panic("logger: nil logger")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger stored in ctx, or slog.Default() when none is present.
func FromContext(ctx context.Context) *slog.Logger {
	return FromContextOrDefault(ctx, slog.Default())
}

// FromContextOrDefault returns the logger stored in ctx, or def when none is present.
func FromContextOrDefault(ctx context.Context, def *slog.Logger) *slog.Logger {
	if ctx == nil {
		return def
	}
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return def
}

// WithTraceID returns a context whose logger carries trace_id.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return WithLogger(ctx, FromContext(ctx).With("trace_id", traceID))
}
