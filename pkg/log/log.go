package log

import (
	"context"
	"log/slog"
	"os"
)

var (
	defaultLevel  slog.LevelVar
	defaultLogger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: &defaultLevel,
	}))
)

func init() {
	defaultLevel.Set(slog.LevelInfo)
}

type contextKey struct{}

var loggerKey = contextKey{}

// Ctx returns the logger stored in the context, or the package default when
// the context carries none.
func Ctx(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return defaultLogger
}

// With returns a new context carrying the given logger.
func With(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// WithAttrs returns a new context whose logger carries the extra attributes.
// The server uses this to tag every line emitted while serving one request.
func WithAttrs(ctx context.Context, attrs ...any) context.Context {
	return With(ctx, Ctx(ctx).With(attrs...))
}

// SetDefaultLogLevel adjusts the level of the package default logger.
func SetDefaultLogLevel(level slog.Level) {
	defaultLevel.Set(level)
}
