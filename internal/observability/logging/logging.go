// Package logging builds the process slog.Logger and threads request-scoped
// identifiers through context so every log line for a request carries the
// same ids.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config selects the log level, destination, and output format. Zero values
// mean info-level JSON on stdout.
type Config struct {
	Level  string
	Writer io.Writer
	Format string
}

// LogFormat names a supported output encoding.
type LogFormat string

const (
	FormatJSON LogFormat = "json"
	FormatText LogFormat = "text"
)

var levelNames = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// Init creates a logger from cfg and installs it as the process default.
func Init(cfg Config) *slog.Logger {
	logger := New(cfg)
	slog.SetDefault(logger)
	return logger
}

// New creates a structured slog.Logger from cfg without touching the default.
func New(cfg Config) *slog.Logger {
	writer := cfg.Writer
	if writer == nil {
		writer = os.Stdout
	}

	level, ok := levelNames[strings.ToLower(strings.TrimSpace(cfg.Level))]
	if !ok {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if LogFormat(strings.ToLower(strings.TrimSpace(cfg.Format))) == FormatText {
		return slog.New(slog.NewTextHandler(writer, opts))
	}
	return slog.New(slog.NewJSONHandler(writer, opts))
}

// WithComponent annotates the logger with the owning component's name.
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With("component", component)
}

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	reelIDKey    contextKey = "reel_id"
	loggerKey    contextKey = "logger"
)

func contextWithValue(ctx context.Context, key contextKey, value string) context.Context {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ctx
	}
	return context.WithValue(ctx, key, trimmed)
}

func valueFromContext(ctx context.Context, key contextKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	value, ok := ctx.Value(key).(string)
	return value, ok && value != ""
}

// ContextWithRequestID stores a non-blank request id on the context.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return contextWithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext reads back the request id, if one was stored.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	return valueFromContext(ctx, requestIDKey)
}

// ContextWithReelID stores a non-blank reel id on the context.
func ContextWithReelID(ctx context.Context, id string) context.Context {
	return contextWithValue(ctx, reelIDKey, id)
}

// ReelIDFromContext reads back the reel id, if one was stored.
func ReelIDFromContext(ctx context.Context) (string, bool) {
	return valueFromContext(ctx, reelIDKey)
}

// ContextWithLogger attaches a request-scoped logger to the context.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if logger == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerFromContext retrieves the logger stored by ContextWithLogger, or nil.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return nil
	}
	logger, _ := ctx.Value(loggerKey).(*slog.Logger)
	return logger
}

// WithContext annotates the logger with the request and reel ids held in ctx.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return nil
	}
	if id, ok := RequestIDFromContext(ctx); ok {
		logger = logger.With("request_id", id)
	}
	if id, ok := ReelIDFromContext(ctx); ok {
		logger = logger.With("reel_id", id)
	}
	return logger
}
