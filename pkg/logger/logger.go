package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

const (
	LevelCritical = slog.Level(12)
)

type Logger interface {
	Debug(message string, args ...any)
	Info(message string, args ...any)
	Warn(message string, args ...any)
	Error(message string, args ...any)
	Critical(message string, args ...any)
	BusinessError(message string, err error, args ...any)
	InternalError(message string, err error, args ...any)
	With(args ...any) Logger
}

// Options controls how New builds the underlying slog handler.
type Options struct {
	Output  io.Writer
	Level   slog.Level
	Format  string
	Service string
}

type slogLogger struct {
	base *slog.Logger
}

func NewFromEnv(service string) Logger {
	env := normalizeValue(os.Getenv("ENV"))
	return New(Options{
		Output:  os.Stdout,
		Level:   ParseLevel(os.Getenv("LOG_LEVEL"), env),
		Format:  parseFormat(os.Getenv("LOG_FORMAT")),
		Service: service,
	})
}

func New(opts Options) Logger {
	output := opts.Output
	if output == nil {
		output = os.Stdout
	}

	handlerOptions := &slog.HandlerOptions{
		Level:       opts.Level,
		ReplaceAttr: replaceAttr,
	}

	var handler slog.Handler
	switch normalizeValue(opts.Format) {
	case "text":
		handler = slog.NewTextHandler(output, handlerOptions)
	default:
		handler = slog.NewJSONHandler(output, handlerOptions)
	}

	base := slog.New(handler)
	if opts.Service != "" {
		base = base.With("service", opts.Service)
	}
	return &slogLogger{base: base}
}

// NewNop returns a logger that discards everything. Used by tests.
func NewNop() Logger {
	return New(Options{Output: io.Discard, Level: LevelCritical + 1})
}

func (l *slogLogger) Debug(message string, args ...any) {
	l.base.Debug(message, args...)
}

func (l *slogLogger) Info(message string, args ...any) {
	l.base.Info(message, args...)
}

func (l *slogLogger) Warn(message string, args ...any) {
	l.base.Warn(message, args...)
}

func (l *slogLogger) Error(message string, args ...any) {
	l.base.Error(message, args...)
}

func (l *slogLogger) Critical(message string, args ...any) {
	l.base.Log(context.Background(), LevelCritical, message, args...)
}

// BusinessError logs an expected failure (not found, validation) at warn level.
func (l *slogLogger) BusinessError(message string, err error, args ...any) {
	if err == nil {
		return
	}
	l.base.Warn(message, append([]any{"err", err}, args...)...)
}

// InternalError logs an unexpected failure at error level.
func (l *slogLogger) InternalError(message string, err error, args ...any) {
	if err == nil {
		return
	}
	l.base.Error(message, append([]any{"err", err}, args...)...)
}

func (l *slogLogger) With(args ...any) Logger {
	return &slogLogger{base: l.base.With(args...)}
}

// ParseLevel maps LOG_LEVEL to a slog level. An empty or unknown value
// falls back to debug in development and info elsewhere.
func ParseLevel(value string, env string) slog.Level {
	switch normalizeValue(value) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "critical", "fatal":
		return LevelCritical
	case "info":
		return slog.LevelInfo
	}
	if env == "development" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func parseFormat(value string) string {
	switch normalizeValue(value) {
	case "text":
		return "text"
	default:
		return "json"
	}
}

func normalizeValue(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func replaceAttr(_ []string, attr slog.Attr) slog.Attr {
	if attr.Key != slog.LevelKey {
		return attr
	}

	level, ok := attr.Value.Any().(slog.Level)
	if ok && level == LevelCritical {
		attr.Value = slog.StringValue("CRITICAL")
	}
	return attr
}
