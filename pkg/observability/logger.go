// Package observability provides structured logging, metrics and health
// checks for the klarity hosts.
package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogFormat is "text" or "json".
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// DefaultServiceName tags log lines when a host does not name itself.
const DefaultServiceName = "klarity"

// LogConfig configures NewLogger.
type LogConfig struct {
	// Level is debug, info, warn or error. Anything else means info.
	Level  string
	Format LogFormat
	// Output defaults to os.Stderr.
	Output    io.Writer
	AddSource bool
	// Service and Version are attached to every record when set.
	Service string
	Version string
}

// NewLogger builds a slog.Logger that stamps the service, the version and
// the context's correlation id on every record.
func NewLogger(cfg LogConfig) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level), AddSource: cfg.AddSource}

	var h slog.Handler = slog.NewTextHandler(out, opts)
	if cfg.Format == LogFormatJSON {
		h = slog.NewJSONHandler(out, opts)
	}

	var attrs []slog.Attr
	if cfg.Service != "" {
		attrs = append(attrs, slog.String("service", cfg.Service))
	}
	if cfg.Version != "" {
		attrs = append(attrs, slog.String("version", cfg.Version))
	}
	if len(attrs) > 0 {
		h = h.WithAttrs(attrs)
	}
	return slog.New(contextHandler{h})
}

// LoggerFromEnv builds the logger for a host. Production (APP_ENV) logs
// JSON with source locations; LOG_LEVEL and LOG_FORMAT override either way.
func LoggerFromEnv(service string) *slog.Logger {
	cfg := LogConfig{Level: "info", Format: LogFormatText, Service: service, Version: "dev"}
	if cfg.Service == "" {
		cfg.Service = DefaultServiceName
	}
	if os.Getenv("APP_ENV") == "production" {
		cfg.Format = LogFormatJSON
		cfg.AddSource = true
		cfg.Output = os.Stdout
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Level = level
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		cfg.Format = LogFormat(strings.ToLower(format))
	}
	if version := os.Getenv("KLARITY_VERSION"); version != "" {
		cfg.Version = version
	}
	return NewLogger(cfg)
}

// ParseLevel maps a level name to a slog.Level, case-insensitively.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// contextHandler copies the correlation id from the context into the record.
type contextHandler struct {
	slog.Handler
}

func (h contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := CorrelationID(ctx); id != "" {
		r.AddAttrs(slog.String(CorrelationIDKey, id))
	}
	return h.Handler.Handle(ctx, r)
}

func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{h.Handler.WithAttrs(attrs)}
}

func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{h.Handler.WithGroup(name)}
}

// LogOperation returns logger scoped to one named operation.
func LogOperation(logger *slog.Logger, operation string, attrs ...any) *slog.Logger {
	return logger.With(append([]any{OperationKey, operation}, attrs...)...)
}
