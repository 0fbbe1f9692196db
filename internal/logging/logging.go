// Package logging provides structured logging for qubecsim using Go's
// standard library slog package. It supports multiple output formats and
// log levels, and lets the scenario driver attach scenario/trial context
// to every log line for the duration of a run.
//
// Usage:
//
//	logger := logging.New(logging.Config{
//	    Level:  slog.LevelInfo,
//	    Format: logging.FormatJSON,
//	})
//
//	logger.Info("engine starting", slog.Int("startYear", 2025))
//
//	ctx := logging.WithScenario(ctx, "bau")
//	logging.FromContext(ctx).Info("running scenario")
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"
)

// Format specifies the log output format.
type Format string

const (
	// FormatJSON outputs structured JSON logs, ideal for piping into log
	// aggregation alongside the CSV result stream.
	FormatJSON Format = "json"

	// FormatText outputs human-readable text logs, ideal for interactive
	// use of the CLI.
	FormatText Format = "text"
)

type contextKey string

const (
	loggerKey   contextKey = "qubecsim_logger"
	scenarioKey contextKey = "qubecsim_scenario"
	trialKey    contextKey = "qubecsim_trial"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output. Defaults to slog.LevelInfo.
	Level slog.Level

	// Format specifies the output format (json or text). Defaults to
	// FormatJSON.
	Format Format

	// Output is the destination for log output. Defaults to os.Stderr, so
	// that stdout stays reserved for CSV results.
	Output io.Writer

	// AddSource includes source file and line number in log output.
	AddSource bool

	// TimeFormat specifies the time format for text output. Defaults to
	// time.RFC3339. Ignored for JSON format.
	TimeFormat string
}

func (c *Config) applyDefaults() {
	if c.Format == "" {
		c.Format = FormatJSON
	}
	if c.Output == nil {
		c.Output = os.Stderr
	}
	if c.TimeFormat == "" {
		c.TimeFormat = time.RFC3339
	}
}

// New creates a new structured logger with the given configuration.
func New(cfg Config) *slog.Logger {
	cfg.applyDefaults()

	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && cfg.Format == FormatText {
				if t, ok := a.Value.Any().(time.Time); ok {
					return slog.String(a.Key, t.Format(cfg.TimeFormat))
				}
			}
			return a
		},
	}

	var handler slog.Handler
	switch cfg.Format {
	case FormatText:
		handler = slog.NewTextHandler(cfg.Output, opts)
	default:
		handler = slog.NewJSONHandler(cfg.Output, opts)
	}
	return slog.New(handler)
}

// NewFromEnv creates a logger configured from environment variables.
//
// Environment variables:
//   - QUBECSIM_LOG_LEVEL: debug, info, warn, error (default: info)
//   - QUBECSIM_LOG_FORMAT: json, text (default: json)
//   - QUBECSIM_LOG_SOURCE: true, false (default: false)
func NewFromEnv() *slog.Logger {
	return New(Config{
		Level:     parseLogLevel(os.Getenv("QUBECSIM_LOG_LEVEL")),
		Format:    parseLogFormat(os.Getenv("QUBECSIM_LOG_FORMAT")),
		AddSource: parseBool(os.Getenv("QUBECSIM_LOG_SOURCE")),
	})
}

// Default returns a production-ready JSON logger writing to stderr.
func Default() *slog.Logger {
	return New(Config{Level: slog.LevelInfo, Format: FormatJSON})
}

// Development returns a text logger with debug level and source info.
func Development() *slog.Logger {
	return New(Config{Level: slog.LevelDebug, Format: FormatText, AddSource: true})
}

// NewContext returns a new context with the logger attached.
func NewContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext retrieves the logger from context, falling back to the
// package default if none is attached.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.Default()
}

// WithScenario attaches the running scenario's name to the context's
// logger, for the driver's per-scenario loop.
func WithScenario(ctx context.Context, scenario string) context.Context {
	ctx = context.WithValue(ctx, scenarioKey, scenario)
	logger := FromContext(ctx).With(slog.String("scenario", scenario))
	return NewContext(ctx, logger)
}

// WithTrial attaches the running trial number to the context's logger.
func WithTrial(ctx context.Context, trial int) context.Context {
	ctx = context.WithValue(ctx, trialKey, trial)
	logger := FromContext(ctx).With(slog.Int("trial", trial))
	return NewContext(ctx, logger)
}

// ScenarioFromContext retrieves the current scenario name, if any.
func ScenarioFromContext(ctx context.Context) string {
	if name, ok := ctx.Value(scenarioKey).(string); ok {
		return name
	}
	return ""
}

// Error logs an error with caller file/line context.
func Error(logger *slog.Logger, msg string, err error, attrs ...slog.Attr) {
	if logger == nil {
		logger = slog.Default()
	}
	_, file, line, ok := runtime.Caller(1)
	if ok {
		attrs = append(attrs,
			slog.String("error", err.Error()),
			slog.String("error_file", file),
			slog.Int("error_line", line),
		)
	} else {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	args := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		args = append(args, attr)
	}
	logger.Error(msg, args...)
}

// ErrorContext logs an error using the logger attached to ctx.
func ErrorContext(ctx context.Context, msg string, err error, attrs ...slog.Attr) {
	Error(FromContext(ctx), msg, err, attrs...)
}

func parseLogLevel(level string) slog.Level {
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

func parseLogFormat(format string) Format {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "text", "console":
		return FormatText
	default:
		return FormatJSON
	}
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on":
		return true
	default:
		return false
	}
}
