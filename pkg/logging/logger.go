package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// LogLevel represents the severity level of a log message
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

// levelFatal sits above slog.LevelError so handlers never filter it out.
const levelFatal = slog.LevelError + 4

// String returns string representation of log level
func (l LogLevel) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case DebugLevel:
		return slog.LevelDebug
	case WarnLevel:
		return slog.LevelWarn
	case ErrorLevel:
		return slog.LevelError
	case FatalLevel:
		return levelFatal
	default:
		return slog.LevelInfo
	}
}

// ParseLevel maps a configuration string onto a LogLevel
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "", "info":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal":
		return FatalLevel, nil
	default:
		return InfoLevel, fmt.Errorf("invalid log level %q (allowed: debug, info, warn, error, fatal)", s)
	}
}

// Format selects the output encoding
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Fields represents structured log fields
type Fields map[string]interface{}

// Options configures a StructuredLogger
type Options struct {
	Service string
	Version string
	Level   LogLevel
	Format  Format
	Output  io.Writer
	NoColor bool
}

// StructuredLogger provides structured logging with context on top of slog
type StructuredLogger struct {
	logger *slog.Logger
	level  *slog.LevelVar
	base   Fields
	exit   func(int)
}

// New creates a logger from options
func New(opts Options) *StructuredLogger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	levelVar := new(slog.LevelVar)
	levelVar.Set(opts.Level.slogLevel())

	var handler slog.Handler
	switch opts.Format {
	case FormatText:
		handler = tint.NewHandler(out, &tint.Options{
			Level:      levelVar,
			TimeFormat: time.Kitchen,
			NoColor:    opts.NoColor,
		})
	default:
		handler = slog.NewJSONHandler(out, &slog.HandlerOptions{
			Level:       levelVar,
			ReplaceAttr: renameFatal,
		})
	}

	return &StructuredLogger{
		logger: slog.New(handler).With("service", opts.Service, "version", opts.Version),
		level:  levelVar,
		exit:   os.Exit,
	}
}

func renameFatal(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey && len(groups) == 0 {
		if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == levelFatal {
			a.Value = slog.StringValue(FatalLevel.String())
		}
	}
	return a
}

// SetLevel sets the minimum log level
func (l *StructuredLogger) SetLevel(level LogLevel) {
	l.level.Set(level.slogLevel())
}

// Debug logs a debug message with structured fields
func (l *StructuredLogger) Debug(ctx context.Context, message string, fields Fields) {
	l.log(ctx, DebugLevel, message, fields, nil)
}

// Info logs an info message with structured fields
func (l *StructuredLogger) Info(ctx context.Context, message string, fields Fields) {
	l.log(ctx, InfoLevel, message, fields, nil)
}

// Warn logs a warning message with structured fields
func (l *StructuredLogger) Warn(ctx context.Context, message string, fields Fields) {
	l.log(ctx, WarnLevel, message, fields, nil)
}

// Error logs an error message with structured fields and error details
func (l *StructuredLogger) Error(ctx context.Context, message string, fields Fields, err error) {
	l.log(ctx, ErrorLevel, message, fields, err)
}

// Fatal logs a fatal message and exits the program
func (l *StructuredLogger) Fatal(ctx context.Context, message string, fields Fields, err error) {
	l.log(ctx, FatalLevel, message, fields, err)
	l.exit(1)
}

// WithFields returns a logger that adds fields to every entry
func (l *StructuredLogger) WithFields(fields Fields) *StructuredLogger {
	child := *l
	child.base = mergeFields(l.base, fields)
	return &child
}

func (l *StructuredLogger) log(ctx context.Context, level LogLevel, message string, fields Fields, err error) {
	if ctx == nil {
		ctx = context.Background()
	}

	lvl := level.slogLevel()
	if !l.logger.Enabled(ctx, lvl) {
		return
	}

	// skip runtime.Callers, log and the exported level method
	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])

	record := slog.NewRecord(time.Now().UTC(), lvl, message, pcs[0])

	if requestID := RequestIDFromContext(ctx); requestID != "" {
		record.AddAttrs(slog.String("request_id", requestID))
	}

	merged := mergeFields(l.base, fields)
	for _, key := range slices.Sorted(maps.Keys(merged)) {
		record.AddAttrs(slog.Any(key, merged[key]))
	}

	if level >= ErrorLevel {
		frame, _ := runtime.CallersFrames(pcs[:]).Next()
		record.AddAttrs(slog.Group("caller",
			slog.String("file", frame.File),
			slog.Int("line", frame.Line),
			slog.String("function", frame.Function),
		))

		if err != nil {
			record.AddAttrs(slog.String("error", err.Error()))
		}
		if level == FatalLevel {
			record.AddAttrs(slog.String("stack_trace", captureStackTrace()))
		}
	}

	if handleErr := l.logger.Handler().Handle(ctx, record); handleErr != nil {
		fmt.Fprintf(os.Stderr, "%s [%s] %s: %v (log handler: %v)\n",
			record.Time.Format(time.RFC3339), level, message, merged, handleErr)
	}
}

func mergeFields(base, extra Fields) Fields {
	if len(base) == 0 {
		return extra
	}
	merged := make(Fields, len(base)+len(extra))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}

// captureStackTrace captures the current stack trace
func captureStackTrace() string {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

type requestIDKey struct{}

// ContextWithRequestID attaches a request id that every entry logged with ctx will carry
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFromContext returns the request id stored in ctx, if any
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
