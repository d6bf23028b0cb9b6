// Package corelog provides the structured, leveled logging used by
// internal/graphstore and cmd/corectl.
package corelog

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
)

// Level is one of the standard logging levels.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
	LevelFatal Level = "fatal"
)

// Config controls how New builds a *logrus.Logger.
type Config struct {
	Level      Level
	Format     string // "json" or "text"
	TimeFormat string
	AddCaller  bool
}

// DefaultConfig returns sensible defaults: info level, text format, RFC3339
// timestamps.
func DefaultConfig() Config {
	return Config{
		Level:      LevelInfo,
		Format:     "text",
		TimeFormat: time.RFC3339,
	}
}

// New builds a *logrus.Logger from cfg.
func New(cfg Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	switch cfg.Level {
	case LevelDebug:
		logger.SetLevel(logrus.DebugLevel)
	case LevelWarn:
		logger.SetLevel(logrus.WarnLevel)
	case LevelError:
		logger.SetLevel(logrus.ErrorLevel)
	case LevelFatal:
		logger.SetLevel(logrus.FatalLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}

	timeFormat := cfg.TimeFormat
	if timeFormat == "" {
		timeFormat = time.RFC3339
	}

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: timeFormat})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{TimestampFormat: timeFormat, FullTimestamp: true})
	}

	logger.SetReportCaller(cfg.AddCaller)
	return logger
}

// ContextLogger carries a fixed set of structured fields through a call
// chain, attaching them to every entry emitted.
type ContextLogger struct {
	logger *logrus.Logger
	fields logrus.Fields
}

// NewContextLogger wraps logger with an initial field set.
func NewContextLogger(logger *logrus.Logger, fields map[string]any) *ContextLogger {
	if logger == nil {
		logger = New(DefaultConfig())
	}
	base := make(logrus.Fields, len(fields))
	for k, v := range fields {
		base[k] = v
	}
	return &ContextLogger{logger: logger, fields: base}
}

func (cl *ContextLogger) clone(extra logrus.Fields) *ContextLogger {
	merged := make(logrus.Fields, len(cl.fields)+len(extra))
	for k, v := range cl.fields {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return &ContextLogger{logger: cl.logger, fields: merged}
}

// WithField returns a derived logger with one additional field.
func (cl *ContextLogger) WithField(key string, value any) *ContextLogger {
	return cl.clone(logrus.Fields{key: value})
}

// WithFields returns a derived logger with additional fields merged in.
func (cl *ContextLogger) WithFields(fields map[string]any) *ContextLogger {
	extra := make(logrus.Fields, len(fields))
	for k, v := range fields {
		extra[k] = v
	}
	return cl.clone(extra)
}

// WithError attaches an error and its concrete type to the logger context.
func (cl *ContextLogger) WithError(err error) *ContextLogger {
	return cl.clone(logrus.Fields{"error": err.Error(), "error_type": fmt.Sprintf("%T", err)})
}

func (cl *ContextLogger) Debug(msg string)                          { cl.logger.WithFields(cl.fields).Debug(msg) }
func (cl *ContextLogger) Debugf(format string, args ...any)          { cl.logger.WithFields(cl.fields).Debugf(format, args...) }
func (cl *ContextLogger) Info(msg string)                            { cl.logger.WithFields(cl.fields).Info(msg) }
func (cl *ContextLogger) Infof(format string, args ...any)           { cl.logger.WithFields(cl.fields).Infof(format, args...) }
func (cl *ContextLogger) Warn(msg string)                            { cl.logger.WithFields(cl.fields).Warn(msg) }
func (cl *ContextLogger) Warnf(format string, args ...any)           { cl.logger.WithFields(cl.fields).Warnf(format, args...) }
func (cl *ContextLogger) Error(msg string)                           { cl.logger.WithFields(cl.fields).Error(msg) }
func (cl *ContextLogger) Errorf(format string, args ...any)          { cl.logger.WithFields(cl.fields).Errorf(format, args...) }

// LogOperation logs start/completion (with duration) of fn, tagged with
// operation. Errors are logged at Error level but not swallowed.
func LogOperation(logger *ContextLogger, operation string, fn func() error) error {
	start := time.Now()
	logger.WithField("operation", operation).Debug("operation started")

	err := fn()
	duration := time.Since(start)
	entry := logger.WithFields(map[string]any{
		"operation":   operation,
		"duration_ms": duration.Milliseconds(),
	})

	if err != nil {
		entry.WithError(err).Error("operation failed")
		return err
	}
	entry.Debug("operation completed")
	return nil
}

// LogPanic recovers a panic in progress (call via defer) and logs it with a
// stack trace rather than letting it crash the process silently.
func LogPanic(logger *ContextLogger) {
	if r := recover(); r != nil {
		buf := make([]byte, 4096)
		n := runtime.Stack(buf, false)
		logger.WithFields(map[string]any{
			"panic":      fmt.Sprintf("%v", r),
			"stacktrace": string(buf[:n]),
		}).Error("panic recovered")
	}
}

// DatabaseFields returns the standard field set for a graph database
// operation log entry.
func DatabaseFields(operation, label string, rowsAffected int64, duration time.Duration) map[string]any {
	return map[string]any{
		"db_operation":  operation,
		"db_label":      label,
		"rows_affected": rowsAffected,
		"duration_ms":   duration.Milliseconds(),
	}
}

// StructuredLog is a builder for one-off structured entries at an explicit
// level, for call sites that don't want to carry a ContextLogger.
type StructuredLog struct {
	logger *logrus.Logger
	fields logrus.Fields
	level  logrus.Level
}

// NewStructuredLog starts a builder at info level.
func NewStructuredLog(logger *logrus.Logger) *StructuredLog {
	if logger == nil {
		logger = New(DefaultConfig())
	}
	return &StructuredLog{logger: logger, fields: make(logrus.Fields), level: logrus.InfoLevel}
}

func (sl *StructuredLog) WithField(key string, value any) *StructuredLog {
	sl.fields[key] = value
	return sl
}

func (sl *StructuredLog) Level(level Level) *StructuredLog {
	switch level {
	case LevelDebug:
		sl.level = logrus.DebugLevel
	case LevelWarn:
		sl.level = logrus.WarnLevel
	case LevelError:
		sl.level = logrus.ErrorLevel
	case LevelFatal:
		sl.level = logrus.FatalLevel
	default:
		sl.level = logrus.InfoLevel
	}
	return sl
}

func (sl *StructuredLog) Log(msg string) {
	sl.logger.WithFields(sl.fields).Log(sl.level, msg)
}
