package logging

import (
	"context"
	"log/slog"
	"time"
)

// Attr aliases slog.Attr so call sites only import this package.
type Attr = slog.Attr

// Any wraps slog.Any.
func Any(key string, value any) Attr { return slog.Any(key, value) }

// Bool wraps slog.Bool.
func Bool(key string, value bool) Attr { return slog.Bool(key, value) }

// Duration wraps slog.Duration.
func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

// Float64 wraps slog.Float64.
func Float64(key string, value float64) Attr { return slog.Float64(key, value) }

// Int wraps slog.Int.
func Int(key string, value int) Attr { return slog.Int(key, value) }

// Int64 wraps slog.Int64.
func Int64(key string, value int64) Attr { return slog.Int64(key, value) }

// String wraps slog.String.
func String(key string, value string) Attr { return slog.String(key, value) }

// Error produces the standardized error attr; nil errors yield an empty value.
func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

// NewNop returns a logger that discards every record.
func NewNop() *slog.Logger {
	return slog.New(NoopHandler{})
}

// NewComponentLogger tags a logger with a component field.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		return NewNop()
	}
	return logger.With(String(FieldComponent, component))
}

// NoopHandler drops all records. Useful as a default when no logger is wired.
type NoopHandler struct{}

func (NoopHandler) Enabled(context.Context, slog.Level) bool { return false }

func (NoopHandler) Handle(context.Context, slog.Record) error { return nil }

func (NoopHandler) WithAttrs([]slog.Attr) slog.Handler { return NoopHandler{} }

func (NoopHandler) WithGroup(string) slog.Handler { return NoopHandler{} }
