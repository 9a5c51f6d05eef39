// Package logging is a thin structured-logging facade over log/slog, giving
// the action and validator packages a small per-package logger rather than
// a process-global one (SPEC_FULL.md §2), in the spirit of the small,
// locally-scoped loggers used throughout the example corpus.
package logging

import (
	"fmt"
	"log/slog"
	"os"
)

// Logger is the facade action.Driver and validator.Validate log through.
// It is deliberately narrow: formatted warning/info/debug lines, nothing
// structured-field-aware, since neither caller needs more.
type Logger struct {
	base *slog.Logger
}

// New wraps base, or a default stderr text logger if base is nil.
func New(base *slog.Logger) *Logger {
	if base == nil {
		base = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &Logger{base: base}
}

// Warnf logs a formatted warning. Logger implements validator.Sink via this
// method, so a *Logger can be passed directly as the Validate warning sink.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.base.Warn(fmt.Sprintf(format, args...))
}

// Infof logs a formatted info line.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.base.Info(fmt.Sprintf(format, args...))
}

// Debugf logs a formatted line at slog's debug level; whether it appears
// depends only on the wrapped handler's level. Logger does not inspect the
// GENERATE request's DEBUG flag (action.Flags.Debug).
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.base.Debug(fmt.Sprintf(format, args...))
}

// With returns a Logger with key/value pairs attached to every subsequent
// line, mirroring slog.Logger.With.
func (l *Logger) With(args ...interface{}) *Logger {
	return &Logger{base: l.base.With(args...)}
}
