// Package logger provides logging utilities for the harvester.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Fields is a set of structured log fields.
type Fields = logrus.Fields

// Logger provides structured logging functionality.
type Logger struct {
	entry *logrus.Entry
}

// NewLogger creates a new logger instance with the specified level.
func NewLogger(level string) *Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	switch strings.ToLower(level) {
	case "debug":
		l.SetLevel(logrus.DebugLevel)
	case "info":
		l.SetLevel(logrus.InfoLevel)
	case "warn":
		l.SetLevel(logrus.WarnLevel)
	case "error":
		l.SetLevel(logrus.ErrorLevel)
	default:
		l.SetLevel(logrus.InfoLevel)
	}

	return &Logger{entry: logrus.NewEntry(l)}
}

// Discard returns a logger that swallows all output. Used in tests.
func Discard() *Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.PanicLevel)

	return &Logger{entry: logrus.NewEntry(l)}
}

// Info logs an info level message.
func (l *Logger) Info(msg string) {
	l.entry.Info(msg)
}

// Error logs an error level message.
func (l *Logger) Error(msg string) {
	l.entry.Error(msg)
}

// Debug logs a debug level message.
func (l *Logger) Debug(msg string) {
	l.entry.Debug(msg)
}

// Warn logs a warning level message.
func (l *Logger) Warn(msg string) {
	l.entry.Warn(msg)
}

// WithFields creates a child logger carrying the given fields.
func (l *Logger) WithFields(fields Fields) *Logger {
	return &Logger{entry: l.entry.WithFields(fields)}
}

// WithField creates a child logger carrying a single field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{entry: l.entry.WithField(key, value)}
}

// WithError creates a child logger carrying an error field.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{entry: l.entry.WithError(err)}
}
