package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// NewJSONLogger creates a JSON logger writing one entry per line to w.
func NewJSONLogger(w io.Writer, level Level) *JSONLogger {
	l := &JSONLogger{writer: w}
	l.level.Store(int32(level))
	return l
}

// NewDefaultLogger creates a logger that writes to stdout at INFO level
func NewDefaultLogger() *JSONLogger {
	return NewJSONLogger(os.Stdout, InfoLevel)
}

// Debug logs a debug-level message
func (l *JSONLogger) Debug(msg string, fields ...Field) { l.emit(DebugLevel, msg, fields) }

// Info logs an info-level message
func (l *JSONLogger) Info(msg string, fields ...Field) { l.emit(InfoLevel, msg, fields) }

// Warn logs a warning-level message
func (l *JSONLogger) Warn(msg string, fields ...Field) { l.emit(WarnLevel, msg, fields) }

// Error logs an error-level message
func (l *JSONLogger) Error(msg string, fields ...Field) { l.emit(ErrorLevel, msg, fields) }

// With creates a child logger carrying the given fields on every entry.
// The child shares the parent's writer and inherits its current level.
func (l *JSONLogger) With(fields ...Field) Logger {
	merged := make([]Field, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)

	child := &JSONLogger{writer: l.writer, fields: merged}
	child.level.Store(l.level.Load())
	return child
}

// SetLevel sets the minimum log level
func (l *JSONLogger) SetLevel(level Level) { l.level.Store(int32(level)) }

// GetLevel returns the current log level
func (l *JSONLogger) GetLevel() Level { return Level(l.level.Load()) }

func (l *JSONLogger) emit(level Level, msg string, fields []Field) {
	if level < l.GetLevel() {
		return
	}

	entry := LogEntry{
		Time:    time.Now().UTC().Format(time.RFC3339Nano),
		Level:   level.String(),
		Message: msg,
	}
	if n := len(l.fields) + len(fields); n > 0 {
		m := make(map[string]any, n)
		for _, f := range l.fields {
			m[f.Key] = f.Value
		}
		for _, f := range fields {
			m[f.Key] = f.Value
		}
		entry.Fields = m
	}

	line, err := json.Marshal(entry)
	if err != nil {
		// Keep the message even when a field value cannot be marshalled
		line = []byte(fmt.Sprintf("{\"level\":%q,\"msg\":%q,\"marshal_error\":%q}",
			level.String(), msg, err.Error()))
	}
	line = append(line, '\n')

	l.mu.Lock()
	l.writer.Write(line)
	l.mu.Unlock()
}

// Global default logger
var (
	defaultLogger Logger
	once          sync.Once
)

// DefaultLogger returns the global default logger. The level comes from
// the LOG_LEVEL environment variable, defaulting to INFO.
func DefaultLogger() Logger {
	once.Do(func() {
		level := InfoLevel
		if levelStr := os.Getenv("LOG_LEVEL"); levelStr != "" {
			level = ParseLevel(levelStr)
		}
		defaultLogger = NewJSONLogger(os.Stdout, level)
	})
	return defaultLogger
}

// SetDefaultLogger sets the global default logger
func SetDefaultLogger(logger Logger) {
	// Mark initialized so a later DefaultLogger call keeps this logger
	once.Do(func() {})
	defaultLogger = logger
}
