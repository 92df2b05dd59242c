// Package log provides the structured logging interface used across the
// rental-price pipeline.
//
// The interface is slog-compatible so stages do not depend on a concrete
// backend. The default backend is zerolog (see zerolog.go). Stages receive a
// Logger through their constructors; GetLogger is only the fallback.
//
// Example usage:
//
//	logger := log.GetLoggerWithName("cleaning").With(
//	    log.RunIDKey, runID,
//	)
//	logger.Info("Dropped rows without price",
//	    log.StageKey, "clean",
//	    log.RowsDroppedKey, 12,
//	)
package log

import (
	"context"
)

// Logger defines a structured logging interface compatible with Go's log/slog.
//
// Fields are passed as alternating key-value pairs. Error accepts an error
// value as its first field; the zerolog backend attaches the error's stack
// trace to the entry.
type Logger interface {
	// Debug logs a debug-level message with optional structured fields.
	Debug(msg string, fields ...any)

	// Info logs an info-level message with optional structured fields.
	//
	// Example:
	//   logger.Info("Grid search completed",
	//       log.DurationMsKey, 5432,
	//       log.ScoreKey, 1234.5,
	//   )
	Info(msg string, fields ...any)

	// Warn logs a warning-level message. Warnings mark recovered conditions:
	// a row left unchanged, a config value replaced by its default, a metric
	// omitted from the result.
	Warn(msg string, fields ...any)

	// Error logs an error-level message with optional structured fields.
	//
	// Example:
	//   logger.Error("Model training failed",
	//       err,
	//       log.OperationKey, "fit",
	//       log.SamplesKey, 1000,
	//   )
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields pre-populated.
	With(fields ...any) Logger

	// Enabled reports whether the logger emits log records at the given level.
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, compatible with slog.Level.
type Level int

// Standard logging levels, values are compatible with slog.Level.
const (
	LevelDebug Level = -4 // Detailed diagnostic information
	LevelInfo  Level = 0  // General operational information
	LevelWarn  Level = 4  // Warning conditions
	LevelError Level = 8  // Error conditions
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LoggerProvider defines an interface for creating and configuring loggers.
type LoggerProvider interface {
	// GetLogger returns the default logger instance.
	GetLogger() Logger

	// GetLoggerWithName returns a logger with a specific name/component identifier.
	GetLoggerWithName(name string) Logger

	// SetLevel sets the minimum log level for all loggers created by this provider.
	SetLevel(level Level)
}
