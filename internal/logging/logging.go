// Package logging provides the daemon's structured logger.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level mirrors the small set of verbosity tiers the daemon exposes to users.
type Level int

const (
	Silent Level = iota
	Basic
	Debug
)

func (l Level) String() string {
	switch l {
	case Silent:
		return "Silent"
	case Basic:
		return "Basic"
	case Debug:
		return "Debug"
	default:
		return "Unknown"
	}
}

// Logger wraps a *zap.Logger with the daemon's chosen console encoding,
// keeping structured fields available for anything that consumes the log
// machine-readably.
type Logger struct {
	z     *zap.Logger
	level Level
}

// New builds a console-encoded logger writing to stderr so stdout stays free
// for CLI command responses.
func New(level Level) *Logger {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	switch level {
	case Silent:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	case Debug:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	z, err := cfg.Build()
	if err != nil {
		// Fall back rather than ever leave the daemon without a logger.
		fmt.Fprintf(os.Stderr, "logging: falling back to production defaults: %v\n", err)
		z, _ = zap.NewProduction()
	}

	return &Logger{z: z, level: level}
}

func (l *Logger) Info(msg string, fields ...zap.Field)  { l.z.Info(msg, fields...) }
func (l *Logger) Debug(msg string, fields ...zap.Field) { l.z.Debug(msg, fields...) }
func (l *Logger) Warn(msg string, fields ...zap.Field)  { l.z.Warn(msg, fields...) }
func (l *Logger) Error(msg string, fields ...zap.Field) { l.z.Error(msg, fields...) }

// Fatal logs and terminates the process. Reserved for §7 FatalError paths.
func (l *Logger) Fatal(msg string, fields ...zap.Field) { l.z.Fatal(msg, fields...) }

// With returns a child logger carrying the given fields on every subsequent call.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{z: l.z.With(fields...), level: l.level}
}

// Sync flushes any buffered log entries; call on shutdown.
func (l *Logger) Sync() error {
	return l.z.Sync()
}
