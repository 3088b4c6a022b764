// Package logging builds the process-wide *zap.Logger from LOG_LEVEL,
// generalizing the teacher's plain log.Printf calls into structured logging
// per the ambient stack adopted from yungbote-neurobridge-backend.
package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New constructs a logger at the given level ("debug", "info", "warn",
// "error"; unrecognized values default to "info"). Callers construct this
// once at startup and pass it down explicitly, never reaching for a package
// global, per Design Note "Global mutable state".
func New(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
