// Package logx builds the structured zap logger shared by the CLI and
// the storage layer. Pass-boundary logging and the in-memory store's
// OCC-conflict messages are Debug-level. Pure predicate/term
// evaluation never logs (hot path).
package logx

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a logger at the named level ("debug", "info", "warn",
// "error"). jsonFormat selects JSON output over the console encoder.
func New(level string, jsonFormat bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("logx: bad level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	if !jsonFormat {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

// Nop returns a no-op logger for callers that do not care about output
// (library use, tests).
func Nop() *zap.Logger { return zap.NewNop() }
