// Package obs is the ambient structured-logging entry point cmd/novac
// wires through every other component's constructor (internal/rc's
// collector, internal/async's executor, internal/vm's
// NewWithLogger/NewWithLimits). Builds a *zap.Logger from
// zap.NewProductionConfig and bumps it to debug level under a
// --verbose flag.
package obs

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production-shaped JSON logger, switched to debug level
// when verbose is true — the same two-state knob cmd/nerd exposes via
// its own --verbose flag.
func New(verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("obs: building logger: %w", err)
	}
	return logger, nil
}

// NewNop returns a logger that discards everything, for tests and any
// call site that has not opted into structured logging.
func NewNop() *zap.Logger { return zap.NewNop() }
