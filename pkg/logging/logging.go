// Package logging builds the structured logger shared by the CLI driver and
// its subsystems.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a SugaredLogger writing human-readable console output to stderr.
// verbose enables debug-level output; quiet suppresses everything but warnings
// and above.
func New(verbose, quiet bool) (*zap.SugaredLogger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.TimeKey = "" // timing comes from the measurement record, not the log line

	switch {
	case quiet:
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case verbose:
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("logging: build logger: %w", err)
	}
	return l.Sugar(), nil
}

// Context tags a logger with the identifying fields of one measurement run:
// language, scenario, test, execution mode, and the child's scheduling
// parameters. Every log line emitted while processing a test should come
// from a logger built with Context so operators can grep a single run out
// of a multi-scenario batch.
func Context(l *zap.SugaredLogger, language, scenario, test, mode string, niceness int, affinity string) *zap.SugaredLogger {
	return l.With(
		"language", language,
		"scenario", scenario,
		"test", test,
		"mode", mode,
		"niceness", niceness,
		"affinity", affinity,
	)
}
