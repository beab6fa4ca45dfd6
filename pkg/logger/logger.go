// Package logger builds the zap.SugaredLogger used throughout iidformat.
// Every component that logs — storage, index, engine, writer — takes one of
// these in its Config rather than constructing its own, so a caller embedding
// the library gets one consistent log stream tagged with the component name.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production-configured SugaredLogger tagged with service (the
// component name, e.g. "storage" or "engine"), used as the "component" field
// on every entry it emits.
func New(service string) *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	log, err := cfg.Build()
	if err != nil {
		// zap's production config only fails to build on a malformed encoder
		// config, which is a programming error, not a runtime condition.
		panic("logger: failed to build zap logger: " + err.Error())
	}
	return log.Sugar().With("component", service)
}

// Nop returns a logger that discards everything, for use in tests and other
// contexts where log output is not wanted.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
