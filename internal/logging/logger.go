// Package logging wires the process-wide structured logger.
package logging

import (
	"go.uber.org/zap"
)

// Log is the package-level sugared logger used by every component.
// It is nil until Init is called; callers that may run before Init (tests,
// early constructors) must guard with a nil check.
var Log *zap.SugaredLogger

// Init builds the global logger. development selects human-readable console
// output with debug level; otherwise JSON production output at info level.
func Init(development bool) error {
	configs := map[bool]func() zap.Config{
		true:  zap.NewDevelopmentConfig,
		false: zap.NewProductionConfig,
	}
	cfg := configs[development]()
	cfg.Sampling = &zap.SamplingConfig{
		Initial:    100,
		Thereafter: 100,
	}

	built, err := cfg.Build()
	if err != nil {
		return err
	}

	Log = built.Sugar()
	return nil
}

// Sync flushes any buffered log entries. Call on shutdown.
func Sync() {
	if Log != nil {
		_ = Log.Sync()
	}
}

// With returns a child logger with fields attached, or nil if Init hasn't run.
func With(fields map[string]interface{}) *zap.SugaredLogger {
	if Log == nil {
		return nil
	}
	kv := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		kv = append(kv, k, v)
	}
	return Log.With(kv...)
}
