// Package logging holds the process wide structured logger.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// L is the shared logger. It discards everything until Init is called.
var L *zap.SugaredLogger = zap.NewNop().Sugar()

// Init builds L. format "json" selects the production encoder, anything
// else the colored console encoder.
func Init(level, format string) error {
	var cfg zap.Config

	if strings.EqualFold(format, "json") {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", level, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	l, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	L = l.Sugar()
	return nil
}

// Sync flushes buffered log entries
func Sync() {
	if L == nil {
		return
	}
	_ = L.Sync()
}
