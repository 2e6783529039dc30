// Package logging builds the slog logger used across tdscan, backed by zap.
package logging

import (
	"fmt"
	"log/slog"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

// Options selects level and encoding
type Options struct {
	Level  string // debug, info, warn, error
	Format string // console, json
}

// New returns a slog logger writing to stderr and its flush function
func New(opts Options) (*slog.Logger, func() error, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(orDefault(opts.Level, "warn"))))
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
	}

	var config zap.Config
	switch strings.ToLower(orDefault(opts.Format, "console")) {
	case "json":
		config = zap.NewProductionConfig()
	case "console":
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		config.DisableStacktrace = true
	default:
		return nil, nil, fmt.Errorf("invalid log format %q (expected console or json)", opts.Format)
	}
	config.Level = zap.NewAtomicLevelAt(level)
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}

	zapLogger, err := config.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("build logger: %w", err)
	}

	return slog.New(zapslog.NewHandler(zapLogger.Core())), zapLogger.Sync, nil
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
