// Package logging builds the zap logger from configuration.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ersonp/termgraph/internal/infrastructure/config"
)

// Formats accepted by LoggingConfig.Format.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// New builds a logger writing to stderr so command output on stdout stays
// clean. Console format uses the development encoder, json the production one.
func New(cfg config.LoggingConfig) (*zap.Logger, error) {
	level := zapcore.WarnLevel
	if cfg.Level != "" {
		parsed, err := zapcore.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = parsed
	}

	var zc zap.Config
	switch strings.ToLower(cfg.Format) {
	case "", FormatConsole:
		zc = zap.NewDevelopmentConfig()
		zc.DisableStacktrace = true
	case FormatJSON:
		zc = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("invalid log format %q (valid: %s, %s)", cfg.Format, FormatConsole, FormatJSON)
	}

	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger.Named("termgraph"), nil
}
