// Package logging builds the zap logger shared by every exporter component.
package logging

import (
	"fmt"
	"strings"

	"github.com/danilgotvyansky/cpanel-exporter/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap logger from the logging section of the configuration.
// The json format uses the production encoder config, console uses the development one.
func New(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("logging.level: %w", err)
	}

	var zapConfig zap.Config
	switch strings.ToLower(cfg.Logging.Format) {
	case "console":
		zapConfig = zap.NewDevelopmentConfig()
	case "json", "":
		zapConfig = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("logging.format: unsupported format %q", cfg.Logging.Format)
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger.Named("cpanel_exporter"), nil
}
