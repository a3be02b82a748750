package logging

import (
	"testing"

	"github.com/danilgotvyansky/cpanel-exporter/internal/config"

	"go.uber.org/zap/zapcore"
)

func TestNew_AppliesLevel(t *testing.T) {
	cfg := config.New()
	cfg.Logging.Level = "warn"
	cfg.Logging.Format = "console"

	logger, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer logger.Sync()

	if logger.Core().Enabled(zapcore.InfoLevel) {
		t.Fatalf("info should be disabled at warn level")
	}
	if !logger.Core().Enabled(zapcore.WarnLevel) {
		t.Fatalf("warn should be enabled at warn level")
	}
}

func TestNew_RejectsUnknownLevel(t *testing.T) {
	cfg := config.New()
	cfg.Logging.Level = "chatty"

	if _, err := New(cfg); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestNew_RejectsUnknownFormat(t *testing.T) {
	cfg := config.New()
	cfg.Logging.Format = "logfmt"

	if _, err := New(cfg); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}
