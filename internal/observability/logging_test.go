package observability

import (
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/spec-kit/agency-dashboard/internal/config"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name  string
		cfg   config.LoggerConfig
		level zapcore.Level
	}{
		{name: "debug", cfg: config.LoggerConfig{Level: "DEBUG"}, level: zapcore.DebugLevel},
		{name: "unknown level falls back to info", cfg: config.LoggerConfig{Level: "chatty"}, level: zapcore.InfoLevel},
		{name: "console encoding in production", cfg: config.LoggerConfig{Level: "warn", Encoding: "console", Env: "production", Service: "dash"}, level: zapcore.WarnLevel},
		{name: "unknown encoding", cfg: config.LoggerConfig{Level: "error", Encoding: "xml"}, level: zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.cfg)
			if err != nil {
				t.Fatalf("NewLogger failed: %v", err)
			}
			if !logger.Core().Enabled(tt.level) {
				t.Errorf("expected %s enabled", tt.level)
			}
			if tt.level > zapcore.DebugLevel && logger.Core().Enabled(tt.level-1) {
				t.Errorf("expected %s disabled", tt.level-1)
			}
		})
	}
}
