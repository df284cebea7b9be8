package logging

import (
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/jmlarson/venuefeed/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"garbage", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNew_StderrOnly(t *testing.T) {
	logger := New(config.LoggingConfig{Level: "info"})
	if logger == nil {
		t.Fatal("New returned nil")
	}
	logger.Info("smoke")
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedd.log")
	logger := New(config.LoggingConfig{
		Level:      "debug",
		File:       path,
		MaxSizeMB:  1,
		MaxBackups: 1,
		MaxAgeDays: 1,
	})
	logger.Debug("smoke", "k", "v")
}
