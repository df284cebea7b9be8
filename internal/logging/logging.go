// Package logging builds the process-wide structured logger.
package logging

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/jmlarson/venuefeed/internal/config"
)

// New creates a JSON slog.Logger from config. When a file is configured the
// output is rotated with lumberjack; Console additionally mirrors records to
// stderr. With no file configured, records go to stderr only.
func New(cfg config.LoggingConfig) *slog.Logger {
	var out io.Writer = os.Stderr

	if cfg.File != "" {
		fileLogger := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		if cfg.Console {
			out = io.MultiWriter(os.Stderr, fileLogger)
		} else {
			out = fileLogger
		}
	}

	opts := &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	}

	return slog.New(slog.NewJSONHandler(out, opts))
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
