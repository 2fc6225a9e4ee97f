// Package ghostlog wires up the daemon's structured logging and the
// append-only logs/metrics.jsonl sink used for post-hoc audit.
package ghostlog

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls where logs land and how verbose they are.
type Config struct {
	// Level is one of: debug, info, warn, error.
	Level string
	// Console, when true, also writes human-readable logs to stderr.
	Console bool
	// MetricsPath is the logs/metrics.jsonl path (spec.md on-disk layout).
	MetricsPath string
	// MaxSizeMB / MaxAgeDays / MaxBackups bound the rotated metrics file.
	MaxSizeMB  int
	MaxAgeDays int
	MaxBackups int
}

// New builds the root logger. When MetricsPath is set, the returned logger
// writes JSON lines to it (rotated via lumberjack); Console additionally mirrors to stderr
// in a human-friendly form. Failure to create the metrics directory degrades to
// stderr-only logging with a warning, per spec.md §7's "persistence write
// failures are logged but do not abort" policy.
func New(cfg Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var writers []io.Writer

	var mkdirErr error
	if cfg.MetricsPath != "" {
		if dir := filepath.Dir(cfg.MetricsPath); dir != "." {
			mkdirErr = os.MkdirAll(dir, 0o755)
		}
		if mkdirErr == nil {
			writers = append(writers, &lumberjack.Logger{
				Filename:   cfg.MetricsPath,
				MaxSize:    maxOr(cfg.MaxSizeMB, 50),
				MaxAge:     maxOr(cfg.MaxAgeDays, 14),
				MaxBackups: maxOr(cfg.MaxBackups, 5),
				Compress:   true,
			})
		}
	}

	if cfg.Console || len(writers) == 0 {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	var out io.Writer
	if len(writers) == 1 {
		out = writers[0]
	} else {
		out = zerolog.MultiLevelWriter(writers...)
	}

	logger := zerolog.New(out).Level(level).With().Timestamp().Logger()
	if mkdirErr != nil {
		logger.Warn().Err(mkdirErr).Str("path", cfg.MetricsPath).Msg("metrics directory unavailable; logging to stderr only")
	}
	return logger
}

func maxOr(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
