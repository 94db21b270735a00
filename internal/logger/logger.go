package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Default rotation settings.
const (
	DefaultMaxSizeMB  = 10 // MB
	DefaultMaxBackups = 3  // number of backup files
	DefaultMaxAgeDays = 7  // days
)

// Config describes the daemon log destination. When File is empty the daemon
// logs to stderr only. Rotation parameters follow lumberjack semantics.
type Config struct {
	File       string `toml:"file" mapstructure:"file"`
	Level      string `toml:"level" mapstructure:"level"`
	MaxSizeMB  int    `toml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `toml:"compress" mapstructure:"compress"`
}

// Writer returns the rotating file writer, or nil when no file is configured.
func (c Config) Writer() io.WriteCloser {
	if c.File == "" {
		return nil
	}
	return &lj.Logger{
		Filename:   c.File,
		MaxSize:    valOr(c.MaxSizeMB, DefaultMaxSizeMB),
		MaxBackups: valOr(c.MaxBackups, DefaultMaxBackups),
		MaxAge:     valOr(c.MaxAgeDays, DefaultMaxAgeDays),
		Compress:   c.Compress,
	}
}

// New builds the slog logger for the process: colored text on stderr, plus
// the rotating file when configured.
func New(c Config) *slog.Logger {
	level := parseLevel(c.Level)
	opts := &slog.HandlerOptions{Level: level}
	if w := c.Writer(); w != nil {
		return slog.New(slog.NewTextHandler(io.MultiWriter(os.Stderr, w), opts))
	}
	return slog.New(NewColorTextHandler(os.Stderr, opts, true))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func valOr(v int, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
