package logger

import (
	"io"
	"log/slog"
	"strings"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Default logging configuration constants
const (
	DefaultMaxSizeMB  = 10 // MB
	DefaultMaxBackups = 3  // number of backup files
	DefaultMaxAgeDays = 7  // days
)

// SlogConfig controls the handler built by NewSlogger.
type SlogConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // text or json
	Color      bool   `mapstructure:"color"`
	TimeStamps bool   `mapstructure:"timestamps"`
	Source     bool   `mapstructure:"source"`
}

// FileConfig mirrors log output into a rotated file. An empty Path disables it.
// Rotation parameters follow lumberjack semantics.
type FileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`  // megabytes before rotation (default 10)
	MaxBackups int    `mapstructure:"max_backups"`  // number of backups to keep (default 3)
	MaxAgeDays int    `mapstructure:"max_age_days"` // days to keep (default 7)
	Compress   bool   `mapstructure:"compress"`     // Gzip rotated files
}

type Config struct {
	Slog SlogConfig `mapstructure:",squash"`
	File FileConfig `mapstructure:"file"`
}

// Writer returns the rotating file writer, or nil when no path is configured.
func (c FileConfig) Writer() io.WriteCloser {
	if strings.TrimSpace(c.Path) == "" {
		return nil
	}
	return &lj.Logger{
		Filename:   c.Path,
		MaxSize:    valOr(c.MaxSizeMB, DefaultMaxSizeMB),
		MaxBackups: valOr(c.MaxBackups, DefaultMaxBackups),
		MaxAge:     valOr(c.MaxAgeDays, DefaultMaxAgeDays),
		Compress:   c.Compress,
	}
}

// ParseLevel maps a level name to slog.Level. Unknown names mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// NewSlogger builds a logger writing to console (never stdout: the MCP
// transport owns it) and, when configured, to a rotated file. The returned
// closer releases the file and is never nil.
func NewSlogger(cfg Config, console io.Writer) (*slog.Logger, io.Closer) {
	opts := &slog.HandlerOptions{
		Level:     ParseLevel(cfg.Slog.Level),
		AddSource: cfg.Slog.Source,
	}
	if !cfg.Slog.TimeStamps {
		opts.ReplaceAttr = dropTime
	}

	var closer io.Closer = nopCloser{}
	w := console
	fw := cfg.File.Writer()
	if fw != nil {
		closer = fw
		if w == nil {
			w = fw
		} else {
			w = io.MultiWriter(console, fw)
		}
	}
	if w == nil {
		w = io.Discard
	}

	var h slog.Handler
	switch {
	case strings.EqualFold(cfg.Slog.Format, "json"):
		h = slog.NewJSONHandler(w, opts)
	case cfg.Slog.Color && fw == nil:
		// colour codes would end up in the log file
		h = NewColorTextHandler(w, opts, cfg.Slog.TimeStamps)
	default:
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h), closer
}

func dropTime(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == slog.TimeKey {
		return slog.Attr{}
	}
	return a
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func valOr(v int, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
