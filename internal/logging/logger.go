package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"stemdeck/internal/config"
)

// Options describes logger construction parameters.
type Options struct {
	Level  string
	Format string
	// Console receives output in Format. Nil disables console output, which
	// the terminal player relies on.
	Console io.Writer
	// FilePath enables a rotating JSON log file.
	FilePath    string
	MaxSizeMB   int
	MaxBackups  int
	MaxAgeDays  int
	Development bool
	// Hub, when set, receives every record for in-app display.
	Hub *StreamHub
}

// New constructs a slog logger using the provided options. The returned closer
// releases the rotating file and must be called on shutdown.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}
	levelVar := new(slog.LevelVar)
	levelVar.Set(level)

	addSource := opts.Development || level <= slog.LevelDebug

	var handlers []slog.Handler
	if opts.Console != nil {
		switch format := strings.ToLower(strings.TrimSpace(opts.Format)); format {
		case "json":
			handlers = append(handlers, newJSONHandler(opts.Console, levelVar, addSource))
		case "console", "":
			handlers = append(handlers, newPrettyHandler(opts.Console, levelVar, addSource))
		default:
			return nil, nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
		}
	}

	var closer io.Closer = nopCloser{}
	if path := strings.TrimSpace(opts.FilePath); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("ensure log directory: %w", err)
		}
		rotator := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
		}
		handlers = append(handlers, newJSONHandler(rotator, levelVar, addSource))
		closer = rotator
	}

	handler := newFanoutHandler(handlers...)
	if opts.Hub != nil {
		handler = newStreamHandler(handler, opts.Hub)
	}

	return slog.New(handler), closer, nil
}

// NewFromConfig creates a logger using application config. Console output goes
// to console (nil for file-only logging).
func NewFromConfig(cfg *config.Config, console io.Writer, hub *StreamHub) (*slog.Logger, io.Closer, error) {
	if cfg == nil {
		return New(Options{Level: "info", Format: "console", Console: console, Hub: hub})
	}
	return New(Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Console:    console,
		FilePath:   cfg.LogFilePath(),
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Hub:        hub,
	})
}

// ParseLevel maps a config level name onto a slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log level: unsupported value %q", level)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
