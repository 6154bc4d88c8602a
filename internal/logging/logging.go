// Package logging wraps log/slog for romart. Lookup misses are logged at
// debug, so a normal run prints nothing unless --verbose is given.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config mirrors the logging section of the config file.
type Config struct {
	Format  string    // "text" (default) or "json"
	Level   string    // debug, info, warn, error; unknown values mean info
	Verbose bool      // forces debug regardless of Level
	Output  io.Writer // nil means stderr
}

var logger *slog.Logger

// Setup replaces the package logger and slog's default with one built from
// cfg, and returns it.
func Setup(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	level := parseLevel(cfg.Level)
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	logger = slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// Get returns the logger installed by Setup, or slog's default before that.
func Get() *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

func With(args ...any) *slog.Logger {
	return Get().With(args...)
}

// ForROM returns a logger tagged with the ROM path and, when known, its
// console short name.
func ForROM(path, console string) *slog.Logger {
	if console == "" {
		return With("rom", path)
	}
	return With("rom", path, "console", console)
}

func Debug(msg string, args ...any) { Get().Debug(msg, args...) }
func Info(msg string, args ...any)  { Get().Info(msg, args...) }
func Warn(msg string, args ...any)  { Get().Warn(msg, args...) }
func Error(msg string, args ...any) { Get().Error(msg, args...) }
