// Package logging configures the process-wide slog handler.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
)

const (
	EnvLogLevel     = "LINUDS_LOG_LEVEL"
	EnvLogFormat    = "LINUDS_LOG_FORMAT"
	EnvLogAddSource = "LINUDS_LOG_SOURCE"
)

type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileTest
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Config selects the handler installed as the slog default.
type Config struct {
	Level     slog.Level
	Format    Format
	AddSource bool
	Output    io.Writer
}

var configureOnce sync.Once

func ConfigureRuntime() {
	Configure(ProfileRuntime)
}

func ConfigureTests() {
	Configure(ProfileTest)
}

// Configure installs the default logger for profile once per process.
func Configure(profile Profile) {
	configureOnce.Do(func() {
		cfg := DefaultConfig(profile)
		ApplyEnvOverrides(&cfg)
		slog.SetDefault(New(cfg))
	})
}

func DefaultConfig(profile Profile) Config {
	cfg := Config{Format: FormatText, Output: os.Stderr}
	switch profile {
	case ProfileTest:
		cfg.Level = slog.LevelDebug
	default:
		cfg.Level = slog.LevelInfo
	}
	return cfg
}

// New builds a logger from cfg without touching the default.
func New(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: cfg.Level, AddSource: cfg.AddSource}

	if cfg.Format == FormatJSON {
		return slog.New(slog.NewJSONHandler(out, opts))
	}
	return slog.New(slog.NewTextHandler(out, opts))
}

func ApplyEnvOverrides(cfg *Config) {
	if lvl, ok := ParseLevel(os.Getenv(EnvLogLevel)); ok {
		cfg.Level = lvl
	}
	if f, ok := parseFormat(os.Getenv(EnvLogFormat)); ok {
		cfg.Format = f
	}
	if v, ok := parseBool(os.Getenv(EnvLogAddSource)); ok {
		cfg.AddSource = v
	}
}

// ParseLevel accepts the usual level names. "off" maps to a level above error.
func ParseLevel(raw string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return slog.LevelInfo, false
	case "debug", "trace":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	case "disabled", "off", "none":
		return slog.LevelError + 4, true
	default:
		return slog.LevelInfo, false
	}
}

func parseFormat(raw string) (Format, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "text", "console":
		return FormatText, true
	case "json":
		return FormatJSON, true
	default:
		return "", false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
