package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		raw  string
		want slog.Level
		ok   bool
	}{
		{raw: "", want: slog.LevelInfo, ok: false},
		{raw: "DEBUG", want: slog.LevelDebug, ok: true},
		{raw: " warning ", want: slog.LevelWarn, ok: true},
		{raw: "off", want: slog.LevelError + 4, ok: true},
		{raw: "loud", want: slog.LevelInfo, ok: false},
	}
	for _, tt := range tests {
		got, ok := ParseLevel(tt.raw)
		if got != tt.want || ok != tt.ok {
			t.Fatalf("ParseLevel(%q) = %v, %v; want %v, %v", tt.raw, got, ok, tt.want, tt.ok)
		}
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvLogAddSource, "true")

	cfg := DefaultConfig(ProfileRuntime)
	ApplyEnvOverrides(&cfg)

	if cfg.Level != slog.LevelError || cfg.Format != FormatJSON || !cfg.AddSource {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestInvalidEnvIgnored(t *testing.T) {
	t.Setenv(EnvLogLevel, "chatty")
	t.Setenv(EnvLogFormat, "xml")
	t.Setenv(EnvLogAddSource, "maybe")

	cfg := DefaultConfig(ProfileTest)
	ApplyEnvOverrides(&cfg)

	if cfg.Level != slog.LevelDebug || cfg.Format != FormatText || cfg.AddSource {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: FormatJSON, Output: &buf})

	logger.Debug("hidden")
	logger.Info("exchange", slog.String("service", "ReadDataByIdentifier"))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug record written at info level: %s", out)
	}
	if !strings.Contains(out, `"service":"ReadDataByIdentifier"`) {
		t.Fatalf("unexpected output: %s", out)
	}
}
