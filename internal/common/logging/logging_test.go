package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  Level
	}{
		{"DEBUG", DebugLevel},
		{"debug", DebugLevel},
		{"INFO", InfoLevel},
		{"WARN", WarnLevel},
		{"WARNING", WarnLevel},
		{"ERROR", ErrorLevel},
		{"bogus", InfoLevel},
		{"", InfoLevel},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestLevelString(t *testing.T) {
	if DebugLevel.String() != "DEBUG" {
		t.Errorf("DebugLevel.String() = %q", DebugLevel.String())
	}
	if Level(99).String() != "UNKNOWN" {
		t.Errorf("Level(99).String() = %q", Level(99).String())
	}
}

func TestZapLoggerWritesToOutput(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewZapLogger(Config{Level: DebugLevel, Output: &buf})
	if err != nil {
		t.Fatalf("NewZapLogger() error = %v", err)
	}

	logger.Info("recipe executed", Field{"recipe_id", 7})

	out := buf.String()
	if !strings.Contains(out, "recipe executed") {
		t.Errorf("output missing message: %q", out)
	}
	if !strings.Contains(out, "recipe_id") {
		t.Errorf("output missing field: %q", out)
	}
}

func TestZapLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewZapLogger(Config{Level: WarnLevel, Output: &buf})
	if err != nil {
		t.Fatalf("NewZapLogger() error = %v", err)
	}

	logger.Debug("should not appear")
	logger.Info("should not appear either")
	logger.Warn("visible warning")

	out := buf.String()
	if strings.Contains(out, "should not appear") {
		t.Errorf("debug/info leaked through warn filter: %q", out)
	}
	if !strings.Contains(out, "visible warning") {
		t.Errorf("warn message missing: %q", out)
	}
}

func TestZapLoggerErrorField(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewZapLogger(Config{Level: DebugLevel, Output: &buf})
	if err != nil {
		t.Fatalf("NewZapLogger() error = %v", err)
	}

	logger.Error("action failed", errors.New("boom"))

	if !strings.Contains(buf.String(), "boom") {
		t.Errorf("error cause missing from output: %q", buf.String())
	}
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewZapLogger(Config{Level: DebugLevel, Output: &buf})
	if err != nil {
		t.Fatalf("NewZapLogger() error = %v", err)
	}

	child := logger.WithFields(Field{"channel", "clock"})
	child.Info("beat")

	if !strings.Contains(buf.String(), "clock") {
		t.Errorf("inherited field missing: %q", buf.String())
	}
}

func TestGlobalLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewZapLogger(Config{Level: DebugLevel, Output: &buf})
	if err != nil {
		t.Fatalf("NewZapLogger() error = %v", err)
	}

	prev := GetGlobalLogger()
	SetGlobalLogger(logger)
	defer SetGlobalLogger(prev)

	Info("global message")
	if !strings.Contains(buf.String(), "global message") {
		t.Errorf("global logger did not write: %q", buf.String())
	}
}
