package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"trident/pkg/config"
)

func TestLoggerJSONEntryShape(t *testing.T) {
	unsetLoggingEnv(t)

	var out bytes.Buffer
	log, err := NewWithWriter(config.LoggingConfig{Format: "json", Level: "info"}, &out)
	if err != nil {
		t.Fatalf("NewWithWriter error: %v", err)
	}

	log.With("component", "deliberation", "session_id", "abc").
		Info("Round completed", "round", 2, "label", "Deliberation", "error", errors.New("boom"))

	var entry LogEntry
	if err := json.Unmarshal([]byte(strings.TrimSpace(out.String())), &entry); err != nil {
		t.Fatalf("unmarshal log entry: %v", err)
	}

	if entry.Level != "info" {
		t.Fatalf("level = %q, want %q", entry.Level, "info")
	}
	if entry.Message != "Round completed" {
		t.Fatalf("message = %q, want %q", entry.Message, "Round completed")
	}
	if entry.Component != "deliberation" {
		t.Fatalf("component = %q, want %q", entry.Component, "deliberation")
	}
	if entry.SessionID != "abc" {
		t.Fatalf("session_id = %q, want %q", entry.SessionID, "abc")
	}
	if entry.Timestamp == "" {
		t.Fatal("expected timestamp")
	}
	if entry.Round != 2 {
		t.Fatalf("round = %d, want 2", entry.Round)
	}
	if _, ok := entry.Fields["round"]; ok {
		t.Fatalf("round should be lifted out of fields: %v", entry.Fields)
	}
	if got := entry.Fields["label"]; got != "Deliberation" {
		t.Fatalf("fields.label = %v, want Deliberation", got)
	}
	if got := entry.Fields["error"]; got != "boom" {
		t.Fatalf("fields.error = %v, want %q", got, "boom")
	}
}

func TestLoggerLiftsAgentAndKeepsMistypedKeysInFields(t *testing.T) {
	unsetLoggingEnv(t)

	var out bytes.Buffer
	log, err := NewWithWriter(config.LoggingConfig{Format: "json", Level: "debug"}, &out)
	if err != nil {
		t.Fatalf("NewWithWriter error: %v", err)
	}

	log.With("agent", "CASPER").Debug("Querying agent", "attempt", 1)
	log.Debug("Odd attrs", "round", "two", "agent", 7)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}

	var first, second LogEntry
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("unmarshal first entry: %v", err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("unmarshal second entry: %v", err)
	}

	if first.Agent != "CASPER" || first.Fields["attempt"] != float64(1) {
		t.Fatalf("first = %+v", first)
	}
	if second.Round != 0 || second.Agent != "" {
		t.Fatalf("second lifted mistyped attrs: %+v", second)
	}
	if second.Fields["round"] != "two" || second.Fields["agent"] != float64(7) {
		t.Fatalf("second fields = %v", second.Fields)
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	unsetLoggingEnv(t)

	var out bytes.Buffer
	log, err := NewWithWriter(config.LoggingConfig{Format: "json", Level: "error"}, &out)
	if err != nil {
		t.Fatalf("NewWithWriter error: %v", err)
	}

	log.Warn("Ignored")
	if got := strings.TrimSpace(out.String()); got != "" {
		t.Fatalf("expected no output for warn, got %q", got)
	}

	log.Error("Kept")
	if got := strings.TrimSpace(out.String()); got == "" {
		t.Fatal("expected output for error")
	}
}

func TestLoggerDefaultLevelIsWarn(t *testing.T) {
	unsetLoggingEnv(t)

	var out bytes.Buffer
	log, err := NewWithWriter(config.LoggingConfig{Format: "json"}, &out)
	if err != nil {
		t.Fatalf("NewWithWriter error: %v", err)
	}

	log.Info("Hidden")
	if got := strings.TrimSpace(out.String()); got != "" {
		t.Fatalf("expected info to be filtered by default, got %q", got)
	}
}

func TestLoggerEnvironmentOverrides(t *testing.T) {
	t.Setenv("TRIDENT_LOG_LEVEL", "debug")
	t.Setenv("TRIDENT_LOG_FORMAT", "text")
	t.Setenv("TRIDENT_LOG_ADD_SOURCE", "")

	var out bytes.Buffer
	log, err := NewWithWriter(config.LoggingConfig{Format: "json", Level: "error"}, &out)
	if err != nil {
		t.Fatalf("NewWithWriter error: %v", err)
	}

	log.Debug("Debug enabled", "component", "test")
	line := strings.TrimSpace(out.String())
	if line == "" {
		t.Fatal("expected debug output with env override")
	}
	if strings.HasPrefix(line, "{") {
		t.Fatalf("expected text format override, got %q", line)
	}
}

func TestLoggerRejectsUnknownSettings(t *testing.T) {
	unsetLoggingEnv(t)

	if _, err := NewWithWriter(config.LoggingConfig{Format: "xml"}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
	if _, err := NewWithWriter(config.LoggingConfig{Level: "loud"}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for unsupported level")
	}
}

func unsetLoggingEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TRIDENT_LOG_LEVEL", "")
	t.Setenv("TRIDENT_LOG_FORMAT", "")
	t.Setenv("TRIDENT_LOG_ADD_SOURCE", "")
}
