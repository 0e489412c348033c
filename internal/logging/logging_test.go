package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestSetup_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "mediagrab.log")

	logger, closer, err := Setup(Options{Path: path, Level: "debug"})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	queueLogger := Component(logger, "queue")
	queueLogger.Debug().Int("items", 3).Msg("reloaded")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, data)
	}
	if entry["component"] != "queue" || entry["message"] != "reloaded" || entry["level"] != "debug" {
		t.Fatalf("entry = %v", entry)
	}
	if entry["items"] != float64(3) {
		t.Fatalf("items = %v, want 3", entry["items"])
	}
	if _, ok := entry["time"]; !ok {
		t.Fatalf("entry missing time: %v", entry)
	}
}

func TestSetup_LevelFilters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mediagrab.log")
	logger, closer, err := Setup(Options{Path: path, Level: "warn"})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")
	_ = closer.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if strings.Contains(string(data), "hidden") || !strings.Contains(string(data), "shown") {
		t.Fatalf("log contents = %q", data)
	}
}

func TestSetup_ConsoleWriter(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := Setup(Options{Console: &buf})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer closer.Close()

	logger.Info().Msg("hello console")
	if !strings.Contains(buf.String(), "hello console") {
		t.Fatalf("console output = %q", buf.String())
	}
}

func TestSetup_NoOutputsIsNop(t *testing.T) {
	logger, closer, err := Setup(Options{})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if logger.GetLevel() != zerolog.Disabled {
		t.Fatalf("level = %v, want disabled", logger.GetLevel())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zerolog.Level
		wantErr bool
	}{
		{"", zerolog.InfoLevel, false},
		{" DEBUG ", zerolog.DebugLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"loud", zerolog.InfoLevel, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseLevel(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
