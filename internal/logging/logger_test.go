package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestTextRenamesErrorKey(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWriter(&buf, "info", "text")
	if err != nil {
		t.Fatal(err)
	}
	log.Info("write failed", "error", errors.New("boom"))

	out := buf.String()
	if !strings.Contains(out, "err=boom") {
		t.Errorf("output = %q, want err=boom", out)
	}
	if strings.Contains(out, "error=") {
		t.Errorf("output = %q still has error key", out)
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWriter(&buf, "debug", "json")
	if err != nil {
		t.Fatal(err)
	}
	log.Debug("cell written", "id", "count")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if rec["msg"] != "cell written" || rec["id"] != "count" {
		t.Errorf("record = %v", rec)
	}
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWriter(&buf, "warn", "text")
	if err != nil {
		t.Fatal(err)
	}
	log.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("info logged at warn level: %q", buf.String())
	}
}

func TestUnknownFormat(t *testing.T) {
	if _, err := New("info", "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestNewNop(t *testing.T) {
	NewNop().Error("discarded")
}
