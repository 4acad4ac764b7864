package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in     string
		expect slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tc := range tests {
		if got := ParseLevel(tc.in); got != tc.expect {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.expect)
		}
	}
}

func TestNew_FiltersBelowLevel(t *testing.T) {
	t.Setenv("GO_ENV", "development")

	var buf bytes.Buffer
	l := New(&buf, "warn")

	l.Info("hidden")
	l.Warn("shown", "angle", -12.5)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line should be filtered: %s", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "angle=-12.5") {
		t.Errorf("warn line missing: %s", out)
	}
}
