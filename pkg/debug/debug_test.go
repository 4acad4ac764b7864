package debug

import (
	"bytes"
	"strings"
	"testing"

	"github.com/teslashibe/go-rover/pkg/navigation"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevOut, prevEnabled, prevCandidates := Output, Enabled, Candidates
	Output = &buf
	t.Cleanup(func() {
		Output, Enabled, Candidates = prevOut, prevEnabled, prevCandidates
	})
	return &buf
}

func TestLog(t *testing.T) {
	buf := capture(t)

	Enabled = false
	Log("hidden %d\n", 1)
	if buf.Len() != 0 {
		t.Fatalf("wrote %q while disabled", buf.String())
	}

	Enabled = true
	Log("shown %d\n", 2)
	if got := buf.String(); got != "shown 2\n" {
		t.Errorf("got %q", got)
	}
}

func TestReports(t *testing.T) {
	buf := capture(t)
	reports := []navigation.Report{
		{Index: 0, Box: navigation.Box{X: 0, Y: 0, Width: 40, Height: 80, Confidence: 0.9}, Angle: -27, Movement: navigation.MoveAdvance, Distance: navigation.DistanceFar},
		{Index: 2, Box: navigation.Box{X: 200, Y: 0, Width: 40, Height: 80, Confidence: 0.7}, Distance: navigation.DistanceOptimal},
	}

	Candidates = false
	Reports(reports)
	if buf.Len() != 0 {
		t.Fatalf("wrote %q with candidates off", buf.String())
	}

	Candidates = true
	Reports(reports)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "center=(20,40)") || !strings.Contains(lines[0], `far/"avance"`) {
		t.Errorf("line 1 = %q", lines[0])
	}
	if !strings.Contains(lines[1], "(box 2)") || !strings.Contains(lines[1], `optimal/""`) {
		t.Errorf("line 2 = %q", lines[1])
	}
}
