package detection

import (
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/teslashibe/go-rover/pkg/navigation"
)

func det(class string, conf float64, x, y, w, h int) Detection {
	return Detection{Class: class, Confidence: conf, Box: image.Rect(x, y, x+w, y+h)}
}

func TestDetection_Center(t *testing.T) {
	tests := []struct {
		name   string
		det    Detection
		expect image.Point
	}{
		{"origin box", det("person", 0.9, 0, 0, 20, 20), image.Pt(10, 10)},
		{"odd width rounds down", det("person", 0.9, 10, 10, 5, 7), image.Pt(12, 13)},
		{"bottom right", det("person", 0.9, 380, 380, 36, 36), image.Pt(398, 398)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.det.Center(); got != tc.expect {
				t.Errorf("Center: got %v, want %v", got, tc.expect)
			}
		})
	}
}

func TestDetection_NavBox(t *testing.T) {
	d := det("person", 0.8, 280, 150, 80, 180)
	want := navigation.Box{X: 280, Y: 150, Width: 80, Height: 180, Class: "person", Confidence: 0.8}

	if diff := cmp.Diff(want, d.NavBox()); diff != "" {
		t.Errorf("NavBox mismatch (-want +got):\n%s", diff)
	}
	if d.Area() != 14400 {
		t.Errorf("Area: got %d, want 14400", d.Area())
	}
}

func TestGate(t *testing.T) {
	dets := []Detection{
		det("person", 0.5, 0, 0, 10, 10),
		det("person", 0.51, 0, 0, 10, 10),
		det("chair", 0.9, 0, 0, 10, 10),
		det("person", 0.95, 0, 0, 10, 10),
	}

	t.Run("person only", func(t *testing.T) {
		got := Gate(dets, 0.5, "person")
		if len(got) != 2 || got[0].Confidence != 0.51 || got[1].Confidence != 0.95 {
			t.Errorf("Gate: got %+v", got)
		}
	})

	t.Run("all classes", func(t *testing.T) {
		if got := Gate(dets, 0.5, ""); len(got) != 3 {
			t.Errorf("Gate: expected 3 detections, got %d", len(got))
		}
	})
}

func TestFrame_Snapshot(t *testing.T) {
	f := Frame{
		Width:  416,
		Height: 416,
		Space:  navigation.SpaceDetector,
		Detections: []Detection{
			det("person", 0.9, 10, 10, 100, 200),
			det("dog", 0.7, 300, 300, 50, 50),
		},
	}

	s, err := f.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if n := len(s.Boxes()); n != 2 {
		t.Errorf("expected 2 boxes, got %d", n)
	}
	if s.Frame() != f.Geometry() {
		t.Errorf("geometry mismatch: %+v vs %+v", s.Frame(), f.Geometry())
	}
	if len(f.People()) != 1 {
		t.Errorf("expected 1 person, got %d", len(f.People()))
	}
}

func TestFrame_SnapshotRejectsOutOfFrame(t *testing.T) {
	f := Frame{Width: 100, Height: 100, Detections: []Detection{det("person", 0.9, 90, 0, 20, 20)}}

	if _, err := f.Snapshot(); !errors.Is(err, navigation.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestClipToFrame(t *testing.T) {
	got := ClipToFrame(image.Rect(-5, 10, 120, 90), 100, 80)
	if want := image.Rect(0, 10, 100, 80); got != want {
		t.Errorf("ClipToFrame: got %v, want %v", got, want)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.ModelPath == "" {
		t.Error("DefaultConfig: ModelPath should not be empty")
	}
	if cfg.ConfidenceThresh <= 0 || cfg.ConfidenceThresh > 1 {
		t.Errorf("DefaultConfig: ConfidenceThresh should be 0-1, got %f", cfg.ConfidenceThresh)
	}
	if cfg.InputWidth <= 0 || cfg.InputHeight <= 0 {
		t.Errorf("DefaultConfig: input size should be positive, got %dx%d", cfg.InputWidth, cfg.InputHeight)
	}
	if cfg.Space() != navigation.SpaceDetector {
		t.Errorf("letterboxed config should report detector space, got %v", cfg.Space())
	}

	cfg.Letterbox = false
	if cfg.Space() != navigation.SpaceCapture {
		t.Errorf("raw config should report capture space, got %v", cfg.Space())
	}
}

func TestNewYOLO_InvalidPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ModelPath = "/nonexistent/yolov4.weights"

	if _, err := NewYOLO(cfg); err == nil {
		t.Error("NewYOLO: expected error for missing model")
	}
}

func TestLoadLabels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coco.names")
	if err := os.WriteFile(path, []byte("person\nbicycle\n\ncar\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	labels, err := LoadLabels(path)
	if err != nil {
		t.Fatalf("LoadLabels: %v", err)
	}
	if diff := cmp.Diff([]string{"person", "bicycle", "car"}, labels); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}
}
