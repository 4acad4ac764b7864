package navigation

import (
	"fmt"
	"math"
	"strings"
)

// FrameSpace names the coordinate space a frame's pixels live in.
type FrameSpace int

const (
	// SpaceDetector is the normalized (letterboxed/resized) frame fed to the detector.
	SpaceDetector FrameSpace = iota
	// SpaceCapture is the raw camera capture, before any resizing.
	SpaceCapture
)

// String returns the config token for the space.
func (s FrameSpace) String() string {
	switch s {
	case SpaceDetector:
		return "detector"
	case SpaceCapture:
		return "capture"
	default:
		return fmt.Sprintf("FrameSpace(%d)", int(s))
	}
}

// ParseFrameSpace converts a config token into a FrameSpace.
func ParseFrameSpace(value string) (FrameSpace, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "detector", "normalized":
		return SpaceDetector, nil
	case "capture", "raw":
		return SpaceCapture, nil
	default:
		return SpaceDetector, fmt.Errorf("unknown frame space %q", value)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s FrameSpace) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *FrameSpace) UnmarshalText(b []byte) error {
	parsed, err := ParseFrameSpace(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// FrameGeometry is the pixel size of the frame the boxes were computed against.
type FrameGeometry struct {
	Width  int        `json:"width"`
	Height int        `json:"height"`
	Space  FrameSpace `json:"space"`
}

// Area returns the frame area in pixels.
func (f FrameGeometry) Area() int {
	return f.Width * f.Height
}

// CenterX returns the horizontal center of the frame (integer pixels).
func (f FrameGeometry) CenterX() int {
	return f.Width / 2
}

// Box is a detected object in pixel coordinates of a FrameGeometry.
type Box struct {
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
}

// Area returns the box area in pixels.
func (b Box) Area() int {
	return b.Width * b.Height
}

// Center returns the box center, rounded down to whole pixels.
func (b Box) Center() (x, y int) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

// Snapshot binds a set of boxes to the frame they were detected in.
// The only way to obtain a usable Snapshot is NewSnapshot, which checks that
// every box lies inside the frame; the zero value is rejected by Translate.
type Snapshot struct {
	frame FrameGeometry
	boxes []Box
	valid bool
}

// NewSnapshot validates frame and boxes and returns a Snapshot owning a copy
// of the boxes. Out-of-frame boxes are an error, never clamped.
func NewSnapshot(frame FrameGeometry, boxes []Box) (Snapshot, error) {
	if err := validateFrame(frame); err != nil {
		return Snapshot{}, err
	}
	for i, b := range boxes {
		if err := validateBox(i, b, frame); err != nil {
			return Snapshot{}, err
		}
	}

	owned := make([]Box, len(boxes))
	copy(owned, boxes)
	return Snapshot{frame: frame, boxes: owned, valid: true}, nil
}

// Frame returns the snapshot's frame geometry.
func (s Snapshot) Frame() FrameGeometry {
	return s.frame
}

// Boxes returns a copy of the snapshot's boxes in detector order.
func (s Snapshot) Boxes() []Box {
	out := make([]Box, len(s.boxes))
	copy(out, s.boxes)
	return out
}

func validateFrame(f FrameGeometry) error {
	if f.Width <= 0 {
		return frameError("frame.width", fmt.Sprintf("must be positive, got %d", f.Width))
	}
	if f.Height <= 0 {
		return frameError("frame.height", fmt.Sprintf("must be positive, got %d", f.Height))
	}
	// Bearing divides by the frame center; a 1px frame has center 0.
	if f.CenterX() == 0 {
		return frameError("frame.width", "frame center is zero")
	}
	if f.Width > math.MaxInt/f.Height {
		return frameError("frame.width", fmt.Sprintf("%dx%d area overflows", f.Width, f.Height))
	}
	if f.Space != SpaceDetector && f.Space != SpaceCapture {
		return frameError("frame.space", fmt.Sprintf("unknown space %d", int(f.Space)))
	}
	return nil
}

func validateBox(i int, b Box, f FrameGeometry) error {
	if math.IsNaN(b.Confidence) || b.Confidence <= 0 || b.Confidence > 1 {
		return boxError(i, "box.confidence", fmt.Sprintf("%v outside (0, 1]", b.Confidence))
	}
	if b.Width <= 0 || b.Height <= 0 {
		return boxError(i, "box.size", fmt.Sprintf("%dx%d is not positive", b.Width, b.Height))
	}
	// Compared without adding so huge sizes cannot wrap around.
	if b.X < 0 || b.X > f.Width || b.Width > f.Width-b.X {
		return boxError(i, "box.x", fmt.Sprintf("x=%d width=%d outside frame width %d", b.X, b.Width, f.Width))
	}
	if b.Y < 0 || b.Y > f.Height || b.Height > f.Height-b.Y {
		return boxError(i, "box.y", fmt.Sprintf("y=%d height=%d outside frame height %d", b.Y, b.Height, f.Height))
	}
	return nil
}
