// Package detection finds people (and other COCO objects) in camera frames
// and hands them to the navigation translator.
package detection

import (
	"image"

	"github.com/teslashibe/go-rover/pkg/navigation"
)

// Detection is one object that survived gating and overlap suppression.
// Box is in pixel coordinates of the frame the detector ran on.
type Detection struct {
	Class      string          `json:"class"`
	Confidence float64         `json:"confidence"`
	Box        image.Rectangle `json:"-"`
}

// Center returns the center of the bounding box
func (d Detection) Center() image.Point {
	return image.Pt(d.Box.Min.X+d.Box.Dx()/2, d.Box.Min.Y+d.Box.Dy()/2)
}

// Area returns the area of the bounding box in pixels
func (d Detection) Area() int {
	return d.Box.Dx() * d.Box.Dy()
}

// NavBox converts the detection into a translator box.
func (d Detection) NavBox() navigation.Box {
	return navigation.Box{
		X:          d.Box.Min.X,
		Y:          d.Box.Min.Y,
		Width:      d.Box.Dx(),
		Height:     d.Box.Dy(),
		Class:      d.Class,
		Confidence: d.Confidence,
	}
}

// Frame is the output of one detector pass: the geometry of the frame the
// detector actually saw, plus its detections in that frame's coordinates.
type Frame struct {
	Width      int
	Height     int
	Space      navigation.FrameSpace
	Detections []Detection
}

// Geometry returns the frame's navigation geometry.
func (f Frame) Geometry() navigation.FrameGeometry {
	return navigation.FrameGeometry{Width: f.Width, Height: f.Height, Space: f.Space}
}

// People returns the person detections in detector order.
func (f Frame) People() []Detection {
	var people []Detection
	for _, d := range f.Detections {
		if IsPerson(d.Class) {
			people = append(people, d)
		}
	}
	return people
}

// Snapshot binds the detections to the frame geometry for translation.
func (f Frame) Snapshot() (navigation.Snapshot, error) {
	boxes := make([]navigation.Box, len(f.Detections))
	for i, d := range f.Detections {
		boxes[i] = d.NavBox()
	}
	return navigation.NewSnapshot(f.Geometry(), boxes)
}

// Detector is the interface for object detection backends.
// Implementations are loaded once and shared; Detect must be safe for
// concurrent use.
type Detector interface {
	// Detect finds objects in a JPEG image
	Detect(jpeg []byte) (Frame, error)

	// Close releases resources
	Close() error
}

// Config holds detector configuration
type Config struct {
	ModelPath        string  // .onnx (YOLOv8) or .weights (Darknet, needs ConfigPath)
	ConfigPath       string  // Darknet .cfg, empty for ONNX
	LabelsPath       string  // coco.names, empty for the built-in COCO list
	ConfidenceThresh float64 // Keep detections with confidence > this
	NMSThresh        float64 // Overlap suppression IoU threshold
	InputWidth       int     // Network blob width
	InputHeight      int     // Network blob height
	Letterbox        bool    // Letterbox onto a square canvas before detection
	CanvasSize       int     // Letterbox canvas side in pixels
}

// DefaultConfig returns production defaults for YOLOv4 on letterboxed frames
func DefaultConfig() Config {
	return Config{
		ModelPath:        "models/yolov4.weights",
		ConfigPath:       "models/yolov4.cfg",
		ConfidenceThresh: 0.5,
		NMSThresh:        0.4,
		InputWidth:       416,
		InputHeight:      416,
		Letterbox:        true,
		CanvasSize:       416,
	}
}

// Space returns the frame space detections are reported in.
func (c Config) Space() navigation.FrameSpace {
	if c.Letterbox {
		return navigation.SpaceDetector
	}
	return navigation.SpaceCapture
}

// Gate keeps detections whose confidence is strictly above threshold.
// An empty class keeps every class.
func Gate(dets []Detection, threshold float64, class string) []Detection {
	var kept []Detection
	for _, d := range dets {
		if d.Confidence <= threshold {
			continue
		}
		if class != "" && d.Class != class {
			continue
		}
		kept = append(kept, d)
	}
	return kept
}

// ClipToFrame intersects a raw network box with the frame bounds.
// Networks routinely predict boxes a few pixels past the edge.
func ClipToFrame(r image.Rectangle, width, height int) image.Rectangle {
	return r.Intersect(image.Rect(0, 0, width, height))
}
