package detection

import (
	"bufio"
	"fmt"
	"image"
	"os"
	"strings"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-rover/pkg/debug"
)

// YOLODetector runs a YOLO network through OpenCV's DNN module.
// Darknet YOLOv4 (.weights + .cfg) and YOLOv8 ONNX exports are supported.
type YOLODetector struct {
	net          gocv.Net
	config       Config
	labels       []string
	darknet      bool
	outputLayers []string
	inputSize    image.Point
	mu           sync.Mutex
}

// candidate is a raw network prediction before overlap suppression.
type candidate struct {
	box     image.Rectangle
	score   float32
	classID int
}

// NewYOLO loads the network once; the detector is then shared by reference.
func NewYOLO(cfg Config) (*YOLODetector, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}

	labels := COCOClasses
	if cfg.LabelsPath != "" {
		loaded, err := LoadLabels(cfg.LabelsPath)
		if err != nil {
			return nil, err
		}
		labels = loaded
	}

	d := &YOLODetector{
		config:    cfg,
		labels:    labels,
		darknet:   cfg.ConfigPath != "",
		inputSize: image.Pt(cfg.InputWidth, cfg.InputHeight),
	}

	if d.darknet {
		d.net = gocv.ReadNet(cfg.ModelPath, cfg.ConfigPath)
	} else {
		d.net = gocv.ReadNetFromONNX(cfg.ModelPath)
	}
	if d.net.Empty() {
		return nil, fmt.Errorf("failed to load YOLO model from %s", cfg.ModelPath)
	}

	d.net.SetPreferableBackend(gocv.NetBackendDefault)
	d.net.SetPreferableTarget(gocv.NetTargetCPU)

	if d.darknet {
		names := d.net.GetLayerNames()
		for _, idx := range d.net.GetUnconnectedOutLayers() {
			d.outputLayers = append(d.outputLayers, names[idx-1])
		}
	}

	return d, nil
}

// Detect finds objects in the JPEG image. When letterboxing is enabled the
// returned frame is the canvas, not the original capture.
func (d *YOLODetector) Detect(jpeg []byte) (Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	img, err := gocv.IMDecode(jpeg, gocv.IMReadColor)
	if err != nil {
		return Frame{}, fmt.Errorf("decode image: %w", err)
	}
	defer img.Close()

	if img.Empty() {
		return Frame{}, fmt.Errorf("empty image")
	}

	src := img
	if d.config.Letterbox {
		canvas, _, err := Letterbox(img, d.config.CanvasSize)
		if err != nil {
			return Frame{}, err
		}
		defer canvas.Close()
		src = canvas
	}
	width, height := src.Cols(), src.Rows()

	blob := gocv.BlobFromImage(src, 1.0/255.0, d.inputSize, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()
	d.net.SetInput(blob, "")

	var raw []candidate
	if d.darknet {
		raw, err = d.forwardDarknet(width, height)
	} else {
		raw, err = d.forwardYOLOv8(width, height)
	}
	if err != nil {
		return Frame{}, err
	}

	dets := d.suppress(raw, width, height)
	if len(dets) > 0 {
		debug.Log("🔍 YOLO found %d object(s)\n", len(dets))
	}

	return Frame{
		Width:      width,
		Height:     height,
		Space:      d.config.Space(),
		Detections: dets,
	}, nil
}

func (d *YOLODetector) forwardDarknet(width, height int) ([]candidate, error) {
	outs := d.net.ForwardLayers(d.outputLayers)
	defer func() {
		for _, m := range outs {
			m.Close()
		}
	}()

	var raw []candidate
	for _, out := range outs {
		data, err := out.DataPtrFloat32()
		if err != nil {
			return nil, fmt.Errorf("read output: %w", err)
		}
		raw = append(raw, parseDarknet(data, out.Rows(), out.Cols(), width, height, float32(d.config.ConfidenceThresh))...)
	}
	return raw, nil
}

func (d *YOLODetector) forwardYOLOv8(width, height int) ([]candidate, error) {
	out := d.net.Forward("")
	defer out.Close()

	// Output shape: [1, 4+classes, N]
	dims := out.Size()
	if len(dims) != 3 {
		return nil, fmt.Errorf("unexpected YOLOv8 output shape %v", dims)
	}
	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}

	scaleX := float32(width) / float32(d.config.InputWidth)
	scaleY := float32(height) / float32(d.config.InputHeight)
	return parseYOLOv8(data, dims[1], dims[2], scaleX, scaleY, float32(d.config.ConfidenceThresh)), nil
}

// suppress clips boxes to the frame, runs NMS and resolves class names.
func (d *YOLODetector) suppress(raw []candidate, width, height int) []Detection {
	var boxes []image.Rectangle
	var scores []float32
	var kept []candidate

	for _, c := range raw {
		c.box = ClipToFrame(c.box, width, height)
		if c.box.Empty() {
			continue
		}
		boxes = append(boxes, c.box)
		scores = append(scores, c.score)
		kept = append(kept, c)
	}
	if len(boxes) == 0 {
		return nil
	}

	indices := gocv.NMSBoxes(boxes, scores, float32(d.config.ConfidenceThresh), float32(d.config.NMSThresh))

	dets := make([]Detection, 0, len(indices))
	for _, idx := range indices {
		c := kept[idx]
		dets = append(dets, Detection{
			Class:      d.label(c.classID),
			Confidence: float64(c.score),
			Box:        c.box,
		})
	}
	return dets
}

func (d *YOLODetector) label(classID int) string {
	if classID < 0 || classID >= len(d.labels) {
		return fmt.Sprintf("class_%d", classID)
	}
	return d.labels[classID]
}

// Close releases the detector resources
func (d *YOLODetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}

// parseDarknet decodes a Darknet YOLO output layer: one row per prediction,
// [cx, cy, w, h, objectness, class scores...] normalized to the frame.
func parseDarknet(data []float32, rows, cols, width, height int, thresh float32) []candidate {
	var out []candidate
	if cols <= 5 {
		return out
	}

	for r := 0; r < rows; r++ {
		row := data[r*cols : (r+1)*cols]

		classID, score := argmax(row[5:])
		if score <= thresh {
			continue
		}

		cx := int(row[0] * float32(width))
		cy := int(row[1] * float32(height))
		w := int(row[2] * float32(width))
		h := int(row[3] * float32(height))
		x := cx - w/2
		y := cy - h/2

		out = append(out, candidate{box: image.Rect(x, y, x+w, y+h), score: score, classID: classID})
	}
	return out
}

// parseYOLOv8 decodes the transposed YOLOv8 layout: attrs rows of n values,
// [cx, cy, w, h, class scores...] in network input pixels.
func parseYOLOv8(data []float32, attrs, n int, scaleX, scaleY, thresh float32) []candidate {
	var out []candidate
	if attrs <= 4 {
		return out
	}

	scores := make([]float32, attrs-4)
	for i := 0; i < n; i++ {
		for c := 4; c < attrs; c++ {
			scores[c-4] = data[c*n+i]
		}
		classID, score := argmax(scores)
		if score <= thresh {
			continue
		}

		cx, cy := data[0*n+i], data[1*n+i]
		w, h := data[2*n+i], data[3*n+i]

		x1 := int((cx - w/2) * scaleX)
		y1 := int((cy - h/2) * scaleY)
		x2 := int((cx + w/2) * scaleX)
		y2 := int((cy + h/2) * scaleY)

		out = append(out, candidate{box: image.Rect(x1, y1, x2, y2), score: score, classID: classID})
	}
	return out
}

func argmax(values []float32) (int, float32) {
	best, bestVal := 0, float32(0)
	for i, v := range values {
		if v > bestVal {
			best, bestVal = i, v
		}
	}
	return best, bestVal
}

// LoadLabels reads a class list with one label per line (coco.names format).
func LoadLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open labels: %w", err)
	}
	defer f.Close()

	var labels []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			labels = append(labels, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}
	return labels, nil
}

// COCOClasses contains the 80 COCO class names
var COCOClasses = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat",
	"traffic light", "fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat",
	"dog", "horse", "sheep", "cow", "elephant", "bear", "zebra", "giraffe", "backpack",
	"umbrella", "handbag", "tie", "suitcase", "frisbee", "skis", "snowboard", "sports ball",
	"kite", "baseball bat", "baseball glove", "skateboard", "surfboard", "tennis racket",
	"bottle", "wine glass", "cup", "fork", "knife", "spoon", "bowl", "banana", "apple",
	"sandwich", "orange", "broccoli", "carrot", "hot dog", "pizza", "donut", "cake", "chair",
	"couch", "potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven", "toaster", "sink", "refrigerator",
	"book", "clock", "vase", "scissors", "teddy bear", "hair drier", "toothbrush",
}

// IsPerson returns true if the class is a person
func IsPerson(className string) bool {
	return className == "person"
}
