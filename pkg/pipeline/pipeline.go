// Package pipeline runs camera frames through detection and translation and,
// in autopilot, forwards the resulting instruction to the motors.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-rover/internal/log"
	"github.com/teslashibe/go-rover/pkg/debug"
	"github.com/teslashibe/go-rover/pkg/detection"
	"github.com/teslashibe/go-rover/pkg/dispatch"
	"github.com/teslashibe/go-rover/pkg/navigation"
)

// Analysis is the full result for one frame.
type Analysis struct {
	Objects     []string                 `json:"objects"`
	PeopleCount int                      `json:"people_count"`
	Description string                   `json:"scene_description"`
	Navigation  navigation.Instruction   `json:"navigation"`
	Reports     []navigation.Report      `json:"reports,omitempty"`
	Counts      map[string]int           `json:"object_counts"`
	Frame       navigation.FrameGeometry `json:"frame"`
	Timestamp   time.Time                `json:"timestamp"`
}

// Stats counts frames seen by Drive.
type Stats struct {
	Processed int64 `json:"frames_processed"`
	Dropped   int64 `json:"frames_dropped"`
	Errors    int64 `json:"frame_errors"`
}

// Pipeline wires a shared detector, a translator and an optional mover.
type Pipeline struct {
	detector   detection.Detector
	translator *navigation.Translator
	mover      dispatch.Mover

	autopilot atomic.Bool
	busy      atomic.Bool

	processed atomic.Int64
	dropped   atomic.Int64
	errors    atomic.Int64

	mu         sync.RWMutex
	onAnalysis func(Analysis)
	last       *Analysis
}

// New creates a pipeline. mover may be nil, in which case Drive analyzes
// frames without moving.
func New(detector detection.Detector, translator *navigation.Translator, mover dispatch.Mover) *Pipeline {
	return &Pipeline{
		detector:   detector,
		translator: translator,
		mover:      mover,
	}
}

// OnAnalysis registers a callback invoked after every driven frame.
func (p *Pipeline) OnAnalysis(fn func(Analysis)) {
	p.mu.Lock()
	p.onAnalysis = fn
	p.mu.Unlock()
}

// SetAutopilot enables or disables driving from frames.
func (p *Pipeline) SetAutopilot(on bool) {
	if p.autopilot.Swap(on) != on {
		log.Info("autopilot toggled", "enabled", on)
	}
}

// Autopilot reports whether autopilot is on.
func (p *Pipeline) Autopilot() bool {
	return p.autopilot.Load()
}

// Translator returns the translator frames are run through.
func (p *Pipeline) Translator() *navigation.Translator {
	return p.translator
}

// Stats returns frame counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Processed: p.processed.Load(),
		Dropped:   p.dropped.Load(),
		Errors:    p.errors.Load(),
	}
}

// Last returns the most recent driven analysis, if any.
func (p *Pipeline) Last() (Analysis, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.last == nil {
		return Analysis{}, false
	}
	return *p.last, true
}

// Analyze detects, gates and translates one JPEG frame. It never moves the robot.
func (p *Pipeline) Analyze(ctx context.Context, jpeg []byte) (Analysis, error) {
	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}

	frame, err := p.detector.Detect(jpeg)
	if err != nil {
		return Analysis{}, fmt.Errorf("detect: %w", err)
	}

	// Confidence gating happens here, before the translator sees anything.
	policy := p.translator.Policy()
	frame.Detections = detection.Gate(frame.Detections, policy.ConfidenceThreshold, "")

	snap, err := frame.Snapshot()
	if err != nil {
		return Analysis{}, err
	}
	res, err := p.translator.Translate(snap)
	if err != nil {
		return Analysis{}, err
	}
	debug.Reports(res.Reports)

	return Analysis{
		Objects:     detection.Classes(frame.Detections),
		PeopleCount: len(frame.People()),
		Description: detection.Describe(frame.Detections),
		Navigation:  res.Instruction,
		Reports:     res.Reports,
		Counts:      detection.CountByClass(frame.Detections),
		Frame:       frame.Geometry(),
		Timestamp:   time.Now().UTC(),
	}, nil
}

// stop halts the motors after a failed frame so the last command does not
// keep running.
func (p *Pipeline) stop(ctx context.Context) {
	if p.mover == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := p.mover.Move(ctx, dispatch.Stop); err != nil {
		log.Warn("stop after failed frame", "error", err)
	}
}

// Drive analyzes a frame and sends the instruction to the motors. Frames
// arriving while autopilot is off, or while a previous frame is still being
// processed, are skipped and reported with ok=false.
// A frame that fails analysis stops the motors.
func (p *Pipeline) Drive(ctx context.Context, jpeg []byte) (a Analysis, ok bool, err error) {
	if !p.autopilot.Load() {
		return Analysis{}, false, nil
	}
	if !p.busy.CompareAndSwap(false, true) {
		p.dropped.Add(1)
		return Analysis{}, false, nil
	}
	defer p.busy.Store(false)

	a, err = p.Analyze(ctx, jpeg)
	if err != nil {
		p.errors.Add(1)
		p.stop(ctx)
		return Analysis{}, true, err
	}
	p.processed.Add(1)

	if p.mover != nil {
		if err := dispatch.Execute(ctx, p.mover, a.Navigation); err != nil {
			p.errors.Add(1)
			return a, true, fmt.Errorf("dispatch: %w", err)
		}
	}

	log.Debug("frame driven",
		"people", a.PeopleCount,
		"angle", a.Navigation.Angle,
		"instruction", a.Navigation.Movement.Token())

	p.mu.Lock()
	p.last = &a
	fn := p.onAnalysis
	p.mu.Unlock()

	if fn != nil {
		fn(a)
	}
	return a, true, nil
}
