// Package navigation turns detected-person boxes into a steering angle and a
// forward/backward instruction for the rover.
//
// The translator is a pure function of (Policy, Snapshot): it holds no state
// between calls and is safe for concurrent use.
package navigation

import (
	"fmt"
	"math"
)

// Translator converts snapshots into instructions under a fixed Policy.
type Translator struct {
	policy Policy
}

// New creates a translator after validating the policy.
func New(policy Policy) (*Translator, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Translator{policy: policy}, nil
}

// Policy returns the translator's policy.
func (t *Translator) Policy() Policy {
	return t.policy
}

// Translate computes the instruction for one snapshot.
//
// In ClosestOnly mode the largest box strictly smaller than the frame wins;
// ties keep the first box in detector order. In ReportAll mode every candidate
// is measured and the instruction reflects the LAST candidate in detector
// order; callers that need per-person geometry must read Result.Reports.
//
// An empty candidate set is not an error: it yields NoTarget.
func (t *Translator) Translate(s Snapshot) (Result, error) {
	if !s.valid {
		return Result{}, frameError("snapshot", "not built with NewSnapshot")
	}
	if s.frame.Space != t.policy.RatioSpace {
		return Result{}, frameError("frame.space",
			fmt.Sprintf("policy is calibrated for %s frames, got %s", t.policy.RatioSpace, s.frame.Space))
	}

	switch t.policy.Mode {
	case ReportAll:
		return t.reportAll(s), nil
	default:
		return t.closest(s), nil
	}
}

func (t *Translator) candidate(b Box) bool {
	return t.policy.TargetClass == "" || b.Class == t.policy.TargetClass
}

func (t *Translator) closest(s Snapshot) Result {
	frameArea := s.frame.Area()
	best, bestArea := -1, 0

	for i, b := range s.boxes {
		if !t.candidate(b) {
			continue
		}
		// A box covering the whole frame is a detector artifact.
		// Strict > keeps the earliest box on ties.
		if area := b.Area(); area > bestArea && area < frameArea {
			best, bestArea = i, area
		}
	}

	if best < 0 {
		return Result{Instruction: NoTarget()}
	}

	r := t.measure(best, s.boxes[best], s.frame)
	return Result{Instruction: r.Instruction(), Reports: []Report{r}}
}

func (t *Translator) reportAll(s Snapshot) Result {
	var reports []Report
	for i, b := range s.boxes {
		if !t.candidate(b) {
			continue
		}
		reports = append(reports, t.measure(i, b, s.frame))
	}

	if len(reports) == 0 {
		return Result{Instruction: NoTarget()}
	}
	// Last one wins.
	return Result{Instruction: reports[len(reports)-1].Instruction(), Reports: reports}
}

func (t *Translator) measure(index int, b Box, frame FrameGeometry) Report {
	cx, _ := b.Center()
	ratio := float64(b.Area()) / float64(frame.Area())
	movement, distance := t.distance(ratio)

	return Report{
		Index:     index,
		Box:       b,
		Angle:     t.bearing(cx, frame),
		Movement:  movement,
		Distance:  distance,
		AreaRatio: ratio,
	}
}

// bearing maps the horizontal center of the target to a signed angle.
// Inside the band it is 0; outside it grows linearly from 0 at the frame
// center to ±MaxDeflection at the frame edge.
func (t *Translator) bearing(xCenter int, frame FrameGeometry) float64 {
	center := frame.CenterX()
	band := frame.Width / t.policy.CenterDivisor

	if xCenter >= center-band && xCenter <= center+band {
		return 0
	}

	angle := t.policy.MaxDeflection * float64(xCenter-center) / float64(center)
	angle = clamp(angle, -t.policy.MaxDeflection, t.policy.MaxDeflection)
	return math.Round(angle*100) / 100
}

// distance classifies an area ratio. Values exactly on a bound are optimal.
func (t *Translator) distance(ratio float64) (Movement, Distance) {
	switch {
	case ratio < t.policy.AreaMin:
		return MoveAdvance, DistanceFar
	case ratio > t.policy.AreaMax:
		return MoveRetreat, DistanceClose
	default:
		return MoveNone, DistanceOptimal
	}
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
