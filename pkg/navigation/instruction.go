package navigation

import (
	"fmt"
	"strings"
)

// Movement is the forward/backward part of an instruction.
type Movement int

const (
	// MoveNone means hold position: target at a good distance, or no target.
	MoveNone Movement = iota
	// MoveAdvance means the target is too far.
	MoveAdvance
	// MoveRetreat means the target is too close.
	MoveRetreat
)

// Token returns the wire token used by the motor relay ("" for none).
func (m Movement) Token() string {
	switch m {
	case MoveAdvance:
		return "avance"
	case MoveRetreat:
		return "recule"
	default:
		return ""
	}
}

func (m Movement) String() string {
	switch m {
	case MoveNone:
		return "none"
	case MoveAdvance:
		return "advance"
	case MoveRetreat:
		return "retreat"
	default:
		return fmt.Sprintf("Movement(%d)", int(m))
	}
}

// ParseMovement accepts both wire tokens and English names.
func ParseMovement(value string) (Movement, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "none":
		return MoveNone, nil
	case "avance", "advance":
		return MoveAdvance, nil
	case "recule", "retreat":
		return MoveRetreat, nil
	default:
		return MoveNone, fmt.Errorf("unknown movement %q", value)
	}
}

// MarshalText implements encoding.TextMarshaler using the wire token.
func (m Movement) MarshalText() ([]byte, error) {
	return []byte(m.Token()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Movement) UnmarshalText(b []byte) error {
	parsed, err := ParseMovement(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Distance is the coarse distance estimate derived from the area ratio.
type Distance int

const (
	DistanceOptimal Distance = iota
	DistanceFar
	DistanceClose
)

func (d Distance) String() string {
	switch d {
	case DistanceOptimal:
		return "optimal"
	case DistanceFar:
		return "far"
	case DistanceClose:
		return "close"
	default:
		return fmt.Sprintf("Distance(%d)", int(d))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (d Distance) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Distance) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "optimal":
		*d = DistanceOptimal
	case "far":
		*d = DistanceFar
	case "close":
		*d = DistanceClose
	default:
		return fmt.Errorf("unknown distance %q", string(b))
	}
	return nil
}

// Target describes the person an instruction was derived from.
type Target struct {
	Center     [2]int   `json:"center"`
	Confidence float64  `json:"confidence"`
	Distance   Distance `json:"distance_estimate"`
}

// Instruction is the translator's output, serialized for the command relay as
//
//	{"angle": -12.5, "instruction": "avance", "target": {...}}
//
// Angle is in degrees: negative turns left, positive turns right.
type Instruction struct {
	Angle    float64  `json:"angle"`
	Movement Movement `json:"instruction"`
	Target   *Target  `json:"target"`
}

// NoTarget is the instruction produced when nobody qualifies as a target.
func NoTarget() Instruction {
	return Instruction{}
}

// HasTarget reports whether a target was selected.
func (i Instruction) HasTarget() bool {
	return i.Target != nil
}

// Report is the geometry computed for one candidate box.
type Report struct {
	// Index is the box position in the snapshot.
	Index     int      `json:"index"`
	Box       Box      `json:"box"`
	Angle     float64  `json:"angle"`
	Movement  Movement `json:"instruction"`
	Distance  Distance `json:"distance_estimate"`
	AreaRatio float64  `json:"area_ratio"`
}

// Instruction converts the report into a standalone instruction.
func (r Report) Instruction() Instruction {
	cx, cy := r.Box.Center()
	return Instruction{
		Angle:    r.Angle,
		Movement: r.Movement,
		Target: &Target{
			Center:     [2]int{cx, cy},
			Confidence: r.Box.Confidence,
			Distance:   r.Distance,
		},
	}
}

// Result is returned by Translate. Reports holds every candidate that was
// measured: one entry in ClosestOnly mode, all candidates in ReportAll mode.
type Result struct {
	Instruction Instruction `json:"navigation"`
	Reports     []Report    `json:"reports"`
}
