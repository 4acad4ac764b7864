package navigation

import (
	"fmt"
	"math"
	"strings"
)

// TargetPolicy selects which candidates drive the instruction.
type TargetPolicy int

const (
	// ClosestOnly picks the largest box that is smaller than the whole frame.
	ClosestOnly TargetPolicy = iota
	// ReportAll measures every candidate; the instruction comes from the last one.
	ReportAll
)

func (p TargetPolicy) String() string {
	switch p {
	case ClosestOnly:
		return "closest"
	case ReportAll:
		return "all"
	default:
		return fmt.Sprintf("TargetPolicy(%d)", int(p))
	}
}

// ParsePolicy converts a config token into a TargetPolicy.
func ParsePolicy(value string) (TargetPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "closest", "closest-only", "closest_only":
		return ClosestOnly, nil
	case "all", "report-all", "report_all":
		return ReportAll, nil
	default:
		return ClosestOnly, fmt.Errorf("unknown target policy %q", value)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p TargetPolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *TargetPolicy) UnmarshalText(b []byte) error {
	parsed, err := ParsePolicy(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Policy holds every tunable parameter of the translator.
//
// Two calibrations exist in the field and they are not interchangeable:
// DefaultPolicy measures the area ratio against the letterboxed detector frame,
// LegacyPolicy against the raw capture. Which one is right for a given robot is
// a calibration decision; pick a preset, don't mix fields from both.
type Policy struct {
	Mode TargetPolicy `json:"mode"`

	// TargetClass restricts candidates to one detector label. Empty accepts all.
	TargetClass string `json:"target_class"`

	// ConfidenceThreshold is applied by the detector before translation
	// (strict >). The translator itself only rejects values outside (0, 1].
	ConfidenceThreshold float64 `json:"confidence_threshold"`

	// Bearing
	CenterDivisor int     `json:"center_divisor"` // Centering band half-width = frame.Width / CenterDivisor
	MaxDeflection float64 `json:"max_deflection"` // Degrees at the frame edge

	// Distance (area ratio = box area / frame area, strict comparisons)
	AreaMin    float64    `json:"area_min"`    // Below: too far, advance
	AreaMax    float64    `json:"area_max"`    // Above: too close, retreat
	RatioSpace FrameSpace `json:"ratio_space"` // Frame space the ratio is calibrated for
}

// DefaultPolicy is calibrated for the 416x416 letterboxed detector frame.
func DefaultPolicy() Policy {
	return Policy{
		Mode:                ClosestOnly,
		TargetClass:         "person",
		ConfidenceThreshold: 0.5,

		CenterDivisor: 10,   // ±10% of width counts as centered
		MaxDeflection: 30.0, // ±30° at the edges

		AreaMin:    0.05,
		AreaMax:    0.25,
		RatioSpace: SpaceDetector,
	}
}

// LegacyPolicy is the first calibration, measured on raw captures.
func LegacyPolicy() Policy {
	return Policy{
		Mode:                ClosestOnly,
		TargetClass:         "person",
		ConfidenceThreshold: 0.6,

		CenterDivisor: 10,
		MaxDeflection: 45.0,

		AreaMin:    0.2,
		AreaMax:    0.7,
		RatioSpace: SpaceCapture,
	}
}

// PresetPolicy returns a calibration preset by name: "default" (or empty) and
// "legacy".
func PresetPolicy(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "default":
		return DefaultPolicy(), nil
	case "legacy":
		return LegacyPolicy(), nil
	default:
		return Policy{}, fmt.Errorf("unknown policy preset %q", name)
	}
}

// Validate checks that the policy parameters are usable.
func (p Policy) Validate() error {
	if p.Mode != ClosestOnly && p.Mode != ReportAll {
		return frameError("policy.mode", fmt.Sprintf("unknown mode %d", int(p.Mode)))
	}
	if p.CenterDivisor <= 0 {
		return frameError("policy.center_divisor", fmt.Sprintf("must be positive, got %d", p.CenterDivisor))
	}
	if math.IsNaN(p.MaxDeflection) || p.MaxDeflection <= 0 || p.MaxDeflection > 90 {
		return frameError("policy.max_deflection", fmt.Sprintf("%v outside (0, 90]", p.MaxDeflection))
	}
	if math.IsNaN(p.AreaMin) || math.IsNaN(p.AreaMax) || p.AreaMin < 0 || p.AreaMax > 1 || p.AreaMin >= p.AreaMax {
		return frameError("policy.area", fmt.Sprintf("need 0 <= min < max <= 1, got %v/%v", p.AreaMin, p.AreaMax))
	}
	if math.IsNaN(p.ConfidenceThreshold) || p.ConfidenceThreshold < 0 || p.ConfidenceThreshold >= 1 {
		return frameError("policy.confidence_threshold", fmt.Sprintf("%v outside [0, 1)", p.ConfidenceThreshold))
	}
	if p.RatioSpace != SpaceDetector && p.RatioSpace != SpaceCapture {
		return frameError("policy.ratio_space", fmt.Sprintf("unknown space %d", int(p.RatioSpace)))
	}
	return nil
}
