package navigation

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func person(x, y, w, h int) Box {
	return Box{X: x, Y: y, Width: w, Height: h, Class: "person", Confidence: 0.9}
}

func mustSnapshot(t *testing.T, frame FrameGeometry, boxes ...Box) Snapshot {
	t.Helper()
	s, err := NewSnapshot(frame, boxes)
	if err != nil {
		t.Fatalf("NewSnapshot: %v", err)
	}
	return s
}

func mustTranslator(t *testing.T, p Policy) *Translator {
	t.Helper()
	tr, err := New(p)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tr
}

func TestTranslate_EmptySnapshot(t *testing.T) {
	for _, mode := range []TargetPolicy{ClosestOnly, ReportAll} {
		t.Run(mode.String(), func(t *testing.T) {
			p := DefaultPolicy()
			p.Mode = mode
			tr := mustTranslator(t, p)

			res, err := tr.Translate(mustSnapshot(t, FrameGeometry{Width: 640, Height: 480}))
			if err != nil {
				t.Fatalf("Translate: %v", err)
			}
			if diff := cmp.Diff(NoTarget(), res.Instruction); diff != "" {
				t.Errorf("instruction mismatch (-want +got):\n%s", diff)
			}
			if len(res.Reports) != 0 {
				t.Errorf("expected no reports, got %d", len(res.Reports))
			}
		})
	}
}

func TestTranslate_EndToEnd(t *testing.T) {
	tr := mustTranslator(t, DefaultPolicy())
	frame := FrameGeometry{Width: 640, Height: 480}

	res, err := tr.Translate(mustSnapshot(t, frame, person(280, 150, 80, 180)))
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}

	want := Instruction{
		Angle:    0,
		Movement: MoveAdvance,
		Target: &Target{
			Center:     [2]int{320, 240},
			Confidence: 0.9,
			Distance:   DistanceFar,
		},
	}
	if diff := cmp.Diff(want, res.Instruction); diff != "" {
		t.Errorf("instruction mismatch (-want +got):\n%s", diff)
	}
	if math.Abs(res.Reports[0].AreaRatio-0.046875) > 1e-9 {
		t.Errorf("AreaRatio = %v, want 0.046875", res.Reports[0].AreaRatio)
	}
}

func TestTranslate_ClosestOnlyPicksLargest(t *testing.T) {
	tr := mustTranslator(t, DefaultPolicy())
	frame := FrameGeometry{Width: 1000, Height: 1000}

	res, err := tr.Translate(mustSnapshot(t, frame,
		person(100, 100, 20, 25), // 500
		person(700, 100, 30, 40), // 1200
	))
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if len(res.Reports) != 1 || res.Reports[0].Index != 1 {
		t.Fatalf("expected box 1 selected, got %+v", res.Reports)
	}
}

func TestTranslate_ClosestOnlyTieKeepsFirst(t *testing.T) {
	tr := mustTranslator(t, DefaultPolicy())
	frame := FrameGeometry{Width: 1000, Height: 1000}

	res, err := tr.Translate(mustSnapshot(t, frame,
		person(0, 0, 40, 40),
		person(900, 0, 40, 40),
	))
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if res.Reports[0].Index != 0 {
		t.Errorf("tie should keep first box, got index %d", res.Reports[0].Index)
	}
	if res.Instruction.Angle >= 0 {
		t.Errorf("first box is on the left, expected negative angle, got %v", res.Instruction.Angle)
	}
}

func TestTranslate_FullFrameBoxExcluded(t *testing.T) {
	tr := mustTranslator(t, DefaultPolicy())
	frame := FrameGeometry{Width: 100, Height: 100}

	t.Run("only candidate", func(t *testing.T) {
		res, err := tr.Translate(mustSnapshot(t, frame, person(0, 0, 100, 100)))
		if err != nil {
			t.Fatalf("Translate: %v", err)
		}
		if res.Instruction.HasTarget() || res.Instruction.Movement != MoveNone || res.Instruction.Angle != 0 {
			t.Errorf("expected NoTarget, got %+v", res.Instruction)
		}
	})

	t.Run("falls back to smaller box", func(t *testing.T) {
		res, err := tr.Translate(mustSnapshot(t, frame, person(0, 0, 100, 100), person(10, 10, 30, 30)))
		if err != nil {
			t.Fatalf("Translate: %v", err)
		}
		if !res.Instruction.HasTarget() || res.Reports[0].Index != 1 {
			t.Errorf("expected box 1, got %+v", res.Reports)
		}
	})
}

func TestTranslate_ReportAllLastWins(t *testing.T) {
	p := DefaultPolicy()
	p.Mode = ReportAll
	tr := mustTranslator(t, p)
	frame := FrameGeometry{Width: 1000, Height: 1000}

	chair := Box{X: 0, Y: 0, Width: 10, Height: 10, Class: "chair", Confidence: 0.8}
	res, err := tr.Translate(mustSnapshot(t, frame,
		person(0, 0, 600, 600),     // large, left
		person(900, 500, 100, 100), // small, right
		chair,                      // not a candidate
	))
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}

	if len(res.Reports) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(res.Reports))
	}
	if res.Reports[0].Movement != MoveRetreat {
		t.Errorf("first report movement = %v, want retreat", res.Reports[0].Movement)
	}

	// The instruction reflects the last person, not the closest one.
	last := res.Reports[1]
	if diff := cmp.Diff(last.Instruction(), res.Instruction); diff != "" {
		t.Errorf("instruction should come from last report (-want +got):\n%s", diff)
	}
	if res.Instruction.Movement != MoveAdvance || res.Instruction.Angle != 27 {
		t.Errorf("got %+v, want advance at 27°", res.Instruction)
	}
}

func TestBearing(t *testing.T) {
	frame := FrameGeometry{Width: 1000, Height: 1000}

	tests := []struct {
		name   string
		policy Policy
		box    Box
		expect float64
	}{
		{"exactly centered", DefaultPolicy(), person(450, 0, 100, 100), 0},
		{"band edge right", DefaultPolicy(), person(550, 0, 100, 100), 0},
		{"band edge left", DefaultPolicy(), person(350, 0, 100, 100), 0},
		{"far left", DefaultPolicy(), person(0, 0, 100, 100), -27},
		{"far right", DefaultPolicy(), person(900, 0, 100, 100), 27},
		{"left edge", DefaultPolicy(), person(0, 0, 2, 100), -29.94},
		{"legacy left", LegacyPolicy(), person(200, 0, 100, 100), -22.5},
		{"legacy right", LegacyPolicy(), person(700, 0, 100, 100), 22.5},
		{"legacy centered", LegacyPolicy(), person(450, 0, 100, 100), 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := frame
			f.Space = tc.policy.RatioSpace
			tr := mustTranslator(t, tc.policy)

			res, err := tr.Translate(mustSnapshot(t, f, tc.box))
			if err != nil {
				t.Fatalf("Translate: %v", err)
			}
			if math.Abs(res.Instruction.Angle-tc.expect) > 1e-9 {
				t.Errorf("angle = %v, want %v", res.Instruction.Angle, tc.expect)
			}
		})
	}
}

func TestBearing_Monotonic(t *testing.T) {
	for _, p := range []Policy{DefaultPolicy(), LegacyPolicy()} {
		tr := mustTranslator(t, p)
		frame := FrameGeometry{Width: 1001, Height: 100, Space: p.RatioSpace}

		prev := math.Inf(-1)
		for x := 0; x+50 <= frame.Width; x += 7 {
			res, err := tr.Translate(mustSnapshot(t, frame, person(x, 0, 50, 50)))
			if err != nil {
				t.Fatalf("Translate: %v", err)
			}
			angle := res.Instruction.Angle
			if angle < prev {
				t.Fatalf("%s: angle decreased at x=%d: %v < %v", p.Mode, x, angle, prev)
			}
			if math.Abs(angle) > p.MaxDeflection {
				t.Fatalf("angle %v exceeds ±%v", angle, p.MaxDeflection)
			}
			prev = angle
		}
	}
}

func TestDistance_Boundaries(t *testing.T) {
	tr := mustTranslator(t, DefaultPolicy())
	frame := FrameGeometry{Width: 100, Height: 100}

	tests := []struct {
		name     string
		box      Box
		movement Movement
		distance Distance
	}{
		{"below min", person(40, 0, 22, 22), MoveAdvance, DistanceFar},
		{"exactly min", person(40, 0, 20, 25), MoveNone, DistanceOptimal},
		{"between", person(35, 0, 30, 30), MoveNone, DistanceOptimal},
		{"exactly max", person(25, 0, 50, 50), MoveNone, DistanceOptimal},
		{"above max", person(30, 0, 41, 61), MoveRetreat, DistanceClose},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := tr.Translate(mustSnapshot(t, frame, tc.box))
			if err != nil {
				t.Fatalf("Translate: %v", err)
			}
			if res.Instruction.Movement != tc.movement {
				t.Errorf("movement = %v, want %v", res.Instruction.Movement, tc.movement)
			}
			if res.Instruction.Target.Distance != tc.distance {
				t.Errorf("distance = %v, want %v", res.Instruction.Target.Distance, tc.distance)
			}
		})
	}
}

func TestNewSnapshot_InvalidInput(t *testing.T) {
	ok := FrameGeometry{Width: 100, Height: 100}

	tests := []struct {
		name  string
		frame FrameGeometry
		box   Box
		field string
	}{
		{"zero width", FrameGeometry{Width: 0, Height: 100}, person(0, 0, 1, 1), "frame.width"},
		{"negative height", FrameGeometry{Width: 100, Height: -1}, person(0, 0, 1, 1), "frame.height"},
		{"one pixel wide", FrameGeometry{Width: 1, Height: 100}, person(0, 0, 1, 1), "frame.width"},
		{"zero confidence", ok, Box{Width: 1, Height: 1, Class: "person"}, "box.confidence"},
		{"confidence above one", ok, Box{Width: 1, Height: 1, Class: "person", Confidence: 1.5}, "box.confidence"},
		{"NaN confidence", ok, Box{Width: 1, Height: 1, Class: "person", Confidence: math.NaN()}, "box.confidence"},
		{"zero size", ok, person(0, 0, 0, 10), "box.size"},
		{"negative x", ok, person(-1, 0, 10, 10), "box.x"},
		{"overflows width", ok, person(95, 0, 10, 10), "box.x"},
		{"overflows height", ok, person(0, 95, 10, 10), "box.y"},
		{"huge width wraps", FrameGeometry{Width: 640, Height: 480}, person(1, 0, math.MaxInt, 10), "box.x"},
		{"huge height wraps", FrameGeometry{Width: 640, Height: 480}, person(0, 1, 10, math.MaxInt), "box.y"},
		{"area overflows", FrameGeometry{Width: math.MaxInt / 2, Height: 4}, person(0, 0, 1, 1), "frame.width"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewSnapshot(tc.frame, []Box{tc.box})
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
			var inErr *InputError
			if !errors.As(err, &inErr) {
				t.Fatalf("expected *InputError, got %T", err)
			}
			if inErr.Field != tc.field {
				t.Errorf("Field = %q, want %q", inErr.Field, tc.field)
			}
		})
	}
}

func TestNewSnapshot_ConfidenceOneAccepted(t *testing.T) {
	b := person(0, 0, 10, 10)
	b.Confidence = 1
	if _, err := NewSnapshot(FrameGeometry{Width: 100, Height: 100}, []Box{b}); err != nil {
		t.Errorf("confidence 1 should be accepted: %v", err)
	}
}

func TestNewSnapshot_CopiesBoxes(t *testing.T) {
	boxes := []Box{person(0, 0, 10, 10)}
	s := mustSnapshot(t, FrameGeometry{Width: 100, Height: 100}, boxes...)
	boxes[0].X = 99

	if s.Boxes()[0].X != 0 {
		t.Error("snapshot should not alias caller's slice")
	}
}

func TestTranslate_RejectsUnvalidatedSnapshot(t *testing.T) {
	tr := mustTranslator(t, DefaultPolicy())
	if _, err := tr.Translate(Snapshot{}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for zero Snapshot, got %v", err)
	}
}

func TestTranslate_RejectsSpaceMismatch(t *testing.T) {
	tr := mustTranslator(t, DefaultPolicy())
	s := mustSnapshot(t, FrameGeometry{Width: 640, Height: 480, Space: SpaceCapture}, person(0, 0, 10, 10))

	_, err := tr.Translate(s)
	var inErr *InputError
	if !errors.As(err, &inErr) || inErr.Field != "frame.space" {
		t.Errorf("expected frame.space error, got %v", err)
	}
}

func TestTranslate_Concurrent(t *testing.T) {
	tr := mustTranslator(t, DefaultPolicy())
	s := mustSnapshot(t, FrameGeometry{Width: 640, Height: 480}, person(0, 0, 100, 300), person(500, 0, 100, 100))

	want, err := tr.Translate(s)
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := tr.Translate(s)
			if err != nil {
				t.Errorf("Translate: %v", err)
				return
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("concurrent result differs:\n%s", diff)
			}
		}()
	}
	wg.Wait()
}
