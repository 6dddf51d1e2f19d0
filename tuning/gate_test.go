package tuning

import (
	"math"
	"testing"
)

// centsToFreq returns the frequency c cents away from the nearest-octave A
func centsToFreq(c float64) float64 {
	return 440.0 * math.Pow(2.0, c/1200.0)
}

func TestHoldCompletesOnTime(t *testing.T) {
	params := DefaultGateParams()
	params.Hold = 0.4
	g := NewGate(params, 9)

	const dt = 0.05
	frames := int(params.Hold/dt) - 1

	// Dead-on pitch: no completion before the hold time
	for i := 0; i < frames; i++ {
		res := g.Evaluate(440.0, true, dt)
		if !res.InRange {
			t.Fatalf("frame %d: expected in range at 0 cents", i)
		}
		if res.JustCompleted {
			t.Fatalf("frame %d: completed before hold time (held %.3f)", i, res.Held)
		}
	}

	// Crossing the accumulated hold fires exactly once and resets
	res := g.Evaluate(440.0, true, dt)
	if !res.JustCompleted {
		t.Fatalf("expected completion once held >= hold time")
	}
	if res.Held != 0 {
		t.Fatalf("expected hold timer reset after completion, got %v", res.Held)
	}

	if res = g.Evaluate(440.0, true, dt); res.JustCompleted {
		t.Fatalf("completion must not re-fire on the next frame")
	}
}

func TestFluctuationWithinToleranceKeepsHold(t *testing.T) {
	params := DefaultGateParams()
	params.ToleranceCents = 30
	params.Hold = 10.0 // never completes in this test
	params.HistoryLen = 1
	g := NewGate(params, 9)

	offsets := []float64{0, 20, -25, 15, -29, 29, -10}
	var lastHeld float64
	for i, c := range offsets {
		res := g.Evaluate(centsToFreq(c), true, 0.05)
		if !res.InRange {
			t.Fatalf("offset %.0f cents should be in range", c)
		}
		if res.Held <= lastHeld {
			t.Fatalf("frame %d: hold timer should keep accumulating, got %.3f after %.3f", i, res.Held, lastHeld)
		}
		lastHeld = res.Held
	}
}

func TestHysteresisBand(t *testing.T) {
	params := DefaultGateParams()
	params.ToleranceCents = 30
	params.HysteresisCents = 6
	params.Hold = 10.0
	params.HistoryLen = 1
	g := NewGate(params, 9)

	g.Evaluate(440.0, true, 0.1)
	g.Evaluate(440.0, true, 0.1)

	// Inside the hysteresis band: out of range, but the timer survives
	res := g.Evaluate(centsToFreq(33), true, 0.1)
	if res.InRange {
		t.Fatalf("33 cents should be out of tolerance")
	}
	if res.Held == 0 {
		t.Fatalf("excursion inside hysteresis band must not reset the hold timer")
	}

	// Past tolerance + hysteresis: timer resets
	res = g.Evaluate(centsToFreq(40), true, 0.1)
	if res.Held != 0 {
		t.Fatalf("excursion past hysteresis must reset the hold timer, got %.3f", res.Held)
	}
}

func TestMedianRejectsFlicker(t *testing.T) {
	params := DefaultGateParams()
	params.HistoryLen = 5
	params.Hold = 10.0
	g := NewGate(params, 9)

	// Prime with in-tune frames
	for n := 0; n < 5; n++ {
		g.Evaluate(440.0, true, 0.05)
	}

	// A single wild outlier frame must not move the median out of range
	res := g.Evaluate(centsToFreq(300), true, 0.05)
	if !res.InRange {
		t.Fatalf("single-frame flicker should be rejected by the median filter")
	}
	if math.Abs(res.Cents) > 1 {
		t.Fatalf("expected median near 0 cents, got %v", res.Cents)
	}
}

func TestUnvoicedResets(t *testing.T) {
	g := NewGate(DefaultGateParams(), 9)

	g.Evaluate(440.0, true, 0.2)
	res := g.Evaluate(0, false, 0.05)
	if res.InRange {
		t.Fatalf("unvoiced frame must be out of range")
	}
	if res.Held != 0 {
		t.Fatalf("unvoiced frame must reset the hold timer")
	}
}

func TestRetargetResetsState(t *testing.T) {
	g := NewGate(DefaultGateParams(), 9)
	g.Evaluate(440.0, true, 0.3)

	g.Retarget(4) // E
	if g.Target() != 4 {
		t.Fatalf("expected target 4, got %d", g.Target())
	}

	// A against E is +500 cents wrapped; must be out of range with a fresh
	// timer
	res := g.Evaluate(440.0, true, 0.05)
	if res.InRange {
		t.Fatalf("A should be out of range against E")
	}
	if res.Held != 0 {
		t.Fatalf("retarget must reset the hold timer")
	}
}
