package session

import (
	"math"
	"testing"

	"github.com/tonalhq/woodshed/config"
)

const (
	testSampleRate = 44100
	testWindow     = 2048
)

// testFrameDt is the real-time spacing of consecutive test windows
const testFrameDt = float64(testWindow) / float64(testSampleRate)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Detection.WindowSize = testWindow
	return cfg
}

func toneFrame(freq float64) []float64 {
	frame := make([]float64, testWindow)
	for i := range frame {
		frame[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(testSampleRate))
	}
	return frame
}

func TestListenerCompletesHold(t *testing.T) {
	var corrects int
	l, err := NewListener(testConfig(), 9, Callbacks{
		OnCorrect: func() { corrects++ },
	})
	if err != nil {
		t.Fatalf("NewListener: %v", err)
	}
	defer l.Close()

	// Hold is 400 ms and each frame advances ~46.4 ms, so the 9th voiced
	// frame crosses the threshold
	frame := toneFrame(440.0)
	for i := 0; i < 8; i++ {
		heard := l.ProcessFrame(frame, testFrameDt)
		if !heard.Voiced {
			t.Fatalf("frame %d: expected voiced", i)
		}
		if !heard.Gate.InRange {
			t.Fatalf("frame %d: expected in range at 440 Hz vs A, cents %.1f", i, heard.Gate.Cents)
		}
	}
	if corrects != 0 {
		t.Fatalf("hold completed too early after 8 frames")
	}

	heard := l.ProcessFrame(frame, testFrameDt)
	if !heard.Gate.JustCompleted || corrects != 1 {
		t.Fatalf("expected completion on the 9th frame, corrects=%d", corrects)
	}

	// The hold re-arms instead of firing continuously
	if heard = l.ProcessFrame(frame, testFrameDt); heard.Gate.JustCompleted {
		t.Fatalf("completion re-fired immediately")
	}
}

func TestListenerWrongNoteStaysOutOfRange(t *testing.T) {
	var corrects int
	l, err := NewListener(testConfig(), 9, Callbacks{
		OnCorrect: func() { corrects++ },
	})
	if err != nil {
		t.Fatalf("NewListener: %v", err)
	}
	defer l.Close()

	// C5 against target A: ~300 cents off, never in range
	frame := toneFrame(523.25)
	for n := 0; n < 15; n++ {
		heard := l.ProcessFrame(frame, testFrameDt)
		if heard.Gate.InRange {
			t.Fatalf("C against A must not be in range, cents %.1f", heard.Gate.Cents)
		}
	}
	if corrects != 0 {
		t.Fatalf("wrong note must never complete, got %d", corrects)
	}
}

func TestListenerDropoutGrace(t *testing.T) {
	l, err := NewListener(testConfig(), 9, Callbacks{})
	if err != nil {
		t.Fatalf("NewListener: %v", err)
	}
	defer l.Close()

	l.ProcessFrame(toneFrame(440.0), testFrameDt)
	silence := make([]float64, testWindow)

	// Grace is 200 ms: four silent frames (~186 ms) keep the last pitch
	for i := 0; i < 4; i++ {
		heard := l.ProcessFrame(silence, testFrameDt)
		if !heard.Voiced {
			t.Fatalf("silent frame %d: still within dropout grace, expected voiced", i)
		}
		if math.Abs(heard.Frequency-440.0) > 5.0 {
			t.Fatalf("held frequency drifted to %.2f", heard.Frequency)
		}
	}

	// The fifth silent frame exceeds the grace and the pipeline goes quiet
	if heard := l.ProcessFrame(silence, testFrameDt); heard.Voiced {
		t.Fatalf("expected unvoiced past the dropout grace")
	}

	// Recovery seeds fresh
	heard := l.ProcessFrame(toneFrame(220.0), testFrameDt)
	if !heard.Voiced || math.Abs(heard.Frequency-220.0)/220.0 > 0.01 {
		t.Fatalf("expected fresh 220 Hz after recovery, got %.2f (voiced=%v)", heard.Frequency, heard.Voiced)
	}
}

func TestListenerThrottlesPitchUpdates(t *testing.T) {
	var updates int
	l, err := NewListener(testConfig(), 9, Callbacks{
		OnPitchUpdate: func(hz float64, voiced bool) { updates++ },
	})
	if err != nil {
		t.Fatalf("NewListener: %v", err)
	}
	defer l.Close()

	const frames = 20
	frame := toneFrame(440.0)
	for n := 0; n < frames; n++ {
		l.ProcessFrame(frame, testFrameDt)
	}

	// At ~46 ms per frame and a 60 ms throttle, updates land roughly every
	// other frame
	if updates >= frames {
		t.Fatalf("updates not throttled: %d for %d frames", updates, frames)
	}
	if updates < frames/3 {
		t.Fatalf("throttle too aggressive: %d updates for %d frames", updates, frames)
	}
}

func TestListenerRetarget(t *testing.T) {
	var heardInRange bool
	l, err := NewListener(testConfig(), 9, Callbacks{
		OnHeard: func(pc int, inRange bool) { heardInRange = inRange },
	})
	if err != nil {
		t.Fatalf("NewListener: %v", err)
	}
	defer l.Close()

	frame := toneFrame(440.0)
	l.ProcessFrame(frame, testFrameDt)
	l.ProcessFrame(frame, testFrameDt)
	if !heardInRange {
		t.Fatalf("expected in range before retarget")
	}

	// Same sound against a new target pitch class is out of range
	if err := l.Retarget(4); err != nil {
		t.Fatalf("Retarget: %v", err)
	}
	heard := l.ProcessFrame(frame, testFrameDt)
	if heard.Gate.InRange || heardInRange {
		t.Fatalf("A against E must be out of range after retarget")
	}
	if heard.Gate.Held != 0 {
		t.Fatalf("retarget must reset the hold timer")
	}

	if err := l.Retarget(12); err == nil {
		t.Fatalf("expected error for pitch class out of range")
	}
}

func TestListenerClosedIgnoresFrames(t *testing.T) {
	l, err := NewListener(testConfig(), 9, Callbacks{})
	if err != nil {
		t.Fatalf("NewListener: %v", err)
	}

	l.ProcessFrame(toneFrame(440.0), testFrameDt)
	l.Close()
	l.Close() // idempotent

	if heard := l.ProcessFrame(toneFrame(440.0), testFrameDt); heard.Voiced {
		t.Fatalf("closed listener must ignore frames")
	}
}

func TestNewListenerValidation(t *testing.T) {
	if _, err := NewListener(testConfig(), 12, Callbacks{}); err == nil {
		t.Fatalf("expected error for pitch class 12")
	}
	if _, err := NewListener(testConfig(), -1, Callbacks{}); err == nil {
		t.Fatalf("expected error for negative pitch class")
	}

	bad := testConfig()
	bad.Detection.SampleRate = 0
	if _, err := NewListener(bad, 9, Callbacks{}); err == nil {
		t.Fatalf("expected error for invalid config")
	}

	odd := testConfig()
	odd.Smoother.Strategy = "kalman"
	if _, err := NewListener(odd, 9, Callbacks{}); err == nil {
		t.Fatalf("expected error for unknown smoother strategy")
	}

	// Nil config falls back to defaults
	if _, err := NewListener(nil, 0, Callbacks{}); err != nil {
		t.Fatalf("nil config should use defaults: %v", err)
	}
}
