package tempo

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/tonalhq/woodshed/logging"
)

// PolyrhythmParams contains the polyrhythm coordinator parameters. All
// durations are in seconds.
type PolyrhythmParams struct {
	Lookahead   float64 `json:"lookahead"`
	Tick        float64 `json:"tick"`
	StartDelay  float64 `json:"start_delay"`
	Coincidence float64 `json:"coincidence"` // window counting two hits as simultaneous
}

// DefaultPolyrhythmParams returns coordinator defaults
func DefaultPolyrhythmParams() PolyrhythmParams {
	return PolyrhythmParams{
		Lookahead:   0.120,
		Tick:        0.025,
		StartDelay:  0.060,
		Coincidence: 0.008,
	}
}

// PulseEvent is one click of one stream. Coincident marks pulses landing
// within the coincidence window of the other stream, for accenting
// simultaneous hits.
type PulseEvent struct {
	Time       float64 `json:"time"`
	Stream     int     `json:"stream"` // 0 = A, 1 = B
	Index      int     `json:"index"`  // ordinal within the bar for that stream
	Coincident bool    `json:"coincident"`
}

// PulseFunc receives scheduled pulse events; it must not block
type PulseFunc func(PulseEvent)

// Polyrhythm schedules two independent pulse streams (A against B) over one
// shared bar from one anchor and one clock. Each stream advances its own
// accumulator by barSeconds/count, so the A:B ratio falls out of comparing
// time values directly and no common subdivision is needed: 5 against 7
// works the same as 3 against 4. Phase lock between the streams is
// guaranteed by the shared origin.
type Polyrhythm struct {
	params PolyrhythmParams
	clock  Clock
	pulse  PulseFunc
	log    logging.Logger

	mu      sync.Mutex
	running bool
	origin  float64
	stepA   float64
	stepB   float64
	nextA   float64
	nextB   float64
	idxA    int
	idxB    int
	countA  int
	countB  int
}

// NewPolyrhythm creates a stopped coordinator
func NewPolyrhythm(params PolyrhythmParams, clock Clock, pulse PulseFunc) (*Polyrhythm, error) {
	if clock == nil {
		return nil, fmt.Errorf("polyrhythm needs a clock")
	}
	if pulse == nil {
		return nil, fmt.Errorf("polyrhythm needs a pulse callback")
	}
	if params.Lookahead <= 0 || params.Tick <= 0 {
		return nil, fmt.Errorf("invalid polyrhythm timing: lookahead %.3f, tick %.3f", params.Lookahead, params.Tick)
	}

	return &Polyrhythm{
		params: params,
		clock:  clock,
		pulse:  pulse,
		log:    logging.WithFields(logging.Fields{"component": "polyrhythm"}),
	}, nil
}

// Start begins scheduling countA-against-countB over barSeconds. Both
// streams share the anchor at now + StartDelay.
func (p *Polyrhythm) Start(countA, countB int, barSeconds float64) error {
	if countA < 1 || countB < 1 {
		return fmt.Errorf("invalid pulse counts: %d against %d", countA, countB)
	}
	if barSeconds <= 0 || math.IsNaN(barSeconds) || math.IsInf(barSeconds, 0) {
		return fmt.Errorf("invalid bar length: %v", barSeconds)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return fmt.Errorf("polyrhythm already running")
	}

	origin := p.clock.Now() + p.params.StartDelay
	p.origin = origin
	p.countA = countA
	p.countB = countB
	p.stepA = barSeconds / float64(countA)
	p.stepB = barSeconds / float64(countB)
	p.nextA = origin
	p.nextB = origin
	p.idxA = 0
	p.idxB = 0
	p.running = true

	p.log.Info("polyrhythm started", logging.Fields{
		"count_a": countA,
		"count_b": countB,
		"bar":     barSeconds,
		"origin":  origin,
	})
	return nil
}

// Stop halts future scheduling; emitted pulses play out
func (p *Polyrhythm) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.running = false
	p.log.Info("polyrhythm stopped")
}

// Running reports the coordinator state
func (p *Polyrhythm) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Tick drains both streams' due pulses within the lookahead window. Like
// the single-stream scheduler, pulses that slipped behind by more than the
// window are rolled over without emission.
func (p *Polyrhythm) Tick(now float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}

	horizon := now + p.params.Lookahead
	floor := now - p.params.Lookahead

	for p.nextA < horizon {
		if p.nextA >= floor {
			p.pulse(PulseEvent{
				Time:       p.nextA,
				Stream:     0,
				Index:      p.idxA,
				Coincident: p.coincides(p.nextA, p.stepB),
			})
		}
		p.nextA += p.stepA
		p.idxA = (p.idxA + 1) % p.countA
	}

	for p.nextB < horizon {
		if p.nextB >= floor {
			p.pulse(PulseEvent{
				Time:       p.nextB,
				Stream:     1,
				Index:      p.idxB,
				Coincident: p.coincides(p.nextB, p.stepA),
			})
		}
		p.nextB += p.stepB
		p.idxB = (p.idxB + 1) % p.countB
	}
}

// coincides tests whether t lands within the coincidence window of the
// other stream's grid. Both grids share the same origin, so distance to the
// nearest multiple of the other step is enough.
func (p *Polyrhythm) coincides(t, otherStep float64) bool {
	phase := math.Mod(t-p.origin, otherStep)
	if phase < 0 {
		phase += otherStep
	}
	d := math.Min(phase, otherStep-phase)
	return d < p.params.Coincidence
}

// Run drives Tick from a coarse ticker until ctx is canceled
func (p *Polyrhythm) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Duration(p.params.Tick * float64(time.Second)))
	defer ticker.Stop()
	defer p.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.Tick(p.clock.Now())
		}
	}
}
