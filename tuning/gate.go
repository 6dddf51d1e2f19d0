package tuning

import (
	"math"

	"github.com/tonalhq/woodshed/algorithms/common"
)

// GateParams contains parameters for the tolerance gate. Durations are in
// seconds.
type GateParams struct {
	ToleranceCents  float64 `json:"tolerance_cents"`
	HysteresisCents float64 `json:"hysteresis_cents"` // extra margin before the hold timer resets
	Hold            float64 `json:"hold"`             // sustain time required to complete
	HistoryLen      int     `json:"history_len"`      // cents median window, 5-11 (longer for low notes)
}

// DefaultGateParams returns gate defaults
func DefaultGateParams() GateParams {
	return GateParams{
		ToleranceCents:  30.0,
		HysteresisCents: 6.0,
		Hold:            0.400,
		HistoryLen:      7,
	}
}

// GateResult is the per-frame gate decision
type GateResult struct {
	InRange       bool    `json:"in_range"`
	JustCompleted bool    `json:"just_completed"` // fired once per completed hold
	Cents         float64 `json:"cents"`          // median-filtered signed offset
	Held          float64 `json:"held"`           // accumulated in-range time, seconds
}

// Gate decides whether the performer is sustaining the correct pitch. It
// converts a smoothed frequency into a cents offset from the target pitch
// class, median-filters the offset history to reject single-frame flicker,
// and accumulates a hold timer under hysteresis.
//
// The median is used over the mean because detector outliers are sparse
// large excursions, not symmetric noise.
//
// Lifecycle: one gate per listen session and target; Retarget resets all
// accumulated state.
type Gate struct {
	params GateParams

	target  int
	held    float64
	history *common.Ring
}

// NewGate creates a gate for the given target pitch class (0=C .. 11=B)
func NewGate(params GateParams, targetPC int) *Gate {
	if params.HistoryLen < 1 {
		params.HistoryLen = 1
	}
	return &Gate{
		params:  params,
		target:  targetPC,
		history: common.NewRing(params.HistoryLen),
	}
}

// Target returns the current target pitch class
func (g *Gate) Target() int {
	return g.target
}

// Retarget switches to a new target pitch class and resets gate state
func (g *Gate) Retarget(pc int) {
	g.target = pc
	g.Reset()
}

// Reset clears the hold timer and the cents history
func (g *Gate) Reset() {
	g.held = 0
	g.history.Clear()
}

// Evaluate feeds one smoothed frame into the gate. Unvoiced frames reset
// the hold timer and clear the history so stale offsets from before a
// dropout cannot leak into the next note.
func (g *Gate) Evaluate(hz float64, voiced bool, dt float64) GateResult {
	if !voiced {
		g.Reset()
		return GateResult{}
	}

	cents, ok := CentsFromPitchClass(hz, g.target)
	if !ok {
		g.Reset()
		return GateResult{}
	}

	g.history.Push(cents)
	median := common.Median(g.history.Values())
	abs := math.Abs(median)

	inRange := abs <= g.params.ToleranceCents

	// Hysteresis: only a clear excursion past tolerance+margin resets the
	// timer, preventing on/off flicker exactly at the boundary
	if abs > g.params.ToleranceCents+g.params.HysteresisCents {
		g.held = 0
	}

	justCompleted := false
	if inRange {
		if dt > 0 {
			g.held += dt
		}
		if g.held >= g.params.Hold {
			justCompleted = true
			g.held = 0
		}
	}

	return GateResult{
		InRange:       inRange,
		JustCompleted: justCompleted,
		Cents:         median,
		Held:          g.held,
	}
}
