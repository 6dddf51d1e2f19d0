package smoothing

import (
	"math"

	"github.com/tonalhq/woodshed/algorithms/common"
)

// ExponentialParams contains parameters for the adaptive exponential smoother.
// All durations are in seconds.
type ExponentialParams struct {
	BaseTau      float64 `json:"base_tau"`      // time constant for mid/high register
	BassTau      float64 `json:"bass_tau"`      // extra time constant blended in at low frequencies
	BassKneeFreq float64 `json:"bass_knee_freq"` // Hz below which the extra tau ramps in
	MaxDt        float64 `json:"max_dt"`        // dt ceiling against stalls
	DropoutGrace float64 `json:"dropout_grace"` // unvoiced time before reset
}

// DefaultExponentialParams returns smoother defaults
func DefaultExponentialParams() ExponentialParams {
	return ExponentialParams{
		BaseTau:      0.045,
		BassTau:      0.090,
		BassKneeFreq: 160.0,
		MaxDt:        0.150,
		DropoutGrace: 0.200,
	}
}

// Exponential is an adaptive exponential smoother. The time constant grows
// toward the bottom of the range because a single detector error perturbs
// cents more at low register, so bass notes need heavier smoothing.
type Exponential struct {
	params ExponentialParams

	value       float64
	initialized bool
	dropout     float64
}

// NewExponential creates an adaptive exponential smoother
func NewExponential(params ExponentialParams) *Exponential {
	return &Exponential{params: params}
}

func (s *Exponential) Update(rawHz, dt float64) float64 {
	s.dropout = 0

	if !s.initialized {
		s.value = rawHz
		s.initialized = true
		return s.value
	}

	dt = clampDt(dt, s.params.MaxDt)
	if dt == 0 {
		return s.value
	}

	tau := s.params.BaseTau + s.bassExtra(rawHz)
	k := 1.0 - math.Exp(-dt/tau)
	s.value += (rawHz - s.value) * k

	return s.value
}

// bassExtra ramps the extra time constant in linearly below the knee
func (s *Exponential) bassExtra(rawHz float64) float64 {
	if s.params.BassKneeFreq <= 0 || rawHz >= s.params.BassKneeFreq {
		return 0
	}
	return s.params.BassTau * common.Clamp((s.params.BassKneeFreq-rawHz)/s.params.BassKneeFreq, 0, 1)
}

func (s *Exponential) MarkDropout(dt float64) {
	if !s.initialized {
		return
	}
	s.dropout += clampDt(dt, s.params.MaxDt)
	if s.dropout >= s.params.DropoutGrace {
		s.Reset()
	}
}

func (s *Exponential) Value() (float64, bool) {
	return s.value, s.initialized
}

func (s *Exponential) Reset() {
	s.value = 0
	s.initialized = false
	s.dropout = 0
}
