package smoothing

import "math"

// OneEuroParams contains parameters for the one-euro filter. Durations are
// in seconds, cutoffs in Hz.
type OneEuroParams struct {
	MinCutoff    float64 `json:"min_cutoff"`    // smoothing at rest
	Beta         float64 `json:"beta"`          // speed coefficient
	DerivCutoff  float64 `json:"deriv_cutoff"`  // derivative low-pass cutoff
	MaxDt        float64 `json:"max_dt"`        // dt ceiling against stalls
	DropoutGrace float64 `json:"dropout_grace"` // unvoiced time before reset
}

// DefaultOneEuroParams returns filter defaults
func DefaultOneEuroParams() OneEuroParams {
	return OneEuroParams{
		MinCutoff:    1.1,
		Beta:         0.01,
		DerivCutoff:  1.2,
		MaxDt:        0.150,
		DropoutGrace: 0.200,
	}
}

// OneEuro is an adaptive low-pass filter whose cutoff rises with the
// estimated rate of change: low lag on fast pitch movement, strong smoothing
// when the signal is near-static.
//
// References:
// - Casiez, G., Roussel, N., Vogel, D. (2012). "1€ Filter: A Simple Speed-based Low-pass Filter"
type OneEuro struct {
	params OneEuroParams

	value       float64
	deriv       float64
	initialized bool
	dropout     float64
}

// NewOneEuro creates a one-euro filter
func NewOneEuro(params OneEuroParams) *OneEuro {
	return &OneEuro{params: params}
}

func (s *OneEuro) Update(rawHz, dt float64) float64 {
	s.dropout = 0

	if !s.initialized {
		s.value = rawHz
		s.deriv = 0
		s.initialized = true
		return s.value
	}

	dt = clampDt(dt, s.params.MaxDt)
	if dt == 0 {
		return s.value
	}

	// Estimate the rate of change, itself low-passed
	rawDeriv := (rawHz - s.value) / dt
	s.deriv = lowpass(s.deriv, rawDeriv, alpha(s.params.DerivCutoff, dt))

	cutoff := s.params.MinCutoff + s.params.Beta*math.Abs(s.deriv)
	s.value = lowpass(s.value, rawHz, alpha(cutoff, dt))

	return s.value
}

func (s *OneEuro) MarkDropout(dt float64) {
	if !s.initialized {
		return
	}
	s.dropout += clampDt(dt, s.params.MaxDt)
	if s.dropout >= s.params.DropoutGrace {
		s.Reset()
	}
}

func (s *OneEuro) Value() (float64, bool) {
	return s.value, s.initialized
}

func (s *OneEuro) Reset() {
	s.value = 0
	s.deriv = 0
	s.initialized = false
	s.dropout = 0
}

// alpha converts a cutoff frequency and frame interval into an exponential
// blend factor
func alpha(cutoff, dt float64) float64 {
	tau := 1.0 / (2.0 * math.Pi * cutoff)
	return 1.0 / (1.0 + tau/dt)
}

func lowpass(prev, next, a float64) float64 {
	return prev + a*(next-prev)
}
