package config

import "fmt"

// Instrument identifies the register a practice session is tuned for.
// Low instruments need heavier smoothing and wider gate history because a
// single detector error perturbs cents more at low frequencies.
type Instrument string

const (
	InstrumentVoice   Instrument = "voice"
	InstrumentGuitar  Instrument = "guitar"
	InstrumentBass    Instrument = "bass"
	InstrumentViolin  Instrument = "violin"
	InstrumentGeneric Instrument = "generic"
)

// DetectionConfig holds the per-frame pitch estimator parameters
type DetectionConfig struct {
	SampleRate int `json:"sample_rate" yaml:"sample_rate"`
	WindowSize int `json:"window_size" yaml:"window_size"`

	// Frequency range constraints
	MinFreq float64 `json:"min_freq" yaml:"min_freq"` // Hz
	MaxFreq float64 `json:"max_freq" yaml:"max_freq"` // Hz

	YinThreshold float64 `json:"yin_threshold" yaml:"yin_threshold"` // 0.08-0.15 typical
	NoiseFloor   float64 `json:"noise_floor" yaml:"noise_floor"`     // RMS silence gate
}

// SmootherStrategy selects the temporal filter applied to raw estimates
type SmootherStrategy string

const (
	SmootherExponential SmootherStrategy = "exponential"
	SmootherOneEuro     SmootherStrategy = "one-euro"
)

// SmootherConfig holds the temporal smoothing parameters
type SmootherConfig struct {
	Strategy SmootherStrategy `json:"strategy" yaml:"strategy"`

	// Adaptive exponential parameters
	BaseTauMs      float64 `json:"base_tau_ms" yaml:"base_tau_ms"`
	BassTauMs      float64 `json:"bass_tau_ms" yaml:"bass_tau_ms"`       // extra tau at the bottom of the range
	BassKneeFreq   float64 `json:"bass_knee_freq" yaml:"bass_knee_freq"` // Hz below which extra tau ramps in
	MaxDtMs        float64 `json:"max_dt_ms" yaml:"max_dt_ms"`           // dt clamp against stalls
	DropoutGraceMs float64 `json:"dropout_grace_ms" yaml:"dropout_grace_ms"`

	// One-euro parameters
	MinCutoff   float64 `json:"min_cutoff" yaml:"min_cutoff"`     // Hz
	Beta        float64 `json:"beta" yaml:"beta"`                 // speed coefficient
	DerivCutoff float64 `json:"deriv_cutoff" yaml:"deriv_cutoff"` // Hz
}

// GateConfig holds the tolerance gate parameters
type GateConfig struct {
	ToleranceCents  float64 `json:"tolerance_cents" yaml:"tolerance_cents"`
	HysteresisCents float64 `json:"hysteresis_cents" yaml:"hysteresis_cents"`
	HoldMs          float64 `json:"hold_ms" yaml:"hold_ms"`
	HistoryLen      int     `json:"history_len" yaml:"history_len"` // cents median window, 5-11
}

// SchedulerConfig holds the look-ahead scheduler parameters
type SchedulerConfig struct {
	LookaheadSec  float64 `json:"lookahead_sec" yaml:"lookahead_sec"`
	TickSec       float64 `json:"tick_sec" yaml:"tick_sec"`
	StartDelaySec float64 `json:"start_delay_sec" yaml:"start_delay_sec"`

	// CoincidenceSec is the window within which two polyrhythm streams
	// count as a simultaneous hit
	CoincidenceSec float64 `json:"coincidence_sec" yaml:"coincidence_sec"`
}

// Config aggregates every tunable parameter of the engine
type Config struct {
	Detection DetectionConfig `json:"detection" yaml:"detection"`
	Smoother  SmootherConfig  `json:"smoother" yaml:"smoother"`
	Gate      GateConfig      `json:"gate" yaml:"gate"`
	Scheduler SchedulerConfig `json:"scheduler" yaml:"scheduler"`
}

// DefaultDetectionConfig returns sensible defaults for pitch detection
func DefaultDetectionConfig() DetectionConfig {
	return DetectionConfig{
		SampleRate:   44100,
		WindowSize:   8192,
		MinFreq:      30.0,  // low bass
		MaxFreq:      900.0, // high vocal/instrumental range
		YinThreshold: 0.10,
		NoiseFloor:   0.006,
	}
}

// DefaultSmootherConfig returns sensible defaults for temporal smoothing
func DefaultSmootherConfig() SmootherConfig {
	return SmootherConfig{
		Strategy:       SmootherExponential,
		BaseTauMs:      45.0,
		BassTauMs:      90.0,
		BassKneeFreq:   160.0,
		MaxDtMs:        150.0,
		DropoutGraceMs: 200.0,
		MinCutoff:      1.1,
		Beta:           0.01,
		DerivCutoff:    1.2,
	}
}

// DefaultGateConfig returns sensible defaults for the tolerance gate
func DefaultGateConfig() GateConfig {
	return GateConfig{
		ToleranceCents:  30.0,
		HysteresisCents: 6.0,
		HoldMs:          400.0,
		HistoryLen:      7,
	}
}

// DefaultSchedulerConfig returns sensible defaults for look-ahead scheduling
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		LookaheadSec:   0.120,
		TickSec:        0.025,
		StartDelaySec:  0.060,
		CoincidenceSec: 0.008,
	}
}

// Default returns the full default configuration
func Default() *Config {
	return &Config{
		Detection: DefaultDetectionConfig(),
		Smoother:  DefaultSmootherConfig(),
		Gate:      DefaultGateConfig(),
		Scheduler: DefaultSchedulerConfig(),
	}
}

// ForInstrument returns a configuration tuned for the given instrument's
// register. Unknown instruments get the generic defaults.
func ForInstrument(instrument Instrument) *Config {
	cfg := Default()

	switch instrument {
	case InstrumentVoice:
		cfg.Detection.MinFreq = 70.0
		cfg.Detection.MaxFreq = 1100.0
		cfg.Gate.ToleranceCents = 36.0 // vibrato needs slack

	case InstrumentGuitar:
		cfg.Detection.MinFreq = 75.0
		cfg.Detection.MaxFreq = 700.0

	case InstrumentBass:
		cfg.Detection.MinFreq = 30.0
		cfg.Detection.MaxFreq = 400.0
		cfg.Smoother.BassTauMs = 140.0
		cfg.Gate.HistoryLen = 11 // low notes need a longer median window

	case InstrumentViolin:
		cfg.Detection.MinFreq = 190.0
		cfg.Detection.MaxFreq = 1400.0
		cfg.Gate.ToleranceCents = 25.0
	}

	return cfg
}

// Validate checks the detection parameters for values the estimator
// cannot work with
func (c *DetectionConfig) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate: %d", c.SampleRate)
	}
	if c.WindowSize <= 0 {
		return fmt.Errorf("invalid window size: %d", c.WindowSize)
	}
	if c.MinFreq <= 0 || c.MaxFreq <= c.MinFreq {
		return fmt.Errorf("invalid frequency range: [%.1f, %.1f]", c.MinFreq, c.MaxFreq)
	}
	if c.YinThreshold <= 0 || c.YinThreshold >= 1 {
		return fmt.Errorf("invalid YIN threshold: %.3f", c.YinThreshold)
	}
	return nil
}

// Validate checks the gate parameters
func (c *GateConfig) Validate() error {
	if c.ToleranceCents <= 0 {
		return fmt.Errorf("invalid tolerance: %.1f cents", c.ToleranceCents)
	}
	if c.HysteresisCents < 0 {
		return fmt.Errorf("invalid hysteresis margin: %.1f cents", c.HysteresisCents)
	}
	if c.HoldMs <= 0 {
		return fmt.Errorf("invalid hold time: %.1f ms", c.HoldMs)
	}
	if c.HistoryLen < 1 {
		return fmt.Errorf("invalid history length: %d", c.HistoryLen)
	}
	return nil
}

// Validate checks the scheduler parameters
func (c *SchedulerConfig) Validate() error {
	if c.LookaheadSec <= 0 {
		return fmt.Errorf("invalid lookahead: %.3f s", c.LookaheadSec)
	}
	if c.TickSec <= 0 || c.TickSec > c.LookaheadSec {
		return fmt.Errorf("invalid tick interval: %.3f s (lookahead %.3f s)", c.TickSec, c.LookaheadSec)
	}
	if c.StartDelaySec < 0 {
		return fmt.Errorf("invalid start delay: %.3f s", c.StartDelaySec)
	}
	return nil
}

// Validate checks the full configuration
func (c *Config) Validate() error {
	if err := c.Detection.Validate(); err != nil {
		return fmt.Errorf("detection: %w", err)
	}
	if err := c.Gate.Validate(); err != nil {
		return fmt.Errorf("gate: %w", err)
	}
	if err := c.Scheduler.Validate(); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	return nil
}
