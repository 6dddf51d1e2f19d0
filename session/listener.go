package session

import (
	"fmt"

	"github.com/tonalhq/woodshed/algorithms/pitch"
	"github.com/tonalhq/woodshed/algorithms/smoothing"
	"github.com/tonalhq/woodshed/config"
	"github.com/tonalhq/woodshed/logging"
	"github.com/tonalhq/woodshed/tuning"
)

// pitchUpdateInterval throttles the visual-display callback; per-frame
// updates are far denser than a display can use
const pitchUpdateInterval = 0.060

// Heard is the discriminated per-frame result: either no pitch this frame
// (Voiced=false) or a smoothed frequency plus the gate decision. It is the
// poll-interface counterpart of the callbacks, so the same pipeline can run
// under a real-time thread, a test harness, or a cooperative scheduler.
type Heard struct {
	Voiced    bool              `json:"voiced"`
	Frequency float64           `json:"frequency"` // smoothed, valid when Voiced
	Raw       pitch.Estimate    `json:"raw"`       // this frame's detector output
	Gate      tuning.GateResult `json:"gate"`
}

// Callbacks are the push-side outputs consumed by the excluded UI layer.
// Any of them may be nil.
type Callbacks struct {
	// OnPitchUpdate receives the smoothed frequency (voiced=false for no
	// pitch), throttled to roughly one update per 60ms
	OnPitchUpdate func(hz float64, voiced bool)

	// OnHeard fires every frame with the target pitch class and whether the
	// performer is currently in range
	OnHeard func(pc int, inRange bool)

	// OnCorrect fires once per completed hold
	OnCorrect func()
}

// Listener wires estimator -> smoother -> gate for one listening session
// against one target pitch class. It is driven one frame at a time and is
// not safe for concurrent use.
type Listener struct {
	estimator *pitch.Estimator
	smoother  smoothing.Smoother
	gate      *tuning.Gate
	callbacks Callbacks
	log       logging.Logger

	sinceUpdate float64
	closed      bool
}

// NewListener builds a listen pipeline from configuration
func NewListener(cfg *config.Config, targetPC int, callbacks Callbacks) (*Listener, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if targetPC < 0 || targetPC > 11 {
		return nil, fmt.Errorf("invalid target pitch class: %d", targetPC)
	}

	estimator, err := pitch.NewEstimator(pitch.Params{
		SampleRate: cfg.Detection.SampleRate,
		MinFreq:    cfg.Detection.MinFreq,
		MaxFreq:    cfg.Detection.MaxFreq,
		Threshold:  cfg.Detection.YinThreshold,
		NoiseFloor: cfg.Detection.NoiseFloor,
	})
	if err != nil {
		return nil, fmt.Errorf("building estimator: %w", err)
	}

	smoother, err := buildSmoother(cfg.Smoother)
	if err != nil {
		return nil, err
	}

	gate := tuning.NewGate(tuning.GateParams{
		ToleranceCents:  cfg.Gate.ToleranceCents,
		HysteresisCents: cfg.Gate.HysteresisCents,
		Hold:            cfg.Gate.HoldMs / 1000.0,
		HistoryLen:      cfg.Gate.HistoryLen,
	}, targetPC)

	return &Listener{
		estimator: estimator,
		smoother:  smoother,
		gate:      gate,
		callbacks: callbacks,
		log: logging.WithFields(logging.Fields{
			"component": "listener",
			"target":    tuning.PitchClassName(targetPC),
		}),
	}, nil
}

func buildSmoother(cfg config.SmootherConfig) (smoothing.Smoother, error) {
	switch cfg.Strategy {
	case config.SmootherExponential, "":
		return smoothing.NewExponential(smoothing.ExponentialParams{
			BaseTau:      cfg.BaseTauMs / 1000.0,
			BassTau:      cfg.BassTauMs / 1000.0,
			BassKneeFreq: cfg.BassKneeFreq,
			MaxDt:        cfg.MaxDtMs / 1000.0,
			DropoutGrace: cfg.DropoutGraceMs / 1000.0,
		}), nil
	case config.SmootherOneEuro:
		return smoothing.NewOneEuro(smoothing.OneEuroParams{
			MinCutoff:    cfg.MinCutoff,
			Beta:         cfg.Beta,
			DerivCutoff:  cfg.DerivCutoff,
			MaxDt:        cfg.MaxDtMs / 1000.0,
			DropoutGrace: cfg.DropoutGraceMs / 1000.0,
		}), nil
	default:
		return nil, fmt.Errorf("unknown smoother strategy: %q", cfg.Strategy)
	}
}

// ProcessFrame runs one audio frame through the pipeline and returns the
// discriminated result. dt is the elapsed time since the previous frame in
// seconds.
func (l *Listener) ProcessFrame(frame []float64, dt float64) Heard {
	if l.closed {
		return Heard{}
	}

	raw := l.estimator.Estimate(frame)

	if raw.Voiced {
		l.smoother.Update(raw.Frequency, dt)
	} else {
		// Brief misses ride the dropout grace; the smoother resets itself
		// once the grace is exceeded
		l.smoother.MarkDropout(dt)
	}

	hz, voiced := l.smoother.Value()
	gateResult := l.gate.Evaluate(hz, voiced, dt)

	heard := Heard{
		Voiced:    voiced,
		Frequency: hz,
		Raw:       raw,
		Gate:      gateResult,
	}

	l.emit(heard, dt)
	return heard
}

func (l *Listener) emit(heard Heard, dt float64) {
	if l.callbacks.OnHeard != nil {
		l.callbacks.OnHeard(l.gate.Target(), heard.Gate.InRange)
	}

	if heard.Gate.JustCompleted {
		l.log.Debug("hold completed", logging.Fields{"cents": heard.Gate.Cents})
		if l.callbacks.OnCorrect != nil {
			l.callbacks.OnCorrect()
		}
	}

	if l.callbacks.OnPitchUpdate != nil {
		l.sinceUpdate += dt
		if l.sinceUpdate >= pitchUpdateInterval {
			l.sinceUpdate = 0
			l.callbacks.OnPitchUpdate(heard.Frequency, heard.Voiced)
		}
	}
}

// Retarget switches the gate to a new target pitch class, resetting hold
// state but keeping the smoothed trajectory
func (l *Listener) Retarget(pc int) error {
	if pc < 0 || pc > 11 {
		return fmt.Errorf("invalid target pitch class: %d", pc)
	}
	l.gate.Retarget(pc)
	l.log = logging.WithFields(logging.Fields{
		"component": "listener",
		"target":    tuning.PitchClassName(pc),
	})
	return nil
}

// Close ends the session; further frames are ignored
func (l *Listener) Close() {
	if l.closed {
		return
	}
	l.closed = true
	l.smoother.Reset()
	l.gate.Reset()
}
