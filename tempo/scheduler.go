package tempo

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tonalhq/woodshed/logging"
)

// SchedulerParams contains the look-ahead scheduling parameters. All
// durations are in seconds.
type SchedulerParams struct {
	Lookahead      float64 `json:"lookahead"`        // window scheduled ahead of the clock
	Tick           float64 `json:"tick"`             // coarse wake-up interval for Run
	StartDelay     float64 `json:"start_delay"`      // safety offset before the first event
	EventsPerCycle int     `json:"events_per_cycle"` // beats per bar; index wraps here
}

// DefaultSchedulerParams returns scheduler defaults
func DefaultSchedulerParams() SchedulerParams {
	return SchedulerParams{
		Lookahead:      0.120,
		Tick:           0.025,
		StartDelay:     0.060,
		EventsPerCycle: 4,
	}
}

// Event is one scheduled trigger. Time is an audio-clock timestamp slightly
// in the future; the trigger callback is responsible for producing sound at
// exactly that time, not at callback time.
type Event struct {
	Time  float64 `json:"time"`
	Index int     `json:"index"` // ordinal within the cycle, 0 = downbeat
}

// TriggerFunc receives scheduled events. It must not block: events are
// fire-and-forget registrations against the audio output.
type TriggerFunc func(Event)

// Scheduler emits periodic events slightly ahead of playback time so the
// audio subsystem's own clock executes them sample-accurately, decoupled
// from imprecise timer wake-ups. Scheduling advances by accumulating the
// next-event time rather than re-deriving it from the wall clock, so jitter
// in the wake-ups never becomes drift in the events.
//
// State machine: Stopped -> Running on Start, back on Stop. Stop halts
// future scheduling only; events already handed to the trigger play out
// unless the caller silences its own sound nodes.
type Scheduler struct {
	params   SchedulerParams
	clock    Clock
	registry *AnchorRegistry // optional shared downbeat sync
	trigger  TriggerFunc
	id       uuid.UUID
	log      logging.Logger

	mu       sync.Mutex
	running  bool
	period   float64
	nextTime float64
	index    int
}

// NewScheduler creates a stopped scheduler. The registry may be nil when
// downbeat sharing between instances is not wanted.
func NewScheduler(params SchedulerParams, clock Clock, registry *AnchorRegistry, trigger TriggerFunc) (*Scheduler, error) {
	if clock == nil {
		return nil, fmt.Errorf("scheduler needs a clock")
	}
	if trigger == nil {
		return nil, fmt.Errorf("scheduler needs a trigger callback")
	}
	if params.Lookahead <= 0 || params.Tick <= 0 {
		return nil, fmt.Errorf("invalid scheduler timing: lookahead %.3f, tick %.3f", params.Lookahead, params.Tick)
	}
	if params.EventsPerCycle < 1 {
		params.EventsPerCycle = 1
	}

	id := uuid.New()
	return &Scheduler{
		params:   params,
		clock:    clock,
		registry: registry,
		trigger:  trigger,
		id:       id,
		log:      logging.WithFields(logging.Fields{"component": "scheduler", "id": id.String()}),
	}, nil
}

// Start transitions Stopped -> Running with a fresh anchor. When a shared
// anchor already exists the first event lands on the next shared downbeat;
// otherwise this instance claims ownership and anchors at now + StartDelay.
func (s *Scheduler) Start(periodSeconds float64) error {
	if periodSeconds <= 0 || math.IsNaN(periodSeconds) || math.IsInf(periodSeconds, 0) {
		return fmt.Errorf("invalid period: %v", periodSeconds)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	now := s.clock.Now()
	s.period = periodSeconds
	s.index = 0

	aligned := false
	if s.registry != nil {
		if t, ok := s.registry.NextDownbeat(now); ok {
			s.nextTime = t
			aligned = true
		}
	}
	if !aligned {
		s.nextTime = now + s.params.StartDelay
		if s.registry != nil {
			barLength := s.period * float64(s.params.EventsPerCycle)
			s.registry.Claim(s.id, Anchor{Origin: s.nextTime, BarLength: barLength})
		}
	}

	s.running = true
	s.log.Info("scheduler started", logging.Fields{
		"period":  s.period,
		"aligned": aligned,
		"first":   s.nextTime,
	})
	return nil
}

// Stop transitions Running -> Stopped and releases anchor ownership. Already
// emitted events are not retracted.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Scheduler) stopLocked() {
	if !s.running {
		return
	}
	s.running = false
	if s.registry != nil {
		s.registry.Release(s.id)
	}
	s.log.Info("scheduler stopped")
}

// SetPeriod changes the period on a running scheduler by re-anchoring:
// stop, then start fresh, so clicks never land at inconsistent phase
// mid-stream. On a stopped scheduler it only validates.
func (s *Scheduler) SetPeriod(periodSeconds float64) error {
	s.mu.Lock()
	wasRunning := s.running
	s.stopLocked()
	s.mu.Unlock()

	if !wasRunning {
		if periodSeconds <= 0 || math.IsNaN(periodSeconds) || math.IsInf(periodSeconds, 0) {
			return fmt.Errorf("invalid period: %v", periodSeconds)
		}
		return nil
	}
	return s.Start(periodSeconds)
}

// Running reports the scheduler state
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Tick schedules every event falling within the lookahead window ahead of
// now. Events that slipped further behind than the window (a stalled caller)
// are rolled over without emission so a late wake-up never floods the
// trigger with catch-up events.
func (s *Scheduler) Tick(now float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	horizon := now + s.params.Lookahead
	for s.nextTime < horizon {
		if s.nextTime >= now-s.params.Lookahead {
			s.trigger(Event{Time: s.nextTime, Index: s.index})
		}
		s.nextTime += s.period
		s.index = (s.index + 1) % s.params.EventsPerCycle
	}
}

// Run drives Tick from a coarse ticker until ctx is canceled. It stops the
// scheduler on the way out.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Duration(s.params.Tick * float64(time.Second)))
	defer ticker.Stop()
	defer s.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Tick(s.clock.Now())
		}
	}
}
