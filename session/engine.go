package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tonalhq/woodshed/logging"
)

// Runner is anything with a cancelable run loop; satisfied by
// tempo.Scheduler and tempo.Polyrhythm
type Runner interface {
	Run(ctx context.Context) error
}

// Engine runs a capture pump and any number of scheduler loops under one
// shared cancellation context. The first terminal error (acquisition
// failure, a runner failing) cancels everything else.
type Engine struct {
	source   FrameSource
	listener *Listener
	runners  []Runner
	log      logging.Logger
}

// NewEngine creates an engine. Source and listener may both be nil for a
// schedulers-only engine (metronome without detection).
func NewEngine(source FrameSource, listener *Listener) *Engine {
	return &Engine{
		source:   source,
		listener: listener,
		log:      logging.WithFields(logging.Fields{"component": "engine"}),
	}
}

// Add registers a scheduler loop to run alongside the capture pump
func (e *Engine) Add(r Runner) {
	e.runners = append(e.runners, r)
}

// Run blocks until ctx is canceled or a terminal error occurs. Context
// cancellation is a normal shutdown and returns nil.
func (e *Engine) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, r := range e.runners {
		r := r
		g.Go(func() error {
			if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	if e.source != nil && e.listener != nil {
		g.Go(func() error {
			return e.pump(ctx)
		})
	}

	return g.Wait()
}

// pump reads frames until the source fails or ctx is done. Acquisition
// failure is terminal: it is logged once and returned; the engine never
// retries on its own.
func (e *Engine) pump(ctx context.Context) error {
	last := time.Now()

	for {
		frame, err := e.source.ReadFrame(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			e.log.Error(err, "audio acquisition failed")
			return fmt.Errorf("audio acquisition: %w", err)
		}

		now := time.Now()
		dt := now.Sub(last).Seconds()
		last = now

		e.listener.ProcessFrame(frame, dt)

		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}
