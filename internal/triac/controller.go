// Package triac runs the zero-cross synchronised phase-control loop that
// fires the TRIAC once per mains half-cycle.
package triac

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/sweeney/halo-heater/internal/clock"
	"github.com/sweeney/halo-heater/internal/gpio"
	"github.com/sweeney/halo-heater/internal/logger"
	"github.com/sweeney/halo-heater/internal/logic"
	"github.com/sweeney/halo-heater/internal/state"
)

// ErrStopped is returned by Step once Stop has been called.
var ErrStopped = errors.New("triac: stopped")

// Timing holds the phase-control timings.
type Timing struct {
	HalfCycle time.Duration // latest usable firing point
	Settle    time.Duration // after the zero-cross falling edge
	Pulse     time.Duration // gate pulse width
	Idle      time.Duration // wait while not OPERATIONAL
}

// TimingFor returns the default timings for the given mains frequency.
func TimingFor(hz float64) Timing {
	return Timing{
		HalfCycle: logic.HalfCycle(hz),
		Settle:    10 * time.Microsecond,
		Pulse:     200 * time.Microsecond,
		Idle:      50 * time.Millisecond,
	}
}

// BarRenderer paints the power bar.
type BarRenderer interface {
	RenderBar(base int) error
}

// Outcome says what a half-cycle did.
type Outcome int

const (
	OutcomeIdle    Outcome = iota // not OPERATIONAL, nothing waited for
	OutcomeSkipped                // zero-cross seen, gate left off
	OutcomeFired                  // gate pulsed
)

// Result describes one Step.
type Result struct {
	Outcome   Outcome
	Effective float64
	Delay     time.Duration
	Pulse     time.Duration // gate high time, shortened near the end of the half-cycle
}

// Controller fires the TRIAC. It is driven by a single goroutine; only Stop
// may be called from elsewhere.
type Controller struct {
	zeroCross gpio.Input
	gate      gpio.Output
	store     *state.Store
	clock     clock.Clock
	bar       BarRenderer
	timing    Timing
	log       *logger.Logger

	stopped  atomic.Bool
	lastBase int
	failing  bool
}

// New creates a Controller. bar may be nil.
func New(zeroCross gpio.Input, gate gpio.Output, store *state.Store, clk clock.Clock, bar BarRenderer, timing Timing, log *logger.Logger) *Controller {
	if log == nil {
		log = logger.Nop()
	}
	return &Controller{
		zeroCross: zeroCross,
		gate:      gate,
		store:     store,
		clock:     clk,
		bar:       bar,
		timing:    timing,
		log:       log,
		lastBase:  -1,
	}
}

// Stop makes Run return and any pending zero-cross wait give up.
func (c *Controller) Stop() {
	c.stopped.Store(true)
}

// Step runs one half-cycle.
//
// Outside OPERATIONAL it sleeps Idle and returns. Otherwise it spins until
// the zero-cross line rises and falls, settles, snapshots the device record
// once, and pulses the gate after the firing delay. A pulse that would run
// past the end of the half-cycle is cut short there. The device lock is never
// held across a wait. The power bar is refreshed after the pulse whenever
// the base percentage has changed.
func (c *Controller) Step() (Result, error) {
	if c.store.Menu() != logic.MenuOperational {
		c.clock.Sleep(c.timing.Idle)
		return Result{Outcome: OutcomeIdle}, nil
	}

	if err := c.waitLevel(true); err != nil {
		return Result{}, err
	}
	if err := c.waitLevel(false); err != nil {
		return Result{}, err
	}
	c.clock.Spin(c.timing.Settle)

	view := c.store.Firing()
	res := Result{Outcome: OutcomeSkipped, Effective: view.Effective()}

	delay, fire := logic.FiringDelay(res.Effective, view.TriacOn, c.timing.HalfCycle)
	var width time.Duration
	if fire {
		width, fire = logic.PulseWidth(c.timing.Settle+delay, c.timing.Pulse, c.timing.HalfCycle)
	}
	if fire {
		res.Delay = delay
		res.Pulse = width
		c.clock.Spin(delay)
		if err := c.pulse(width); err != nil {
			return res, err
		}
		res.Outcome = OutcomeFired
	}

	if view.Base != c.lastBase && c.bar != nil {
		if err := c.bar.RenderBar(view.Base); err != nil {
			c.log.Warnw("power bar update failed", "error", err)
		} else {
			c.lastBase = view.Base
		}
	}
	return res, nil
}

func (c *Controller) waitLevel(high bool) error {
	for {
		if c.stopped.Load() {
			return ErrStopped
		}
		v, err := c.zeroCross.Value()
		if err != nil {
			return fmt.Errorf("read zero-cross: %w", err)
		}
		if v == high {
			return nil
		}
	}
}

func (c *Controller) pulse(width time.Duration) error {
	if err := c.gate.Set(true); err != nil {
		c.gate.Set(false)
		return fmt.Errorf("raise gate: %w", err)
	}
	c.clock.Spin(width)
	if err := c.gate.Set(false); err != nil {
		return fmt.Errorf("lower gate: %w", err)
	}
	return nil
}

// Run locks the goroutine to its OS thread, raises the thread's scheduling
// priority and repeats Step until ctx is cancelled or Stop is called.
// Hardware errors are logged once per failure episode and retried after Idle.
// The gate is left low on return.
func (c *Controller) Run(ctx context.Context) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := raisePriority(); err != nil {
		c.log.Warnw("could not raise triac thread priority", "error", err)
	}

	release := context.AfterFunc(ctx, c.Stop)
	defer release()
	defer func() {
		if err := c.gate.Set(false); err != nil {
			c.log.Errorw("failed to drive gate low", "error", err)
		}
	}()

	c.log.Infow("triac loop started", "half_cycle", c.timing.HalfCycle, "pulse", c.timing.Pulse)
	for !c.stopped.Load() {
		_, err := c.Step()
		switch {
		case err == nil:
			if c.failing {
				c.log.Infow("triac loop recovered")
				c.failing = false
			}
		case errors.Is(err, ErrStopped):
			return
		default:
			if !c.failing {
				c.log.Errorw("triac cycle failed", "error", err)
				c.failing = true
			}
			c.clock.Sleep(c.timing.Idle)
		}
	}
}
