// Package button runs the single-button user interface: gesture detection,
// the menu state machine, comfort-menu timeout and the status pixel.
package button

import (
	"context"
	"time"

	"github.com/sweeney/halo-heater/internal/clock"
	"github.com/sweeney/halo-heater/internal/gpio"
	"github.com/sweeney/halo-heater/internal/logger"
	"github.com/sweeney/halo-heater/internal/logic"
	"github.com/sweeney/halo-heater/internal/state"
)

// Timing holds the button and menu timings.
type Timing struct {
	Poll         time.Duration
	Debounce     time.Duration
	LongPress    time.Duration
	MenuTimeout  time.Duration
	Blink        time.Duration // comfort-menu blink half-period
	ComfortFrame time.Duration // how often OPERATIONAL re-checks the comfort color
}

// DefaultTiming is the reference timing.
var DefaultTiming = Timing{
	Poll:         20 * time.Millisecond,
	Debounce:     50 * time.Millisecond,
	LongPress:    1500 * time.Millisecond,
	MenuTimeout:  4000 * time.Millisecond,
	Blink:        200 * time.Millisecond,
	ComfortFrame: time.Second,
}

// Renderer paints the status pixel.
type Renderer interface {
	RenderStatus(d logic.Device, lit bool) error
	UnlockAnimation(sleep func(time.Duration)) error
}

// Machine is the button state machine. It is driven by a single goroutine.
type Machine struct {
	input  gpio.Input
	store  *state.Store
	clock  clock.Clock
	leds   Renderer
	timing Timing
	sink   logic.Sink
	log    *logger.Logger

	detector *logic.PressDetector

	// What the status pixel currently shows.
	shownMenu    logic.MenuState
	shownComfort logic.ComfortMode
	lit          bool
	lastBlink    time.Time
	lastFrame    time.Time

	failing bool
}

// New creates a Machine.
func New(input gpio.Input, store *state.Store, clk clock.Clock, leds Renderer, timing Timing, sink logic.Sink, log *logger.Logger) *Machine {
	if sink == nil {
		sink = logic.Discard
	}
	if log == nil {
		log = logger.Nop()
	}
	now := clk.Now()
	return &Machine{
		input:     input,
		store:     store,
		clock:     clk,
		leds:      leds,
		timing:    timing,
		sink:      sink,
		log:       log,
		detector:  logic.NewPressDetector(timing.Debounce, timing.LongPress),
		lastBlink: now,
		lastFrame: now,
	}
}

// Step runs one poll: refresh the status pixel, sample the button, apply a
// completed gesture and check the comfort-menu timeout. It returns the
// transition applied, if any.
func (m *Machine) Step() logic.Action {
	now := m.clock.Now()
	m.refresh(now)

	pressed, err := m.input.Value()
	if err != nil {
		if !m.failing {
			m.log.Errorw("button read failed", "error", err)
			m.failing = true
		}
		pressed = false
	} else if m.failing {
		m.log.Infow("button read recovered")
		m.failing = false
	}

	action := logic.ActionNone
	switch m.detector.Process(logic.PressInput{Pressed: pressed, Time: now}) {
	case logic.GestureLong:
		action = m.longPress(now)
	case logic.GestureShort:
		action = m.shortClick(now)
	}
	if action != logic.ActionNone {
		return action
	}

	// A click started inside the comfort menu must still cycle the preset.
	if m.detector.Pressing() {
		return logic.ActionNone
	}
	return m.checkTimeout(now)
}

// refresh keeps the status pixel in step with the device record: a full
// repaint on every menu change, the blink in COMFORT_MENU and a periodic
// check for comfort changes made remotely while OPERATIONAL.
func (m *Machine) refresh(now time.Time) {
	d := m.store.Snapshot()

	if d.Menu != m.shownMenu {
		if m.shownMenu != "" {
			m.log.Infow("menu state", "from", m.shownMenu, "to", d.Menu)
		}
		m.show(d)
		return
	}

	switch {
	case d.Menu == logic.MenuOperational && d.TriacOn:
		if now.Sub(m.lastFrame) > m.timing.ComfortFrame {
			m.lastFrame = now
			if d.Comfort != m.shownComfort {
				m.show(d)
			}
		}
	case d.Menu == logic.MenuComfort && d.TriacOn:
		if now.Sub(m.lastBlink) > m.timing.Blink {
			m.lit = !m.lit
			m.lastBlink = now
			m.paint(d, m.lit)
		}
	}
}

// show paints d lit and records it as shown.
func (m *Machine) show(d logic.Device) {
	m.shownMenu = d.Menu
	m.shownComfort = d.Comfort
	m.lit = true
	m.lastBlink = m.clock.Now()
	m.paint(d, true)
}

func (m *Machine) paint(d logic.Device, lit bool) {
	if m.leds == nil {
		return
	}
	if err := m.leds.RenderStatus(d, lit); err != nil {
		m.log.Warnw("status pixel update failed", "error", err)
	}
}

func (m *Machine) longPress(now time.Time) logic.Action {
	m.log.Infow("long press", "threshold", m.timing.LongPress, "held", m.detector.HeldFor(now))

	locked := m.store.Menu() == logic.MenuLocked
	if locked && m.leds != nil {
		// Played before taking the lock.
		if err := m.leds.UnlockAnimation(m.clock.Sleep); err != nil {
			m.log.Warnw("unlock animation failed", "error", err)
		}
	}

	action := logic.ActionNone
	var after logic.Device
	m.store.Update(func(d *logic.Device) {
		// A remote unlock during the animation must not turn into a
		// power toggle.
		if locked {
			action = logic.Unlock(d)
		} else {
			action = logic.LongPress(d)
		}
		after = *d
	})
	m.finish(action, after)
	return action
}

func (m *Machine) shortClick(now time.Time) logic.Action {
	action := logic.ActionNone
	var after logic.Device
	m.store.Update(func(d *logic.Device) {
		action = logic.ShortClick(d, now)
		after = *d
	})
	if action == logic.ActionNone {
		m.log.Debugw("short click ignored", "menu", after.Menu, "triac_on", after.TriacOn)
		return action
	}
	m.finish(action, after)
	return action
}

func (m *Machine) checkTimeout(now time.Time) logic.Action {
	if m.store.Menu() != logic.MenuComfort {
		return logic.ActionNone
	}
	action := logic.ActionNone
	var after logic.Device
	m.store.Update(func(d *logic.Device) {
		action = logic.MenuTimeout(d, now, m.timing.MenuTimeout)
		after = *d
	})
	if action != logic.ActionNone {
		m.finish(action, after)
	}
	return action
}

// finish logs, repaints and reports a transition.
func (m *Machine) finish(action logic.Action, after logic.Device) {
	m.log.Infow("button transition",
		"action", action,
		"menu", after.Menu,
		"triac_on", after.TriacOn,
		"percentage", after.Base,
		"comfort_mode", after.Comfort,
	)
	if after.Menu != m.shownMenu {
		m.log.Infow("menu state", "from", m.shownMenu, "to", after.Menu)
	}
	m.show(after)
	m.sink(logic.NewEvent(m.clock.Now(), logic.EventTypeFor(action), action, logic.SourceButton, after))
}

// Run polls every Poll until ctx is cancelled.
func (m *Machine) Run(ctx context.Context) {
	m.log.Infow("button loop started",
		"long_press", m.timing.LongPress,
		"menu_timeout", m.timing.MenuTimeout,
	)
	for ctx.Err() == nil {
		m.Step()
		m.clock.Sleep(m.timing.Poll)
	}
}
