package logic

import "time"

// Gesture is a completed button interaction.
type Gesture string

const (
	GestureNone  Gesture = ""
	GestureShort Gesture = "SHORT"
	GestureLong  Gesture = "LONG"
)

// PressInput is a single sample of the (active-high) button.
type PressInput struct {
	Pressed bool
	Time    time.Time
}

type pressPhase int

const (
	phaseIdle     pressPhase = iota
	phaseSettling            // high seen, waiting out the debounce delay
	phaseHeld                // press confirmed, measuring hold time
	phaseLatched             // long press already fired, waiting for release
)

// PressDetector turns raw button samples into short clicks and long presses.
//
// A press is confirmed only if the button is still high once the debounce
// delay has passed since the first high sample. Hold time is measured from
// confirmation. Crossing the long-press threshold fires GestureLong at once,
// while the button is still held, and swallows the release so no short
// click follows. Releasing before the threshold yields GestureShort.
type PressDetector struct {
	debounce  time.Duration
	longPress time.Duration

	phase     pressPhase
	since     time.Time
	heldSince time.Time
}

// NewPressDetector creates a detector with the given debounce delay and
// long-press threshold.
func NewPressDetector(debounce, longPress time.Duration) *PressDetector {
	return &PressDetector{
		debounce:  debounce,
		longPress: longPress,
	}
}

// Process takes a new button sample and returns the gesture it completes,
// if any.
func (p *PressDetector) Process(in PressInput) Gesture {
	switch p.phase {
	case phaseIdle:
		if in.Pressed {
			p.phase = phaseSettling
			p.since = in.Time
		}
		return GestureNone

	case phaseSettling:
		if in.Time.Sub(p.since) < p.debounce {
			return GestureNone
		}
		if !in.Pressed {
			// Bounce: gone before the debounce delay elapsed.
			p.phase = phaseIdle
			return GestureNone
		}
		p.phase = phaseHeld
		p.heldSince = p.since.Add(p.debounce)
		return p.checkHold(in.Time)

	case phaseHeld:
		if !in.Pressed {
			p.phase = phaseIdle
			return GestureShort
		}
		return p.checkHold(in.Time)

	case phaseLatched:
		if !in.Pressed {
			p.phase = phaseIdle
		}
		return GestureNone
	}
	return GestureNone
}

func (p *PressDetector) checkHold(now time.Time) Gesture {
	if now.Sub(p.heldSince) > p.longPress {
		p.phase = phaseLatched
		return GestureLong
	}
	return GestureNone
}

// Pressing reports whether a press is currently being tracked.
func (p *PressDetector) Pressing() bool {
	return p.phase != phaseIdle
}

// HeldFor returns how long the current press has been held since it was
// confirmed, or zero when no confirmed press is in progress.
func (p *PressDetector) HeldFor(now time.Time) time.Duration {
	if p.phase != phaseHeld && p.phase != phaseLatched {
		return 0
	}
	return now.Sub(p.heldSince)
}
