package led

import (
	"time"

	"github.com/sweeney/halo-heater/internal/logic"
)

// Layout places the status pixel and the power bar on the strip.
type Layout struct {
	StatusIndex int
	BarOffset   int
	BarCount    int
}

// Unlock animation timings.
const (
	unlockSteps     = 40
	unlockStepDelay = 15 * time.Millisecond
	unlockBlinks    = 3
	unlockBlinkHalf = 100 * time.Millisecond
)

// Renderer maps device state onto a Strip.
type Renderer struct {
	strip  *Strip
	layout Layout
}

// NewRenderer creates a renderer painting strip with layout.
func NewRenderer(strip *Strip, layout Layout) *Renderer {
	return &Renderer{strip: strip, layout: layout}
}

// Status paints the status pixel.
func (r *Renderer) Status(c Color) error {
	return r.strip.Set(r.layout.StatusIndex, c)
}

// RenderStatus paints the status pixel for d with the default palette.
func (r *Renderer) RenderStatus(d logic.Device, lit bool) error {
	return r.Status(StatusColor(d, lit, DefaultPalette))
}

// RenderBar paints the power bar for base percent.
func (r *Renderer) RenderBar(base int) error {
	return r.strip.SetRange(r.layout.BarOffset, BarColors(base, r.layout.BarCount))
}

// UnlockAnimation plays the unlock sequence on the status pixel: a fade
// from red to green followed by three green blinks. It blocks for about
// 1.2 s and must not be called with the device lock held.
func (r *Renderer) UnlockAnimation(sleep func(time.Duration)) error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	for i := 0; i <= unlockSteps; i++ {
		keep(r.Status(unlockFade(i, unlockSteps)))
		sleep(unlockStepDelay)
	}
	for i := 0; i < unlockBlinks; i++ {
		keep(r.Status(UnlockEnd))
		sleep(unlockBlinkHalf)
		keep(r.Status(Off))
		sleep(unlockBlinkHalf)
	}
	return firstErr
}
