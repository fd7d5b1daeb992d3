// Package control applies remote commands (HTTP form posts and MQTT
// commands) to the device record.
package control

import (
	"fmt"
	"sync"
	"time"

	"github.com/sweeney/halo-heater/internal/clock"
	"github.com/sweeney/halo-heater/internal/led"
	"github.com/sweeney/halo-heater/internal/logger"
	"github.com/sweeney/halo-heater/internal/logic"
	"github.com/sweeney/halo-heater/internal/settings"
	"github.com/sweeney/halo-heater/internal/state"
)

// Indicator is the status pixel as the panel uses it.
type Indicator interface {
	Status(c led.Color) error
	UnlockAnimation(sleep func(time.Duration)) error
}

// Panel serialises remote commands so an HTTP request and an MQTT command
// never interleave their unlock animations or settings writes.
type Panel struct {
	mu sync.Mutex

	store        *state.Store
	leds         Indicator
	clock        clock.Clock
	settingsPath string
	sink         logic.Sink
	log          *logger.Logger
}

// New creates a Panel. leds may be nil; an empty settingsPath disables
// persistence.
func New(store *state.Store, leds Indicator, clk clock.Clock, settingsPath string, sink logic.Sink, log *logger.Logger) *Panel {
	if sink == nil {
		sink = logic.Discard
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Panel{
		store:        store,
		leds:         leds,
		clock:        clk,
		settingsPath: settingsPath,
		sink:         sink,
		log:          log,
	}
}

// TogglePower flips the master switch. A locked device plays the unlock
// animation and becomes OPERATIONAL first. The status pixel is repainted
// with the toggle palette.
func (p *Panel) TogglePower(source string) logic.Device {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.store.Menu() == logic.MenuLocked && p.leds != nil {
		if err := p.leds.UnlockAnimation(p.clock.Sleep); err != nil {
			p.log.Warnw("unlock animation failed", "error", err)
		}
	}

	var (
		action   logic.Action
		unlocked bool
		after    logic.Device
	)
	p.store.Update(func(d *logic.Device) {
		action, unlocked = logic.TogglePower(d)
		after = *d
	})

	if p.leds != nil {
		if err := p.leds.Status(led.StatusColor(after, true, led.TogglePalette)); err != nil {
			p.log.Warnw("status pixel update failed", "error", err)
		}
	}

	p.log.Infow("power toggled", "source", source, "triac_on", after.TriacOn, "unlocked", unlocked)
	p.sink(logic.NewEvent(p.clock.Now(), logic.EventPower, action, source, after))
	return after
}

// UpdateSettings validates rec, applies it in one critical section and
// persists the result. An invalid record changes nothing. A failed save is
// reported after the record has been applied.
func (p *Panel) UpdateSettings(source string, rec settings.Record) (logic.Device, error) {
	if err := rec.Validate(); err != nil {
		p.log.Warnw("rejected settings update", "source", source, "error", err)
		return p.store.Snapshot(), err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var after logic.Device
	p.store.Update(func(d *logic.Device) {
		rec.Apply(d)
		after = *d
	})

	p.log.Infow("settings updated",
		"source", source,
		"percentage", after.Base,
		"comfort_mode", after.Comfort,
		"online_thresholds", after.Thresholds.Online,
	)
	p.sink(logic.NewEvent(p.clock.Now(), logic.EventSettings, logic.ActionNone, source, after))

	if p.settingsPath == "" {
		return after, nil
	}
	if err := settings.Save(p.settingsPath, after); err != nil {
		p.log.Errorw("failed to save settings", "path", p.settingsPath, "error", err)
		return after, fmt.Errorf("persist settings: %w", err)
	}
	return after, nil
}
