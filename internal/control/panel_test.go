package control

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/halo-heater/internal/clock"
	"github.com/sweeney/halo-heater/internal/led"
	"github.com/sweeney/halo-heater/internal/logic"
	"github.com/sweeney/halo-heater/internal/settings"
	"github.com/sweeney/halo-heater/internal/state"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

type fakeIndicator struct {
	mu         sync.Mutex
	colors     []led.Color
	animations int
}

func (f *fakeIndicator) Status(c led.Color) error {
	f.mu.Lock()
	f.colors = append(f.colors, c)
	f.mu.Unlock()
	return nil
}

func (f *fakeIndicator) UnlockAnimation(sleep func(time.Duration)) error {
	f.mu.Lock()
	f.animations++
	f.mu.Unlock()
	return nil
}

func (f *fakeIndicator) last() led.Color {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.colors[len(f.colors)-1]
}

func newPanel(t *testing.T, d logic.Device, path string) (*Panel, *state.Store, *fakeIndicator, *[]logic.Event) {
	t.Helper()
	store := state.NewStore(d)
	leds := &fakeIndicator{}
	var events []logic.Event
	p := New(store, leds, clock.NewFake(t0), path, func(e logic.Event) { events = append(events, e) }, nil)
	return p, store, leds, &events
}

func TestTogglePowerFromLocked(t *testing.T) {
	p, store, leds, events := newPanel(t, logic.NewDevice(), "")

	after := p.TogglePower(logic.SourceHTTP)

	assert.Equal(t, logic.MenuOperational, after.Menu)
	assert.False(t, after.TriacOn, "boot default was on, so the toggle turns it off")
	assert.Equal(t, after, store.Snapshot())
	assert.Equal(t, 1, leds.animations)
	assert.Equal(t, led.TogglePalette.Standby, leds.last())

	require.Len(t, *events, 1)
	e := (*events)[0]
	assert.Equal(t, logic.EventPower, e.Type)
	assert.Equal(t, logic.ActionPowerOff, e.Action)
	assert.Equal(t, logic.SourceHTTP, e.Source)
}

func TestTogglePowerUsesBrightPalette(t *testing.T) {
	d := logic.NewDevice()
	d.Menu = logic.MenuOperational
	d.TriacOn = false
	d.Comfort = logic.ComfortMedium
	p, _, leds, _ := newPanel(t, d, "")

	after := p.TogglePower(logic.SourceMQTT)
	assert.True(t, after.TriacOn)
	assert.Equal(t, led.TogglePalette.Comfort[logic.ComfortMedium], leds.last())
	assert.Zero(t, leds.animations)
}

func TestUpdateSettingsAppliesAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	p, store, _, events := newPanel(t, logic.NewDevice(), path)

	pct := 65
	comfort := logic.ComfortWarm
	after, err := p.UpdateSettings(logic.SourceHTTP, settings.Record{
		Percentage:  &pct,
		ComfortMode: &comfort,
		OnlineThresholds: map[logic.ComfortMode]logic.Threshold{
			logic.ComfortWarm: {Low: 21, High: 25},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 65, after.Base)
	assert.Equal(t, logic.ComfortWarm, store.Snapshot().Comfort)
	assert.Equal(t, logic.Threshold{Low: 21, High: 25}, store.Snapshot().Thresholds.Online[logic.ComfortWarm])

	rec, err := settings.Load(path)
	require.NoError(t, err)
	require.NotNil(t, rec.Percentage)
	assert.Equal(t, 65, *rec.Percentage)

	require.Len(t, *events, 1)
	assert.Equal(t, logic.EventSettings, (*events)[0].Type)
}

func TestUpdateSettingsRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	p, store, _, events := newPanel(t, logic.NewDevice(), path)

	pct := 50
	_, err := p.UpdateSettings(logic.SourceHTTP, settings.Record{
		Percentage: &pct,
		OnlineThresholds: map[logic.ComfortMode]logic.Threshold{
			logic.ComfortMedium: {Low: 22, High: 19},
		},
	})
	assert.ErrorIs(t, err, settings.ErrInvalidThreshold)
	assert.Equal(t, 0, store.Snapshot().Base, "nothing applied")
	assert.Empty(t, *events)

	_, statErr := os.Stat(path)
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "nothing saved")
}

func TestUpdateSettingsSaveFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))

	// The settings directory is a regular file, so the save must fail.
	p, store, _, _ := newPanel(t, logic.NewDevice(), filepath.Join(blocker, "settings.json"))

	pct := 40
	_, err := p.UpdateSettings(logic.SourceMQTT, settings.Record{Percentage: &pct})
	assert.Error(t, err)
	assert.Equal(t, 40, store.Snapshot().Base, "applied despite the failed save")
}
