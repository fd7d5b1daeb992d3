// Package state holds the single shared device record and the mutex that
// guards it. Every execution unit gets the same *Store at startup.
//
// Any value derived from more than one field is read inside one critical
// section. Critical sections stay short: the TRIAC loop snapshots through
// Firing and never holds the lock across a wait.
package state

import (
	"sync"

	"github.com/sweeney/halo-heater/internal/logic"
)

// FiringView is the part of the device record the TRIAC loop needs for one
// half-cycle. It is a value type with no references, so taking it does not
// allocate.
type FiringView struct {
	Menu        logic.MenuState
	Mode        logic.OperatingMode
	Base        int
	TriacOn     bool
	Comfort     logic.ComfortMode
	Temperature logic.Reading
	Thresholds  logic.Tables
}

// Effective runs the regulation engine on the view.
func (v FiringView) Effective() float64 {
	return logic.EffectivePower(v.Base, v.Temperature, v.Comfort, v.Mode, v.Thresholds)
}

// Store owns the device record behind one mutex.
type Store struct {
	mu  sync.Mutex
	dev logic.Device
}

// NewStore creates a Store holding d.
func NewStore(d logic.Device) *Store {
	return &Store{dev: d}
}

// Snapshot returns a copy of the whole record.
func (s *Store) Snapshot() logic.Device {
	s.mu.Lock()
	d := s.dev
	s.mu.Unlock()
	return d
}

// Update runs fn on the record under the lock. fn must not block.
func (s *Store) Update(fn func(d *logic.Device)) {
	s.mu.Lock()
	fn(&s.dev)
	s.mu.Unlock()
}

// Menu returns the current menu state.
func (s *Store) Menu() logic.MenuState {
	s.mu.Lock()
	m := s.dev.Menu
	s.mu.Unlock()
	return m
}

// Firing snapshots the fields the TRIAC loop needs in one acquisition.
func (s *Store) Firing() FiringView {
	s.mu.Lock()
	v := FiringView{
		Menu:        s.dev.Menu,
		Mode:        s.dev.Mode,
		Base:        s.dev.Base,
		TriacOn:     s.dev.TriacOn,
		Comfort:     s.dev.Comfort,
		Temperature: s.dev.Temperature,
		Thresholds:  s.dev.Thresholds,
	}
	s.mu.Unlock()
	return v
}

// SetTemperatures stores a sensor cycle. A raw reading that is absent keeps
// the previous raw value; the fused temperature is always replaced.
func (s *Store) SetTemperatures(contact, ir, fused logic.Reading) {
	s.mu.Lock()
	if contact.Valid {
		s.dev.TemperatureContact = contact
	}
	if ir.Valid {
		s.dev.TemperatureIR = ir
	}
	s.dev.Temperature = fused
	s.mu.Unlock()
}

// EffectivePower evaluates regulation against one consistent snapshot.
func (s *Store) EffectivePower() float64 {
	return s.Firing().Effective()
}
