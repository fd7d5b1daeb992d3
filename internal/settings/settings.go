// Package settings reads and writes the persisted user settings record and
// validates settings arriving from the network.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sweeney/halo-heater/internal/logic"
)

// Validation errors.
var (
	ErrInvalidPercentage = errors.New("settings: percentage must be within 0-100")
	ErrInvalidComfort    = errors.New("settings: unknown comfort mode")
	ErrInvalidThreshold  = errors.New("settings: threshold low must be below high")
)

// Record is the settings document. Absent fields leave the device record
// unchanged when applied.
type Record struct {
	Percentage       *int                                  `json:"percentage,omitempty"`
	ComfortMode      *logic.ComfortMode                    `json:"comfort_mode,omitempty"`
	OnlineThresholds map[logic.ComfortMode]logic.Threshold `json:"online_temperature_thresholds,omitempty"`
}

// FromDevice captures the persisted fields of d.
func FromDevice(d logic.Device) Record {
	base := d.Base
	comfort := d.Comfort
	th := make(map[logic.ComfortMode]logic.Threshold, len(logic.ComfortModes))
	for _, c := range logic.ComfortModes {
		th[c] = d.Thresholds.Online[c]
	}
	return Record{
		Percentage:       &base,
		ComfortMode:      &comfort,
		OnlineThresholds: th,
	}
}

// Validate checks every present field.
func (r Record) Validate() error {
	if r.Percentage != nil && (*r.Percentage < 0 || *r.Percentage > 100) {
		return fmt.Errorf("%w: got %d", ErrInvalidPercentage, *r.Percentage)
	}
	if r.ComfortMode != nil && !r.ComfortMode.Valid() {
		return ErrInvalidComfort
	}
	for c, th := range r.OnlineThresholds {
		if !c.Valid() {
			return ErrInvalidComfort
		}
		if !th.Valid() {
			return fmt.Errorf("%w: %s [%g, %g]", ErrInvalidThreshold, c, th.Low, th.High)
		}
	}
	return nil
}

// Empty reports whether the record carries no fields.
func (r Record) Empty() bool {
	return r.Percentage == nil && r.ComfortMode == nil && len(r.OnlineThresholds) == 0
}

// Apply writes the present fields into d. The record must have been
// validated.
func (r Record) Apply(d *logic.Device) {
	if r.Percentage != nil {
		d.Base = logic.ClampPercentage(*r.Percentage)
	}
	if r.ComfortMode != nil && r.ComfortMode.Valid() {
		d.Comfort = *r.ComfortMode
	}
	for c, th := range r.OnlineThresholds {
		if c.Valid() {
			d.Thresholds.Online[c] = th
		}
	}
}

// Parse decodes and validates a settings document.
func Parse(data []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, fmt.Errorf("decode settings: %w", err)
	}
	if err := r.Validate(); err != nil {
		return Record{}, err
	}
	return r, nil
}

// Load reads the settings file at path. A malformed or invalid file is
// rejected as a whole. A missing file returns an error matching
// os.ErrNotExist.
func Load(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, fmt.Errorf("read settings: %w", err)
	}
	return Parse(data)
}

// Save writes the persisted fields of d to path. The file is replaced
// atomically so a crash never leaves a truncated record behind.
func Save(path string, d logic.Device) error {
	data, err := json.Marshal(FromDevice(d))
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".settings-*.json")
	if err != nil {
		return fmt.Errorf("create temp settings: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close settings: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}
