// Package logic contains the pure control logic of the heater: regulation,
// phase-angle mapping, menu transitions and button gesture detection.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// OperatingMode selects which threshold table regulation consults.
type OperatingMode string

const (
	ModeStandalone OperatingMode = "STANDALONE"
	ModeOnline     OperatingMode = "ONLINE"
)

// MenuState is the button-driven UI mode.
type MenuState string

const (
	MenuLocked      MenuState = "LOCKED"
	MenuOperational MenuState = "OPERATIONAL"
	MenuComfort     MenuState = "COMFORT_MENU"

	// MenuAdjust and MenuTriac are reserved names. No transition enters them.
	MenuAdjust MenuState = "ADJUST_MENU"
	MenuTriac  MenuState = "TRIAC_MENU"
)

// ComfortMode is one of the three user-selectable presets.
type ComfortMode int

const (
	ComfortTemperate ComfortMode = iota
	ComfortMedium
	ComfortWarm

	comfortModeCount = 3
)

var comfortNames = [comfortModeCount]string{"TEMPERATE", "MEDIUM", "WARM"}

// ComfortModes lists the presets in cycling order.
var ComfortModes = [comfortModeCount]ComfortMode{ComfortTemperate, ComfortMedium, ComfortWarm}

// Valid reports whether c names one of the three presets.
func (c ComfortMode) Valid() bool {
	return c >= 0 && c < comfortModeCount
}

func (c ComfortMode) String() string {
	if !c.Valid() {
		return "UNKNOWN"
	}
	return comfortNames[c]
}

// Next returns the preset that follows c: TEMPERATE→MEDIUM→WARM→TEMPERATE.
// Anything unrecognised restarts the cycle at TEMPERATE.
func (c ComfortMode) Next() ComfortMode {
	switch c {
	case ComfortTemperate:
		return ComfortMedium
	case ComfortMedium:
		return ComfortWarm
	default:
		return ComfortTemperate
	}
}

// ParseComfortMode converts a preset name into a ComfortMode.
func ParseComfortMode(s string) (ComfortMode, error) {
	for i, name := range comfortNames {
		if s == name {
			return ComfortMode(i), nil
		}
	}
	return ComfortTemperate, fmt.Errorf("unknown comfort mode %q", s)
}

func (c ComfortMode) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *ComfortMode) UnmarshalText(text []byte) error {
	m, err := ParseComfortMode(string(text))
	if err != nil {
		return err
	}
	*c = m
	return nil
}

// Reading is an optional temperature in degrees Celsius.
// The zero value means "no reading".
type Reading struct {
	Celsius float64
	Valid   bool
}

// NoReading is the absent reading.
var NoReading = Reading{}

// Celsius returns a valid reading of v degrees.
func Celsius(v float64) Reading {
	return Reading{Celsius: v, Valid: true}
}

func (r Reading) String() string {
	if !r.Valid {
		return "none"
	}
	return strconv.FormatFloat(r.Celsius, 'f', 2, 64)
}

// MarshalJSON encodes an absent reading as null.
func (r Reading) MarshalJSON() ([]byte, error) {
	if !r.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(r.Celsius)
}

// UnmarshalJSON decodes null as an absent reading.
func (r *Reading) UnmarshalJSON(data []byte) error {
	var v *float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v == nil {
		*r = NoReading
		return nil
	}
	*r = Celsius(*v)
	return nil
}

// Threshold is a (low, high) temperature pair. Regulation is full power at
// or below Low and zero at or above High.
type Threshold struct {
	Low  float64
	High float64
}

// Valid reports whether the pair is usable for interpolation: both ends
// finite and Low < High.
func (t Threshold) Valid() bool {
	if !finite(t.Low) || !finite(t.High) {
		return false
	}
	return t.Low < t.High
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// MarshalJSON encodes the pair as [low, high].
func (t Threshold) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{t.Low, t.High})
}

// UnmarshalJSON decodes a [low, high] array.
func (t *Threshold) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("threshold: want [low, high], got %d values", len(pair))
	}
	t.Low, t.High = pair[0], pair[1]
	return nil
}

// ThresholdTable maps every comfort mode to its threshold pair.
type ThresholdTable [comfortModeCount]Threshold

// FallbackThreshold is used for a comfort mode the table does not know.
var FallbackThreshold = Threshold{Low: 16, High: 18}

// Lookup returns the pair for c, or FallbackThreshold if c is unmapped.
func (t ThresholdTable) Lookup(c ComfortMode) Threshold {
	if !c.Valid() {
		return FallbackThreshold
	}
	return t[c]
}

// MarshalJSON encodes the table as {"TEMPERATE":[l,h], ...}.
func (t ThresholdTable) MarshalJSON() ([]byte, error) {
	m := make(map[string]Threshold, comfortModeCount)
	for _, c := range ComfortModes {
		m[c.String()] = t[c]
	}
	return json.Marshal(m)
}

// UnmarshalJSON decodes {"TEMPERATE":[l,h], ...}. Modes missing from the
// object keep their current pair; unknown names are an error.
func (t *ThresholdTable) UnmarshalJSON(data []byte) error {
	var m map[string]Threshold
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	for name, th := range m {
		c, err := ParseComfortMode(name)
		if err != nil {
			return err
		}
		t[c] = th
	}
	return nil
}

var (
	// DefaultThresholds are the fixed pairs used in STANDALONE mode.
	DefaultThresholds = ThresholdTable{
		ComfortTemperate: {Low: 16, High: 18},
		ComfortMedium:    {Low: 18, High: 20},
		ComfortWarm:      {Low: 23, High: 27},
	}

	// DefaultOnlineThresholds seed the runtime-editable ONLINE table.
	DefaultOnlineThresholds = ThresholdTable{
		ComfortTemperate: {Low: 16, High: 18},
		ComfortMedium:    {Low: 18, High: 20},
		ComfortWarm:      {Low: 20, High: 22},
	}
)

// Tables holds both threshold tables.
type Tables struct {
	Default ThresholdTable
	Online  ThresholdTable
}

// Select returns the threshold pair regulation uses for the given modes.
func (t Tables) Select(mode OperatingMode, c ComfortMode) Threshold {
	if mode == ModeOnline {
		return t.Online.Lookup(c)
	}
	return t.Default.Lookup(c)
}

// Device is the complete shared device record. It is a plain value; the
// state package owns the only shared instance and its lock.
type Device struct {
	Mode         OperatingMode
	Menu         MenuState
	LastMenuTime time.Time

	// Base is the user-configured maximum power, 0-100.
	Base    int
	TriacOn bool
	Comfort ComfortMode

	// Temperature is the fused reading used for regulation.
	Temperature        Reading
	TemperatureContact Reading
	TemperatureIR      Reading

	Thresholds Tables
}

// NewDevice returns the compiled-in boot defaults.
func NewDevice() Device {
	return Device{
		Mode:    ModeStandalone,
		Menu:    MenuLocked,
		Base:    0,
		TriacOn: true,
		Comfort: ComfortTemperate,
		Thresholds: Tables{
			Default: DefaultThresholds,
			Online:  DefaultOnlineThresholds,
		},
	}
}

// EffectivePower runs the regulation engine against this record.
func (d Device) EffectivePower() float64 {
	return EffectivePower(d.Base, d.Temperature, d.Comfort, d.Mode, d.Thresholds)
}

// ClampPercentage limits p to [0, 100].
func ClampPercentage(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
