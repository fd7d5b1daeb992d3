package logic

import "time"

// EffectivePower maps the requested base power onto the power actually
// commanded, using the temperature feedback and the comfort preset.
//
// Without a valid temperature the base is returned unchanged. Otherwise the
// (low, high) pair for comfort is taken from the ONLINE table when mode is
// ONLINE and from the default table otherwise; power is base at or below
// low, zero at or above high, and linearly interpolated in between.
func EffectivePower(base int, temperature Reading, comfort ComfortMode, mode OperatingMode, tables Tables) float64 {
	if !temperature.Valid {
		return float64(base)
	}

	th := tables.Select(mode, comfort)
	t := temperature.Celsius

	if t <= th.Low {
		return float64(base)
	}
	if t >= th.High {
		return 0
	}
	factor := 1 - (t-th.Low)/(th.High-th.Low)
	return float64(base) * factor
}

// Fuse combines the contact and infrared readings: the mean when both are
// present, whichever one is present otherwise, and no reading if neither.
func Fuse(contact, ir Reading) Reading {
	switch {
	case contact.Valid && ir.Valid:
		return Celsius((contact.Celsius + ir.Celsius) / 2)
	case contact.Valid:
		return contact
	case ir.Valid:
		return ir
	default:
		return NoReading
	}
}

// Phase-control timing constants.
const (
	// FullPowerDelay is the firing delay used at 100% effective power.
	FullPowerDelay = 10 * time.Microsecond

	// DelayPerPercent is the delay added for every percent below 100.
	DelayPerPercent = 100 * time.Microsecond
)

// HalfCycle returns the duration of one AC half-cycle at the given mains
// frequency (10ms at 50Hz, ~8.33ms at 60Hz).
func HalfCycle(hz float64) time.Duration {
	if hz <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / (2 * hz))
}

// FiringDelay returns how long after the zero-crossing the gate must be
// pulsed. fire is false when the TRIAC must stay off for this half-cycle:
// power is off, effective power is zero or not a finite number, or the delay
// would land at or past the end of the half-cycle. A zero halfCycle disables the clamp.
func FiringDelay(effective float64, triacOn bool, halfCycle time.Duration) (delay time.Duration, fire bool) {
	if !triacOn || !finite(effective) || effective <= 0 {
		return 0, false
	}
	if effective >= 100 {
		return FullPowerDelay, true
	}

	us := int64((100 - effective) * float64(DelayPerPercent/time.Microsecond))
	delay = time.Duration(us) * time.Microsecond
	if halfCycle > 0 && delay >= halfCycle {
		return 0, false
	}
	return delay, true
}

// PulseWidth returns how long the gate may stay high when raised offset
// after the zero-crossing: pulse, cut short so the gate drops by the end of
// the half-cycle. ok is false when no time is left. A zero halfCycle
// disables the cut.
func PulseWidth(offset, pulse, halfCycle time.Duration) (width time.Duration, ok bool) {
	width = pulse
	if halfCycle > 0 && offset+width > halfCycle {
		width = halfCycle - offset
	}
	if width <= 0 {
		return 0, false
	}
	return width, true
}
