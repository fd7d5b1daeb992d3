package logic

import "time"

// Action names what a transition did to the device record.
type Action string

const (
	ActionNone         Action = ""
	ActionUnlock       Action = "UNLOCK"
	ActionEnterComfort Action = "ENTER_COMFORT"
	ActionCycleComfort Action = "CYCLE_COMFORT"
	ActionMenuTimeout  Action = "MENU_TIMEOUT"
	ActionPowerOn      Action = "POWER_ON"
	ActionPowerOff     Action = "POWER_OFF"
)

// ShortClick applies a short button press to d.
//
//	OPERATIONAL, on  → COMFORT_MENU
//	COMFORT_MENU, on → next comfort preset
//
// Every other combination is a no-op. Entering or acting inside the comfort
// menu records now as the last menu interaction.
func ShortClick(d *Device, now time.Time) Action {
	if !d.TriacOn {
		return ActionNone
	}
	switch d.Menu {
	case MenuOperational:
		d.Menu = MenuComfort
		d.LastMenuTime = now
		return ActionEnterComfort
	case MenuComfort:
		d.Comfort = d.Comfort.Next()
		d.LastMenuTime = now
		return ActionCycleComfort
	}
	return ActionNone
}

// LongPress applies a press held past the long-press threshold to d.
//
//	LOCKED    → OPERATIONAL with power on
//	power off → power on at 100%
//	power on  → standby (power off, 0%)
//
// Outside LOCKED the menu always ends in OPERATIONAL, which also closes the
// comfort menu.
func LongPress(d *Device) Action {
	switch {
	case d.Menu == MenuLocked:
		return Unlock(d)
	case !d.TriacOn:
		d.TriacOn = true
		d.Base = 100
		d.Menu = MenuOperational
		return ActionPowerOn
	default:
		d.TriacOn = false
		d.Base = 0
		d.Menu = MenuOperational
		return ActionPowerOff
	}
}

// Unlock leaves LOCKED for OPERATIONAL with power on.
func Unlock(d *Device) Action {
	d.Menu = MenuOperational
	d.TriacOn = true
	return ActionUnlock
}

// MenuTimeout returns d to OPERATIONAL once the comfort menu has seen no
// interaction for at least timeout.
func MenuTimeout(d *Device, now time.Time, timeout time.Duration) Action {
	if d.Menu != MenuComfort {
		return ActionNone
	}
	if now.Sub(d.LastMenuTime) < timeout {
		return ActionNone
	}
	d.Menu = MenuOperational
	return ActionMenuTimeout
}

// TogglePower flips the master on/off switch from a remote request. A locked
// device is unlocked first; unlocked reports whether that happened.
func TogglePower(d *Device) (action Action, unlocked bool) {
	if d.Menu == MenuLocked {
		d.Menu = MenuOperational
		unlocked = true
	}
	d.TriacOn = !d.TriacOn
	if d.TriacOn {
		return ActionPowerOn, unlocked
	}
	return ActionPowerOff, unlocked
}
