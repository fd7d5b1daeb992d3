// Package led renders device state onto the addressable LED strip: one
// status pixel and a power bar.
package led

import (
	"math"

	"github.com/sweeney/halo-heater/internal/logic"
)

// Color is an RGB triple, 0-255 per channel.
type Color struct {
	R, G, B uint8
}

// Off is the unlit pixel.
var Off = Color{}

// Fixed colors.
var (
	Locked    = Color{3, 0, 5}
	BarActive = Color{0, 3, 0}
	UnlockEnd = Color{0, 20, 0}
)

// Palette holds the status colors for standby and each comfort preset.
type Palette struct {
	Standby Color
	Comfort [len(logic.ComfortModes)]Color
}

// ComfortColor returns the color of comfort c. An unknown preset is shown
// as unlit.
func (p Palette) ComfortColor(c logic.ComfortMode) Color {
	if !c.Valid() {
		return Off
	}
	return p.Comfort[c]
}

var (
	// DefaultPalette is used by the button and menu.
	DefaultPalette = Palette{
		Standby: Color{1, 0, 0},
		Comfort: [len(logic.ComfortModes)]Color{
			logic.ComfortTemperate: {3, 3, 0},
			logic.ComfortMedium:    {4, 2, 0},
			logic.ComfortWarm:      {5, 1, 0},
		},
	}

	// TogglePalette is the brighter set painted after a remote power toggle.
	TogglePalette = Palette{
		Standby: Color{2, 0, 0},
		Comfort: [len(logic.ComfortModes)]Color{
			logic.ComfortTemperate: {8, 7, 0},
			logic.ComfortMedium:    {15, 4, 0},
			logic.ComfortWarm:      {15, 1, 0},
		},
	}
)

// StatusColor returns the status pixel color for d. lit is the comfort-menu
// blink phase and only matters in COMFORT_MENU with power on.
func StatusColor(d logic.Device, lit bool, p Palette) Color {
	switch {
	case d.Menu == logic.MenuLocked:
		return Locked
	case !d.TriacOn:
		return p.Standby
	case d.Menu == logic.MenuComfort && !lit:
		return Off
	default:
		return p.ComfortColor(d.Comfort)
	}
}

// BarColors returns the power bar for base percent on n pixels:
// round(base/100 × n) pixels lit from the start, the rest off.
func BarColors(base, n int) []Color {
	out := make([]Color, n)
	lit := int(math.Round(float64(logic.ClampPercentage(base)) / 100 * float64(n)))
	for i := 0; i < lit; i++ {
		out[i] = BarActive
	}
	return out
}

// unlockFade returns the color of step i of the red-to-green unlock fade.
func unlockFade(i, steps int) Color {
	r := int(10 - float64(10*i)/float64(steps))
	g := int(float64(40*i) / float64(steps))
	return Color{uint8(r), uint8(g), 0}
}
