// Package gpio provides the heater's digital lines with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementations allow testing without hardware.
package gpio

// Input is a digital input line.
type Input interface {
	// Value returns true when the line is high.
	Value() (bool, error)
}

// Output is a digital output line.
type Output interface {
	// Set drives the line high (true) or low (false).
	Set(high bool) error
}

// Pin definitions (BCM numbering) for the reference board.
const (
	DefaultPinZeroCross = 17 // zero-cross detector, pulses high around each crossing
	DefaultPinGate      = 27 // TRIAC gate driver
	DefaultPinButton    = 22 // push button, active high
)

// Pins names the line offsets of the three heater signals.
type Pins struct {
	ZeroCross int
	Gate      int
	Button    int
}

// DefaultPins returns the reference board wiring.
func DefaultPins() Pins {
	return Pins{
		ZeroCross: DefaultPinZeroCross,
		Gate:      DefaultPinGate,
		Button:    DefaultPinButton,
	}
}
