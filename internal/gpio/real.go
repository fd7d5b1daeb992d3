//go:build linux

package gpio

import (
	"errors"
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// Lines holds the heater's lines on an actual GPIO chip.
type Lines struct {
	chip      *gpiocdev.Chip
	zeroCross *gpiocdev.Line
	button    *gpiocdev.Line
	gate      *gpiocdev.Line
}

// NewRealLines requests the zero-cross and button inputs and the gate output
// on the named chip (e.g. "gpiochip0"). The gate starts low.
func NewRealLines(chipName string, pins Pins) (*Lines, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	l := &Lines{chip: chip}

	l.zeroCross, err = chip.RequestLine(pins.ZeroCross, gpiocdev.AsInput)
	if err != nil {
		l.Close()
		return nil, fmt.Errorf("request zero-cross pin %d: %w", pins.ZeroCross, err)
	}

	// The button pulls the line high when pressed.
	l.button, err = chip.RequestLine(pins.Button, gpiocdev.AsInput, gpiocdev.WithPullDown)
	if err != nil {
		l.Close()
		return nil, fmt.Errorf("request button pin %d: %w", pins.Button, err)
	}

	l.gate, err = chip.RequestLine(pins.Gate, gpiocdev.AsOutput(0))
	if err != nil {
		l.Close()
		return nil, fmt.Errorf("request gate pin %d: %w", pins.Gate, err)
	}

	return l, nil
}

// ZeroCross returns the zero-cross detector input.
func (l *Lines) ZeroCross() Input { return lineInput{l.zeroCross} }

// Button returns the push-button input.
func (l *Lines) Button() Input { return lineInput{l.button} }

// Gate returns the TRIAC gate output.
func (l *Lines) Gate() Output { return lineOutput{l.gate} }

type lineInput struct{ line *gpiocdev.Line }

func (i lineInput) Value() (bool, error) {
	v, err := i.line.Value()
	if err != nil {
		return false, err
	}
	return v == 1, nil
}

type lineOutput struct{ line *gpiocdev.Line }

func (o lineOutput) Set(high bool) error {
	v := 0
	if high {
		v = 1
	}
	return o.line.SetValue(v)
}

// Close drives the gate low and releases all lines.
// Lines are reconfigured to input with pull-down (matching Pi boot defaults)
// before closing so the gate driver cannot float on during reboot.
func (l *Lines) Close() error {
	var errs []error

	if l.gate != nil {
		if err := l.gate.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("drive gate low: %w", err))
		}
	}
	for _, named := range []struct {
		name string
		line *gpiocdev.Line
	}{
		{"gate", l.gate},
		{"button", l.button},
		{"zero-cross", l.zeroCross},
	} {
		if named.line == nil {
			continue
		}
		if err := named.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure %s pin: %w", named.name, err))
		}
		if err := named.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s pin: %w", named.name, err))
		}
	}
	if l.chip != nil {
		if err := l.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	return errors.Join(errs...)
}
