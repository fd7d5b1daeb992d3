//go:build !linux

package gpio

import "errors"

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// Lines is not available on non-Linux platforms.
type Lines struct{}

// NewRealLines returns an error on non-Linux platforms.
func NewRealLines(chipName string, pins Pins) (*Lines, error) {
	return nil, errUnsupported
}

// ZeroCross returns an input that always fails.
func (l *Lines) ZeroCross() Input { return unsupported{} }

// Button returns an input that always fails.
func (l *Lines) Button() Input { return unsupported{} }

// Gate returns an output that always fails.
func (l *Lines) Gate() Output { return unsupported{} }

// Close is a no-op on non-Linux platforms.
func (l *Lines) Close() error {
	return nil
}

type unsupported struct{}

func (unsupported) Value() (bool, error) { return false, errUnsupported }

func (unsupported) Set(bool) error { return errUnsupported }
