package sensor

import "sync"

// FakeProbe is a scripted Probe.
type FakeProbe struct {
	mu sync.Mutex

	Value      float64
	ReadErr    error
	ConvertErr error

	conversions int
}

// Convert records a conversion.
func (f *FakeProbe) Convert() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.conversions++
	return f.ConvertErr
}

// Read returns Value or ReadErr.
func (f *FakeProbe) Read() (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ReadErr != nil {
		return 0, f.ReadErr
	}
	return f.Value, nil
}

// Conversions returns how many times Convert was called.
func (f *FakeProbe) Conversions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conversions
}

// FakeThermometer is a scripted Thermometer.
type FakeThermometer struct {
	mu sync.Mutex

	Value float64
	Err   error
}

// Read returns Value or Err.
func (f *FakeThermometer) Read() (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return 0, f.Err
	}
	return f.Value, nil
}
