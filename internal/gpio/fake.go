package gpio

import (
	"errors"
	"sync"
	"time"
)

// FakeInput is a test double that returns scripted line levels.
type FakeInput struct {
	mu sync.Mutex

	// Samples contains scripted levels to return.
	// Each call to Value() consumes the next sample.
	Samples []bool

	// Func, if set, supplies every level instead of Samples.
	Func func() bool

	// ReadError, if set, will be returned by Value().
	ReadError error

	index int
	reads int
}

// NewFakeInput creates a FakeInput with the given samples.
func NewFakeInput(samples ...bool) *FakeInput {
	return &FakeInput{Samples: samples}
}

// Value returns the next scripted level.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeInput) Value() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.reads++
	if f.ReadError != nil {
		return false, f.ReadError
	}
	if f.Func != nil {
		return f.Func(), nil
	}
	if len(f.Samples) == 0 {
		return false, errors.New("no samples configured")
	}

	v := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return v, nil
}

// Push appends samples to the script.
func (f *FakeInput) Push(samples ...bool) {
	f.mu.Lock()
	f.Samples = append(f.Samples, samples...)
	f.mu.Unlock()
}

// Reads returns how many times Value was called.
func (f *FakeInput) Reads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

// Reset rewinds the script to the first sample.
func (f *FakeInput) Reset() {
	f.mu.Lock()
	f.index = 0
	f.reads = 0
	f.mu.Unlock()
}

// Edge is one recorded output transition.
type Edge struct {
	High bool
	At   time.Time
}

// FakeOutput records every level written to it.
type FakeOutput struct {
	mu sync.Mutex

	// Now, if set, timestamps each recorded edge.
	Now func() time.Time

	// SetError, if set, will be returned by Set.
	SetError error

	edges []Edge
}

// NewFakeOutput creates a FakeOutput that timestamps edges with now.
// now may be nil.
func NewFakeOutput(now func() time.Time) *FakeOutput {
	return &FakeOutput{Now: now}
}

// Set records the level.
func (f *FakeOutput) Set(high bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.SetError != nil {
		return f.SetError
	}
	e := Edge{High: high}
	if f.Now != nil {
		e.At = f.Now()
	}
	f.edges = append(f.edges, e)
	return nil
}

// Edges returns a copy of the recorded transitions.
func (f *FakeOutput) Edges() []Edge {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Edge(nil), f.edges...)
}

// High reports the last level written. A fresh output is low.
func (f *FakeOutput) High() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.edges) == 0 {
		return false
	}
	return f.edges[len(f.edges)-1].High
}

// Pulses returns the width of every completed high pulse, in order.
func (f *FakeOutput) Pulses() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []time.Duration
	var rise *Edge
	for i := range f.edges {
		e := f.edges[i]
		switch {
		case e.High && rise == nil:
			rise = &f.edges[i]
		case !e.High && rise != nil:
			out = append(out, e.At.Sub(rise.At))
			rise = nil
		}
	}
	return out
}

// Reset clears recorded edges.
func (f *FakeOutput) Reset() {
	f.mu.Lock()
	f.edges = nil
	f.mu.Unlock()
}
