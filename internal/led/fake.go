package led

import "sync"

// FakeDriver records every frame written to it.
type FakeDriver struct {
	mu sync.Mutex

	// WriteErr, if set, will be returned by Write.
	WriteErr error

	frames [][]byte
	halted bool
}

// Write records a copy of the frame.
func (f *FakeDriver) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.WriteErr != nil {
		return 0, f.WriteErr
	}
	f.frames = append(f.frames, append([]byte(nil), p...))
	return len(p), nil
}

// Halt marks the driver halted.
func (f *FakeDriver) Halt() error {
	f.mu.Lock()
	f.halted = true
	f.mu.Unlock()
	return nil
}

// Frames returns the number of frames written.
func (f *FakeDriver) Frames() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

// Last returns the most recent frame, or nil.
func (f *FakeDriver) Last() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.frames) == 0 {
		return nil
	}
	return f.frames[len(f.frames)-1]
}

// PixelHistory returns every color pixel i showed, one per frame.
func (f *FakeDriver) PixelHistory(i int) []Color {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Color, 0, len(f.frames))
	for _, fr := range f.frames {
		if 3*i+2 < len(fr) {
			out = append(out, Color{fr[3*i], fr[3*i+1], fr[3*i+2]})
		}
	}
	return out
}

// Halted reports whether Halt was called.
func (f *FakeDriver) Halted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.halted
}
