package led

import (
	"fmt"
	"io"
	"sync"
)

// Driver pushes a full frame of RGB bytes to the strip hardware.
type Driver interface {
	io.Writer
	Halt() error
}

// Strip is the shared frame buffer of the strip. The button, TRIAC and
// remote-control paths all paint through it; every change is written out
// as a whole frame under one lock.
type Strip struct {
	mu  sync.Mutex
	drv Driver
	px  []Color
	buf []byte
}

// NewStrip creates a strip of n pixels, all off.
func NewStrip(drv Driver, n int) *Strip {
	return &Strip{
		drv: drv,
		px:  make([]Color, n),
		buf: make([]byte, 3*n),
	}
}

// Len returns the number of pixels.
func (s *Strip) Len() int {
	return len(s.px)
}

// Set paints pixel i and shows the frame.
func (s *Strip) Set(i int, c Color) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i < 0 || i >= len(s.px) {
		return fmt.Errorf("led: pixel %d outside strip of %d", i, len(s.px))
	}
	s.px[i] = c
	return s.show()
}

// SetRange paints consecutive pixels from off and shows the frame.
func (s *Strip) SetRange(off int, cs []Color) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if off < 0 || off+len(cs) > len(s.px) {
		return fmt.Errorf("led: range [%d,+%d) outside strip of %d", off, len(cs), len(s.px))
	}
	copy(s.px[off:], cs)
	return s.show()
}

// Pixel returns the current color of pixel i.
func (s *Strip) Pixel(i int) Color {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.px) {
		return Off
	}
	return s.px[i]
}

// Clear turns every pixel off and shows the frame.
func (s *Strip) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.px {
		s.px[i] = Off
	}
	return s.show()
}

func (s *Strip) show() error {
	for i, c := range s.px {
		s.buf[3*i] = c.R
		s.buf[3*i+1] = c.G
		s.buf[3*i+2] = c.B
	}
	if _, err := s.drv.Write(s.buf); err != nil {
		return fmt.Errorf("led: write frame: %w", err)
	}
	return nil
}

// Close clears the strip and halts the driver.
func (s *Strip) Close() error {
	clearErr := s.Clear()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.drv.Halt(); err != nil {
		return fmt.Errorf("led: halt: %w", err)
	}
	return clearErr
}
