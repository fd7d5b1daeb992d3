// Package clock abstracts time so the control loops can run against a fake
// clock in tests.
package clock

import (
	"context"
	"sync"
	"time"
)

// Clock provides the current time and the two ways the control loops wait.
type Clock interface {
	Now() time.Time

	// Sleep yields the goroutine for d. Used for millisecond-scale waits.
	Sleep(d time.Duration)

	// Wait is Sleep that gives up when ctx is done. It reports whether the
	// full duration passed.
	Wait(ctx context.Context, d time.Duration) bool

	// Spin busy-waits for d on the monotonic clock. Used for the
	// microsecond-scale waits of phase control, where scheduler wake-up
	// latency would shift the firing point.
	Spin(d time.Duration)
}

// Real is the wall clock.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

func (Real) Sleep(d time.Duration) { time.Sleep(d) }

func (Real) Wait(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (Real) Spin(d time.Duration) {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
	}
}

// Fake is a manually driven clock. Sleep and Spin advance it instantly.
// Safe for concurrent use.
type Fake struct {
	mu    sync.Mutex
	now   time.Time
	slept time.Duration
	spun  time.Duration
}

// NewFake creates a fake clock reading start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) Sleep(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.slept += d
	f.mu.Unlock()
}

// Wait advances the clock like Sleep unless ctx is already done.
func (f *Fake) Wait(ctx context.Context, d time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	f.Sleep(d)
	return true
}

func (f *Fake) Spin(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.spun += d
	f.mu.Unlock()
}

// Advance moves the clock forward by d without counting it as a wait.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

// Slept returns the total time passed to Sleep.
func (f *Fake) Slept() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.slept
}

// Spun returns the total time passed to Spin.
func (f *Fake) Spun() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.spun
}
