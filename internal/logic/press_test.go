package logic

import (
	"testing"
	"time"
)

const (
	testDebounce  = 50 * time.Millisecond
	testLongPress = 1500 * time.Millisecond
	testPoll      = 20 * time.Millisecond
)

// feed sends pressed samples at testPoll spacing from start for the given
// duration, then one released sample, returning every non-empty gesture.
func feed(p *PressDetector, start time.Time, held time.Duration) []Gesture {
	var out []Gesture
	var at time.Duration
	for ; at < held; at += testPoll {
		if g := p.Process(PressInput{Pressed: true, Time: start.Add(at)}); g != GestureNone {
			out = append(out, g)
		}
	}
	if g := p.Process(PressInput{Pressed: false, Time: start.Add(at)}); g != GestureNone {
		out = append(out, g)
	}
	return out
}

func TestPressShortClick(t *testing.T) {
	p := NewPressDetector(testDebounce, testLongPress)
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	got := feed(p, start, 300*time.Millisecond)
	if len(got) != 1 || got[0] != GestureShort {
		t.Fatalf("expected [SHORT], got %v", got)
	}
	if p.Pressing() {
		t.Error("detector should be idle after release")
	}
}

func TestPressLongFiresWhileHeld(t *testing.T) {
	p := NewPressDetector(testDebounce, testLongPress)
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	var fired time.Duration
	for at := time.Duration(0); at < 3*time.Second; at += testPoll {
		if g := p.Process(PressInput{Pressed: true, Time: start.Add(at)}); g == GestureLong {
			fired = at
			break
		}
	}
	if fired == 0 {
		t.Fatal("long press never fired while held")
	}
	// Threshold is measured from confirmation (start + debounce).
	if fired <= testDebounce+testLongPress {
		t.Errorf("long press fired too early at %v", fired)
	}
	if fired > testDebounce+testLongPress+testPoll {
		t.Errorf("long press fired late at %v", fired)
	}
}

func TestPressLongSuppressesShort(t *testing.T) {
	p := NewPressDetector(testDebounce, testLongPress)
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	got := feed(p, start, 2500*time.Millisecond)
	if len(got) != 1 || got[0] != GestureLong {
		t.Fatalf("expected exactly [LONG], got %v", got)
	}
}

func TestPressJustBelowThresholdIsShort(t *testing.T) {
	p := NewPressDetector(testDebounce, testLongPress)
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	// Held for debounce + threshold exactly: not yet "past" the threshold.
	got := feed(p, start, testDebounce+testLongPress)
	if len(got) != 1 || got[0] != GestureShort {
		t.Fatalf("expected [SHORT], got %v", got)
	}
}

func TestPressBounceRejected(t *testing.T) {
	p := NewPressDetector(testDebounce, testLongPress)
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	p.Process(PressInput{Pressed: true, Time: start})
	p.Process(PressInput{Pressed: false, Time: start.Add(20 * time.Millisecond)})
	g := p.Process(PressInput{Pressed: false, Time: start.Add(60 * time.Millisecond)})
	if g != GestureNone {
		t.Errorf("expected no gesture for bounce, got %s", g)
	}
	if p.Pressing() {
		t.Error("detector should be idle after bounce")
	}
}

func TestPressConsecutiveClicks(t *testing.T) {
	p := NewPressDetector(testDebounce, testLongPress)
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		got := feed(p, start.Add(time.Duration(i)*time.Second), 200*time.Millisecond)
		if len(got) != 1 || got[0] != GestureShort {
			t.Fatalf("click %d: expected [SHORT], got %v", i, got)
		}
	}
}

func TestPressHeldFor(t *testing.T) {
	p := NewPressDetector(testDebounce, testLongPress)
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	if d := p.HeldFor(start); d != 0 {
		t.Errorf("idle HeldFor: got %v, want 0", d)
	}
	p.Process(PressInput{Pressed: true, Time: start})
	p.Process(PressInput{Pressed: true, Time: start.Add(60 * time.Millisecond)})

	if d := p.HeldFor(start.Add(100 * time.Millisecond)); d != 50*time.Millisecond {
		t.Errorf("HeldFor: got %v, want 50ms", d)
	}
}
