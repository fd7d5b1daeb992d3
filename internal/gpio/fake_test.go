package gpio

import (
	"errors"
	"testing"
	"time"
)

func TestFakeInputValue(t *testing.T) {
	f := NewFakeInput(true, false, true)

	want := []bool{true, false, true, true}
	for i, w := range want {
		v, err := f.Value()
		if err != nil {
			t.Fatalf("read %d: unexpected error: %v", i, err)
		}
		if v != w {
			t.Errorf("read %d: expected %v, got %v", i, w, v)
		}
	}
	if f.Reads() != 4 {
		t.Errorf("expected 4 reads, got %d", f.Reads())
	}
}

func TestFakeInputNoSamples(t *testing.T) {
	f := NewFakeInput()

	_, err := f.Value()
	if err == nil {
		t.Error("expected error with no samples")
	}
}

func TestFakeInputError(t *testing.T) {
	f := NewFakeInput(true)
	f.ReadError = errors.New("simulated error")

	_, err := f.Value()
	if err == nil {
		t.Fatal("expected error to be returned")
	}
	if err.Error() != "simulated error" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFakeInputFunc(t *testing.T) {
	level := false
	f := &FakeInput{Func: func() bool { level = !level; return level }}

	a, _ := f.Value()
	b, _ := f.Value()
	if !a || b {
		t.Errorf("expected (true, false), got (%v, %v)", a, b)
	}
}

func TestFakeInputPushAndReset(t *testing.T) {
	f := NewFakeInput(true)
	f.Push(false)

	f.Value()
	v, _ := f.Value()
	if v {
		t.Error("expected pushed sample false")
	}

	f.Reset()
	v, _ = f.Value()
	if !v {
		t.Error("after reset: expected first sample true")
	}
}

func TestFakeOutputPulses(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f := NewFakeOutput(func() time.Time { return now })

	if f.High() {
		t.Error("fresh output should be low")
	}

	f.Set(true)
	now = now.Add(200 * time.Microsecond)
	f.Set(false)
	now = now.Add(time.Millisecond)
	f.Set(true)
	now = now.Add(300 * time.Microsecond)
	f.Set(false)

	pulses := f.Pulses()
	if len(pulses) != 2 {
		t.Fatalf("expected 2 pulses, got %d", len(pulses))
	}
	if pulses[0] != 200*time.Microsecond || pulses[1] != 300*time.Microsecond {
		t.Errorf("unexpected pulse widths: %v", pulses)
	}
	if f.High() {
		t.Error("expected output low after final edge")
	}
	if len(f.Edges()) != 4 {
		t.Errorf("expected 4 edges, got %d", len(f.Edges()))
	}
}

func TestFakeOutputError(t *testing.T) {
	f := NewFakeOutput(nil)
	f.SetError = errors.New("bus fault")

	if err := f.Set(true); err == nil {
		t.Error("expected error")
	}
	if len(f.Edges()) != 0 {
		t.Error("failed write should not be recorded")
	}
}

func TestDefaultPins(t *testing.T) {
	p := DefaultPins()
	if p.ZeroCross != DefaultPinZeroCross || p.Gate != DefaultPinGate || p.Button != DefaultPinButton {
		t.Errorf("unexpected default pins: %+v", p)
	}
}
