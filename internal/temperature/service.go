// Package temperature runs the temperature acquisition loop: it reads the
// contact probe and the infrared sensor, fuses them and publishes the result
// to the device store.
package temperature

import (
	"context"
	"time"

	"github.com/sweeney/halo-heater/internal/clock"
	"github.com/sweeney/halo-heater/internal/logger"
	"github.com/sweeney/halo-heater/internal/logic"
	"github.com/sweeney/halo-heater/internal/sensor"
	"github.com/sweeney/halo-heater/internal/state"
)

// Timing controls the acquisition cycle.
type Timing struct {
	Conversion time.Duration // wait between starting and reading the probe
	Interval   time.Duration // wait between cycles
}

// DefaultTiming matches the DS18B20's 12-bit conversion time.
var DefaultTiming = Timing{
	Conversion: 750 * time.Millisecond,
	Interval:   5 * time.Second,
}

// Result is the outcome of one acquisition cycle.
type Result struct {
	Contact logic.Reading
	IR      logic.Reading
	Fused   logic.Reading
}

// Service owns the acquisition loop.
type Service struct {
	contact sensor.Probe
	ir      sensor.Thermometer
	store   *state.Store
	clock   clock.Clock
	timing  Timing
	sink    logic.Sink
	log     *logger.Logger
}

// New creates a Service. Either sensor may be nil when it is not fitted;
// a missing sensor reads as absent every cycle.
func New(contact sensor.Probe, ir sensor.Thermometer, store *state.Store, clk clock.Clock, timing Timing, sink logic.Sink, log *logger.Logger) *Service {
	if sink == nil {
		sink = logic.Discard
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		contact: contact,
		ir:      ir,
		store:   store,
		clock:   clk,
		timing:  timing,
		sink:    sink,
		log:     log,
	}
}

// Cycle runs one acquisition: convert, wait, read both sensors, fuse and
// store. Sensor faults are logged and read as absent.
func (s *Service) Cycle() Result {
	var res Result

	if s.contact != nil {
		if err := s.contact.Convert(); err != nil {
			s.log.Warnw("contact probe conversion failed", "error", err)
		}
	}
	s.clock.Sleep(s.timing.Conversion)

	if s.contact != nil {
		if v, err := s.contact.Read(); err != nil {
			s.log.Warnw("contact probe read failed", "error", err)
		} else {
			res.Contact = logic.Celsius(v)
		}
	}
	if s.ir != nil {
		if v, err := s.ir.Read(); err != nil {
			s.log.Warnw("infrared sensor read failed", "error", err)
		} else {
			res.IR = logic.Celsius(v)
		}
	}

	res.Fused = logic.Fuse(res.Contact, res.IR)
	s.store.SetTemperatures(res.Contact, res.IR, res.Fused)

	s.log.Infow("temperature", "contact", res.Contact, "ir", res.IR, "fused", res.Fused)
	s.sink(logic.NewEvent(s.clock.Now(), logic.EventTemperature, logic.ActionNone, logic.SourceSensor, s.store.Snapshot()))
	return res
}

// Run repeats Cycle every Interval until ctx is cancelled. Cancellation is
// observed between cycles.
func (s *Service) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		s.Cycle()
		if !s.clock.Wait(ctx, s.timing.Interval) {
			return
		}
	}
}
