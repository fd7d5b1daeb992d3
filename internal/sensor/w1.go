package sensor

import (
	"fmt"

	"periph.io/x/conn/v3/onewire"
	"periph.io/x/devices/v3/ds18b20"
	"periph.io/x/host/v3/netlink"
)

// W1Resolution is the DS18B20 resolution used by the heater: 12 bits,
// 0.0625 °C, 750 ms per conversion.
const W1Resolution = 12

// OpenW1 opens the kernel 1-Wire bus master over netlink. master is the bus
// number, 1 for w1_bus_master1.
func OpenW1(master uint32) (onewire.BusCloser, error) {
	bus, err := netlink.New(master)
	if err != nil {
		return nil, fmt.Errorf("w1: open bus master %d: %w", master, err)
	}
	return bus, nil
}

// W1Probe reads the first DS18B20 found on a 1-Wire bus.
//
// Convert starts a conversion on every probe on the bus and returns at once;
// the caller waits out the conversion time before Read fetches the result.
// The probe is searched for lazily and searched for again after any read
// error, so a probe plugged in late or reseated is picked up.
type W1Probe struct {
	bus  onewire.Bus
	bits int
	dev  *ds18b20.Dev
}

// NewW1Probe creates a probe on bus at the given resolution (9 to 12 bits).
func NewW1Probe(bus onewire.Bus, resolutionBits int) *W1Probe {
	return &W1Probe{bus: bus, bits: resolutionBits}
}

// Device returns the probe in use, or "" if none has been found yet.
func (p *W1Probe) Device() string {
	if p.dev == nil {
		return ""
	}
	return p.dev.String()
}

func (p *W1Probe) discover() (*ds18b20.Dev, error) {
	addrs, err := p.bus.Search(false)
	if err != nil {
		return nil, fmt.Errorf("w1: search: %w", err)
	}
	for _, a := range addrs {
		if ds18b20.Family(a&0xff) != ds18b20.DS18B20 {
			continue
		}
		dev, err := ds18b20.New(p.bus, a, p.bits)
		if err != nil {
			return nil, fmt.Errorf("w1: %#016x: %w", uint64(a), err)
		}
		return dev, nil
	}
	return nil, fmt.Errorf("w1: %w", ErrNoDevice)
}

// Convert starts a temperature conversion on the bus.
func (p *W1Probe) Convert() error {
	if err := ds18b20.StartAll(p.bus); err != nil {
		return fmt.Errorf("w1: start conversion: %w", err)
	}
	return nil
}

// Read returns the last converted temperature.
func (p *W1Probe) Read() (float64, error) {
	if p.dev == nil {
		dev, err := p.discover()
		if err != nil {
			return 0, err
		}
		p.dev = dev
	}

	t, err := p.dev.LastTemp()
	if err != nil {
		p.dev = nil
		return 0, fmt.Errorf("w1: %w: %v", ErrFault, err)
	}
	return t.Celsius(), nil
}
