package sensor

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// MLX90614 register and conversion constants.
const (
	DefaultMLXAddress = 0x5A

	regTobj1  = 0x07 // object temperature, RAM
	errorFlag = 0x8000

	kelvinPerLSB = 0.02
	zeroCelsius  = 273.15
)

// MLX90614 reads the object temperature of an MLX90614 infrared sensor.
type MLX90614 struct {
	dev *i2c.Dev
}

// NewMLX90614 addresses an MLX90614 on bus.
func NewMLX90614(bus i2c.Bus, addr uint16) *MLX90614 {
	return &MLX90614{dev: &i2c.Dev{Bus: bus, Addr: addr}}
}

// Read returns the object temperature in degrees Celsius.
func (m *MLX90614) Read() (float64, error) {
	var buf [2]byte
	if err := m.dev.Tx([]byte{regTobj1}, buf[:]); err != nil {
		return 0, fmt.Errorf("mlx90614: read tobj1: %w", err)
	}
	raw := uint16(buf[1])<<8 | uint16(buf[0])
	if raw&errorFlag != 0 {
		return 0, fmt.Errorf("mlx90614: raw 0x%04x: %w", raw, ErrFault)
	}
	return float64(raw)*kelvinPerLSB - zeroCelsius, nil
}

// OpenI2C initialises the host drivers and opens the named I2C bus.
// An empty name opens the first bus available.
func OpenI2C(name string) (i2c.BusCloser, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init host drivers: %w", err)
	}
	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", name, err)
	}
	return bus, nil
}
