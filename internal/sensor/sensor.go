// Package sensor reads the heater's two temperature sensors: a DS18B20
// contact probe on the kernel 1-Wire bus and an MLX90614 infrared sensor
// on I2C.
package sensor

import "errors"

// ErrNoDevice is returned when no sensor answers at the configured location.
var ErrNoDevice = errors.New("sensor: no device found")

// ErrFault is returned when a sensor reports an invalid measurement.
var ErrFault = errors.New("sensor: measurement fault")

// Probe is a sensor that needs an explicit conversion before it can be read.
// Read returns the result of the most recent conversion in degrees Celsius.
type Probe interface {
	Convert() error
	Read() (float64, error)
}

// Thermometer is a sensor that can be read at any time, in degrees Celsius.
type Thermometer interface {
	Read() (float64, error)
}
