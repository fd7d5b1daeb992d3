// Package config loads the daemon's hardware and timing configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the daemon configuration.
type Config struct {
	GPIO     GPIOConfig    `yaml:"gpio"`
	Triac    TriacConfig   `yaml:"triac"`
	Button   ButtonConfig  `yaml:"button"`
	Sensors  SensorConfig  `yaml:"sensors"`
	LED      LEDConfig     `yaml:"led"`
	MQTT     MQTTConfig    `yaml:"mqtt"`
	HTTPAddr string        `yaml:"http_addr"`
	Storage  StorageConfig `yaml:"storage"`
	LogLevel string        `yaml:"log_level"`
}

// GPIOConfig names the chip and BCM line offsets.
type GPIOConfig struct {
	Chip      string `yaml:"chip"`
	ZeroCross int    `yaml:"zero_cross"`
	Gate      int    `yaml:"gate"`
	Button    int    `yaml:"button"`
}

// TriacConfig contains the phase-control timings.
type TriacConfig struct {
	MainsHz float64       `yaml:"mains_hz"`
	Settle  time.Duration `yaml:"settle"` // after the zero-cross falling edge
	Pulse   time.Duration `yaml:"pulse"`  // gate pulse width
	Idle    time.Duration `yaml:"idle"`   // wait when not OPERATIONAL
}

// ButtonConfig contains the button and menu timings.
type ButtonConfig struct {
	Poll         time.Duration `yaml:"poll"`
	Debounce     time.Duration `yaml:"debounce"`
	LongPress    time.Duration `yaml:"long_press"`
	MenuTimeout  time.Duration `yaml:"menu_timeout"`
	Blink        time.Duration `yaml:"blink"`
	ComfortFrame time.Duration `yaml:"comfort_frame"` // comfort menu refresh
}

// SensorConfig locates the two temperature sensors.
type SensorConfig struct {
	W1Master   uint32        `yaml:"w1_master"` // kernel 1-Wire bus master number
	I2CBus     string        `yaml:"i2c_bus"`
	IRAddress  uint16        `yaml:"ir_address"`
	Conversion time.Duration `yaml:"conversion"`
	Interval   time.Duration `yaml:"interval"`
}

// LEDConfig describes the strip geometry.
type LEDConfig struct {
	SPIPort     string `yaml:"spi_port"`
	Pixels      int    `yaml:"pixels"`
	StatusIndex int    `yaml:"status_index"`
	BarOffset   int    `yaml:"bar_offset"`
	BarCount    int    `yaml:"bar_count"`
}

// MQTTConfig contains the broker connection settings.
type MQTTConfig struct {
	Broker     string        `yaml:"broker"`
	ClientID   string        `yaml:"client_id"`
	Heartbeat  time.Duration `yaml:"heartbeat"`
	BufferSize int           `yaml:"buffer_size"`
}

// StorageConfig contains on-disk paths.
type StorageConfig struct {
	Settings string `yaml:"settings"`
	Journal  string `yaml:"journal"`

	// Retention is how long journal entries are kept. Zero keeps them forever.
	Retention time.Duration `yaml:"retention"`
}

// Default returns the configuration for the reference board.
func Default() *Config {
	return &Config{
		GPIO: GPIOConfig{
			Chip:      "gpiochip0",
			ZeroCross: 17,
			Gate:      27,
			Button:    22,
		},
		Triac: TriacConfig{
			MainsHz: 50,
			Settle:  10 * time.Microsecond,
			Pulse:   200 * time.Microsecond,
			Idle:    50 * time.Millisecond,
		},
		Button: ButtonConfig{
			Poll:         20 * time.Millisecond,
			Debounce:     50 * time.Millisecond,
			LongPress:    1500 * time.Millisecond,
			MenuTimeout:  4000 * time.Millisecond,
			Blink:        200 * time.Millisecond,
			ComfortFrame: time.Second,
		},
		Sensors: SensorConfig{
			W1Master:   1,
			I2CBus:     "",
			IRAddress:  0x5A,
			Conversion: 750 * time.Millisecond,
			Interval:   5 * time.Second,
		},
		LED: LEDConfig{
			SPIPort:     "",
			Pixels:      9,
			StatusIndex: 0,
			BarOffset:   1,
			BarCount:    8,
		},
		MQTT: MQTTConfig{
			Broker:     "tcp://192.168.1.200:1883",
			ClientID:   "halo-heater",
			Heartbeat:  15 * time.Minute,
			BufferSize: 1000,
		},
		HTTPAddr: ":80",
		Storage: StorageConfig{
			Settings:  "/var/lib/halo-heater/settings.json",
			Journal:   "/var/lib/halo-heater/journal.db",
			Retention: 30 * 24 * time.Hour,
		},
		LogLevel: "info",
	}
}

// Load reads a YAML file over the defaults. A missing file yields the
// defaults unchanged.
func Load(filename string) (*Config, error) {
	cfg := Default()
	if filename == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would make the control loops misbehave.
func (c *Config) Validate() error {
	if c.Triac.MainsHz != 50 && c.Triac.MainsHz != 60 {
		return fmt.Errorf("triac.mains_hz must be 50 or 60, got %v", c.Triac.MainsHz)
	}
	if c.Triac.Pulse <= 0 || c.Triac.Idle <= 0 {
		return errors.New("triac.pulse and triac.idle must be positive")
	}
	if c.Button.Poll <= 0 {
		return errors.New("button.poll must be positive")
	}
	if c.Button.LongPress <= c.Button.Debounce {
		return fmt.Errorf("button.long_press (%v) must exceed button.debounce (%v)", c.Button.LongPress, c.Button.Debounce)
	}
	if c.Button.MenuTimeout <= 0 || c.Button.Blink <= 0 {
		return errors.New("button.menu_timeout and button.blink must be positive")
	}
	if c.Sensors.Interval <= 0 {
		return errors.New("sensors.interval must be positive")
	}
	if c.LED.Pixels <= 0 {
		return errors.New("led.pixels must be positive")
	}
	if c.LED.StatusIndex < 0 || c.LED.StatusIndex >= c.LED.Pixels {
		return fmt.Errorf("led.status_index %d outside strip of %d", c.LED.StatusIndex, c.LED.Pixels)
	}
	if c.LED.BarCount < 0 || c.LED.BarOffset < 0 || c.LED.BarOffset+c.LED.BarCount > c.LED.Pixels {
		return fmt.Errorf("led bar [%d,+%d) outside strip of %d", c.LED.BarOffset, c.LED.BarCount, c.LED.Pixels)
	}
	if c.MQTT.BufferSize < 1 {
		return errors.New("mqtt.buffer_size must be at least 1")
	}
	if c.Storage.Retention < 0 {
		return errors.New("storage.retention must not be negative")
	}
	return nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
