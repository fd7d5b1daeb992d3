// Package status combines the device record with daemon metadata (uptime,
// MQTT connectivity, network) for the HTTP page and MQTT system events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/halo-heater/internal/logic"
	"github.com/sweeney/halo-heater/internal/state"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	MainsHz     float64
	LongPressMs int64
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
}

// Snapshot is a point-in-time view of daemon and device state.
// It is a plain value, safe to use after the lock is released.
type Snapshot struct {
	Device        logic.Device
	Effective     float64
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds daemon metadata behind an RWMutex and reads the device
// record from the shared store.
type Tracker struct {
	store *state.Store

	mu        sync.RWMutex
	startTime time.Time
	mqtt      bool
	network   *NetworkInfo
	config    Config
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config, store *state.Store) *Tracker {
	return &Tracker{
		store:     store,
		startTime: startTime,
		config:    cfg,
	}
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.mqtt = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	dev := t.store.Snapshot()

	t.mu.RLock()
	s := Snapshot{
		Device:        dev,
		Effective:     dev.EffectivePower(),
		StartTime:     t.startTime,
		MQTTConnected: t.mqtt,
		Network:       t.network,
		Config:        t.config,
	}
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
