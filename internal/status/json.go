package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/halo-heater/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Heater        HeaterJSON   `json:"heater"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// HeaterJSON is the JSON representation of the device record.
type HeaterJSON struct {
	Mode               string               `json:"operating_mode"`
	Menu               string               `json:"menu_state"`
	TriacOn            bool                 `json:"triac_on"`
	Percentage         int                  `json:"percentage"`
	EffectivePercent   float64              `json:"effective_percentage"`
	ComfortMode        logic.ComfortMode    `json:"comfort_mode"`
	Temperature        logic.Reading        `json:"temperature"`
	TemperatureContact logic.Reading        `json:"temperature_contact"`
	TemperatureIR      logic.Reading        `json:"temperature_ir"`
	DefaultThresholds  logic.ThresholdTable `json:"default_thresholds"`
	OnlineThresholds   logic.ThresholdTable `json:"online_thresholds"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	MainsHz     float64 `json:"mains_hz"`
	LongPressMs int64   `json:"long_press_ms"`
	HeartbeatMs int64   `json:"heartbeat_ms"`
	Broker      string  `json:"broker"`
	HTTPAddr    string  `json:"http_addr"`
}

// BuildHeater converts a device record to its JSON form.
func BuildHeater(d logic.Device) HeaterJSON {
	return HeaterJSON{
		Mode:               string(d.Mode),
		Menu:               string(d.Menu),
		TriacOn:            d.TriacOn,
		Percentage:         d.Base,
		EffectivePercent:   d.EffectivePower(),
		ComfortMode:        d.Comfort,
		Temperature:        d.Temperature,
		TemperatureContact: d.TemperatureContact,
		TemperatureIR:      d.TemperatureIR,
		DefaultThresholds:  d.Thresholds.Default,
		OnlineThresholds:   d.Thresholds.Online,
	}
}

func buildInner(snap Snapshot) StatusInner {
	return StatusInner{
		Heater:        BuildHeater(snap.Device),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			MainsHz:     snap.Config.MainsHz,
			LongPressMs: snap.Config.LongPressMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
		},
	}
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}

// CompactJSON is the short status document served at /status: the shape the
// heater's companion apps poll.
type CompactJSON struct {
	TriacOn          bool                 `json:"triac_on"`
	Percentage       int                  `json:"percentage"`
	ComfortMode      logic.ComfortMode    `json:"comfort_mode"`
	Temperature      logic.Reading        `json:"temperature"`
	OnlineThresholds logic.ThresholdTable `json:"online_thresholds"`
}

// FormatCompact returns the /status document for a device record.
func FormatCompact(d logic.Device) ([]byte, error) {
	return json.Marshal(CompactJSON{
		TriacOn:          d.TriacOn,
		Percentage:       d.Base,
		ComfortMode:      d.Comfort,
		Temperature:      d.Temperature,
		OnlineThresholds: d.Thresholds.Online,
	})
}
