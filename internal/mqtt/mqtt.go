// Package mqtt publishes heater events and accepts remote commands over MQTT.
package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sweeney/halo-heater/internal/logic"
	"github.com/sweeney/halo-heater/internal/settings"
)

// TopicEvents is the MQTT topic for device events.
const TopicEvents = "halo/heater/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "halo/heater/system"

// TopicCommand is the topic the daemon subscribes to in ONLINE mode.
const TopicCommand = "halo/heater/cmd"

// System event names.
const (
	EventStartup     = "STARTUP"
	EventShutdown    = "SHUTDOWN"
	EventHeartbeat   = "HEARTBEAT"
	EventReconnected = "RECONNECTED"

	// ReasonDisconnect is the reason carried by the last will.
	ReasonDisconnect = "MQTT_DISCONNECT"
)

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a device event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Heater HeaterPayload `json:"heater"`
}

// HeaterPayload contains the device event details.
type HeaterPayload struct {
	Timestamp          string            `json:"timestamp"`
	Event              string            `json:"event"`
	Action             string            `json:"action,omitempty"`
	Source             string            `json:"source"`
	Menu               string            `json:"menu_state"`
	TriacOn            bool              `json:"triac_on"`
	Percentage         int               `json:"percentage"`
	ComfortMode        logic.ComfortMode `json:"comfort_mode"`
	EffectivePercent   float64           `json:"effective_percentage"`
	Temperature        logic.Reading     `json:"temperature"`
	TemperatureContact logic.Reading     `json:"temperature_contact"`
	TemperatureIR      logic.Reading     `json:"temperature_ir"`
}

// FormatPayload creates the JSON payload for a device event.
func FormatPayload(event logic.Event) ([]byte, error) {
	payload := Payload{
		Heater: HeaterPayload{
			Timestamp:          event.Timestamp.UTC().Format(time.RFC3339),
			Event:              string(event.Type),
			Action:             string(event.Action),
			Source:             event.Source,
			Menu:               string(event.Menu),
			TriacOn:            event.TriacOn,
			Percentage:         event.Base,
			ComfortMode:        event.Comfort,
			EffectivePercent:   event.Effective,
			Temperature:        event.Temperature,
			TemperatureContact: event.TemperatureContact,
			TemperatureIR:      event.TemperatureIR,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// Command names accepted on TopicCommand.
const (
	CommandTogglePower    = "toggle_power"
	CommandUpdateSettings = "update_settings"
)

// ErrUnknownCommand is returned by ParseCommand for an unrecognised name.
var ErrUnknownCommand = errors.New("mqtt: unknown command")

// Command is a decoded remote command. Settings is only set for
// update_settings.
type Command struct {
	Name     string
	Settings settings.Record
}

// ParseCommand decodes {"command": "...", ...settings fields}. An
// update_settings command must carry at least one valid field.
func ParseCommand(data []byte) (Command, error) {
	var raw struct {
		Command string `json:"command"`
		settings.Record
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Command{}, fmt.Errorf("decode command: %w", err)
	}

	switch raw.Command {
	case CommandTogglePower:
		return Command{Name: raw.Command}, nil
	case CommandUpdateSettings:
		if raw.Record.Empty() {
			return Command{}, fmt.Errorf("update_settings: no settings given")
		}
		if err := raw.Record.Validate(); err != nil {
			return Command{}, err
		}
		return Command{Name: raw.Command, Settings: raw.Record}, nil
	default:
		return Command{}, fmt.Errorf("%w %q", ErrUnknownCommand, raw.Command)
	}
}

// CommandHandler receives decoded commands.
type CommandHandler func(Command)
