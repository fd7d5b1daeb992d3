package logic

import "time"

// EventType classifies a device event.
type EventType string

const (
	EventMenu        EventType = "MENU"
	EventPower       EventType = "POWER"
	EventComfort     EventType = "COMFORT"
	EventSettings    EventType = "SETTINGS"
	EventTemperature EventType = "TEMPERATURE"
)

// Event sources.
const (
	SourceButton = "button"
	SourceHTTP   = "http"
	SourceMQTT   = "mqtt"
	SourceSensor = "sensor"
)

// Event records a change to the device record, together with the state it
// left behind.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Action    Action
	Source    string

	Menu      MenuState
	TriacOn   bool
	Base      int
	Comfort   ComfortMode
	Effective float64

	Temperature        Reading
	TemperatureContact Reading
	TemperatureIR      Reading
}

// NewEvent builds an event of the given type from a device snapshot.
func NewEvent(ts time.Time, typ EventType, action Action, source string, d Device) Event {
	return Event{
		Timestamp:          ts,
		Type:               typ,
		Action:             action,
		Source:             source,
		Menu:               d.Menu,
		TriacOn:            d.TriacOn,
		Base:               d.Base,
		Comfort:            d.Comfort,
		Effective:          d.EffectivePower(),
		Temperature:        d.Temperature,
		TemperatureContact: d.TemperatureContact,
		TemperatureIR:      d.TemperatureIR,
	}
}

// EventTypeFor returns the event type that reports action.
func EventTypeFor(action Action) EventType {
	switch action {
	case ActionPowerOn, ActionPowerOff:
		return EventPower
	case ActionCycleComfort:
		return EventComfort
	default:
		return EventMenu
	}
}

// Sink receives device events. Implementations must not block.
type Sink func(Event)

// Discard is a Sink that drops every event.
func Discard(Event) {}
