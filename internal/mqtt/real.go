package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/halo-heater/internal/clock"
	"github.com/sweeney/halo-heater/internal/logger"
	"github.com/sweeney/halo-heater/internal/logic"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// Options configures a RealPublisher.
type Options struct {
	Broker     string
	ClientID   string
	BufferSize int
	Clock      clock.Clock
	Log        *logger.Logger

	// OnConnectionChange is called from the client's goroutines whenever
	// the connection comes up or drops.
	OnConnectionChange func(connected bool)
}

// RealPublisher publishes to an actual MQTT broker. Messages published while
// the connection is down are buffered and replayed, oldest first, once it
// comes back.
type RealPublisher struct {
	client   paho.Client
	clock    clock.Clock
	log      *logger.Logger
	onChange func(bool)

	mu            sync.Mutex
	outbox        *outbox
	connected     bool
	everConnected bool
	handler       CommandHandler
}

func newPublisher(opts Options) *RealPublisher {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Log == nil {
		opts.Log = logger.Nop()
	}
	if opts.OnConnectionChange == nil {
		opts.OnConnectionChange = func(bool) {}
	}
	return &RealPublisher{
		clock:    opts.Clock,
		log:      opts.Log,
		onChange: opts.OnConnectionChange,
		outbox:   newOutbox(opts.BufferSize, opts.Log),
	}
}

// NewRealPublisher creates a publisher for the given broker. The broker
// being unreachable is not an error: the client keeps retrying in the
// background and messages are buffered meanwhile.
func NewRealPublisher(opts Options) (*RealPublisher, error) {
	p := newPublisher(opts)

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: p.clock.Now(),
		Event:     EventShutdown,
		Reason:    ReasonDisconnect,
	})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	pahoOpts := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOrderMatters(false).
		SetBinaryWill(TopicSystem, will, 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost)

	p.client = paho.NewClient(pahoOpts)
	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		p.log.Warnw("MQTT broker not reachable yet, buffering", "broker", opts.Broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return p, nil
}

// Publish sends a device event to the MQTT broker.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// QoS 0 (at-most-once), not retained
	return p.send(pending{topic: TopicEvents, payload: payload})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	// QoS 1 (at-least-once): lifecycle events must arrive
	return p.send(pending{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

// Subscribe routes commands from TopicCommand to h. The subscription is
// renewed on every reconnect.
func (p *RealPublisher) Subscribe(h CommandHandler) error {
	p.mu.Lock()
	p.handler = h
	connected := p.connected
	p.mu.Unlock()

	if !connected {
		return nil
	}
	return p.subscribe(p.client, h)
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outbox.size()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}

func (p *RealPublisher) send(msg pending) error {
	p.mu.Lock()
	if !p.connected {
		p.outbox.add(msg)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	return publish(p.client, msg)
}

func publish(client paho.Client, msg pending) error {
	token := client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish to %s: timeout", msg.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", msg.topic, err)
	}
	return nil
}

func (p *RealPublisher) subscribe(client paho.Client, h CommandHandler) error {
	token := client.Subscribe(TopicCommand, 1, func(_ paho.Client, m paho.Message) {
		cmd, err := ParseCommand(m.Payload())
		if err != nil {
			p.log.Warnw("ignoring MQTT command", "payload", string(m.Payload()), "error", err)
			return
		}
		p.log.Infow("MQTT command received", "command", cmd.Name)
		h(cmd)
	})
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("subscribe to %s: timeout", TopicCommand)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe to %s: %w", TopicCommand, err)
	}
	return nil
}

func (p *RealPublisher) onConnect(client paho.Client) {
	p.mu.Lock()
	p.connected = true
	reconnect := p.everConnected
	p.everConnected = true
	queued, dropped := p.outbox.flush()
	handler := p.handler
	p.mu.Unlock()

	p.log.Infow("MQTT connected", "reconnect", reconnect, "queued", len(queued), "dropped", dropped)
	p.onChange(true)

	if handler != nil {
		if err := p.subscribe(client, handler); err != nil {
			p.log.Errorw("MQTT subscribe failed", "error", err)
		}
	}

	if reconnect {
		payload, _ := FormatSystemPayload(SystemEvent{Timestamp: p.clock.Now(), Event: EventReconnected})
		if err := publish(client, pending{topic: TopicSystem, payload: payload, qos: 1}); err != nil {
			p.log.Warnw("MQTT publish failed", "event", EventReconnected, "error", err)
		}
	}

	for _, msg := range queued {
		if err := publish(client, msg); err != nil {
			p.log.Warnw("MQTT replay failed", "topic", msg.topic, "error", err)
		}
	}
}

func (p *RealPublisher) onConnectionLost(_ paho.Client, err error) {
	p.mu.Lock()
	p.connected = false
	p.mu.Unlock()

	p.log.Warnw("MQTT connection lost", "error", err)
	p.onChange(false)
}
