package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/sweeney/halo-heater/internal/journal"
	"github.com/sweeney/halo-heater/internal/logger"
	"github.com/sweeney/halo-heater/internal/logic"
	"github.com/sweeney/halo-heater/internal/mqtt"
	"github.com/sweeney/halo-heater/internal/settings"
	"github.com/sweeney/halo-heater/internal/status"
	"github.com/sweeney/halo-heater/internal/web"
)

// eventStore is the part of the journal the daemon uses.
type eventStore interface {
	Append(ctx context.Context, e logic.Event) (string, error)
	Recent(ctx context.Context, limit int) ([]journal.Entry, error)
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// resolveMode maps the -mode flag to an operating mode. "auto" picks ONLINE
// when pi-helper reports the network connected.
func resolveMode(flagValue string, network *status.NetworkInfo) (logic.OperatingMode, error) {
	switch strings.ToLower(flagValue) {
	case "standalone":
		return logic.ModeStandalone, nil
	case "online":
		return logic.ModeOnline, nil
	case "auto", "":
		if network != nil && network.Status == "connected" {
			return logic.ModeOnline, nil
		}
		return logic.ModeStandalone, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want auto, standalone or online)", flagValue)
	}
}

// bootDevice returns the boot defaults with the persisted settings applied.
// A missing or invalid settings file leaves the defaults in place.
func bootDevice(mode logic.OperatingMode, settingsPath string, log *logger.Logger) logic.Device {
	d := logic.NewDevice()
	d.Mode = mode

	if settingsPath == "" {
		return d
	}
	rec, err := settings.Load(settingsPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Infow("no saved settings, using defaults", "path", settingsPath)
	case err != nil:
		log.Warnw("ignoring saved settings", "path", settingsPath, "error", err)
	default:
		rec.Apply(&d)
		log.Infow("loaded settings", "path", settingsPath, "percentage", d.Base, "comfort_mode", d.Comfort)
	}
	return d
}

// eventQueue is a bounded, non-blocking event sink. Push never blocks the
// control loops; a full queue drops the event.
type eventQueue struct {
	mu     sync.Mutex
	ch     chan logic.Event
	closed bool
	log    *logger.Logger
}

func newEventQueue(size int, log *logger.Logger) *eventQueue {
	return &eventQueue{ch: make(chan logic.Event, size), log: log}
}

// Push is a logic.Sink.
func (q *eventQueue) Push(e logic.Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	select {
	case q.ch <- e:
	default:
		q.log.Warnw("event queue full, dropping event", "event", e.Type, "source", e.Source)
	}
}

// C returns the receive side. It is closed by Close.
func (q *eventQueue) C() <-chan logic.Event {
	return q.ch
}

// Close stops accepting events. Later pushes are discarded.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}

// dispatch fans events out to MQTT and the journal until events is closed.
// store may be nil.
func dispatch(events <-chan logic.Event, publisher mqtt.Publisher, store eventStore, log *logger.Logger) {
	for e := range events {
		log.Debugw("event", "type", e.Type, "action", e.Action, "source", e.Source)
		if err := publisher.Publish(e); err != nil {
			log.Warnw("publish error", "event", e.Type, "error", err)
		}
		if store != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if _, err := store.Append(ctx, e); err != nil {
				log.Warnw("journal append failed", "event", e.Type, "error", err)
			}
			cancel()
		}
	}
}

// handleCommand applies an MQTT command through the control panel.
func handleCommand(ctrl web.Controller, cmd mqtt.Command) {
	switch cmd.Name {
	case mqtt.CommandTogglePower:
		ctrl.TogglePower(logic.SourceMQTT)
	case mqtt.CommandUpdateSettings:
		// Errors are logged by the panel.
		_, _ = ctrl.UpdateSettings(logic.SourceMQTT, cmd.Settings)
	}
}

// runLoop publishes heartbeats until a signal arrives, then publishes the
// SHUTDOWN event and returns the signal name.
func runLoop(publisher mqtt.Publisher, tracker *status.Tracker, store eventStore, retention time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal, log *logger.Logger) string {
	for {
		select {
		case s := <-sig:
			log.Infow("shutting down", "signal", s.String())
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			snap := tracker.Snapshot()
			event := mqtt.SystemEvent{
				Timestamp:  now(),
				Event:      mqtt.EventShutdown,
				Reason:     signalName,
				Retained:   true,
				RawPayload: status.FormatStatusEvent(snap, mqtt.EventShutdown, signalName),
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Warnw("failed to publish shutdown event", "error", err)
			}
			return signalName

		case <-tick:
			t := now()
			if net := readNetworkInfo(); net != nil {
				tracker.SetNetwork(net)
			}
			snap := tracker.Snapshot()
			log.Infow("heartbeat",
				"uptime", snap.Uptime().Truncate(time.Second),
				"menu", snap.Device.Menu,
				"triac_on", snap.Device.TriacOn,
				"effective", snap.Effective,
				"temperature", snap.Device.Temperature,
			)
			if err := publisher.PublishSystem(mqtt.SystemEvent{
				Timestamp:  t,
				Event:      mqtt.EventHeartbeat,
				RawPayload: status.FormatStatusEvent(snap, mqtt.EventHeartbeat, ""),
			}); err != nil {
				log.Warnw("heartbeat publish error", "error", err)
			}

			if store != nil && retention > 0 {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				n, err := store.Prune(ctx, t.Add(-retention))
				cancel()
				if err != nil {
					log.Warnw("journal prune failed", "error", err)
				} else if n > 0 {
					log.Infow("journal pruned", "removed", n)
				}
			}
		}
	}
}

// discardPublisher stands in for MQTT in STANDALONE mode.
type discardPublisher struct{}

func (discardPublisher) Publish(logic.Event) error            { return nil }
func (discardPublisher) PublishSystem(mqtt.SystemEvent) error { return nil }
func (discardPublisher) Close() error                         { return nil }

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
