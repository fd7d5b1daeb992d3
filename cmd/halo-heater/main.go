// Command halo-heater drives a TRIAC-controlled electric heater: phase-angle
// power control, temperature regulation, a one-button menu, an LED strip and,
// when the network is up, an HTTP page and MQTT telemetry.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sweeney/halo-heater/internal/button"
	"github.com/sweeney/halo-heater/internal/clock"
	"github.com/sweeney/halo-heater/internal/config"
	"github.com/sweeney/halo-heater/internal/control"
	"github.com/sweeney/halo-heater/internal/gpio"
	"github.com/sweeney/halo-heater/internal/journal"
	"github.com/sweeney/halo-heater/internal/led"
	"github.com/sweeney/halo-heater/internal/logger"
	"github.com/sweeney/halo-heater/internal/logic"
	"github.com/sweeney/halo-heater/internal/mqtt"
	"github.com/sweeney/halo-heater/internal/sensor"
	"github.com/sweeney/halo-heater/internal/state"
	"github.com/sweeney/halo-heater/internal/status"
	"github.com/sweeney/halo-heater/internal/temperature"
	"github.com/sweeney/halo-heater/internal/triac"
	"github.com/sweeney/halo-heater/internal/web"
)

func main() {
	configPath := flag.String("config", "/etc/halo-heater/config.yaml", "YAML configuration file (missing file uses defaults)")
	mode := flag.String("mode", "auto", "Operating mode: auto, standalone or online")
	logLevel := flag.String("log-level", "", "Log level override: debug, info, warn or error")
	printState := flag.Bool("print-state", false, "Read the sensors once, print temperature and effective power, and exit")
	writeConfig := flag.String("write-config", "", "Write the effective configuration (defaults plus -config) to this file and exit")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		if !logger.ValidLevel(*logLevel) {
			fmt.Fprintf(os.Stderr, "fatal: unknown log level %q\n", *logLevel)
			os.Exit(2)
		}
		cfg.LogLevel = *logLevel
	}
	if *writeConfig != "" {
		if err := cfg.Save(*writeConfig); err != nil {
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			os.Exit(1)
		}
		return
	}
	log := logger.Get(cfg.LogLevel)
	defer log.Sync()

	network := readNetworkInfo()
	opMode, err := resolveMode(*mode, network)
	if err != nil {
		log.Fatalw("invalid mode", "error", err)
	}

	if err := run(cfg, opMode, network, *printState, log); err != nil {
		log.Fatalw("fatal", "error", err)
	}
}

func run(cfg *config.Config, mode logic.OperatingMode, network *status.NetworkInfo, printState bool, log *logger.Logger) error {
	clk := clock.Real{}

	store := state.NewStore(bootDevice(mode, cfg.Storage.Settings, log))

	// A missing 1-Wire master or IR sensor leaves regulation on the other one.
	var contact sensor.Probe
	if w1, err := sensor.OpenW1(cfg.Sensors.W1Master); err != nil {
		log.Warnw("contact probe unavailable", "master", cfg.Sensors.W1Master, "error", err)
	} else {
		defer w1.Close()
		contact = sensor.NewW1Probe(w1, sensor.W1Resolution)
	}
	var ir sensor.Thermometer
	if bus, err := sensor.OpenI2C(cfg.Sensors.I2CBus); err != nil {
		log.Warnw("IR sensor unavailable", "bus", cfg.Sensors.I2CBus, "error", err)
	} else {
		defer bus.Close()
		ir = sensor.NewMLX90614(bus, cfg.Sensors.IRAddress)
	}
	tempTiming := temperature.Timing{Conversion: cfg.Sensors.Conversion, Interval: cfg.Sensors.Interval}

	if printState {
		svc := temperature.New(contact, ir, store, clk, tempTiming, nil, log)
		res := svc.Cycle()
		d := store.Snapshot()
		fmt.Printf("temperature: %s (contact %s, ir %s)\n", res.Fused, res.Contact, res.IR)
		fmt.Printf("mode: %s, comfort: %s, base: %d%%, effective: %.1f%%\n", d.Mode, d.Comfort, d.Base, d.EffectivePower())
		return nil
	}

	lines, err := gpio.NewRealLines(cfg.GPIO.Chip, gpio.Pins{
		ZeroCross: cfg.GPIO.ZeroCross,
		Gate:      cfg.GPIO.Gate,
		Button:    cfg.GPIO.Button,
	})
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer lines.Close()

	drv, err := led.OpenNRZ(cfg.LED.SPIPort, cfg.LED.Pixels)
	if err != nil {
		return fmt.Errorf("init led strip: %w", err)
	}
	strip := led.NewStrip(drv, cfg.LED.Pixels)
	defer strip.Close()
	leds := led.NewRenderer(strip, led.Layout{
		StatusIndex: cfg.LED.StatusIndex,
		BarOffset:   cfg.LED.BarOffset,
		BarCount:    cfg.LED.BarCount,
	})

	var history eventStore
	if cfg.Storage.Journal != "" {
		j, err := journal.Open(cfg.Storage.Journal)
		if err != nil {
			log.Warnw("journal disabled", "path", cfg.Storage.Journal, "error", err)
		} else {
			defer j.Close()
			history = j
		}
	}

	tracker := status.NewTracker(time.Now(), status.Config{
		MainsHz:     cfg.Triac.MainsHz,
		LongPressMs: cfg.Button.LongPress.Milliseconds(),
		HeartbeatMs: cfg.MQTT.Heartbeat.Milliseconds(),
		Broker:      cfg.MQTT.Broker,
		HTTPAddr:    cfg.HTTPAddr,
	}, store)
	if network != nil {
		tracker.SetNetwork(network)
	}

	// Network surfaces exist only in ONLINE mode.
	var publisher mqtt.Publisher = discardPublisher{}
	var realPublisher *mqtt.RealPublisher
	if mode == logic.ModeOnline {
		realPublisher, err = mqtt.NewRealPublisher(mqtt.Options{
			Broker:             cfg.MQTT.Broker,
			ClientID:           cfg.MQTT.ClientID,
			BufferSize:         cfg.MQTT.BufferSize,
			Log:                log,
			OnConnectionChange: tracker.SetMQTTConnected,
		})
		if err != nil {
			log.Errorw("MQTT disabled", "broker", cfg.MQTT.Broker, "error", err)
		} else {
			defer realPublisher.Close()
			publisher = realPublisher
		}
	}

	queue := newEventQueue(64, log)
	dispatchDone := make(chan struct{})
	go func() {
		defer close(dispatchDone)
		dispatch(queue.C(), publisher, history, log)
	}()

	panel := control.New(store, leds, clk, cfg.Storage.Settings, queue.Push, log)

	if realPublisher != nil {
		if err := realPublisher.Subscribe(func(cmd mqtt.Command) { handleCommand(panel, cmd) }); err != nil {
			log.Errorw("MQTT command subscription failed", "error", err)
		}
	}

	var srv *web.Server
	if mode == logic.ModeOnline && cfg.HTTPAddr != "" {
		var hist web.History
		if history != nil {
			hist = history
		}
		srv = web.New(cfg.HTTPAddr, tracker, panel, hist, log)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorw("http server error", "error", err)
			}
		}()
		log.Infow("http server listening", "addr", cfg.HTTPAddr)
	}

	boot := store.Snapshot()
	if err := leds.RenderStatus(boot, true); err != nil {
		log.Warnw("status pixel update failed", "error", err)
	}
	if err := leds.RenderBar(boot.Base); err != nil {
		log.Warnw("power bar update failed", "error", err)
	}

	triacTiming := triac.TimingFor(cfg.Triac.MainsHz)
	triacTiming.Settle = cfg.Triac.Settle
	triacTiming.Pulse = cfg.Triac.Pulse
	triacTiming.Idle = cfg.Triac.Idle

	phase := triac.New(lines.ZeroCross(), lines.Gate(), store, clk, leds, triacTiming, log)
	menu := button.New(lines.Button(), store, clk, leds, button.Timing{
		Poll:         cfg.Button.Poll,
		Debounce:     cfg.Button.Debounce,
		LongPress:    cfg.Button.LongPress,
		MenuTimeout:  cfg.Button.MenuTimeout,
		Blink:        cfg.Button.Blink,
		ComfortFrame: cfg.Button.ComfortFrame,
	}, queue.Push, log)
	temps := temperature.New(contact, ir, store, clk, tempTiming, queue.Push, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	for _, runner := range []func(context.Context){phase.Run, menu.Run, temps.Run} {
		wg.Add(1)
		go func(run func(context.Context)) {
			defer wg.Done()
			run(ctx)
		}(runner)
	}

	startup := tracker.Snapshot()
	if err := publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp:  startup.Now,
		Event:      mqtt.EventStartup,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(startup, mqtt.EventStartup, ""),
	}); err != nil {
		log.Warnw("failed to publish startup event", "error", err)
	}

	log.Infow("started",
		"mode", mode,
		"menu", boot.Menu,
		"percentage", boot.Base,
		"comfort_mode", boot.Comfort,
		"mains_hz", cfg.Triac.MainsHz,
		"heartbeat", cfg.MQTT.Heartbeat,
	)

	var tick <-chan time.Time
	if cfg.MQTT.Heartbeat > 0 {
		ticker := time.NewTicker(cfg.MQTT.Heartbeat)
		defer ticker.Stop()
		tick = ticker.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	reason := runLoop(publisher, tracker, history, cfg.Storage.Retention, time.Now, tick, sigCh, log)

	if srv != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warnw("http shutdown", "error", err)
		}
		done()
	}

	// The TRIAC loop drives the gate low as it exits.
	cancel()
	wg.Wait()

	queue.Close()
	<-dispatchDone

	if err := strip.Clear(); err != nil {
		log.Warnw("clear led strip", "error", err)
	}
	log.Infow("stopped", "reason", reason)
	return nil
}
