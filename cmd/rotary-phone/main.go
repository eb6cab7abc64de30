// Command rotary-phone runs the rotary telephone: it polls the dial, handset
// and buttons, plays numbers from the directory and publishes call events to
// MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sweeney/rotary-phone/internal/audio"
	"github.com/sweeney/rotary-phone/internal/command"
	"github.com/sweeney/rotary-phone/internal/config"
	"github.com/sweeney/rotary-phone/internal/directory"
	"github.com/sweeney/rotary-phone/internal/gpio"
	"github.com/sweeney/rotary-phone/internal/led"
	"github.com/sweeney/rotary-phone/internal/logging"
	"github.com/sweeney/rotary-phone/internal/logic"
	"github.com/sweeney/rotary-phone/internal/metrics"
	"github.com/sweeney/rotary-phone/internal/mqtt"
	"github.com/sweeney/rotary-phone/internal/params"
	"github.com/sweeney/rotary-phone/internal/phone"
	"github.com/sweeney/rotary-phone/internal/status"
	"github.com/sweeney/rotary-phone/internal/web"
)

// commandQueueSize bounds commands waiting for the polling loop.
const commandQueueSize = 16

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	closer, err := logging.Init(logging.ParseLevel(cfg.LogLevel), cfg.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("fatal")
	}
}

func run(cfg config.Config) error {
	gpioReader, err := gpio.NewRealReader(cfg.Chip, cfg.Pins.Inputs())
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer gpioReader.Close()

	if cfg.PrintState {
		sample, err := gpioReader.Read()
		if err != nil {
			return fmt.Errorf("read gpio: %w", err)
		}
		printState(os.Stdout, sample, cfg.Pins, cfg.RandomInverted)
		return nil
	}

	renderer, err := led.NewGPIORenderer(cfg.Chip, cfg.Pins.LedRed, cfg.Pins.LedGreen, cfg.Pins.LedBlue)
	if err != nil {
		return fmt.Errorf("init led: %w", err)
	}
	defer renderer.Close()

	player := audio.NewExecPlayer(execConfig(cfg))
	defer player.Stop()

	dir, err := directory.New(cfg.NumbersDir)
	if err != nil {
		return fmt.Errorf("load numbers: %w", err)
	}

	store, err := params.Open(cfg.ParamsDB)
	if err != nil {
		return fmt.Errorf("open params: %w", err)
	}
	defer store.Close()
	if err := params.AddDefaults(store); err != nil {
		return fmt.Errorf("init params: %w", err)
	}

	var recorder metrics.Recorder = metrics.Noop{}
	if cfg.StatsdAddr != "" {
		sd, err := metrics.NewStatsd(cfg.StatsdAddr, cfg.StatsdNamespace, cfg.StatsdTags)
		if err != nil {
			return fmt.Errorf("init metrics: %w", err)
		}
		recorder = sd
	}
	defer recorder.Close()

	start := time.Now()
	ctrl, err := phone.New(controllerConfig(cfg), phone.Deps{
		Directory: dir,
		Player:    player,
		Renderer:  renderer,
		Params:    store,
		Metrics:   recorder,
	}, start)
	if err != nil {
		return fmt.Errorf("init phone: %w", err)
	}

	queue := command.NewQueue(commandQueueSize)

	var publisher interface {
		mqtt.Publisher
		mqtt.ConnectionStatus
	} = mqtt.Discard{}
	if cfg.Broker != "" {
		publisher = mqtt.NewRealPublisher(mqtt.Options{
			Broker:   cfg.Broker,
			ClientID: cfg.ClientID,
			Commands: queue,
		})
	}
	defer publisher.Close()

	// Tracker exists before STARTUP so the snapshot is available
	tracker := status.NewTracker(start, status.Config{
		PollMs:        cfg.Poll.D().Milliseconds(),
		DialTimeoutMs: cfg.DialTimeout.D().Milliseconds(),
		HeartbeatMs:   cfg.Heartbeat.D().Milliseconds(),
		Broker:        cfg.Broker,
		HTTPPort:      cfg.HTTPAddr,
		NumbersDir:    cfg.NumbersDir,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	ctrl.Start(start)
	tracker.Update(ctrl.Status())

	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Warn().Err(err).Msg("failed to publish startup event")
	} else {
		log.Info().Msg("published startup event")
	}

	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker, web.Deps{
			Directory: dir,
			Params:    store,
			Commands:  queue,
		})
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("http server error")
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http status server listening")
	}

	log.Info().
		Dur("poll", cfg.Poll.D()).
		Dur("dial_timeout", cfg.DialTimeout.D()).
		Str("broker", cfg.Broker).
		Dur("heartbeat", cfg.Heartbeat.D()).
		Int("numbers", len(dir.Numbers())).
		Msg("started")

	ticker := time.NewTicker(cfg.Poll.D())
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(loop{
		reader:     gpioReader,
		ctrl:       ctrl,
		commands:   queue.C(),
		publisher:  publisher,
		mqttStatus: publisher,
		tracker:    tracker,
		heartbeat:  cfg.Heartbeat.D(),
		now:        time.Now,
		tick:       ticker.C,
		sig:        sigCh,
	})
}

func controllerConfig(cfg config.Config) phone.Config {
	return phone.Config{
		Call: logic.CallConfig{
			Dial: logic.DialConfig{
				HandsetDebounce:  cfg.HandsetDebounce.D(),
				PulseDebounce:    cfg.PulseDebounce.D(),
				RotationDebounce: cfg.RotationDebounce.D(),
				DialTimeout:      cfg.DialTimeout.D(),
			},
			// replaced from the parameter store by Controller.Start
			RingDuration:  5 * time.Second,
			RingVariation: 2 * time.Second,
		},
		ButtonDebounce: cfg.ButtonDebounce.D(),
		Pins: phone.Pins{
			Pulse:          cfg.Pins.Pulse,
			Rotation:       cfg.Pins.Rotation,
			Handset:        cfg.Pins.Handset,
			Speaker:        cfg.Pins.Speaker,
			Redial:         cfg.Pins.Redial,
			Random:         cfg.Pins.Random,
			RandomInverted: cfg.RandomInverted,
		},
		Sounds: phone.Sounds{
			ShortRing: cfg.Sounds.ShortRing,
			Ring:      cfg.Sounds.Ring,
			Invalid:   cfg.Sounds.Invalid,
		},
	}
}

func execConfig(cfg config.Config) audio.ExecConfig {
	ec := audio.DefaultExecConfig()
	ec.PlayCommand = cfg.PlayCommand
	ec.MixerCommand = cfg.MixerCommand
	ec.MixerArgs = []string{"-q", "sset", cfg.MixerControl, "{}%"}
	return ec
}

// loop holds what runLoop needs. Everything but mqttStatus and tracker is
// required.
type loop struct {
	reader     gpio.Reader
	ctrl       *phone.Controller
	commands   <-chan command.Command
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	heartbeat  time.Duration
	now        func() time.Time
	tick       <-chan time.Time
	sig        <-chan os.Signal
}

func runLoop(l loop) error {
	for {
		select {
		case s := <-l.sig:
			log.Info().Str("signal", s.String()).Msg("shutting down")
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: l.now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if l.tracker != nil {
				l.updateTracker()
				event.RawPayload = status.FormatStatusEvent(l.tracker.Snapshot(), "SHUTDOWN", signalName)
			}
			if err := l.publisher.PublishSystem(event); err != nil {
				log.Warn().Err(err).Msg("failed to publish shutdown event")
			} else {
				log.Info().Msg("published shutdown event")
			}
			return nil

		case c := <-l.commands:
			events, err := l.ctrl.Handle(c, l.now())
			if err != nil {
				log.Warn().Err(err).Str("command", c.String()).Str("source", c.Source).Msg("command failed")
			} else {
				log.Info().Str("command", c.String()).Str("source", c.Source).Msg("command handled")
			}
			l.publish(events)
			l.updateTracker()

		case <-l.tick:
			t := l.now()
			sample, err := l.reader.Read()
			if err != nil {
				log.Error().Err(err).Msg("gpio read error")
				continue
			}

			l.publish(l.ctrl.Tick(sample, t))

			if hb := l.ctrl.CheckHeartbeat(t, l.heartbeat); hb != nil {
				log.Info().
					Dur("uptime", hb.Uptime).
					Int("calls", hb.Counts.Calls).
					Int("incoming", hb.Counts.Incoming).
					Int("missed", hb.Counts.Missed).
					Msg("heartbeat")

				hbEvent := mqtt.SystemEvent{
					Timestamp: hb.Timestamp,
					Event:     "HEARTBEAT",
				}
				if l.tracker != nil {
					// refresh network info for heartbeat
					if net := readNetworkInfo(); net != nil {
						l.tracker.SetNetwork(net)
					}
					l.updateTracker()
					hbEvent.RawPayload = status.FormatStatusEvent(l.tracker.Snapshot(), "HEARTBEAT", "")
				}
				if err := l.publisher.PublishSystem(hbEvent); err != nil {
					log.Warn().Err(err).Msg("heartbeat publish error")
				}
			}

			l.updateTracker()
		}
	}
}

func (l loop) publish(events []phone.Event) {
	for _, e := range events {
		logEvent(e)
		if err := l.publisher.Publish(e); err != nil {
			// publish failures never stop the phone
			log.Warn().Err(err).Str("event", string(e.Kind)).Msg("publish error")
		}
	}
}

func (l loop) updateTracker() {
	if l.tracker == nil {
		return
	}
	l.tracker.Update(l.ctrl.Status())
	if l.mqttStatus != nil {
		l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
	}
}

func logEvent(e phone.Event) {
	log.Debug().
		Str("event", string(e.Kind)).
		Str("call_id", e.CallID).
		Time("at", e.Time).
		Msg("publishing")
}

// printState writes the raw and interpreted level of every input line.
func printState(w io.Writer, s gpio.Sample, pins config.Pins, randomInverted bool) {
	lines := []struct {
		name     string
		pin      int
		inverted bool
	}{
		{"handset", pins.Handset, false},
		{"rotation", pins.Rotation, false},
		{"pulse", pins.Pulse, false},
		{"speaker", pins.Speaker, false},
		{"redial", pins.Redial, false},
		{"random", pins.Random, randomInverted},
	}
	var parts []string
	for _, l := range lines {
		active := s.Active(l.pin) != l.inverted
		parts = append(parts, fmt.Sprintf("%s(%d): %s", l.name, l.pin, activeString(active)))
	}
	fmt.Fprintln(w, strings.Join(parts, ", "))
}

func activeString(active bool) string {
	if active {
		return "ACTIVE"
	}
	return "IDLE"
}

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
