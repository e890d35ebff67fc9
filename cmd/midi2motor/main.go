// Command midi2motor drives DC motors on DRV8833 driver chips from MIDI notes
// and text commands, putting the chips to sleep when idle.
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
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/madskjeldgaard/midi2motor/internal/command"
	"github.com/madskjeldgaard/midi2motor/internal/config"
	"github.com/madskjeldgaard/midi2motor/internal/console"
	"github.com/madskjeldgaard/midi2motor/internal/gpio"
	"github.com/madskjeldgaard/midi2motor/internal/logging"
	"github.com/madskjeldgaard/midi2motor/internal/midi"
	"github.com/madskjeldgaard/midi2motor/internal/motor"
	"github.com/madskjeldgaard/midi2motor/internal/mqtt"
	"github.com/madskjeldgaard/midi2motor/internal/serial"
	"github.com/madskjeldgaard/midi2motor/internal/status"
	"github.com/madskjeldgaard/midi2motor/internal/textcmd"
	"github.com/madskjeldgaard/midi2motor/internal/web"
)

// commandQueue bounds how many commands transports may queue ahead of the
// run loop.
const commandQueue = 64

func main() {
	configPath := flag.String("config", "", "YAML config file (built-in defaults when empty)")
	printConfig := flag.Bool("print-config", false, "Print the resolved config and exit")
	withConsole := flag.Bool("console", false, "Start an interactive command shell on stdin")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}

	if *printConfig {
		data, err := cfg.Marshal()
		if err != nil {
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			os.Exit(1)
		}
		os.Stdout.Write(data)
		return
	}

	logger, closeLog, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: init logging: %v\n", err)
		os.Exit(1)
	}

	err = run(cfg, *withConsole, logger)
	if err != nil {
		logger.Errorf("fatal: %v", err)
	}
	closeLog()
	if err != nil {
		os.Exit(1)
	}
}

func run(cfg config.Config, withConsole bool, logger *zap.SugaredLogger) error {
	clk := clock.New()

	board, err := gpio.NewBoard(cfg.GPIOChip, cfg.PWMFrequencyHz, logger.Named("gpio"))
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer func() {
		if err := board.Close(); err != nil {
			logger.Warnf("release gpio: %v", err)
		}
	}()

	drivers, err := openDrivers(board, cfg.Drivers)
	if err != nil {
		return fmt.Errorf("init drivers: %w", err)
	}

	cmds := make(chan command.Command, commandQueue)

	var (
		pub        mqtt.Publisher        = mqtt.NopPublisher{}
		sub        mqtt.Subscriber       = mqtt.NopPublisher{}
		mqttStatus mqtt.ConnectionStatus = mqtt.NopPublisher{}
	)
	if cfg.MQTT.Broker != "" {
		client := mqtt.NewRealPublisher(cfg.MQTT, logger)
		pub, sub, mqttStatus = client, client, client
	}
	defer pub.Close()

	tracker := status.NewTracker(clk, status.Config{
		IdleTimeoutMs: cfg.IdleTimeout.Milliseconds(),
		PollMs:        cfg.Poll.Milliseconds(),
		HeartbeatMs:   cfg.Heartbeat.Milliseconds(),
		Broker:        cfg.MQTT.Broker,
		HTTPAddr:      cfg.HTTP,
		NoteMap:       noteMapName(cfg.MIDI),
	})

	r := newRig(drivers, cfg.IdleTimeout, pub, tracker, clk, logger)

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := pub.PublishSystem(startupEvent); err != nil {
		logger.Warnf("failed to publish startup event: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.MIDI.Enabled {
		notes, err := cfg.MIDI.NoteTable()
		if err != nil {
			return fmt.Errorf("midi: %w", err)
		}
		opts := serial.MIDIOptions
		if cfg.MIDI.Baud != 0 {
			opts.BaudRate = cfg.MIDI.Baud
		}
		port, err := serial.Open(cfg.MIDI.Device, opts)
		if err != nil {
			return fmt.Errorf("midi: %w", err)
		}
		defer port.Close()
		src := midi.NewSource(port, notes, cfg.MIDI.Channel, logger.Named("midi"))
		go runSource(ctx, "midi", src.Run, cmds, logger)
		logger.Infof("midi input on %s (channel %d, note map %s)", cfg.MIDI.Device, cfg.MIDI.Channel, noteMapName(cfg.MIDI))
	}

	if cfg.Serial.Enabled {
		port, err := serial.Open(cfg.Serial.Device, serial.Options{BaudRate: cfg.Serial.Baud})
		if err != nil {
			return fmt.Errorf("serial: %w", err)
		}
		defer port.Close()
		src := textcmd.NewSource(port, logger.Named("serial"))
		go runSource(ctx, "serial", src.Run, cmds, logger)
		logger.Infof("text commands on %s", cfg.Serial.Device)
	}

	if err := sub.Subscribe(mqtt.CommandHandler(cmds, logger.Named("mqtt"))); err != nil {
		return fmt.Errorf("mqtt subscribe: %w", err)
	}

	if withConsole {
		go console.New(cmds, tracker, logger.Named("console")).Run()
	}

	// Status pages and POST /command
	if cfg.HTTP != "" {
		srv := web.New(cfg.HTTP, tracker, cmds, logger.Named("http"))
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Errorf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		logger.Infof("http server listening on %s", cfg.HTTP)
	}

	logger.Infof("started: drivers=%d idle_timeout=%v poll=%v broker=%q heartbeat=%v",
		len(drivers), cfg.IdleTimeout, cfg.Poll, cfg.MQTT.Broker, cfg.Heartbeat)

	ticker := clk.Ticker(cfg.Poll)
	defer ticker.Stop()

	var heartbeat <-chan time.Time
	if cfg.Heartbeat > 0 {
		hb := clk.Ticker(cfg.Heartbeat)
		defer hb.Stop()
		heartbeat = hb.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	err = runLoop(r, mqttStatus, cmds, ticker.C, heartbeat, sigCh)
	// Cancel before the ports close so transports exit quietly.
	cancel()
	return err
}

// openDrivers opens the pins for each configured chip. Bridge inputs are PWM
// channels; the sleep line is a plain digital output.
func openDrivers(board *gpio.Board, cfgs []config.Driver) ([]*motor.Driver, error) {
	drivers := make([]*motor.Driver, 0, len(cfgs))
	for i, dc := range cfgs {
		var pins [4]motor.Channel
		for j, name := range []string{dc.AIN1, dc.AIN2, dc.BIN1, dc.BIN2} {
			ch, err := board.PWM(name)
			if err != nil {
				return nil, fmt.Errorf("driver %d: %w", i+1, err)
			}
			pins[j] = ch
		}
		sleep, err := board.Line(dc.Sleep)
		if err != nil {
			return nil, fmt.Errorf("driver %d: sleep line: %w", i+1, err)
		}

		d := motor.NewDriver(pins[0], pins[1], pins[2], pins[3], sleep)
		decay, _ := motor.ParseDecayMode(dc.Decay)
		d.BridgeA().SetDecayMode(decay)
		d.BridgeB().SetDecayMode(decay)
		drivers = append(drivers, d)
	}
	return drivers, nil
}

func noteMapName(m config.MIDI) string {
	if len(m.Notes) > 0 {
		return "custom"
	}
	if m.NoteMap == "" {
		return midi.NoteMapDefault
	}
	return m.NoteMap
}

// runSource runs one transport until it ends. A transport ending does not
// stop the daemon.
func runSource(ctx context.Context, name string, run func(context.Context, chan<- command.Command) error, out chan<- command.Command, logger *zap.SugaredLogger) {
	err := run(ctx, out)
	switch {
	case ctx.Err() != nil:
	case err == nil, errors.Is(err, io.EOF):
		logger.Warnf("%s input closed", name)
	default:
		logger.Errorf("%s input: %v", name, err)
	}
}

func runLoop(r *rig, mqttStatus mqtt.ConnectionStatus, cmds <-chan command.Command, tick, heartbeat <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			r.logger.Infof("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}

			r.shutdown()
			r.refresh()

			event := mqtt.SystemEvent{
				Timestamp: r.clk.Now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if r.tracker != nil {
				if mqttStatus != nil {
					r.tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				event.RawPayload = status.FormatStatusEvent(r.tracker.Snapshot(), "SHUTDOWN", signalName)
			}
			if err := r.pub.PublishSystem(event); err != nil {
				r.logger.Warnf("failed to publish shutdown event: %v", err)
			} else {
				r.logger.Infof("published shutdown event")
			}
			return nil

		case cmd := <-cmds:
			r.dispatch(cmd)

		case t := <-tick:
			r.tick(t)

		case t := <-heartbeat:
			c := r.counts()
			r.logger.Infof("heartbeat: sleeping=%v dispatched=%d rejected=%d sleeps=%d wakes=%d",
				r.timer.Sleeping(), c.Dispatched, c.Rejected, c.Sleeps, c.Wakes)

			hbEvent := mqtt.SystemEvent{
				Timestamp: t,
				Event:     "HEARTBEAT",
			}
			if r.tracker != nil {
				r.refresh()
				if mqttStatus != nil {
					r.tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				hbEvent.RawPayload = status.FormatStatusEvent(r.tracker.Snapshot(), "HEARTBEAT", "")
			}
			if err := r.pub.PublishSystem(hbEvent); err != nil {
				r.logger.Warnf("heartbeat publish error: %v", err)
			}
		}

		// Update status tracker for HTTP consumers
		r.refresh()
		if r.tracker != nil && mqttStatus != nil {
			r.tracker.SetMQTTConnected(mqttStatus.IsConnected())
		}
	}
}
