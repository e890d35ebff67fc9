package main

import (
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/madskjeldgaard/midi2motor/internal/command"
	"github.com/madskjeldgaard/midi2motor/internal/idle"
	"github.com/madskjeldgaard/midi2motor/internal/motor"
	"github.com/madskjeldgaard/midi2motor/internal/mqtt"
	"github.com/madskjeldgaard/midi2motor/internal/status"
)

// Reasons attached to power events.
const (
	reasonStartup  = "startup"
	reasonCommand  = "command"
	reasonIdle     = "idle"
	reasonShutdown = "shutdown"
)

// rig is everything the run loop owns: drivers, idle timer and router, plus
// the publisher and tracker the idle hooks report to.
type rig struct {
	drivers []*motor.Driver
	timer   *idle.Timer
	router  *command.Router

	pub     mqtt.Publisher
	tracker *status.Tracker
	clk     clock.Clock
	logger  *zap.SugaredLogger

	started bool   // power events are published only after the startup handshake
	reason  string // reason for the next power transition
	sleeps  int
	wakes   int
}

// newRig wires the timer and router over drivers and runs the startup
// handshake: the drivers end up asleep with activity stamped at clk.Now(), so
// the first command wakes them.
func newRig(drivers []*motor.Driver, idleTimeout time.Duration, pub mqtt.Publisher, tracker *status.Tracker, clk clock.Clock, logger *zap.SugaredLogger) *rig {
	r := &rig{
		drivers: drivers,
		pub:     pub,
		tracker: tracker,
		clk:     clk,
		logger:  logger,
		reason:  reasonStartup,
	}
	r.timer = idle.New(idleTimeout, clk.Now(), r.onSleep, r.onWake)
	r.router = command.NewRouter(drivers, r.timer, logger.Named("router"))

	r.timer.ForceSleep()
	r.timer.NotifyActivity(clk.Now())
	r.started = true
	r.refresh()
	return r
}

func (r *rig) onSleep() {
	for _, d := range r.drivers {
		d.Sleep()
	}
	if !r.started {
		return
	}
	r.sleeps++
	r.logger.Infof("drivers asleep (%s)", r.reason)
	r.publishPower(mqtt.EventSleep)
}

func (r *rig) onWake() {
	for _, d := range r.drivers {
		d.Wake()
	}
	if !r.started {
		return
	}
	r.wakes++
	r.logger.Infof("drivers awake (%s)", r.reason)
	r.publishPower(mqtt.EventWake)
}

func (r *rig) publishPower(t mqtt.PowerEventType) {
	event := mqtt.PowerEvent{Timestamp: r.clk.Now(), Type: t, Reason: r.reason}
	if err := r.pub.Publish(event); err != nil {
		r.logger.Warnf("publish %s: %v", t, err)
	}
}

// dispatch applies one command and then polls the timer.
func (r *rig) dispatch(cmd command.Command) {
	now := r.clk.Now()
	r.reason = reasonCommand
	if err := r.router.Dispatch(now, cmd); err != nil {
		r.logger.Warnf("dropped %s: %v", cmd, err)
	}
	r.tick(now)
}

// tick polls the idle timer.
func (r *rig) tick(now time.Time) {
	r.reason = reasonIdle
	r.router.Tick(now)
}

// shutdown stops every bridge and puts the drivers to sleep.
func (r *rig) shutdown() {
	r.router.StopAll()
	r.reason = reasonShutdown
	r.timer.ForceSleep()
}

// counts merges router and power counters.
func (r *rig) counts() status.Counts {
	st := r.router.Stats()
	return status.Counts{
		Dispatched: st.Dispatched,
		Rejected:   st.Rejected,
		Sleeps:     r.sleeps,
		Wakes:      r.wakes,
	}
}

// refresh copies rig state into the tracker.
func (r *rig) refresh() {
	if r.tracker == nil {
		return
	}
	r.tracker.Update(status.DriverStates(r.drivers), r.timer.Sleeping(), r.timer.LastActivity(), r.counts())
}
