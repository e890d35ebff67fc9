package command

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/madskjeldgaard/midi2motor/internal/idle"
	"github.com/madskjeldgaard/midi2motor/internal/motor"
)

// Stats counts dispatch outcomes since construction.
type Stats struct {
	Dispatched int
	Rejected   int
}

// Router applies commands to drivers. It owns no goroutine and is not safe
// for concurrent use: the run loop is its only caller.
type Router struct {
	drivers []*motor.Driver // index 0 is motor 1
	timer   *idle.Timer
	logger  *zap.SugaredLogger
	stats   Stats
}

// NewRouter creates a router over drivers (motor 1 first).
func NewRouter(drivers []*motor.Driver, timer *idle.Timer, logger *zap.SugaredLogger) *Router {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Router{
		drivers: drivers,
		timer:   timer,
		logger:  logger,
	}
}

// Dispatch resolves cmd to a bridge and applies it. Any command that resolves
// counts as activity and wakes every driver before its action runs.
// Unresolvable commands return an error and touch nothing.
func (r *Router) Dispatch(now time.Time, cmd Command) error {
	bridge, err := r.resolve(cmd)
	if err != nil {
		r.stats.Rejected++
		return err
	}

	r.timer.NotifyActivity(now)
	r.timer.ForceWake()
	r.wakeAll()

	switch cmd.Action {
	case SetSpeed:
		bridge.SetSpeedSigned(ClampSpeed(cmd.Speed))
	case Stop:
		bridge.Stop()
	case SetDecay:
		bridge.SetDecayMode(cmd.Decay)
	case Sleep:
		r.timer.ForceSleep()
		r.SleepAll()
	}

	r.stats.Dispatched++
	r.logger.Debugf("dispatched %s", cmd)
	return nil
}

func (r *Router) resolve(cmd Command) (*motor.HBridge, error) {
	if cmd.Motor < 1 || cmd.Motor > len(r.drivers) {
		return nil, fmt.Errorf("motor %d: %w", cmd.Motor, ErrUnknownMotor)
	}
	d := r.drivers[cmd.Motor-1]

	var bridge *motor.HBridge
	switch cmd.Bridge {
	case BridgeA, 'a':
		bridge = d.BridgeA()
	case BridgeB, 'b':
		bridge = d.BridgeB()
	default:
		return nil, fmt.Errorf("bridge %q: %w", rune(cmd.Bridge), ErrUnknownBridge)
	}

	switch cmd.Action {
	case SetSpeed, Stop, SetDecay, Sleep:
	default:
		return nil, fmt.Errorf("%s: %w", cmd.Action, ErrUnknownAction)
	}
	return bridge, nil
}

// Tick polls the idle timer. Returns true when this call put the rig to sleep.
func (r *Router) Tick(now time.Time) bool {
	return r.timer.Poll(now)
}

// SleepAll pulls every driver's sleep line low.
func (r *Router) SleepAll() {
	for _, d := range r.drivers {
		d.Sleep()
	}
}

func (r *Router) wakeAll() {
	for _, d := range r.drivers {
		d.Wake()
	}
}

// StopAll stops every bridge without changing sleep lines.
func (r *Router) StopAll() {
	for _, d := range r.drivers {
		d.StopAll()
	}
}

// Sleeping reports the idle timer's logical state.
func (r *Router) Sleeping() bool {
	return r.timer.Sleeping()
}

// Stats returns dispatch counters.
func (r *Router) Stats() Stats {
	return r.stats
}
