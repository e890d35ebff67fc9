// Package status provides a thread-safe status tracker for the midi2motor
// daemon. It is written by the run loop and read by HTTP handlers and MQTT
// publishers.
package status

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/madskjeldgaard/midi2motor/internal/motor"
)

// BridgeState is the last commanded state of one H-bridge.
type BridgeState struct {
	Speed int
	Decay motor.DecayMode
}

// Direction names the rotation implied by the signed speed.
func (b BridgeState) Direction() string {
	switch {
	case b.Speed > 0:
		return "FORWARD"
	case b.Speed < 0:
		return "BACKWARD"
	default:
		return "STOPPED"
	}
}

// DriverState is one driver chip: its sleep line and both bridges.
type DriverState struct {
	Asleep bool
	A      BridgeState
	B      BridgeState
}

// DriverStates reads the current state out of the drivers. Must be called
// from the goroutine that owns them.
func DriverStates(drivers []*motor.Driver) []DriverState {
	out := make([]DriverState, len(drivers))
	for i, d := range drivers {
		out[i] = DriverState{
			Asleep: d.Asleep(),
			A:      BridgeState{Speed: d.BridgeA().Speed(), Decay: d.BridgeA().DecayMode()},
			B:      BridgeState{Speed: d.BridgeB().Speed(), Decay: d.BridgeB().DecayMode()},
		}
	}
	return out
}

// Counts are running totals since startup.
type Counts struct {
	Dispatched int
	Rejected   int
	Sleeps     int
	Wakes      int
}

// Config contains daemon configuration for display.
type Config struct {
	IdleTimeoutMs int64
	PollMs        int64
	HeartbeatMs   int64
	Broker        string
	HTTPAddr      string
	NoteMap       string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	Drivers       []DriverState
	Sleeping      bool
	LastActivity  time.Time
	Counts        Counts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	clk  clock.Clock
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker started at clk.Now(). A nil clk uses the
// wall clock.
func NewTracker(clk clock.Clock, cfg Config) *Tracker {
	if clk == nil {
		clk = clock.New()
	}
	return &Tracker{
		clk: clk,
		snap: Snapshot{
			StartTime: clk.Now(),
			Sleeping:  true,
			Config:    cfg,
		},
	}
}

// Update replaces the rig state. Called from the run loop after every
// dispatch and tick.
func (t *Tracker) Update(drivers []DriverState, sleeping bool, lastActivity time.Time, counts Counts) {
	t.mu.Lock()
	t.snap.Drivers = drivers
	t.snap.Sleeping = sleeping
	t.snap.LastActivity = lastActivity
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set from the tracker's clock at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Drivers = append([]DriverState(nil), t.snap.Drivers...)
	t.mu.RUnlock()
	s.Now = t.clk.Now()
	return s
}
