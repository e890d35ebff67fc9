// Package idle tracks inactivity and decides when driver chips should sleep.
// It has no background goroutine: the owner calls Poll from its own loop and
// time is always passed in.
package idle

import "time"

// Timer is a two-state (active, sleeping) machine driven by activity
// notifications and explicit polls. Not safe for concurrent use.
type Timer struct {
	threshold time.Duration
	lastEvent time.Time
	sleeping  bool

	enable  func() // puts hardware to sleep
	disable func() // wakes hardware
}

// New creates an active Timer and invokes disable once so physical state
// matches the logical state. Callers that want motors guaranteed powered at
// boot follow up with ForceSleep and NotifyActivity.
func New(threshold time.Duration, now time.Time, enable, disable func()) *Timer {
	if enable == nil {
		enable = func() {}
	}
	if disable == nil {
		disable = func() {}
	}
	t := &Timer{
		threshold: threshold,
		lastEvent: now,
		enable:    enable,
		disable:   disable,
	}
	t.disable()
	return t
}

// NotifyActivity postpones the next sleep. It does not wake the hardware.
func (t *Timer) NotifyActivity(now time.Time) {
	t.lastEvent = now
}

// ForceWake wakes the hardware if the timer is sleeping. No-op when active.
func (t *Timer) ForceWake() {
	if !t.sleeping {
		return
	}
	t.sleeping = false
	t.disable()
}

// ForceSleep invokes the sleep effect unconditionally.
func (t *Timer) ForceSleep() {
	t.sleeping = true
	t.enable()
}

// Poll sleeps the hardware once more than threshold has passed since the
// last activity. Returns true only on the transition.
func (t *Timer) Poll(now time.Time) bool {
	if t.sleeping || now.Sub(t.lastEvent) <= t.threshold {
		return false
	}
	t.sleeping = true
	t.enable()
	return true
}

// Sleeping reports the logical state.
func (t *Timer) Sleeping() bool {
	return t.sleeping
}

// LastActivity returns the time of the last NotifyActivity (or construction).
func (t *Timer) LastActivity() time.Time {
	return t.lastEvent
}
