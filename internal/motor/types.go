// Package motor models DRV8833-style dual H-bridge driver chips.
// It has no hardware dependencies: every pin write goes through Channel.
package motor

// MaxDuty is the PWM resolution of a Channel (10-bit).
const MaxDuty = 1023

// Channel is one physical output pin able to hold a digital level or emit a
// PWM duty value. Implementations are assumed infallible at this layer.
type Channel interface {
	SetDigital(high bool)
	// SetAnalog emits duty in [0, MaxDuty].
	SetAnalog(duty int)
}

// DecayMode selects how the non-driven line of a bridge is held.
type DecayMode int

const (
	// SlowDecay holds one line high and modulates the other.
	SlowDecay DecayMode = iota
	// FastDecay holds the unused line low and modulates the active one.
	FastDecay
)

func (m DecayMode) String() string {
	switch m {
	case SlowDecay:
		return "slow"
	case FastDecay:
		return "fast"
	default:
		return "unknown"
	}
}

// ParseDecayMode accepts "slow" or "fast".
func ParseDecayMode(s string) (DecayMode, bool) {
	switch s {
	case "slow", "SLOW", "Slow":
		return SlowDecay, true
	case "fast", "FAST", "Fast":
		return FastDecay, true
	}
	return SlowDecay, false
}

// Direction is the rotation sense derived from a signed speed.
type Direction int

const (
	Forward Direction = iota
	Backward
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

func clampDuty(v int) int {
	if v < 0 {
		return 0
	}
	if v > MaxDuty {
		return MaxDuty
	}
	return v
}
