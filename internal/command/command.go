// Package command resolves typed motor commands against the driver chips and
// keeps the idle timer in step with them.
package command

import (
	"errors"
	"fmt"
	"math"

	"github.com/madskjeldgaard/midi2motor/internal/motor"
)

var (
	ErrUnknownMotor  = errors.New("unknown motor")
	ErrUnknownBridge = errors.New("unknown bridge")
	ErrUnknownAction = errors.New("unknown action")
)

// Action is what a Command does to its bridge.
type Action int

const (
	SetSpeed Action = iota + 1
	Stop
	SetDecay
	// Sleep puts every driver to sleep; the addressed bridge only has to resolve.
	Sleep
)

func (a Action) String() string {
	switch a {
	case SetSpeed:
		return "speed"
	case Stop:
		return "stop"
	case SetDecay:
		return "decay"
	case Sleep:
		return "sleep"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Bridge is a bridge letter on a driver chip.
type Bridge byte

const (
	BridgeA Bridge = 'A'
	BridgeB Bridge = 'B'
)

func (b Bridge) String() string {
	return string(rune(b))
}

// Command addresses one bridge of one driver. Speed is used by SetSpeed,
// Decay by SetDecay.
type Command struct {
	Motor  int
	Bridge Bridge
	Action Action
	Speed  int
	Decay  motor.DecayMode
}

func (c Command) String() string {
	switch c.Action {
	case SetSpeed:
		return fmt.Sprintf("%d%s speed %d", c.Motor, c.Bridge, c.Speed)
	case SetDecay:
		return fmt.Sprintf("%d%s decay %s", c.Motor, c.Bridge, c.Decay)
	default:
		return fmt.Sprintf("%d%s %s", c.Motor, c.Bridge, c.Action)
	}
}

// SpeedFromFraction maps a signed fraction in [-1, 1] onto [-MaxDuty, MaxDuty].
// Out-of-range and NaN inputs are clamped (NaN to zero).
func SpeedFromFraction(f float64) int {
	if math.IsNaN(f) {
		return 0
	}
	f = math.Max(-1, math.Min(1, f))
	return int(math.Round(f * motor.MaxDuty))
}

// ClampSpeed limits a signed integer speed to [-MaxDuty, MaxDuty].
func ClampSpeed(v int) int {
	if v > motor.MaxDuty {
		return motor.MaxDuty
	}
	if v < -motor.MaxDuty {
		return -motor.MaxDuty
	}
	return v
}
