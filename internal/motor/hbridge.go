package motor

// HBridge drives one motor winding from two channels.
// Not safe for concurrent use.
type HBridge struct {
	lineA Channel
	lineB Channel
	decay DecayMode
	speed int // last commanded signed speed, for status only
}

// NewHBridge binds a bridge to its two input lines. Decay defaults to SlowDecay.
func NewHBridge(lineA, lineB Channel) *HBridge {
	return &HBridge{lineA: lineA, lineB: lineB}
}

// SetSpeedDirectional drives the bridge at magnitude (clamped to [0, MaxDuty])
// in the given direction.
//
//	Slow/Forward:  A=HIGH  B=duty
//	Slow/Backward: A=duty  B=HIGH
//	Fast/Forward:  A=duty  B=LOW
//	Fast/Backward: A=LOW   B=duty
//
// The held line is written before the modulated one.
func (b *HBridge) SetSpeedDirectional(magnitude int, dir Direction) {
	magnitude = clampDuty(magnitude)

	switch {
	case b.decay == SlowDecay && dir == Forward:
		b.lineA.SetDigital(true)
		b.lineB.SetAnalog(magnitude)
	case b.decay == SlowDecay && dir == Backward:
		b.lineB.SetDigital(true)
		b.lineA.SetAnalog(magnitude)
	case b.decay == FastDecay && dir == Forward:
		b.lineB.SetDigital(false)
		b.lineA.SetAnalog(magnitude)
	default: // FastDecay, Backward
		b.lineA.SetDigital(false)
		b.lineB.SetAnalog(magnitude)
	}

	if dir == Backward {
		b.speed = -magnitude
	} else {
		b.speed = magnitude
	}
}

// SetSpeedSigned maps the sign of speed to a direction; zero stops the bridge.
func (b *HBridge) SetSpeedSigned(speed int) {
	switch {
	case speed > 0:
		b.SetSpeedDirectional(speed, Forward)
	case speed < 0:
		b.SetSpeedDirectional(-speed, Backward)
	default:
		b.Stop()
	}
}

// SetDecayMode takes effect on the next speed call. No pins are written.
func (b *HBridge) SetDecayMode(mode DecayMode) {
	b.decay = mode
}

// DecayMode returns the current decay mode.
func (b *HBridge) DecayMode() DecayMode {
	return b.decay
}

// Stop drives both lines low regardless of decay mode.
func (b *HBridge) Stop() {
	b.lineA.SetDigital(false)
	b.lineB.SetDigital(false)
	b.speed = 0
}

// Speed returns the last commanded signed speed. It is not read back from
// hardware and does not reflect the driver's sleep line.
func (b *HBridge) Speed() int {
	return b.speed
}
