package gpio

import (
	"fmt"

	"go.uber.org/zap"
	pgpio "periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"

	"github.com/madskjeldgaard/midi2motor/internal/motor"
)

// PWMChannel drives a periph.io pin as a digital level or a PWM output.
type PWMChannel struct {
	name   string
	pin    pgpio.PinIO
	freq   physic.Frequency
	logger *zap.SugaredLogger
}

// OpenPWM looks up name in the periph.io registry and drives it low.
func OpenPWM(name string, freq physic.Frequency, logger *zap.SugaredLogger) (*PWMChannel, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("no pin named %q", name)
	}
	if err := pin.Out(pgpio.Low); err != nil {
		return nil, fmt.Errorf("set pin %s low: %w", name, err)
	}
	return &PWMChannel{name: name, pin: pin, freq: freq, logger: logger}, nil
}

// SetDigital holds the pin at a fixed level, cancelling any PWM.
func (c *PWMChannel) SetDigital(high bool) {
	if err := c.pin.Out(pgpio.Level(high)); err != nil {
		c.logger.Errorf("pin %s: set level: %v", c.name, err)
	}
}

// SetAnalog emits duty/MaxDuty at the configured frequency.
func (c *PWMChannel) SetAnalog(duty int) {
	if err := c.pin.PWM(dutyFor(duty), c.freq); err != nil {
		c.logger.Errorf("pin %s: pwm: %v", c.name, err)
	}
}

// Close stops PWM and leaves the pin low.
func (c *PWMChannel) Close() error {
	if err := c.pin.Halt(); err != nil {
		return fmt.Errorf("halt pin %s: %w", c.name, err)
	}
	if err := c.pin.Out(pgpio.Low); err != nil {
		return fmt.Errorf("set pin %s low: %w", c.name, err)
	}
	return nil
}

// dutyFor scales a [0, MaxDuty] value onto periph's duty range.
func dutyFor(duty int) pgpio.Duty {
	if duty <= 0 {
		return 0
	}
	if duty >= motor.MaxDuty {
		return pgpio.DutyMax
	}
	return pgpio.Duty(int64(duty) * int64(pgpio.DutyMax) / motor.MaxDuty)
}
