//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// LineChannel drives a GPIO character-device line. It has no PWM: any
// non-zero duty is written as high.
type LineChannel struct {
	line   *gpiocdev.Line
	offset int
	logger *zap.SugaredLogger
}

// OpenLine requests offset on chip as an output, initially low.
func OpenLine(chip string, offset int, logger *zap.SugaredLogger) (*LineChannel, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	line, err := gpiocdev.RequestLine(chip, offset, gpiocdev.AsOutput(0), gpiocdev.WithConsumer("midi2motor"))
	if err != nil {
		return nil, fmt.Errorf("request line %s:%d: %w", chip, offset, err)
	}
	return &LineChannel{line: line, offset: offset, logger: logger}, nil
}

// SetDigital sets the line level.
func (c *LineChannel) SetDigital(high bool) {
	v := 0
	if high {
		v = 1
	}
	if err := c.line.SetValue(v); err != nil {
		c.logger.Errorf("line %d: set value: %v", c.offset, err)
	}
}

// SetAnalog approximates duty as on/off.
func (c *LineChannel) SetAnalog(duty int) {
	c.SetDigital(duty > 0)
}

// Close returns the line to an input with pull-down, matching the Pi boot
// default, then releases it. A pulled-down nSLEEP keeps the chip asleep.
func (c *LineChannel) Close() error {
	var err error
	if rerr := c.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); rerr != nil {
		err = multierr.Append(err, fmt.Errorf("reconfigure line %d: %w", c.offset, rerr))
	}
	if cerr := c.line.Close(); cerr != nil {
		err = multierr.Append(err, fmt.Errorf("close line %d: %w", c.offset, cerr))
	}
	return err
}
