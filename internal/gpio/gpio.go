// Package gpio provides output channels for the motor driver pins.
// Bridge inputs use periph.io so they can emit PWM; sleep lines use the Linux
// GPIO character device. FakeChannel allows testing without hardware.
package gpio

import (
	"fmt"
	"io"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// Board opens output channels and releases them on Close.
type Board struct {
	chip    string
	freq    physic.Frequency
	logger  *zap.SugaredLogger
	closers []io.Closer
}

// NewBoard initialises the periph.io host drivers. chip names the GPIO
// character device holding the sleep lines (e.g. "gpiochip0").
func NewBoard(chip string, pwmFreqHz int, logger *zap.SugaredLogger) (*Board, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init periph host: %w", err)
	}
	return &Board{
		chip:   chip,
		freq:   physic.Frequency(pwmFreqHz) * physic.Hertz,
		logger: logger,
	}, nil
}

// PWM opens a PWM-capable bridge input by pin name.
func (b *Board) PWM(name string) (*PWMChannel, error) {
	c, err := OpenPWM(name, b.freq, b.logger)
	if err != nil {
		return nil, err
	}
	b.closers = append(b.closers, c)
	return c, nil
}

// Line opens a digital output by line offset on the board's chip.
func (b *Board) Line(offset int) (*LineChannel, error) {
	c, err := OpenLine(b.chip, offset, b.logger)
	if err != nil {
		return nil, err
	}
	b.closers = append(b.closers, c)
	return c, nil
}

// Close releases every opened channel, most recent first.
func (b *Board) Close() error {
	var err error
	for i := len(b.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, b.closers[i].Close())
	}
	b.closers = nil
	return err
}
