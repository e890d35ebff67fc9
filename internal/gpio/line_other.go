//go:build !linux

package gpio

import (
	"errors"

	"go.uber.org/zap"
)

// LineChannel is not available on non-Linux platforms.
type LineChannel struct{}

// OpenLine returns an error on non-Linux platforms.
func OpenLine(chip string, offset int, logger *zap.SugaredLogger) (*LineChannel, error) {
	return nil, errors.New("gpio: character device lines require Linux")
}

// SetDigital is a no-op on non-Linux platforms.
func (c *LineChannel) SetDigital(high bool) {}

// SetAnalog is a no-op on non-Linux platforms.
func (c *LineChannel) SetAnalog(duty int) {}

// Close is a no-op on non-Linux platforms.
func (c *LineChannel) Close() error {
	return nil
}
