// Package serial opens the tty a MIDI or text command stream arrives on.
package serial

import (
	"fmt"
	"io"

	ser "go.bug.st/serial"
)

// Options mirrors the subset of go.bug.st/serial.Mode the daemon needs.
type Options struct {
	BaudRate int
	DataBits int
}

// MIDIOptions is the DIN MIDI line format: 31250 baud 8N1.
var MIDIOptions = Options{BaudRate: 31250, DataBits: 8}

// Open attempts to open a serial device at path. It's a variable so tests
// can substitute an in-memory stream.
var Open = func(path string, options Options) (io.ReadWriteCloser, error) {
	if options.DataBits == 0 {
		options.DataBits = 8
	}
	mode := &ser.Mode{
		BaudRate: options.BaudRate,
		DataBits: options.DataBits,
		Parity:   ser.NoParity,
		StopBits: ser.OneStopBit,
	}
	port, err := ser.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", path, err)
	}
	return port, nil
}
