package midi

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/madskjeldgaard/midi2motor/internal/command"
)

// Source reads MIDI bytes from r and emits motor commands for mapped notes.
type Source struct {
	r       *bufio.Reader
	notes   NoteMap
	channel int // 1..16, 0 accepts every channel
	logger  *zap.SugaredLogger
}

// NewSource creates a Source. channel filters on a 1-based MIDI channel;
// 0 means omni.
func NewSource(r io.Reader, notes NoteMap, channel int, logger *zap.SugaredLogger) *Source {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Source{
		r:       bufio.NewReader(r),
		notes:   notes,
		channel: channel,
		logger:  logger,
	}
}

// Run reads until the reader fails or ctx is cancelled. io.EOF ends the
// stream cleanly.
func (s *Source) Run(ctx context.Context, out chan<- command.Command) error {
	var f Framer
	for {
		b, err := s.r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read midi: %w", err)
		}

		msg, ok := f.Feed(b)
		if !ok {
			continue
		}
		ev, ok := DecodeNote(msg)
		if !ok {
			continue
		}
		if s.channel != 0 && int(ev.Channel)+1 != s.channel {
			continue
		}
		cmd, ok := s.notes.Command(ev)
		if !ok {
			s.logger.Debugf("midi: unmapped note %d", ev.Note)
			continue
		}
		s.logger.Debugf("midi: note=%d on=%v velocity=%d -> %s", ev.Note, ev.On, ev.Velocity, cmd)

		select {
		case out <- cmd:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
