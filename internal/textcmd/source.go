package textcmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/madskjeldgaard/midi2motor/internal/command"
)

// Source reads newline-terminated commands from r. Malformed lines are
// logged and dropped.
type Source struct {
	r      io.Reader
	logger *zap.SugaredLogger
}

// NewSource creates a line Source.
func NewSource(r io.Reader, logger *zap.SugaredLogger) *Source {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Source{r: r, logger: logger}
}

// Run scans lines until EOF, a read error, or ctx cancellation.
func (s *Source) Run(ctx context.Context, out chan<- command.Command) error {
	sc := bufio.NewScanner(s.r)
	for sc.Scan() {
		cmd, err := Parse(sc.Text())
		if errors.Is(err, ErrEmpty) {
			continue
		}
		if err != nil {
			s.logger.Warnf("text command dropped: %v", err)
			continue
		}
		select {
		case out <- cmd:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read commands: %w", err)
	}
	return nil
}
