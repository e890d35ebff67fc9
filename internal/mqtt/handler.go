package mqtt

import (
	"bytes"
	"errors"

	"go.uber.org/zap"

	"github.com/madskjeldgaard/midi2motor/internal/command"
	"github.com/madskjeldgaard/midi2motor/internal/textcmd"
)

// CommandHandler returns a Subscribe handler that parses each line of a
// payload as a text command and forwards it to out. A full channel drops the
// command rather than stall the MQTT client.
func CommandHandler(out chan<- command.Command, logger *zap.SugaredLogger) func([]byte) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return func(payload []byte) {
		for _, line := range bytes.Split(payload, []byte("\n")) {
			cmd, err := textcmd.Parse(string(line))
			if errors.Is(err, textcmd.ErrEmpty) {
				continue
			}
			if err != nil {
				logger.Warnw("bad mqtt command", "payload", string(line), "error", err)
				continue
			}
			select {
			case out <- cmd:
			default:
				logger.Warnw("command queue full, dropping", "command", cmd.String())
			}
		}
	}
}
