// Package console provides an interactive development shell that issues
// motor commands into the daemon's command queue.
package console

import (
	"errors"
	"fmt"
	"strings"

	"github.com/abiosoft/ishell"
	"go.uber.org/zap"

	"github.com/madskjeldgaard/midi2motor/internal/command"
	"github.com/madskjeldgaard/midi2motor/internal/status"
	"github.com/madskjeldgaard/midi2motor/internal/textcmd"
)

// ErrQueueFull is returned when the run loop is not keeping up.
var ErrQueueFull = errors.New("command queue full")

// Console turns shell input into commands on out.
type Console struct {
	out     chan<- command.Command
	tracker *status.Tracker
	logger  *zap.SugaredLogger
}

// New creates a Console. tracker may be nil, which disables the status
// command.
func New(out chan<- command.Command, tracker *status.Tracker, logger *zap.SugaredLogger) *Console {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Console{out: out, tracker: tracker, logger: logger}
}

// Run starts the shell on stdin/stdout and blocks until it exits.
func (c *Console) Run() {
	shell := ishell.New()
	shell.Println("midi2motor shell")
	shell.ShowPrompt(true)

	for _, cmd := range c.commands() {
		name := cmd.name
		shell.AddCmd(&ishell.Cmd{
			Name: name,
			Help: cmd.help,
			Func: func(ctx *ishell.Context) {
				msg, err := c.Exec(name, ctx.Args)
				if err != nil {
					ctx.Err(err)
					return
				}
				if msg != "" {
					ctx.Println(msg)
				}
			},
		})
	}
	shell.Start()
}

// maxDrivers is assumed when the tracker has no driver state yet.
const maxDrivers = 2

func (c *Console) driverCount() int {
	if c.tracker != nil {
		if n := len(c.tracker.Snapshot().Drivers); n > 0 {
			return n
		}
	}
	return maxDrivers
}

type shellCmd struct {
	name string
	help string
}

func (c *Console) commands() []shellCmd {
	return []shellCmd{
		{"speed", "speed <motor> <bridge> <value>"},
		{"stop", "stop <motor> <bridge>"},
		{"stopall", "stop every bridge (wakes the drivers like any command)"},
		{"decay", "decay <motor> <bridge> slow|fast"},
		{"sleep", "put all drivers to sleep"},
		{"send", "send <raw command line>"},
		{"status", "print the daemon status"},
	}
}

// Exec runs one shell command and returns the text to print.
func (c *Console) Exec(name string, args []string) (string, error) {
	var lines []string
	switch name {
	case "speed":
		if len(args) != 3 {
			return "", fmt.Errorf("usage: speed <motor> <bridge> <value>")
		}
		lines = []string{fmt.Sprintf("%s %s speed %s", args[0], args[1], args[2])}
	case "stop":
		if len(args) != 2 {
			return "", fmt.Errorf("usage: stop <motor> <bridge>")
		}
		lines = []string{fmt.Sprintf("%s %s stop", args[0], args[1])}
	case "stopall":
		for m := 1; m <= c.driverCount(); m++ {
			lines = append(lines, fmt.Sprintf("%d a stop", m), fmt.Sprintf("%d b stop", m))
		}
	case "decay":
		if len(args) != 3 {
			return "", fmt.Errorf("usage: decay <motor> <bridge> slow|fast")
		}
		lines = []string{fmt.Sprintf("%s %s decay %s", args[0], args[1], args[2])}
	case "sleep":
		lines = []string{"sleep"}
	case "send":
		lines = []string{strings.Join(args, " ")}
	case "status":
		if c.tracker == nil {
			return "", fmt.Errorf("status unavailable")
		}
		return string(status.FormatJSON(c.tracker.Snapshot())), nil
	default:
		return "", fmt.Errorf("unknown command %q", name)
	}

	var sent []string
	for _, line := range lines {
		cmd, err := textcmd.Parse(line)
		if err != nil {
			return "", err
		}
		select {
		case c.out <- cmd:
		default:
			return strings.Join(sent, "\n"), ErrQueueFull
		}
		c.logger.Debugw("console command", "command", cmd.String())
		sent = append(sent, "queued "+cmd.String())
	}
	return strings.Join(sent, "\n"), nil
}
