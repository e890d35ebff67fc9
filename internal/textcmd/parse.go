// Package textcmd parses line-based text commands (serial console, MQTT
// payloads, interactive shell) into motor commands.
//
// Grammar, case-insensitive, '#' starts a comment:
//
//	<motor> <bridge> speed <value>
//	<motor> <bridge> <value>
//	<motor> <bridge> stop
//	<motor> <bridge> decay slow|fast
//	<motor> <bridge> sleep
//	sleep
//
// motor is "1", "2" or "m1", "m2"; bridge is a single letter. value is an
// integer in [-1023, 1023] or a fraction with a decimal point in [-1, 1];
// both are clamped. Motor numbers and bridge letters are not range checked
// here so the router reports unknown targets.
package textcmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/madskjeldgaard/midi2motor/internal/command"
	"github.com/madskjeldgaard/midi2motor/internal/motor"
)

var (
	// ErrEmpty is returned for blank and comment-only lines.
	ErrEmpty  = errors.New("empty command")
	ErrSyntax = errors.New("syntax error")
)

// Parse converts one line to a Command.
func Parse(line string) (command.Command, error) {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return command.Command{}, ErrEmpty
	}

	// Bare "sleep" addresses the first bridge; the action is global anyway.
	if len(fields) == 1 && fields[0] == "sleep" {
		return command.Command{Motor: 1, Bridge: command.BridgeA, Action: command.Sleep}, nil
	}
	if len(fields) < 3 {
		return command.Command{}, fmt.Errorf("%q: want <motor> <bridge> <action>: %w", line, ErrSyntax)
	}

	m, err := strconv.Atoi(strings.TrimPrefix(fields[0], "m"))
	if err != nil {
		return command.Command{}, fmt.Errorf("motor %q: %w", fields[0], ErrSyntax)
	}
	if len(fields[1]) != 1 {
		return command.Command{}, fmt.Errorf("bridge %q: %w", fields[1], ErrSyntax)
	}
	cmd := command.Command{
		Motor:  m,
		Bridge: command.Bridge(strings.ToUpper(fields[1])[0]),
	}

	args := fields[3:]
	switch fields[2] {
	case "speed":
		if len(args) != 1 {
			return command.Command{}, fmt.Errorf("speed needs one value: %w", ErrSyntax)
		}
		cmd.Action = command.SetSpeed
		cmd.Speed, err = parseSpeed(args[0])
	case "stop", "sleep":
		if len(args) != 0 {
			return command.Command{}, fmt.Errorf("%s takes no arguments: %w", fields[2], ErrSyntax)
		}
		cmd.Action = command.Stop
		if fields[2] == "sleep" {
			cmd.Action = command.Sleep
		}
	case "decay":
		if len(args) != 1 {
			return command.Command{}, fmt.Errorf("decay needs slow or fast: %w", ErrSyntax)
		}
		mode, ok := motor.ParseDecayMode(args[0])
		if !ok {
			return command.Command{}, fmt.Errorf("decay mode %q: %w", args[0], ErrSyntax)
		}
		cmd.Action = command.SetDecay
		cmd.Decay = mode
	default:
		if len(args) != 0 {
			return command.Command{}, fmt.Errorf("action %q: %w", fields[2], ErrSyntax)
		}
		cmd.Action = command.SetSpeed
		cmd.Speed, err = parseSpeed(fields[2])
	}
	if err != nil {
		return command.Command{}, err
	}
	return cmd, nil
}

func parseSpeed(s string) (int, error) {
	if strings.ContainsRune(s, '.') {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("speed %q: %w", s, ErrSyntax)
		}
		return command.SpeedFromFraction(f), nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("speed %q: %w", s, ErrSyntax)
	}
	return command.ClampSpeed(v), nil
}
