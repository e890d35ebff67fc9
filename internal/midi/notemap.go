// Package midi turns a raw MIDI byte stream into motor commands.
package midi

import (
	"github.com/madskjeldgaard/midi2motor/internal/command"
	"github.com/madskjeldgaard/midi2motor/internal/motor"
)

// Target is the bridge a note addresses.
type Target struct {
	Motor  int
	Bridge command.Bridge
}

// NoteMap maps note numbers to bridges. Notes not in the map are ignored.
type NoteMap map[uint8]Target

// Named note tables.
const (
	NoteMapDefault = "default"
	NoteMapSwapped = "swapped"
)

// DefaultNoteMap: 60-63 (and 48-51 an octave down) address 1A, 1B, 2A, 2B.
func DefaultNoteMap() NoteMap {
	m := NoteMap{}
	for _, base := range []uint8{48, 60} {
		m[base+0] = Target{Motor: 1, Bridge: command.BridgeA}
		m[base+1] = Target{Motor: 1, Bridge: command.BridgeB}
		m[base+2] = Target{Motor: 2, Bridge: command.BridgeA}
		m[base+3] = Target{Motor: 2, Bridge: command.BridgeB}
	}
	return m
}

// SwappedNoteMap is the wiring variant where the B-bridge notes of the two
// drivers are crossed: 49/61 drive 2B and 51/63 drive 1B.
func SwappedNoteMap() NoteMap {
	m := DefaultNoteMap()
	for _, base := range []uint8{48, 60} {
		m[base+1] = Target{Motor: 2, Bridge: command.BridgeB}
		m[base+3] = Target{Motor: 1, Bridge: command.BridgeB}
	}
	return m
}

// NoteMapByName returns a named table.
func NoteMapByName(name string) (NoteMap, bool) {
	switch name {
	case NoteMapDefault, "":
		return DefaultNoteMap(), true
	case NoteMapSwapped:
		return SwappedNoteMap(), true
	}
	return nil, false
}

// VelocityToSpeed scales a 0..127 velocity onto 0..MaxDuty. Larger values
// are clamped.
func VelocityToSpeed(velocity uint8) int {
	if velocity > 127 {
		velocity = 127
	}
	return int(velocity) * motor.MaxDuty / 127
}

// Command maps a note event to a command. Note-on sets the bridge speed from
// velocity, note-off stops it. ok is false for unmapped notes.
func (m NoteMap) Command(ev NoteEvent) (cmd command.Command, ok bool) {
	target, ok := m[ev.Note]
	if !ok {
		return command.Command{}, false
	}
	cmd = command.Command{Motor: target.Motor, Bridge: target.Bridge}
	if ev.On {
		cmd.Action = command.SetSpeed
		cmd.Speed = VelocityToSpeed(ev.Velocity)
	} else {
		cmd.Action = command.Stop
	}
	return cmd, true
}
