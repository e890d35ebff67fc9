package midi

import (
	"testing"

	"github.com/madskjeldgaard/midi2motor/internal/command"
	"github.com/madskjeldgaard/midi2motor/internal/motor"
)

func TestDefaultNoteMap(t *testing.T) {
	m := DefaultNoteMap()
	tests := []struct {
		note uint8
		want Target
	}{
		{60, Target{1, command.BridgeA}},
		{61, Target{1, command.BridgeB}},
		{62, Target{2, command.BridgeA}},
		{63, Target{2, command.BridgeB}},
		{48, Target{1, command.BridgeA}},
		{51, Target{2, command.BridgeB}},
	}
	for _, tt := range tests {
		if got := m[tt.note]; got != tt.want {
			t.Errorf("note %d: got %+v, want %+v", tt.note, got, tt.want)
		}
	}
	if len(m) != 8 {
		t.Errorf("expected 8 notes, got %d", len(m))
	}
}

func TestSwappedNoteMap(t *testing.T) {
	m := SwappedNoteMap()
	if got := m[63]; got != (Target{1, command.BridgeB}) {
		t.Errorf("note 63: got %+v", got)
	}
	if got := m[51]; got != (Target{1, command.BridgeB}) {
		t.Errorf("note 51: got %+v", got)
	}
	if got := m[61]; got != (Target{2, command.BridgeB}) {
		t.Errorf("note 61: got %+v", got)
	}
	if got := m[60]; got != (Target{1, command.BridgeA}) {
		t.Errorf("note 60 should be unchanged, got %+v", got)
	}
}

func TestNoteMapByName(t *testing.T) {
	for _, name := range []string{"", NoteMapDefault, NoteMapSwapped} {
		if _, ok := NoteMapByName(name); !ok {
			t.Errorf("%q: expected known table", name)
		}
	}
	if _, ok := NoteMapByName("crossed"); ok {
		t.Error("expected unknown table")
	}
}

func TestVelocityToSpeed(t *testing.T) {
	tests := []struct {
		in   uint8
		want int
	}{
		{0, 0},
		{127, motor.MaxDuty},
		{64, 515},
		{1, 8},
		{200, motor.MaxDuty},
	}
	for _, tt := range tests {
		if got := VelocityToSpeed(tt.in); got != tt.want {
			t.Errorf("VelocityToSpeed(%d): got %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestNoteMapCommand(t *testing.T) {
	m := DefaultNoteMap()

	cmd, ok := m.Command(NoteEvent{Note: 62, Velocity: 127, On: true})
	if !ok {
		t.Fatal("expected mapped note")
	}
	want := command.Command{Motor: 2, Bridge: command.BridgeA, Action: command.SetSpeed, Speed: motor.MaxDuty}
	if cmd != want {
		t.Errorf("note on: got %+v, want %+v", cmd, want)
	}

	cmd, ok = m.Command(NoteEvent{Note: 61})
	if !ok {
		t.Fatal("expected mapped note")
	}
	want = command.Command{Motor: 1, Bridge: command.BridgeB, Action: command.Stop}
	if cmd != want {
		t.Errorf("note off: got %+v, want %+v", cmd, want)
	}

	if _, ok := m.Command(NoteEvent{Note: 70, On: true, Velocity: 1}); ok {
		t.Error("unmapped note should be ignored")
	}
}
