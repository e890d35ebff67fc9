package midi

import (
	"bytes"
	"context"
	"errors"
	"testing"

	gomidi "gitlab.com/gomidi/midi/v2"

	"github.com/madskjeldgaard/midi2motor/internal/command"
)

func collect(t *testing.T, src *Source) []command.Command {
	t.Helper()
	out := make(chan command.Command, 16)
	if err := src.Run(context.Background(), out); err != nil {
		t.Fatalf("Run: %v", err)
	}
	close(out)
	var cmds []command.Command
	for c := range out {
		cmds = append(cmds, c)
	}
	return cmds
}

func TestSourceEmitsCommands(t *testing.T) {
	var stream []byte
	stream = append(stream, gomidi.NoteOn(0, 60, 127)...)
	stream = append(stream, gomidi.NoteOn(0, 99, 127)...) // unmapped
	stream = append(stream, gomidi.NoteOff(0, 60)...)

	cmds := collect(t, NewSource(bytes.NewReader(stream), DefaultNoteMap(), 0, nil))
	if len(cmds) != 2 {
		t.Fatalf("expected 2 commands, got %d: %v", len(cmds), cmds)
	}
	if cmds[0].Action != command.SetSpeed || cmds[0].Speed != 1023 {
		t.Errorf("cmd 0: got %+v", cmds[0])
	}
	if cmds[1].Action != command.Stop || cmds[1].Motor != 1 || cmds[1].Bridge != command.BridgeA {
		t.Errorf("cmd 1: got %+v", cmds[1])
	}
}

func TestSourceChannelFilter(t *testing.T) {
	var stream []byte
	stream = append(stream, gomidi.NoteOn(0, 60, 50)...) // channel 1
	stream = append(stream, gomidi.NoteOn(1, 61, 50)...) // channel 2

	cmds := collect(t, NewSource(bytes.NewReader(stream), DefaultNoteMap(), 2, nil))
	if len(cmds) != 1 {
		t.Fatalf("expected 1 command, got %d", len(cmds))
	}
	if cmds[0].Bridge != command.BridgeB {
		t.Errorf("expected 1B, got %s", cmds[0])
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("port gone") }

func TestSourceReadError(t *testing.T) {
	src := NewSource(failingReader{}, DefaultNoteMap(), 0, nil)
	err := src.Run(context.Background(), make(chan command.Command))
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestSourceContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := NewSource(bytes.NewReader(gomidi.NoteOn(0, 60, 10)), DefaultNoteMap(), 0, nil)
	err := src.Run(ctx, make(chan command.Command)) // unbuffered, nobody reading
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}
