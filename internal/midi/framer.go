package midi

import (
	gomidi "gitlab.com/gomidi/midi/v2"
)

// NoteEvent is a decoded note-on or note-off. A note-on with velocity 0 is
// reported as a note-off. Channel is 0-based.
type NoteEvent struct {
	Channel  uint8
	Note     uint8
	Velocity uint8
	On       bool
}

// Framer reassembles channel-voice messages from a serial MIDI stream,
// honouring running status. Realtime bytes are skipped without disturbing
// the message in progress; SysEx and system common messages are dropped.
// Not safe for concurrent use.
type Framer struct {
	status byte // running status, 0 when none
	data   [2]byte
	n      int
	sysex  bool
}

// Feed consumes one byte and returns a complete channel message when one is
// ready.
func (f *Framer) Feed(b byte) (gomidi.Message, bool) {
	switch {
	case b >= 0xF8: // realtime
		return nil, false
	case b == 0xF0:
		f.sysex = true
		f.status = 0
		f.n = 0
		return nil, false
	case b == 0xF7:
		f.sysex = false
		return nil, false
	case b >= 0xF1: // system common cancels running status
		f.sysex = false
		f.status = 0
		f.n = 0
		return nil, false
	case b >= 0x80:
		f.sysex = false
		f.status = b
		f.n = 0
		return nil, false
	}

	if f.sysex || f.status == 0 {
		return nil, false
	}

	f.data[f.n] = b
	f.n++
	if f.n < dataLen(f.status) {
		return nil, false
	}
	f.n = 0

	msg := make(gomidi.Message, 0, 3)
	msg = append(msg, f.status)
	msg = append(msg, f.data[:dataLen(f.status)]...)
	return msg, true
}

func dataLen(status byte) int {
	switch status & 0xF0 {
	case 0xC0, 0xD0:
		return 1
	}
	return 2
}

// DecodeNote extracts a note event from msg.
func DecodeNote(msg gomidi.Message) (NoteEvent, bool) {
	var ch, key, vel uint8
	if msg.GetNoteStart(&ch, &key, &vel) {
		return NoteEvent{Channel: ch, Note: key, Velocity: vel, On: true}, true
	}
	if msg.GetNoteEnd(&ch, &key) {
		return NoteEvent{Channel: ch, Note: key}, true
	}
	return NoteEvent{}, false
}
