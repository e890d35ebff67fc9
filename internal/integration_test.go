package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/madskjeldgaard/midi2motor/internal/command"
	"github.com/madskjeldgaard/midi2motor/internal/config"
	"github.com/madskjeldgaard/midi2motor/internal/gpio"
	"github.com/madskjeldgaard/midi2motor/internal/idle"
	"github.com/madskjeldgaard/midi2motor/internal/midi"
	"github.com/madskjeldgaard/midi2motor/internal/motor"
	"github.com/madskjeldgaard/midi2motor/internal/mqtt"
	"github.com/madskjeldgaard/midi2motor/internal/status"
	"github.com/madskjeldgaard/midi2motor/internal/textcmd"
)

var startTime = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// bench is a two-driver rig on fake pins with the same hook wiring the
// daemon uses.
type bench struct {
	rec     *gpio.Recorder
	pins    map[string]*gpio.FakeChannel
	drivers []*motor.Driver
	timer   *idle.Timer
	router  *command.Router
	pub     *mqtt.FakePublisher
	now     time.Time
}

func newBench(t *testing.T) *bench {
	t.Helper()
	b := &bench{
		rec:  gpio.NewRecorder(),
		pins: map[string]*gpio.FakeChannel{},
		pub:  mqtt.NewFakePublisher(),
		now:  startTime,
	}
	pin := func(name string) *gpio.FakeChannel {
		c := b.rec.Channel(name)
		b.pins[name] = c
		return c
	}
	for _, m := range []string{"1", "2"} {
		b.drivers = append(b.drivers, motor.NewDriver(
			pin(m+"AIN1"), pin(m+"AIN2"), pin(m+"BIN1"), pin(m+"BIN2"), pin(m+"SLP"),
		))
	}
	power := func(sleep bool) func() {
		return func() {
			typ := mqtt.EventWake
			for _, d := range b.drivers {
				if sleep {
					d.Sleep()
				} else {
					d.Wake()
				}
			}
			if sleep {
				typ = mqtt.EventSleep
			}
			b.pub.Publish(mqtt.PowerEvent{Timestamp: b.now, Type: typ})
		}
	}
	b.timer = idle.New(2*time.Second, startTime, power(true), power(false))
	b.timer.ForceSleep()
	b.timer.NotifyActivity(startTime)
	b.router = command.NewRouter(b.drivers, b.timer, nil)
	b.pub.Reset()
	b.rec.Reset()
	return b
}

// collect runs a transport to completion and returns what it queued.
func collect(t *testing.T, run func(context.Context, chan<- command.Command) error) []command.Command {
	t.Helper()
	out := make(chan command.Command, 32)
	if err := run(context.Background(), out); err != nil {
		t.Fatalf("transport: %v", err)
	}
	close(out)
	var cmds []command.Command
	for c := range out {
		cmds = append(cmds, c)
	}
	return cmds
}

func (b *bench) dispatchAll(t *testing.T, cmds []command.Command, step time.Duration) {
	t.Helper()
	for _, c := range cmds {
		b.now = b.now.Add(step)
		if err := b.router.Dispatch(b.now, c); err != nil {
			t.Fatalf("dispatch %s: %v", c, err)
		}
		b.router.Tick(b.now)
	}
}

func powerTypes(events []mqtt.PowerEvent) []string {
	var out []string
	for _, e := range events {
		out = append(out, string(e.Type))
	}
	return out
}

// TestIntegrationMIDIToPins feeds a raw MIDI stream through the source and
// router and checks the resulting pin levels.
func TestIntegrationMIDIToPins(t *testing.T) {
	b := newBench(t)

	stream := []byte{
		0x90, 60, 127, // note on 60 (1A) full velocity
		62, 64, // running status: note on 62 (2A)
		0xF8,        // clock interleaved, ignored
		0x80, 60, 0, // note off 60
		0x90, 63, 0, // note on 63 velocity 0 = note off (2B)
	}
	src := midi.NewSource(bytes.NewReader(stream), midi.DefaultNoteMap(), 0, nil)
	cmds := collect(t, src.Run)

	want := []string{"1A speed 1023", "2A speed 515", "1A stop", "2B stop"}
	var got []string
	for _, c := range cmds {
		got = append(got, c.String())
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("commands (-want +got):\n%s", diff)
	}

	b.dispatchAll(t, cmds, 10*time.Millisecond)

	if b.drivers[0].Asleep() || b.drivers[1].Asleep() {
		t.Error("drivers should be awake after notes")
	}
	// 1A stopped: both lines low
	if b.pins["1AIN1"].High || b.pins["1AIN2"].Duty != 0 {
		t.Errorf("1A should be stopped: %+v %+v", *b.pins["1AIN1"], *b.pins["1AIN2"])
	}
	// 2A slow decay forward: AIN1 HIGH, AIN2 carries duty
	if !b.pins["2AIN1"].High || b.pins["2AIN2"].Duty != 515 {
		t.Errorf("2A should run forward at 515: %+v %+v", *b.pins["2AIN1"], *b.pins["2AIN2"])
	}
	if diff := cmp.Diff([]string{"WAKE"}, powerTypes(b.pub.Events)); diff != "" {
		t.Errorf("power events (-want +got):\n%s", diff)
	}
}

// TestIntegrationIdleSleepAndWake checks the drivers sleep once the idle
// threshold passes and wake on the next note.
func TestIntegrationIdleSleepAndWake(t *testing.T) {
	b := newBench(t)

	b.dispatchAll(t, []command.Command{{Motor: 1, Bridge: command.BridgeB, Action: command.SetSpeed, Speed: 400}}, 0)

	if b.router.Tick(startTime.Add(2 * time.Second)) {
		t.Fatal("must not sleep at exactly the threshold")
	}
	b.now = startTime.Add(2*time.Second + time.Millisecond)
	if !b.router.Tick(b.now) {
		t.Fatal("expected sleep after the threshold")
	}
	if b.pins["1SLP"].High || b.pins["2SLP"].High {
		t.Error("sleep lines should be LOW")
	}
	// The commanded speed survives sleep.
	if got := b.drivers[0].BridgeB().Speed(); got != 400 {
		t.Errorf("1B speed: got %d, want 400", got)
	}

	src := midi.NewSource(bytes.NewReader([]byte{0x90, 61, 127}), midi.DefaultNoteMap(), 0, nil)
	b.dispatchAll(t, collect(t, src.Run), time.Second)

	if !b.pins["1SLP"].High || !b.pins["2SLP"].High {
		t.Error("sleep lines should be HIGH after a note")
	}
	if diff := cmp.Diff([]string{"WAKE", "SLEEP", "WAKE"}, powerTypes(b.pub.Events)); diff != "" {
		t.Errorf("power events (-want +got):\n%s", diff)
	}
}

// TestIntegrationChannelFilter drops notes on other MIDI channels.
func TestIntegrationChannelFilter(t *testing.T) {
	stream := []byte{
		0x91, 60, 100, // channel 2
		0x90, 61, 100, // channel 1
	}
	src := midi.NewSource(bytes.NewReader(stream), midi.DefaultNoteMap(), 2, nil)
	cmds := collect(t, src.Run)

	if len(cmds) != 1 || cmds[0].Motor != 1 || cmds[0].Bridge != command.BridgeA {
		t.Fatalf("expected only the channel 2 note, got %v", cmds)
	}
}

// TestIntegrationSwappedNoteMapFromConfig resolves the alternate table from
// config and routes note 61 to driver 2.
func TestIntegrationSwappedNoteMapFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.MIDI.NoteMap = midi.NoteMapSwapped
	notes, err := cfg.MIDI.NoteTable()
	if err != nil {
		t.Fatalf("note table: %v", err)
	}

	b := newBench(t)
	src := midi.NewSource(bytes.NewReader([]byte{0x90, 61, 127}), notes, 0, nil)
	b.dispatchAll(t, collect(t, src.Run), 0)

	if b.drivers[1].BridgeB().Speed() != motor.MaxDuty {
		t.Errorf("2B speed: got %d, want %d", b.drivers[1].BridgeB().Speed(), motor.MaxDuty)
	}
	if b.drivers[0].BridgeB().Speed() != 0 {
		t.Errorf("1B should be untouched, got %d", b.drivers[0].BridgeB().Speed())
	}
}

// TestIntegrationTextAndMQTT routes serial text and MQTT payloads through the
// same router.
func TestIntegrationTextAndMQTT(t *testing.T) {
	b := newBench(t)

	serialInput := strings.NewReader("1 a decay fast\n1 a -0.5\n# comment\nnonsense\n")
	cmds := collect(t, textcmd.NewSource(serialInput, nil).Run)

	queue := make(chan command.Command, 8)
	if err := b.pub.Subscribe(mqtt.CommandHandler(queue, nil)); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	b.pub.Deliver([]byte("2 b speed 300\n9 a stop"))
	close(queue)
	for c := range queue {
		cmds = append(cmds, c)
	}

	var rejected int
	for _, c := range cmds {
		b.now = b.now.Add(time.Millisecond)
		if err := b.router.Dispatch(b.now, c); err != nil {
			if !errors.Is(err, command.ErrUnknownMotor) {
				t.Errorf("unexpected error for %s: %v", c, err)
			}
			rejected++
		}
	}
	if rejected != 1 {
		t.Errorf("expected 1 rejected command, got %d", rejected)
	}

	// 1A fast decay backward: AIN1 LOW, AIN2 carries duty
	if b.pins["1AIN1"].High || b.pins["1AIN2"].Duty != 512 {
		t.Errorf("1A fast backward at 512: %+v %+v", *b.pins["1AIN1"], *b.pins["1AIN2"])
	}
	if got := b.drivers[1].BridgeB().Speed(); got != 300 {
		t.Errorf("2B speed: got %d, want 300", got)
	}
	if st := b.router.Stats(); st.Dispatched != 3 || st.Rejected != 1 {
		t.Errorf("stats: got %+v", st)
	}
}

// TestIntegrationStatusSnapshot checks the status JSON built from a live rig.
func TestIntegrationStatusSnapshot(t *testing.T) {
	b := newBench(t)
	b.dispatchAll(t, []command.Command{
		{Motor: 2, Bridge: command.BridgeA, Action: command.SetDecay, Decay: motor.FastDecay},
		{Motor: 2, Bridge: command.BridgeA, Action: command.SetSpeed, Speed: -100},
	}, time.Millisecond)

	tr := status.NewTracker(nil, status.Config{})
	st := b.router.Stats()
	tr.Update(status.DriverStates(b.drivers), b.router.Sleeping(), b.timer.LastActivity(), status.Counts{Dispatched: st.Dispatched})

	var parsed status.StatusJSON
	if err := json.Unmarshal(status.FormatJSON(tr.Snapshot()), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Status.Sleeping {
		t.Error("expected awake")
	}
	got := parsed.Status.Drivers[1].Bridges[0]
	want := status.BridgeJSON{Bridge: "A", Speed: -100, Direction: "BACKWARD", Decay: "fast"}
	if got != want {
		t.Errorf("2A: got %+v, want %+v", got, want)
	}
	if parsed.Status.Counts.Dispatched != 2 {
		t.Errorf("dispatched: got %d, want 2", parsed.Status.Counts.Dispatched)
	}
}
