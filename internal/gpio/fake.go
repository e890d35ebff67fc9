package gpio

import "fmt"

// Write is one recorded pin write.
type Write struct {
	Pin    string
	Analog bool // false = digital level write
	High   bool // digital level (Analog == false)
	Duty   int  // duty value (Analog == true)
}

func (w Write) String() string {
	if w.Analog {
		return fmt.Sprintf("%s=duty(%d)", w.Pin, w.Duty)
	}
	if w.High {
		return w.Pin + "=HIGH"
	}
	return w.Pin + "=LOW"
}

// Recorder collects writes from a set of FakeChannels in the order they happen.
type Recorder struct {
	Writes []Write
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Channel returns a FakeChannel named pin that records into r.
func (r *Recorder) Channel(pin string) *FakeChannel {
	return &FakeChannel{Pin: pin, rec: r}
}

// Reset discards recorded writes.
func (r *Recorder) Reset() {
	r.Writes = nil
}

// FakeChannel is a test double for an output pin.
type FakeChannel struct {
	Pin string

	// State after the last write.
	High   bool
	Duty   int
	Analog bool

	rec *Recorder
}

// SetDigital records a level write.
func (f *FakeChannel) SetDigital(high bool) {
	f.High = high
	f.Duty = 0
	f.Analog = false
	f.record(Write{Pin: f.Pin, High: high})
}

// SetAnalog records a duty write.
func (f *FakeChannel) SetAnalog(duty int) {
	f.High = false
	f.Duty = duty
	f.Analog = true
	f.record(Write{Pin: f.Pin, Analog: true, Duty: duty})
}

func (f *FakeChannel) record(w Write) {
	if f.rec != nil {
		f.rec.Writes = append(f.rec.Writes, w)
	}
}
