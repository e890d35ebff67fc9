package mqtt

// outboxMsg is a formatted publish waiting for the broker to come back.
type outboxMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox holds the most recent messages published while offline. When full
// the oldest message is discarded. Callers synchronize access.
type outbox struct {
	msgs    []outboxMsg
	start   int // index of the oldest message
	n       int
	dropped int // discarded since the last drain
}

func newOutbox(capacity int) *outbox {
	return &outbox{msgs: make([]outboxMsg, capacity)}
}

// add queues m and reports whether this is the first message discarded
// since the last drain.
func (o *outbox) add(m outboxMsg) bool {
	if o.n < len(o.msgs) {
		o.msgs[(o.start+o.n)%len(o.msgs)] = m
		o.n++
		return false
	}
	o.msgs[o.start] = m
	o.start = (o.start + 1) % len(o.msgs)
	o.dropped++
	return o.dropped == 1
}

// drain returns the queued messages oldest first along with how many were
// discarded, and empties the outbox.
func (o *outbox) drain() (msgs []outboxMsg, dropped int) {
	if o.n > 0 {
		msgs = make([]outboxMsg, o.n)
		for i := range msgs {
			msgs[i] = o.msgs[(o.start+i)%len(o.msgs)]
		}
	}
	dropped = o.dropped
	o.start, o.n, o.dropped = 0, 0, 0
	return msgs, dropped
}
