package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Sleeping      bool         `json:"sleeping"`
	LastActivity  string       `json:"last_activity,omitempty"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"counts"`
	Drivers       []DriverJSON `json:"drivers"`
	Config        ConfigJSON   `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of running totals.
type CountsJSON struct {
	Dispatched int `json:"dispatched"`
	Rejected   int `json:"rejected"`
	Sleeps     int `json:"sleeps"`
	Wakes      int `json:"wakes"`
}

// DriverJSON is one driver chip.
type DriverJSON struct {
	Motor   int          `json:"motor"`
	Asleep  bool         `json:"asleep"`
	Bridges []BridgeJSON `json:"bridges"`
}

// BridgeJSON is one H-bridge.
type BridgeJSON struct {
	Bridge    string `json:"bridge"`
	Speed     int    `json:"speed"`
	Direction string `json:"direction"`
	Decay     string `json:"decay"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	IdleTimeoutMs int64  `json:"idle_timeout_ms"`
	PollMs        int64  `json:"poll_ms"`
	HeartbeatMs   int64  `json:"heartbeat_ms"`
	Broker        string `json:"broker"`
	HTTPAddr      string `json:"http_addr"`
	NoteMap       string `json:"note_map,omitempty"`
}

func bridgeJSON(name string, b BridgeState) BridgeJSON {
	return BridgeJSON{
		Bridge:    name,
		Speed:     b.Speed,
		Direction: b.Direction(),
		Decay:     b.Decay.String(),
	}
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Sleeping:      snap.Sleeping,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Dispatched: snap.Counts.Dispatched,
			Rejected:   snap.Counts.Rejected,
			Sleeps:     snap.Counts.Sleeps,
			Wakes:      snap.Counts.Wakes,
		},
		Drivers: make([]DriverJSON, 0, len(snap.Drivers)),
		Config: ConfigJSON{
			IdleTimeoutMs: snap.Config.IdleTimeoutMs,
			PollMs:        snap.Config.PollMs,
			HeartbeatMs:   snap.Config.HeartbeatMs,
			Broker:        snap.Config.Broker,
			HTTPAddr:      snap.Config.HTTPAddr,
			NoteMap:       snap.Config.NoteMap,
		},
	}
	if !snap.LastActivity.IsZero() {
		inner.LastActivity = snap.LastActivity.UTC().Format(time.RFC3339)
	}
	for i, d := range snap.Drivers {
		inner.Drivers = append(inner.Drivers, DriverJSON{
			Motor:   i + 1,
			Asleep:  d.Asleep,
			Bridges: []BridgeJSON{bridgeJSON("A", d.A), bridgeJSON("B", d.B)},
		})
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
