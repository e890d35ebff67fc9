// Package mqtt carries motor commands in from a broker and publishes power
// and lifecycle events out, with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"
)

// PowerEventType is a sleep-line transition of the whole rig.
type PowerEventType string

const (
	EventSleep PowerEventType = "SLEEP"
	EventWake  PowerEventType = "WAKE"
)

// PowerEvent records the driver chips going to sleep or waking.
type PowerEvent struct {
	Timestamp time.Time
	Type      PowerEventType
	Reason    string // e.g. "idle", "command", "activity", "startup"
}

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a power event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event PowerEvent) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// Subscriber delivers raw command payloads from the broker.
type Subscriber interface {
	// Subscribe registers handler for the command topic. handler runs on the
	// MQTT client's goroutine.
	Subscribe(handler func(payload []byte)) error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Power PowerPayload `json:"power"`
}

// PowerPayload contains the power event details.
type PowerPayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatPayload creates the JSON payload for a power event.
func FormatPayload(event PowerEvent) ([]byte, error) {
	payload := Payload{
		Power: PowerPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     string(event.Type),
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp,omitempty"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	inner := SystemPayloadInner{
		Event:  event.Event,
		Reason: event.Reason,
	}
	if !event.Timestamp.IsZero() {
		inner.Timestamp = event.Timestamp.UTC().Format(time.RFC3339)
	}
	return json.Marshal(SystemPayload{System: inner})
}

// willPayload is the last-will message the broker publishes if the daemon
// drops off without a clean SHUTDOWN.
func willPayload() []byte {
	data, _ := FormatSystemPayload(SystemEvent{Event: "OFFLINE", Reason: "LWT"})
	return data
}

// NopPublisher stands in when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(PowerEvent) error { return nil }

func (NopPublisher) PublishSystem(SystemEvent) error { return nil }

func (NopPublisher) Subscribe(func(payload []byte)) error { return nil }

func (NopPublisher) IsConnected() bool { return false }

func (NopPublisher) Close() error { return nil }
