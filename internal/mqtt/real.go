package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/madskjeldgaard/midi2motor/internal/config"
)

// outboxCapacity bounds how many messages are held while the broker is away.
const outboxCapacity = 64

// RealPublisher publishes to an actual MQTT broker and subscribes to the
// command topic. Publishing never blocks the caller.
type RealPublisher struct {
	client paho.Client
	cfg    config.MQTT
	logger *zap.SugaredLogger

	// mu guards the send-or-queue decision so a message is never queued
	// after the outbox has been drained for a connect.
	mu        sync.Mutex
	outbox    *outbox
	handler   func([]byte)
	online    bool
	connected bool // set after the first successful connect
}

// NewRealPublisher creates a publisher for the broker in cfg. The initial
// connect is attempted in the background and retried until it succeeds.
func NewRealPublisher(cfg config.MQTT, logger *zap.SugaredLogger) *RealPublisher {
	p := newPublisher(cfg, logger)

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(cfg.SystemTopic, string(willPayload()), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost)

	p.client = paho.NewClient(opts)
	p.client.Connect()
	return p
}

func newPublisher(cfg config.MQTT, logger *zap.SugaredLogger) *RealPublisher {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &RealPublisher{
		cfg:    cfg,
		logger: logger.With("component", "mqtt"),
		outbox: newOutbox(outboxCapacity),
	}
}

// onConnect replays queued messages oldest first and restores the command
// subscription. Replay happens under mu so later publishes stay behind it.
func (p *RealPublisher) onConnect(_ paho.Client) {
	p.mu.Lock()
	reconnect := p.connected
	p.connected = true
	p.online = true
	pending, dropped := p.outbox.drain()
	for _, m := range pending {
		p.send(m)
	}
	handler := p.handler
	p.mu.Unlock()

	p.logger.Infow("connected", "broker", p.cfg.Broker, "replay", len(pending), "dropped", dropped)

	if handler != nil {
		p.subscribe(handler)
	}
	if reconnect {
		payload, err := FormatSystemPayload(SystemEvent{
			Timestamp: time.Now(),
			Event:     "RECONNECTED",
		})
		if err == nil {
			p.enqueue(outboxMsg{topic: p.cfg.SystemTopic, payload: payload, qos: 1})
		}
	}
}

func (p *RealPublisher) onConnectionLost(_ paho.Client, err error) {
	p.mu.Lock()
	p.online = false
	p.mu.Unlock()
	p.logger.Warnw("connection lost", "error", err)
}

// Publish sends a power event to the event topic.
func (p *RealPublisher) Publish(event PowerEvent) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	p.enqueue(outboxMsg{topic: p.cfg.EventTopic, payload: payload})
	return nil
}

// PublishSystem sends a system lifecycle event to the system topic.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	// QoS 1 (at-least-once) for lifecycle events
	p.enqueue(outboxMsg{topic: p.cfg.SystemTopic, payload: payload, qos: 1, retained: event.Retained})
	return nil
}

func (p *RealPublisher) enqueue(m outboxMsg) {
	p.mu.Lock()
	if p.online {
		p.send(m)
		p.mu.Unlock()
		return
	}
	firstDrop := p.outbox.add(m)
	p.mu.Unlock()
	if firstDrop {
		p.logger.Warnw("offline outbox full, dropping oldest messages", "capacity", outboxCapacity)
	}
}

// send hands m to paho and reports failures from a separate goroutine so the
// caller never waits on the network.
func (p *RealPublisher) send(m outboxMsg) {
	token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
	go func() {
		if !token.WaitTimeout(5 * time.Second) {
			p.logger.Warnw("publish timeout", "topic", m.topic)
			return
		}
		if err := token.Error(); err != nil {
			p.logger.Warnw("publish failed", "topic", m.topic, "error", err)
		}
	}()
}

// Subscribe registers handler for the command topic. The subscription is
// renewed on every reconnect.
func (p *RealPublisher) Subscribe(handler func(payload []byte)) error {
	p.mu.Lock()
	p.handler = handler
	online := p.online
	p.mu.Unlock()
	if online {
		p.subscribe(handler)
	}
	return nil
}

func (p *RealPublisher) subscribe(handler func([]byte)) {
	token := p.client.Subscribe(p.cfg.CommandTopic, 1, func(_ paho.Client, msg paho.Message) {
		handler(msg.Payload())
	})
	go func() {
		if !token.WaitTimeout(5 * time.Second) {
			p.logger.Warnw("subscribe timeout", "topic", p.cfg.CommandTopic)
			return
		}
		if err := token.Error(); err != nil {
			p.logger.Warnw("subscribe failed", "topic", p.cfg.CommandTopic, "error", err)
			return
		}
		p.logger.Infow("subscribed", "topic", p.cfg.CommandTopic)
	}()
}

// IsConnected reports whether the broker connection is currently up.
func (p *RealPublisher) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
