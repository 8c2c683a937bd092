package main

import (
	"encoding/json"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// URCEvent is the payload published for each matched unsolicited result code.
type URCEvent struct {
	Prefix string    `json:"prefix"`
	Line   string    `json:"line"`
	Time   time.Time `json:"time"`
}

// EventPublisher forwards matched URC lines to the log and, when a broker is
// configured, to MQTT. Publish is called from the engine's receiver path, so
// it must not block: QoS 0 fire-and-forget, no token wait.
type EventPublisher struct {
	logger *slog.Logger
	topic  string
	client mqtt.Client
}

// NewEventPublisher connects to the configured broker. An empty broker URL
// yields a log-only publisher. Connection failures are logged, not fatal:
// the paho client keeps reconnecting in the background.
func NewEventPublisher(cfg *Config, logger *slog.Logger) *EventPublisher {
	p := &EventPublisher{
		logger: logger,
		topic:  cfg.MqttTopic,
	}
	if cfg.MqttBroker == "" {
		return p
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.MqttBroker)
	opts.SetClientID(cfg.MqttClientID)
	if cfg.MqttUser != "" {
		opts.SetUsername(cfg.MqttUser)
		opts.SetPassword(cfg.MqttPass)
	}
	opts.SetOrderMatters(false)
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", "error", err)
	})
	opts.SetOnConnectHandler(func(mqtt.Client) {
		logger.Info("MQTT connected", "topic", cfg.MqttTopic)
	})

	p.client = mqtt.NewClient(opts)
	if t := p.client.Connect(); t.Wait() && t.Error() != nil {
		logger.Error("MQTT connect failed", "error", t.Error())
	}
	return p
}

// Publish records one matched URC line.
func (p *EventPublisher) Publish(prefix, line string) {
	p.logger.Info("URC", "prefix", prefix, "line", line)

	if p.client == nil {
		return
	}
	payload, err := json.Marshal(URCEvent{Prefix: prefix, Line: line, Time: time.Now()})
	if err != nil {
		p.logger.Error("Failed to encode URC event", "error", err)
		return
	}
	p.client.Publish(p.topic, 0, false, payload)
}

// Close disconnects from the broker, allowing 500ms for in-flight messages.
func (p *EventPublisher) Close() {
	if p.client != nil {
		p.client.Disconnect(500)
	}
}
