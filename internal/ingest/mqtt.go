// v0
// internal/ingest/mqtt.go
package ingest

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTConfig configures the MQTT intent bridge used by edge agents that
// cannot reach Kafka.
type MQTTConfig struct {
	Enabled  bool
	Broker   string
	Topic    string
	ClientID string
	QoS      byte
}

const (
	mqttConnectTimeout = 10 * time.Second
	mqttQuiesceMillis  = 250
)

// MQTTBridge subscribes to an MQTT topic and applies every payload as an intent.
type MQTTBridge struct {
	client mqtt.Client
	topic  string
	sub    Submitter
	log    *slog.Logger
}

// StartMQTT connects and subscribes. A disabled config returns a nil bridge.
func StartMQTT(cfg MQTTConfig, sub Submitter, log *slog.Logger) (*MQTTBridge, error) {
	if log == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	if !cfg.Enabled {
		log.Info("mqtt_bridge_disabled")
		return nil, nil
	}
	if sub == nil {
		return nil, fmt.Errorf("submitter must not be nil")
	}
	if strings.TrimSpace(cfg.Broker) == "" || strings.TrimSpace(cfg.Topic) == "" {
		return nil, fmt.Errorf("mqtt broker and topic are required")
	}
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(mqttConnectTimeout)
	b := newMQTTBridge(cfg.Topic, sub, log)
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		// subscriptions are not kept across reconnects with a clean session
		token := c.Subscribe(b.topic, cfg.QoS, b.onMessage)
		if token.Wait() && token.Error() != nil {
			b.log.Error("mqtt_subscribe_err", slog.Any("err", token.Error()))
			return
		}
		b.log.Info("mqtt_subscribed", slog.Int("qos", int(cfg.QoS)))
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		b.log.Warn("mqtt_connection_lost", slog.Any("err", err))
	})
	b.client = mqtt.NewClient(opts)
	token := b.client.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) {
		return nil, fmt.Errorf("mqtt connect: timed out after %s", mqttConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	return b, nil
}

func newMQTTBridge(topic string, sub Submitter, log *slog.Logger) *MQTTBridge {
	return &MQTTBridge{
		topic: topic,
		sub:   sub,
		log:   log.With(slog.String("component", "mqtt_bridge"), slog.String("topic", topic)),
	}
}

func (b *MQTTBridge) onMessage(_ mqtt.Client, msg mqtt.Message) {
	handle(b.sub, b.log, msg.Payload(), slog.String("mqtt_topic", msg.Topic()), slog.Int("message_id", int(msg.MessageID())))
}

// Stop unsubscribes and disconnects.
func (b *MQTTBridge) Stop() {
	if b == nil || b.client == nil {
		return
	}
	if token := b.client.Unsubscribe(b.topic); token.WaitTimeout(time.Second) && token.Error() != nil {
		b.log.Warn("mqtt_unsubscribe_err", slog.Any("err", token.Error()))
	}
	b.client.Disconnect(mqttQuiesceMillis)
	b.log.Info("mqtt_bridge_stopped")
}
