package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/i4energy/espuplink/modem"
)

// mqttConnectTimeout bounds the initial broker connection.
var mqttConnectTimeout = 10 * time.Second

// MQTTBridge feeds jobs from <topic>/cloudlog and <topic>/webhook into the
// gateway and publishes the connection flags to <topic>/status.
type MQTTBridge struct {
	Logger *slog.Logger

	client   paho.Client
	topic    string
	enqueuer Enqueuer
	state    StateReader
}

// NewMQTTBridge connects to broker. Subscriptions are (re)established and
// the current state published on every connect. If the first connection
// fails the client is shut down and nothing keeps retrying in the
// background.
func NewMQTTBridge(logger *slog.Logger, broker, clientID, topic string, enqueuer Enqueuer, state StateReader) (*MQTTBridge, error) {
	b := &MQTTBridge{
		Logger:   logger,
		topic:    topic,
		enqueuer: enqueuer,
		state:    state,
	}

	b.client = paho.NewClient(b.clientOptions(broker, clientID))
	if err := b.connect(broker, mqttConnectTimeout); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *MQTTBridge) clientOptions(broker, clientID string) *paho.ClientOptions {
	return paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetOrderMatters(false).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetWill(b.statusTopic(), `{"online":false}`, 1, true).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			b.Logger.Warn("MQTT connection lost", "error", err)
		}).
		SetOnConnectHandler(b.onConnect)
}

// connect waits for the first connection. With ConnectRetry the token only
// completes once connected, so a timeout must disconnect to stop the retries.
func (b *MQTTBridge) connect(broker string, timeout time.Duration) error {
	token := b.client.Connect()
	if !token.WaitTimeout(timeout) {
		b.client.Disconnect(250)
		return fmt.Errorf("connect to %s: timeout", broker)
	}
	if err := token.Error(); err != nil {
		b.client.Disconnect(250)
		return fmt.Errorf("connect to %s: %w", broker, err)
	}
	return nil
}

func (b *MQTTBridge) onConnect(c paho.Client) {
	b.subscribe(c)

	if b.state == nil {
		return
	}
	if err := b.PublishStatus(b.state.State()); err != nil {
		b.Logger.Error("Failed to publish status", "error", err)
	}
}

func (b *MQTTBridge) subscribe(c paho.Client) {
	for _, kind := range []JobKind{JobCloudLog, JobWebhook} {
		topic := b.topic + "/" + string(kind)
		token := c.Subscribe(topic, 1, b.handler(kind))
		if token.Wait() && token.Error() != nil {
			b.Logger.Error("MQTT subscribe failed", "topic", topic, "error", token.Error())
			continue
		}
		b.Logger.Info("MQTT subscribed", "topic", topic)
	}
}

func (b *MQTTBridge) handler(kind JobKind) paho.MessageHandler {
	return func(_ paho.Client, msg paho.Message) {
		job, err := decodeJob(kind, bytes.NewReader(msg.Payload()))
		if err != nil {
			b.Logger.Warn("MQTT bad payload", "topic", msg.Topic(), "error", err)
			return
		}

		id, err := b.enqueuer.Enqueue(job)
		if err != nil {
			b.Logger.Warn("MQTT job rejected", "topic", msg.Topic(), "error", err)
			return
		}
		b.Logger.Info("Job queued", "id", id, "kind", kind, "source", "mqtt")
	}
}

type statusPayload struct {
	Online bool `json:"online"`
	modem.State
	Timestamp string `json:"timestamp"`
}

// PublishStatus publishes state as a retained message.
func (b *MQTTBridge) PublishStatus(state modem.State) error {
	payload, err := json.Marshal(statusPayload{
		Online:    true,
		State:     state,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("format status payload: %w", err)
	}

	token := b.client.Publish(b.statusTopic(), 1, true, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish status timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish status: %w", err)
	}
	return nil
}

func (b *MQTTBridge) statusTopic() string {
	return b.topic + "/status"
}

// Close disconnects from the broker.
func (b *MQTTBridge) Close() {
	b.client.Disconnect(1000)
}
