package sink

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"gnss-bridge/internal/fix"
)

const mqttPublishTimeout = 2 * time.Second

type MQTTConfig struct {
	Broker      string
	ClientID    string
	TopicPrefix string
	QoS         byte
}

// publisher is the part of mqtt.Client the sink uses.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTT publishes fixes and status changes as retained JSON messages and
// satellite lists as plain messages under TopicPrefix.
type MQTT struct {
	client publisher
	prefix string
	qos    byte
	close  func()
}

func NewMQTT(cfg MQTTConfig) (*MQTT, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(5 * time.Second)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect broker=%s: %w", cfg.Broker, token.Error())
	}
	log.Printf("mqtt connected broker=%s client_id=%s", cfg.Broker, cfg.ClientID)

	m := newMQTT(client, cfg.TopicPrefix, cfg.QoS)
	m.close = func() { client.Disconnect(250) }
	return m, nil
}

func newMQTT(p publisher, prefix string, qos byte) *MQTT {
	return &MQTT{client: p, prefix: strings.TrimSuffix(prefix, "/"), qos: qos}
}

func (m *MQTT) Close() {
	if m.close != nil {
		m.close()
	}
}

func (m *MQTT) publish(topic string, retained bool, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Printf("mqtt marshal failed topic=%s: %v", topic, err)
		return
	}
	topic = m.prefix + "/" + topic
	token := m.client.Publish(topic, m.qos, retained, payload)
	if !token.WaitTimeout(mqttPublishTimeout) {
		log.Printf("mqtt publish timed out topic=%s", topic)
		return
	}
	if err := token.Error(); err != nil {
		log.Printf("mqtt publish failed topic=%s: %v", topic, err)
	}
}

func (m *MQTT) OnFix(s fix.Snapshot) { m.publish("fix", true, s) }

func (m *MQTT) OnStatusChange(s fix.Status, e fix.Extras, ms int64) {
	m.publish("status", true, NewStatusMessage(s, e, ms))
}

func (m *MQTT) OnSatelliteList(recs []fix.SatelliteRecord) {
	m.publish("satellites", false, recs)
}
