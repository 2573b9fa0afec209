package mocks

import "sync/atomic"

// MockMessage implements MQTT.Message for testing
type MockMessage struct {
	payload []byte
	topic   string
	qos     byte
	id      uint16
	acks    atomic.Int32
}

// NewMockMessage creates a new mock MQTT message at QoS 1
func NewMockMessage(topic string, payload []byte) *MockMessage {
	return NewMockMessageWithQoS(topic, payload, 1, 1)
}

// NewMockMessageWithQoS creates a mock message with an explicit QoS and packet identifier
func NewMockMessageWithQoS(topic string, payload []byte, qos byte, id uint16) *MockMessage {
	return &MockMessage{
		payload: payload,
		topic:   topic,
		qos:     qos,
		id:      id,
	}
}

func (m *MockMessage) Payload() []byte   { return m.payload }
func (m *MockMessage) Topic() string     { return m.topic }
func (m *MockMessage) Duplicate() bool   { return false }
func (m *MockMessage) Qos() byte         { return m.qos }
func (m *MockMessage) Retained() bool    { return false }
func (m *MockMessage) MessageID() uint16 { return m.id }
func (m *MockMessage) Ack()              { m.acks.Add(1) }

// Acks returns how many times the message was acknowledged
func (m *MockMessage) Acks() int { return int(m.acks.Load()) }
