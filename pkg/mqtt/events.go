package mqtt

import "github.com/benmeehan/mqclient/internal/models"

// EventHandler receives the client's network events. Paho invokes it from its
// own goroutines, concurrently with calls made on MqttService.
type EventHandler interface {
	// ConnectComplete is called after every successful connection.
	// reconnect is false only for the first one.
	ConnectComplete(reconnect bool, serverURL string)

	// ConnectionLost is called when an established connection drops.
	ConnectionLost(err error)

	// MessageArrived is called once per inbound message. The message is
	// acknowledged to the broker only after it returns nil; a non-nil error
	// leaves a QoS1/QoS2 message unacknowledged.
	MessageArrived(topic string, msg models.ArrivedMessage) error

	// DeliveryComplete is called once per successful publish: after the
	// network write for QoS0, PUBACK for QoS1, PUBCOMP for QoS2.
	DeliveryComplete(token models.DeliveryToken)
}
