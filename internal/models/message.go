package models

// ArrivedMessage is an inbound message as seen by the event callback.
type ArrivedMessage struct {
	Topic     string `json:"topic"`
	MessageID uint16 `json:"message_id"`
	QoS       byte   `json:"qos"`
	Retained  bool   `json:"retained"`
	Duplicate bool   `json:"duplicate"`
	Payload   []byte `json:"payload"`
}

// DeliveryToken describes a completed publish. It is produced once per publish
// and handed to the delivery-complete callback; nothing retains it.
type DeliveryToken struct {
	MessageID uint16   `json:"message_id"`
	Topics    []string `json:"topics"`
}
