package mqtt

import "github.com/benmeehan/mqclient/internal/constants"

// Wrapper defines the operations exposed by an MQTT client wrapper such as
// MqttService. Each operation logs its own outcome; returned errors are
// informational and never require the caller to stop.
type Wrapper interface {
	// Initialize builds the client handle and runs the startup sequence:
	// connect, subscribe to the configured topic, publish one test message.
	// Only a failure to build the handle is returned.
	Initialize() error

	// Connect opens the connection with the given credentials, making one
	// immediate reconnect attempt on failure.
	Connect(username, password string) error

	// Reconnect makes a single attempt to re-establish the connection.
	Reconnect() error

	// Disconnect closes the connection. The wrapper is unusable afterwards.
	Disconnect() error

	// Publish sends msg to topic with the given QoS and retain flag. It waits
	// for confirmation up to the configured publish timeout and returns
	// ErrPublishTimeout when that elapses.
	Publish(topic, msg string, qos constants.QoS, retain bool) error

	// Subscribe subscribes to topic at the given QoS.
	Subscribe(topic string, qos constants.QoS) error

	// Unsubscribe cancels the subscription to topic.
	Unsubscribe(topic string) error
}

var _ Wrapper = (*MqttService)(nil)
