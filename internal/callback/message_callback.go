package callback

import (
	"github.com/benmeehan/mqclient/internal/models"
	"github.com/rs/zerolog"
)

// LoggingCallback handles client events by logging them. It keeps no state
// and never fails.
type LoggingCallback struct {
	Logger zerolog.Logger
}

// NewLoggingCallback creates a LoggingCallback writing to logger.
func NewLoggingCallback(logger zerolog.Logger) *LoggingCallback {
	return &LoggingCallback{Logger: logger}
}

// ConnectComplete logs a completed connection or reconnection.
func (c *LoggingCallback) ConnectComplete(reconnect bool, serverURL string) {
	if reconnect {
		c.Logger.Info().Str("server", serverURL).Msg("Reconnected to MQTT broker")
		return
	}
	c.Logger.Info().Str("server", serverURL).Msg("Connected to MQTT broker")
}

// ConnectionLost logs the cause of a dropped connection. Recovery is left to
// the client's reconnect settings.
func (c *LoggingCallback) ConnectionLost(err error) {
	c.Logger.Warn().Err(err).Msg("MQTT connection lost")
}

// MessageArrived logs an inbound message. Returning nil lets the client
// acknowledge it.
func (c *LoggingCallback) MessageArrived(topic string, msg models.ArrivedMessage) error {
	c.Logger.Info().
		Str("topic", topic).
		Uint16("message_id", msg.MessageID).
		Uint8("qos", msg.QoS).
		Bool("retained", msg.Retained).
		Str("payload", string(msg.Payload)).
		Msg("Message arrived")
	return nil
}

// DeliveryComplete logs a finished publish.
func (c *LoggingCallback) DeliveryComplete(token models.DeliveryToken) {
	c.Logger.Info().
		Uint16("message_id", token.MessageID).
		Strs("topics", token.Topics).
		Msg("Message delivered")
}
