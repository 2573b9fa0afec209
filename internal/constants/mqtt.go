package constants

import "time"

const (
	// DefaultConnectTimeout bounds a single connect attempt to the broker.
	DefaultConnectTimeout = 10 * time.Second

	// DefaultPublishTimeout bounds the wait for a publish to be confirmed.
	DefaultPublishTimeout = 30 * time.Second

	// DefaultDisconnectQuiesce is how long Disconnect waits for in-flight work.
	DefaultDisconnectQuiesce = 250 * time.Millisecond

	// DefaultTestPayload is published once to the publish topic after startup.
	DefaultTestPayload = "test"

	// DefaultLogLevel is used when no level is configured.
	DefaultLogLevel = "info"
)
