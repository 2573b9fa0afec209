package mqtt

import "errors"

// Errors returned by MqttService. Every one of them has already been logged
// by the time a caller sees it; callers may inspect them with errors.Is but
// none is fatal except from Initialize.
var (
	// ErrNotInitialized is returned when an operation runs before Initialize built the client handle.
	ErrNotInitialized = errors.New("mqtt: client not initialized")

	// ErrAlreadyInitialized is returned when Initialize runs a second time.
	ErrAlreadyInitialized = errors.New("mqtt: client already initialized")

	// ErrAlreadyDisconnected is returned once the client has reached its terminal state.
	ErrAlreadyDisconnected = errors.New("mqtt: client already disconnected")

	// ErrConnectFailed wraps the broker error when connecting fails.
	ErrConnectFailed = errors.New("mqtt: connect failed")

	// ErrSubscribeRejected is returned when the broker refuses a filter in its SUBACK.
	ErrSubscribeRejected = errors.New("mqtt: subscription rejected by broker")

	// ErrPublishTimeout is returned when a publish is not confirmed within the configured timeout.
	ErrPublishTimeout = errors.New("mqtt: publish timed out")

	// ErrCACertificate is returned when the configured CA bundle cannot be used.
	ErrCACertificate = errors.New("mqtt: invalid CA certificate")
)
