package constants

import (
	"errors"
	"fmt"
)

// ErrInvalidQoS is returned when an integer does not name one of the three MQTT QoS levels.
var ErrInvalidQoS = errors.New("invalid qos level")

// QoS is the MQTT delivery guarantee for a message.
type QoS byte

const (
	// QoS0 delivers a message at most once.
	QoS0 QoS = 0
	// QoS1 delivers a message at least once.
	QoS1 QoS = 1
	// QoS2 delivers a message exactly once.
	QoS2 QoS = 2
)

// Value returns the wire-level integer for the QoS level.
func (q QoS) Value() byte {
	return byte(q)
}

// Valid reports whether q is one of QoS0, QoS1 or QoS2.
func (q QoS) Valid() bool {
	return q <= QoS2
}

func (q QoS) String() string {
	switch q {
	case QoS0:
		return "at-most-once"
	case QoS1:
		return "at-least-once"
	case QoS2:
		return "exactly-once"
	default:
		return fmt.Sprintf("qos(%d)", byte(q))
	}
}

// ParseQoS converts a configured or wire integer into a QoS level.
func ParseQoS(v int) (QoS, error) {
	if v < 0 || v > int(QoS2) {
		return 0, fmt.Errorf("%w: %d", ErrInvalidQoS, v)
	}
	return QoS(v), nil
}
