package callback

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/benmeehan/mqclient/internal/models"
	"github.com/benmeehan/mqclient/pkg/mqtt"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ mqtt.EventHandler = (*LoggingCallback)(nil)

// logEntries decodes every JSON line written to buf.
func logEntries(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	scanner := bufio.NewScanner(buf)
	for scanner.Scan() {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestLoggingCallback_ConnectComplete(t *testing.T) {
	var buf bytes.Buffer
	cb := NewLoggingCallback(zerolog.New(&buf))

	cb.ConnectComplete(false, "tcp://broker:1883")
	cb.ConnectComplete(true, "tcp://broker:1883")

	entries := logEntries(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "Connected to MQTT broker", entries[0]["message"])
	assert.Equal(t, "Reconnected to MQTT broker", entries[1]["message"])
	assert.Equal(t, "tcp://broker:1883", entries[1]["server"])
}

func TestLoggingCallback_ConnectionLost(t *testing.T) {
	var buf bytes.Buffer
	cb := NewLoggingCallback(zerolog.New(&buf))

	cb.ConnectionLost(errors.New("EOF"))

	entries := logEntries(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "warn", entries[0]["level"])
	assert.Equal(t, "EOF", entries[0]["error"])
}

func TestLoggingCallback_MessageArrived(t *testing.T) {
	var buf bytes.Buffer
	cb := NewLoggingCallback(zerolog.New(&buf))

	err := cb.MessageArrived("sensors/temp", models.ArrivedMessage{
		Topic:     "sensors/temp",
		MessageID: 42,
		QoS:       1,
		Payload:   []byte("21.5"),
	})
	assert.NoError(t, err)

	entries := logEntries(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "sensors/temp", entries[0]["topic"])
	assert.Equal(t, float64(42), entries[0]["message_id"])
	assert.Equal(t, float64(1), entries[0]["qos"])
	assert.Equal(t, "21.5", entries[0]["payload"])
}

func TestLoggingCallback_DeliveryComplete(t *testing.T) {
	var buf bytes.Buffer
	cb := NewLoggingCallback(zerolog.New(&buf))

	cb.DeliveryComplete(models.DeliveryToken{MessageID: 7, Topics: []string{"out/a"}})

	entries := logEntries(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, float64(7), entries[0]["message_id"])
	assert.Equal(t, []any{"out/a"}, entries[0]["topics"])
}
