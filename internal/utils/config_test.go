package utils

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/benmeehan/mqclient/pkg/file"
	"github.com/benmeehan/mqclient/tests/mocks"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
mqtt:
  broker_url: tcp://broker.local:1883
  username: agent
  password: s3cret
  client_id: agent-01
  pub_topic: agent/out
  sub_topic: agent/in
  connect_timeout: 5s
  publish_timeout: 2s
  auto_reconnect: false
logging:
  level: debug
`

func TestLoadConfig_YAMLOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0600))

	cfg, err := LoadConfig(path, file.NewFileService())
	require.NoError(t, err)

	assert.Equal(t, "tcp://broker.local:1883", cfg.MQTT.BrokerURL)
	assert.Equal(t, "agent", cfg.MQTT.Username)
	assert.Equal(t, "s3cret", cfg.MQTT.Password)
	assert.Equal(t, "agent-01", cfg.MQTT.ClientID)
	assert.Equal(t, "agent/out", cfg.MQTT.PubTopic)
	assert.Equal(t, "agent/in", cfg.MQTT.SubTopic)
	assert.Equal(t, 5*time.Second, cfg.MQTT.ConnectTimeout)
	assert.Equal(t, 2*time.Second, cfg.MQTT.PublishTimeout)
	assert.False(t, cfg.MQTT.AutoReconnect)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Untouched keys keep their defaults.
	assert.Equal(t, "test", cfg.MQTT.TestPayload)
	assert.Equal(t, 250*time.Millisecond, cfg.MQTT.DisconnectQuiesce)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.NoError(t, cfg.MQTT.Validate())
}

func TestLoadConfig_MissingFileReturnsDefaults(t *testing.T) {
	fileClient := new(mocks.MockFileOperations)
	fileClient.On("IsFileExists", "configs/config.yaml").Return(false, nil)

	cfg, err := LoadConfig("configs/config.yaml", fileClient)

	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	fileClient.AssertNotCalled(t, "ReadYamlFile", mock.Anything, mock.Anything)
}

func TestLoadConfig_ParseError(t *testing.T) {
	fileClient := new(mocks.MockFileOperations)
	fileClient.On("IsFileExists", "bad.yaml").Return(true, nil)
	fileClient.On("ReadYamlFile", "bad.yaml", mock.Anything).Return(errors.New("yaml: line 2: mapping values are not allowed"))

	_, err := LoadConfig("bad.yaml", fileClient)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "bad.yaml")
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("", new(mocks.MockFileOperations))

	require.NoError(t, err)
	assert.True(t, cfg.MQTT.AutoReconnect)
	assert.Equal(t, 10*time.Second, cfg.MQTT.ConnectTimeout)
	assert.Equal(t, 30*time.Second, cfg.MQTT.PublishTimeout)
}

func TestConfig_ApplyEnv(t *testing.T) {
	env := map[string]string{
		"MQTT_BROKER_URL": "ssl://env:8883",
		"MQTT_CLIENT_ID":  "from-env",
		"LOG_LEVEL":       "warn",
	}
	cfg := DefaultConfig()
	cfg.MQTT.ClientID = "from-file"
	cfg.MQTT.Username = "file-user"

	cfg.applyEnv(func(k string) string { return env[k] })

	assert.Equal(t, "ssl://env:8883", cfg.MQTT.BrokerURL)
	assert.Equal(t, "from-env", cfg.MQTT.ClientID)
	assert.Equal(t, "file-user", cfg.MQTT.Username)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestFlagOverrides_OnlyChangedFlagsApply(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	overrides := RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--broker-url", "tcp://flag:1883", "--log-format", "console"}))

	cfg := DefaultConfig()
	cfg.MQTT.Username = "keep-me"
	overrides.Apply(cfg)

	assert.Equal(t, "tcp://flag:1883", cfg.MQTT.BrokerURL)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, "keep-me", cfg.MQTT.Username)
}

func TestMQTTConfig_Validate(t *testing.T) {
	err := DefaultConfig().MQTT.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	for _, field := range []string{"broker_url", "username", "password", "client_id", "pub_topic", "sub_topic"} {
		assert.Contains(t, err.Error(), field)
	}

	cfg := DefaultConfig().MQTT
	cfg.BrokerURL = "tcp://b:1883"
	cfg.Username = "u"
	cfg.Password = "p"
	cfg.ClientID = "c"
	cfg.PubTopic = "out"
	cfg.SubTopic = "in"
	assert.NoError(t, cfg.Validate())

	cfg.BrokerURL = ""
	err = cfg.Validate()
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "broker_url")
	assert.NotContains(t, err.Error(), "client_id")
}
