package utils

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/benmeehan/mqclient/internal/constants"
	"github.com/benmeehan/mqclient/pkg/file"
	"github.com/spf13/pflag"
)

// ErrInvalidConfig is wrapped by every configuration validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// MQTTConfig holds the broker connection settings bound under the "mqtt" key.
type MQTTConfig struct {
	BrokerURL string `yaml:"broker_url"` // Broker address, e.g. tcp://host:1883
	Username  string `yaml:"username"`   // Broker username
	Password  string `yaml:"password"`   // Broker password
	ClientID  string `yaml:"client_id"`  // Client identifier, unique per broker
	PubTopic  string `yaml:"pub_topic"`  // Topic the startup test message is published to
	SubTopic  string `yaml:"sub_topic"`  // Topic subscribed to at startup

	ConnectTimeout    time.Duration `yaml:"connect_timeout"`    // Timeout for a single connect attempt
	PublishTimeout    time.Duration `yaml:"publish_timeout"`    // Wait for publish confirmation; 0 waits forever
	DisconnectQuiesce time.Duration `yaml:"disconnect_quiesce"` // Grace period for in-flight work on disconnect
	AutoReconnect     bool          `yaml:"auto_reconnect"`     // Let the client reconnect after a lost connection
	UniqueClientID    bool          `yaml:"unique_client_id"`   // Append a UUID to ClientID at startup
	CACertificate     string        `yaml:"ca_certificate"`     // Optional path to a PEM CA bundle for TLS
	TestPayload       string        `yaml:"test_payload"`       // Payload of the startup test message
}

// Config represents the structure of the configuration file.
type Config struct {
	MQTT MQTTConfig `yaml:"mqtt"`

	Logging struct {
		Level  string `yaml:"level"`  // debug, info, warn, error
		Format string `yaml:"format"` // json or console
	} `yaml:"logging"`
}

// DefaultConfig returns a Config with every optional setting filled in.
func DefaultConfig() *Config {
	cfg := &Config{
		MQTT: MQTTConfig{
			ConnectTimeout:    constants.DefaultConnectTimeout,
			PublishTimeout:    constants.DefaultPublishTimeout,
			DisconnectQuiesce: constants.DefaultDisconnectQuiesce,
			AutoReconnect:     true,
			TestPayload:       constants.DefaultTestPayload,
		},
	}
	cfg.Logging.Level = constants.DefaultLogLevel
	cfg.Logging.Format = "json"
	return cfg
}

// LoadConfig loads the YAML configuration from the specified file on top of
// DefaultConfig. A missing file is not an error; the defaults are returned
// so environment variables and flags can supply the rest.
func LoadConfig(filename string, fileClient file.FileOperations) (*Config, error) {
	config := DefaultConfig()
	if filename == "" {
		return config, nil
	}

	exists, err := fileClient.IsFileExists(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file %s: %w", filename, err)
	}
	if !exists {
		return config, nil
	}

	if err := fileClient.ReadYamlFile(filename, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}

	return config, nil
}

// envBindings maps environment variables to the setting they override.
var envBindings = []struct {
	key   string
	field func(c *Config) *string
}{
	{"MQTT_BROKER_URL", func(c *Config) *string { return &c.MQTT.BrokerURL }},
	{"MQTT_USERNAME", func(c *Config) *string { return &c.MQTT.Username }},
	{"MQTT_PASSWORD", func(c *Config) *string { return &c.MQTT.Password }},
	{"MQTT_CLIENT_ID", func(c *Config) *string { return &c.MQTT.ClientID }},
	{"MQTT_PUB_TOPIC", func(c *Config) *string { return &c.MQTT.PubTopic }},
	{"MQTT_SUB_TOPIC", func(c *Config) *string { return &c.MQTT.SubTopic }},
	{"MQTT_CA_CERTIFICATE", func(c *Config) *string { return &c.MQTT.CACertificate }},
	{"LOG_LEVEL", func(c *Config) *string { return &c.Logging.Level }},
}

// ApplyEnv overrides settings from the process environment.
func (c *Config) ApplyEnv() {
	c.applyEnv(os.Getenv)
}

func (c *Config) applyEnv(getenv func(string) string) {
	for _, b := range envBindings {
		if v := getenv(b.key); v != "" {
			*b.field(c) = v
		}
	}
}

// FlagOverrides holds command-line values that take precedence over the
// configuration file and environment.
type FlagOverrides struct {
	fs *pflag.FlagSet

	brokerURL string
	username  string
	password  string
	clientID  string
	pubTopic  string
	subTopic  string
	logLevel  string
	logFormat string
}

// RegisterFlags binds the override flags to fs. Call Apply after fs.Parse.
func RegisterFlags(fs *pflag.FlagSet) *FlagOverrides {
	o := &FlagOverrides{fs: fs}
	fs.StringVar(&o.brokerURL, "broker-url", "", "MQTT broker URL")
	fs.StringVar(&o.username, "username", "", "MQTT username")
	fs.StringVar(&o.password, "password", "", "MQTT password")
	fs.StringVar(&o.clientID, "client-id", "", "MQTT client ID")
	fs.StringVar(&o.pubTopic, "pub-topic", "", "Topic for the startup test message")
	fs.StringVar(&o.subTopic, "sub-topic", "", "Topic subscribed to at startup")
	fs.StringVar(&o.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&o.logFormat, "log-format", "", "Log format (json, console)")
	return o
}

// Apply copies every flag that was explicitly set onto cfg.
func (o *FlagOverrides) Apply(cfg *Config) {
	set := func(name, value string, dst *string) {
		if o.fs.Changed(name) {
			*dst = value
		}
	}
	set("broker-url", o.brokerURL, &cfg.MQTT.BrokerURL)
	set("username", o.username, &cfg.MQTT.Username)
	set("password", o.password, &cfg.MQTT.Password)
	set("client-id", o.clientID, &cfg.MQTT.ClientID)
	set("pub-topic", o.pubTopic, &cfg.MQTT.PubTopic)
	set("sub-topic", o.subTopic, &cfg.MQTT.SubTopic)
	set("log-level", o.logLevel, &cfg.Logging.Level)
	set("log-format", o.logFormat, &cfg.Logging.Format)
}

// Validate checks that every required MQTT setting is present.
// All missing fields are reported together.
func (m MQTTConfig) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"broker_url", m.BrokerURL},
		{"username", m.Username},
		{"password", m.Password},
		{"client_id", m.ClientID},
		{"pub_topic", m.PubTopic},
		{"sub_topic", m.SubTopic},
	}

	var errs []error
	for _, r := range required {
		if r.value == "" {
			errs = append(errs, fmt.Errorf("%w: mqtt.%s is required", ErrInvalidConfig, r.name))
		}
	}
	return errors.Join(errs...)
}
