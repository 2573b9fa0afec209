package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benmeehan/mqclient/internal/constants"
	"github.com/benmeehan/mqclient/internal/models"
	"github.com/benmeehan/mqclient/internal/utils"
	"github.com/benmeehan/mqclient/pkg/file"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/rs/zerolog"
)

// MQTTClient defines the subset of the Paho client used by MqttService.
type MQTTClient interface {
	Connect() mqtt.Token
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Unsubscribe(topics ...string) mqtt.Token
	Disconnect(quiesce uint)
}

// ClientFactory builds the underlying client handle from finished options.
type ClientFactory func(opts *mqtt.ClientOptions) MQTTClient

// NewPahoClient is the default ClientFactory.
func NewPahoClient(opts *mqtt.ClientOptions) MQTTClient {
	return mqtt.NewClient(opts)
}

// State is the lifecycle position of an MqttService.
type State int32

const (
	StateUnconnected State = iota
	StateConnected
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateUnconnected:
		return "unconnected"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Option customises an MqttService.
type Option func(*MqttService)

// WithClientFactory replaces the Paho constructor, mainly for tests.
func WithClientFactory(f ClientFactory) Option {
	return func(s *MqttService) {
		s.newClient = f
	}
}

// MqttService owns one MQTT client handle and exposes pass-through operations
// that log their outcome. Errors are returned for inspection but are never
// fatal, except from Initialize.
type MqttService struct {
	cfg        utils.MQTTConfig
	fileClient file.FileOperations
	handler    EventHandler
	newClient  ClientFactory
	logger     zerolog.Logger

	// clientMu guards the handle pointer only; calls into the handle rely on
	// Paho's own thread safety.
	clientMu sync.RWMutex
	client   MQTTClient
	opts     *mqtt.ClientOptions

	state         atomic.Int32
	connectedOnce atomic.Bool

	// subscriptions maps topic filter to QoS for every active subscription.
	subscriptions cmap.ConcurrentMap[string, constants.QoS]
}

// NewMqttService creates a new MqttService instance.
func NewMqttService(cfg utils.MQTTConfig, fileClient file.FileOperations, handler EventHandler,
	logger zerolog.Logger, options ...Option) *MqttService {

	s := &MqttService{
		cfg:           cfg,
		fileClient:    fileClient,
		handler:       handler,
		newClient:     NewPahoClient,
		logger:        logger,
		subscriptions: cmap.New[constants.QoS](),
	}
	for _, o := range options {
		o(s)
	}
	return s
}

// Initialize builds the client handle, connects, subscribes to the configured
// topic and publishes one test message. Only a failure to build the handle is
// returned; connect, subscribe and publish failures are logged and startup
// continues.
func (s *MqttService) Initialize() error {
	if s.options() != nil {
		return ErrAlreadyInitialized
	}

	if err := s.cfg.Validate(); err != nil {
		s.logger.Error().Err(err).Str("broker", s.cfg.BrokerURL).Str("client_id", s.cfg.ClientID).
			Msg("Failed to initialize MQTT client")
		return fmt.Errorf("failed to initialize MQTT client: %w", err)
	}

	opts, err := s.buildOptions()
	if err != nil {
		s.logger.Error().Err(err).Str("broker", s.cfg.BrokerURL).Str("client_id", s.cfg.ClientID).
			Msg("Failed to initialize MQTT client")
		return fmt.Errorf("failed to initialize MQTT client: %w", err)
	}

	s.clientMu.Lock()
	s.opts = opts
	s.clientMu.Unlock()

	_ = s.Connect(s.cfg.Username, s.cfg.Password)
	_ = s.Subscribe(s.cfg.SubTopic, constants.QoS1)
	_ = s.Publish(s.cfg.PubTopic, s.cfg.TestPayload, constants.QoS1, false)

	return nil
}

// buildOptions binds the handle to the broker and client ID with an
// in-memory session store and, when configured, a TLS root pool.
func (s *MqttService) buildOptions() (*mqtt.ClientOptions, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(s.cfg.BrokerURL)
	opts.SetClientID(s.cfg.ClientID)
	opts.SetStore(mqtt.NewMemoryStore())

	if s.cfg.CACertificate != "" {
		caCert, err := s.fileClient.ReadFileRaw(s.cfg.CACertificate)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read %s: %w", ErrCACertificate, s.cfg.CACertificate, err)
		}

		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("%w: no certificates found in %s", ErrCACertificate, s.cfg.CACertificate)
		}
		opts.SetTLSConfig(&tls.Config{
			RootCAs:    caCertPool,
			MinVersion: tls.VersionTLS12,
		})
	}

	return opts, nil
}

// Connect connects to the broker with the given credentials. The event
// handlers are registered before the connection is opened. On failure it
// makes exactly one immediate reconnect attempt and logs a single error.
func (s *MqttService) Connect(username, password string) error {
	opts := s.options()
	if opts == nil {
		s.logger.Error().Err(ErrNotInitialized).Msg("Failed to connect to MQTT broker")
		return ErrNotInitialized
	}
	if s.State() == StateDisconnected {
		s.logger.Error().Err(ErrAlreadyDisconnected).Msg("Failed to connect to MQTT broker")
		return ErrAlreadyDisconnected
	}

	timeout := s.cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = constants.DefaultConnectTimeout
	}

	opts.SetUsername(username)
	opts.SetPassword(password)
	opts.SetAutoReconnect(s.cfg.AutoReconnect)
	opts.SetConnectTimeout(timeout)
	opts.SetAutoAckDisabled(true)
	s.registerHandlers(opts)

	s.clientMu.Lock()
	if s.client != nil && s.client.IsConnected() {
		s.client.Disconnect(s.quiesce())
	}
	client := s.newClient(opts)
	s.client = client
	s.clientMu.Unlock()

	token := client.Connect()
	token.Wait()
	err := token.Error()
	if err == nil {
		s.state.CompareAndSwap(int32(StateUnconnected), int32(StateConnected))
		return nil
	}

	reconnectErr := s.reconnect()
	if reconnectErr == nil {
		s.logger.Warn().Err(err).Str("broker", s.cfg.BrokerURL).
			Msg("Initial connect to MQTT broker failed, immediate reconnect succeeded")
		return nil
	}

	s.logger.Error().Err(err).AnErr("reconnect_error", reconnectErr).
		Str("broker", s.cfg.BrokerURL).Str("client_id", s.cfg.ClientID).
		Msg("Failed to connect to MQTT broker")
	return fmt.Errorf("%w: %w", ErrConnectFailed, err)
}

// registerHandlers wires Paho's connection callbacks to the EventHandler.
func (s *MqttService) registerHandlers(opts *mqtt.ClientOptions) {
	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		reconnect := s.connectedOnce.Swap(true)
		s.state.CompareAndSwap(int32(StateUnconnected), int32(StateConnected))
		s.handler.ConnectComplete(reconnect, s.cfg.BrokerURL)
		if reconnect {
			s.restoreSubscriptions()
		}
	})

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		s.handler.ConnectionLost(err)
		if !s.cfg.AutoReconnect && s.State() != StateDisconnected {
			// Without auto-reconnect nothing else would bring the link back.
			_ = s.Reconnect()
		}
	})

	opts.SetReconnectingHandler(func(_ mqtt.Client, _ *mqtt.ClientOptions) {
		s.logger.Info().Str("broker", s.cfg.BrokerURL).Msg("Reconnecting to MQTT broker")
	})

	// Paho routes here once a filter's route is gone, which happens as soon
	// as Unsubscribe is queued.
	opts.SetDefaultPublishHandler(func(_ mqtt.Client, msg mqtt.Message) {
		if !s.hasMatchingSubscription(msg.Topic()) {
			s.logger.Debug().Str("topic", msg.Topic()).Msg("Dropping message with no active subscription")
			msg.Ack()
			return
		}
		s.deliver(msg)
	})
}

// Disconnect gracefully disconnects the client. The client is unusable
// afterwards; a second call logs and returns ErrAlreadyDisconnected.
func (s *MqttService) Disconnect() error {
	prev := State(s.state.Swap(int32(StateDisconnected)))
	if prev == StateDisconnected {
		s.logger.Error().Err(ErrAlreadyDisconnected).Msg("Failed to disconnect from MQTT broker")
		return ErrAlreadyDisconnected
	}

	client := s.handle()
	if client == nil {
		s.logger.Debug().Msg("MQTT client was never created, nothing to disconnect")
		return nil
	}

	client.Disconnect(s.quiesce())
	s.logger.Info().Str("broker", s.cfg.BrokerURL).Msg("Disconnected from MQTT broker")
	return nil
}

// Reconnect makes one attempt to re-establish the connection. It never loops.
func (s *MqttService) Reconnect() error {
	if s.State() == StateDisconnected {
		s.logger.Error().Err(ErrAlreadyDisconnected).Msg("Failed to reconnect to MQTT broker")
		return ErrAlreadyDisconnected
	}

	if err := s.reconnect(); err != nil {
		s.logger.Error().Err(err).Str("broker", s.cfg.BrokerURL).Msg("Failed to reconnect to MQTT broker")
		return err
	}
	return nil
}

// reconnect re-runs the underlying connect primitive without logging.
func (s *MqttService) reconnect() error {
	client := s.handle()
	if client == nil {
		return ErrNotInitialized
	}

	token := client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return err
	}

	s.state.CompareAndSwap(int32(StateUnconnected), int32(StateConnected))
	return nil
}

// Publish sends msg to topic and waits for the delivery to complete, for at
// most the configured publish timeout (no bound when it is zero). On success
// the delivery-complete event fires exactly once. A timed-out message stays
// queued in Paho and may still be delivered later.
func (s *MqttService) Publish(topic, msg string, qos constants.QoS, retain bool) error {
	logFailure := func(err error) error {
		s.logger.Error().Err(err).Str("topic", topic).Str("payload", msg).
			Uint8("qos", qos.Value()).Bool("retain", retain).Msg("Failed to publish message")
		return err
	}

	if !qos.Valid() {
		return logFailure(fmt.Errorf("%w: %d", constants.ErrInvalidQoS, qos.Value()))
	}
	client := s.handle()
	if client == nil {
		return logFailure(ErrNotInitialized)
	}

	token := client.Publish(topic, qos.Value(), retain, []byte(msg))
	if timeout := s.cfg.PublishTimeout; timeout > 0 {
		if !token.WaitTimeout(timeout) {
			return logFailure(fmt.Errorf("%w: topic %s after %v", ErrPublishTimeout, topic, timeout))
		}
	} else {
		token.Wait()
	}
	if err := token.Error(); err != nil {
		return logFailure(fmt.Errorf("failed to publish to topic %s: %w", topic, err))
	}

	delivery := models.DeliveryToken{MessageID: messageID(token), Topics: []string{topic}}
	s.logger.Info().Str("topic", topic).Uint16("message_id", delivery.MessageID).
		Uint8("qos", qos.Value()).Bool("retain", retain).Msg("Message published")
	s.handler.DeliveryComplete(delivery)
	return nil
}

// messageID extracts the packet identifier from a publish token when the
// token exposes one.
func messageID(token mqtt.Token) uint16 {
	if t, ok := token.(interface{ MessageID() uint16 }); ok {
		return t.MessageID()
	}
	return 0
}

// Subscribe subscribes to topic at qos and records the subscription so it is
// restored after a reconnect.
func (s *MqttService) Subscribe(topic string, qos constants.QoS) error {
	if err := s.subscribe(topic, qos); err != nil {
		s.logger.Error().Err(err).Str("topic", topic).Uint8("qos", qos.Value()).Msg("Failed to subscribe to topic")
		return err
	}

	s.logger.Info().Str("topic", topic).Uint8("qos", qos.Value()).Msg("Subscribed to topic")
	return nil
}

func (s *MqttService) subscribe(topic string, qos constants.QoS) error {
	if !qos.Valid() {
		return fmt.Errorf("%w: %d", constants.ErrInvalidQoS, qos.Value())
	}
	client := s.handle()
	if client == nil {
		return ErrNotInitialized
	}

	// Register first so the handler accepts messages that arrive before the
	// SUBACK is processed. A failure puts back whatever was recorded before.
	prev, hadPrev := s.subscriptions.Get(topic)
	s.subscriptions.Set(topic, qos)
	rollback := func() {
		if hadPrev {
			s.subscriptions.Set(topic, prev)
			return
		}
		s.subscriptions.Remove(topic)
	}

	token := client.Subscribe(topic, qos.Value(), s.routeHandler(topic))
	token.Wait()
	if err := token.Error(); err != nil {
		rollback()
		return fmt.Errorf("failed to subscribe to topic %s: %w", topic, err)
	}
	if code, rejected := subackFailure(token, topic); rejected {
		rollback()
		return fmt.Errorf("%w: topic %s, return code 0x%02x", ErrSubscribeRejected, topic, code)
	}
	return nil
}

// subackFailure reports whether the broker refused topic in its SUBACK.
// Paho leaves Error() nil in that case and only exposes the return code.
func subackFailure(token mqtt.Token, topic string) (byte, bool) {
	t, ok := token.(interface{ Result() map[string]byte })
	if !ok {
		return 0, false
	}
	code, ok := t.Result()[topic]
	return code, ok && code >= 0x80
}

// Unsubscribe cancels the subscription to topic. No further messages for it
// reach the event handler until it is subscribed again.
func (s *MqttService) Unsubscribe(topic string) error {
	client := s.handle()
	if client == nil {
		s.logger.Error().Err(ErrNotInitialized).Str("topic", topic).Msg("Failed to unsubscribe from topic")
		return ErrNotInitialized
	}

	s.subscriptions.Remove(topic)
	token := client.Unsubscribe(topic)
	token.Wait()
	if err := token.Error(); err != nil {
		s.logger.Error().Err(err).Str("topic", topic).Msg("Failed to unsubscribe from topic")
		return fmt.Errorf("failed to unsubscribe from topic %s: %w", topic, err)
	}

	s.logger.Info().Str("topic", topic).Msg("Unsubscribed from topic")
	return nil
}

// routeHandler returns the Paho handler for one subscription. Messages that
// arrive after the filter was unsubscribed are acknowledged and dropped.
func (s *MqttService) routeHandler(filter string) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		if !s.subscriptions.Has(filter) {
			s.logger.Debug().Str("filter", filter).Str("topic", msg.Topic()).
				Msg("Dropping message for inactive subscription")
			msg.Ack()
			return
		}
		s.deliver(msg)
	}
}

// deliver hands msg to the event handler and acknowledges it only once the
// handler has returned without error.
func (s *MqttService) deliver(msg mqtt.Message) {
	arrived := models.ArrivedMessage{
		Topic:     msg.Topic(),
		MessageID: msg.MessageID(),
		QoS:       msg.Qos(),
		Retained:  msg.Retained(),
		Duplicate: msg.Duplicate(),
		Payload:   msg.Payload(),
	}

	if err := s.handler.MessageArrived(msg.Topic(), arrived); err != nil {
		s.logger.Error().Err(err).Str("topic", msg.Topic()).Uint16("message_id", msg.MessageID()).
			Uint8("qos", msg.Qos()).Msg("Message handler failed, message not acknowledged")
		return
	}
	msg.Ack()
}

// restoreSubscriptions re-subscribes every recorded filter after a reconnect.
// A filter that fails stays recorded so the next reconnect retries it.
func (s *MqttService) restoreSubscriptions() {
	for item := range s.subscriptions.IterBuffered() {
		if err := s.subscribe(item.Key, item.Val); err != nil {
			s.logger.Error().Err(err).Str("topic", item.Key).Msg("Failed to restore subscription")
			continue
		}
		s.logger.Debug().Str("topic", item.Key).Msg("Subscription restored")
	}
}

// hasMatchingSubscription reports whether any active filter matches topic.
func (s *MqttService) hasMatchingSubscription(topic string) bool {
	for item := range s.subscriptions.IterBuffered() {
		if topicMatches(item.Key, topic) {
			return true
		}
	}
	return false
}

// Subscriptions returns a snapshot of the active subscriptions.
func (s *MqttService) Subscriptions() map[string]constants.QoS {
	return s.subscriptions.Items()
}

// State returns the current lifecycle state.
func (s *MqttService) State() State {
	return State(s.state.Load())
}

// IsConnected reports whether the underlying handle currently has a live connection.
func (s *MqttService) IsConnected() bool {
	client := s.handle()
	return client != nil && client.IsConnected()
}

func (s *MqttService) handle() MQTTClient {
	s.clientMu.RLock()
	defer s.clientMu.RUnlock()
	return s.client
}

func (s *MqttService) options() *mqtt.ClientOptions {
	s.clientMu.RLock()
	defer s.clientMu.RUnlock()
	return s.opts
}

func (s *MqttService) quiesce() uint {
	q := s.cfg.DisconnectQuiesce
	if q <= 0 {
		q = constants.DefaultDisconnectQuiesce
	}
	return uint(q / time.Millisecond)
}
