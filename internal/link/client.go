package link

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/agrisense/agrisense-core/internal/infrastructure/config"
)

// inboundBuffer is the capacity of the inbound message channel. When the
// dispatcher falls this far behind, further messages are dropped with a
// warning rather than blocking the transport goroutine.
const inboundBuffer = 256

// State represents the link's connection lifecycle.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

// String returns a human-readable state name for logging.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// Logger is the minimal logging interface this package needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(msg string, args ...any) {}
func (noopLogger) Info(msg string, args ...any)  {}
func (noopLogger) Warn(msg string, args ...any)  {}
func (noopLogger) Error(msg string, args ...any) {}

// Client manages the MQTT connection to the device fleet.
//
// All connection state transitions happen here. Inbound messages are
// enqueued onto a buffered channel and consumed elsewhere; no business
// logic runs on transport goroutines.
type Client struct {
	cfg    config.MQTTConfig
	topics Topics
	logger Logger

	client pahomqtt.Client

	inbound chan Message

	stateMu sync.RWMutex
	state   State

	// reconnectMu admits exactly one reconnect sequence at a time.
	reconnectMu sync.Mutex

	attemptMu sync.Mutex
	attempts  int

	activityMu   sync.Mutex
	lastActivity time.Time

	// taskCtx cancels the watchdog and any in-flight backoff sleep.
	taskMu     sync.Mutex
	taskCtx    context.Context
	taskCancel context.CancelFunc
	wg         sync.WaitGroup

	callbackMu sync.RWMutex
	onUp       func()
	onDown     func(err error)
}

// New creates a link client for the given MQTT configuration.
// The client is not connected until Connect is called.
func New(cfg config.MQTTConfig, logger Logger) *Client {
	if logger == nil {
		logger = noopLogger{}
	}

	c := &Client{
		cfg:          cfg,
		logger:       logger,
		inbound:      make(chan Message, inboundBuffer),
		state:        StateDisconnected,
		taskCtx:      context.Background(),
		lastActivity: time.Now(),
	}
	c.client = pahomqtt.NewClient(buildClientOptions(cfg, c))
	return c
}

// Connect establishes the broker connection, waiting up to the bounded
// confirmation window. A timed-out or rejected attempt increments the
// attempt counter and returns an error; it never blocks indefinitely.
func (c *Client) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.setState(StateConnecting)
	c.logger.Info("connecting to broker",
		"host", c.cfg.Broker.Host,
		"port", c.cfg.Broker.Port)

	token := c.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		c.bumpAttempts()
		c.setState(StateDisconnected)
		return ErrConnectionTimeout
	}
	if err := token.Error(); err != nil {
		c.bumpAttempts()
		c.setState(StateDisconnected)
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// handleConnect runs on the paho callback and completes the
	// subscription round; state and counters are settled here.
	c.setState(StateConnected)
	c.resetAttempts()
	c.markActivity()
	return nil
}

// Start launches the background keepalive watchdog. The watchdog stops when
// ctx is cancelled or Close is called.
func (c *Client) Start(ctx context.Context) {
	c.taskMu.Lock()
	c.taskCtx, c.taskCancel = context.WithCancel(ctx)
	taskCtx := c.taskCtx
	c.taskMu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.watchdog(taskCtx)
	}()
}

// Close shuts the link down in order: cancel the watchdog and any pending
// backoff sleep first, then disconnect the transport. This guarantees no
// reconnect fires against a deliberately closed link.
func (c *Client) Close() {
	c.taskMu.Lock()
	if c.taskCancel != nil {
		c.taskCancel()
	}
	c.taskMu.Unlock()
	c.wg.Wait()

	// Serialise with any reconnect sequence that was mid-attempt.
	c.reconnectMu.Lock()
	defer c.reconnectMu.Unlock()

	if c.client.IsConnected() {
		c.client.Disconnect(disconnectQuiesce)
	}
	c.setState(StateDisconnected)

	// Deliberate teardown bypasses the paho lost handler, so subscribers
	// are told about the link going down from here.
	c.callbackMu.RLock()
	onDown := c.onDown
	c.callbackMu.RUnlock()
	if onDown != nil {
		onDown(nil)
	}

	c.logger.Info("link closed")
}

// Inbound returns the channel of inbound fleet messages. A single consumer
// should drain it; the channel is never closed.
func (c *Client) Inbound() <-chan Message {
	return c.inbound
}

// State returns the current connection state.
func (c *Client) State() State {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// IsConnected reports whether the link is usable for publishing.
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected && c.client.IsConnected()
}

// Attempts returns the consecutive failed connection attempt count.
func (c *Client) Attempts() int {
	c.attemptMu.Lock()
	defer c.attemptMu.Unlock()
	return c.attempts
}

// SetOnUp registers a callback invoked after every successful connection,
// including reconnections. Used to re-announce device state.
func (c *Client) SetOnUp(fn func()) {
	c.callbackMu.Lock()
	defer c.callbackMu.Unlock()
	c.onUp = fn
}

// SetOnDown registers a callback invoked when the connection is lost.
func (c *Client) SetOnDown(fn func(err error)) {
	c.callbackMu.Lock()
	defer c.callbackMu.Unlock()
	c.onDown = fn
}

// handleConnect runs on every successful (re)connection. It subscribes the
// fixed topic set, announces liveness, and notifies the up-callback.
func (c *Client) handleConnect(_ pahomqtt.Client) {
	c.setState(StateConnected)
	c.resetAttempts()
	c.markActivity()

	if err := c.subscribeAll(); err != nil {
		c.logger.Error("post-connect subscribe failed", "error", err)
	}

	c.publishHello()

	c.logger.Info("link established", "broker", c.cfg.Broker.Host)

	c.callbackMu.RLock()
	onUp := c.onUp
	c.callbackMu.RUnlock()
	if onUp != nil {
		go onUp()
	}
}

// handleConnectionLost runs when an established connection drops
// unexpectedly. It flips state and hands recovery to the reconnect
// sequence; a deliberate Close never lands here.
func (c *Client) handleConnectionLost(_ pahomqtt.Client, err error) {
	c.setState(StateDisconnected)
	c.logger.Warn("link lost", "error", err)

	c.callbackMu.RLock()
	onDown := c.onDown
	c.callbackMu.RUnlock()
	if onDown != nil {
		go onDown(err)
	}

	c.taskMu.Lock()
	taskCtx := c.taskCtx
	c.taskMu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.reconnect(taskCtx)
	}()
}

// handleMessage is the single paho inbound handler. It copies the payload
// and enqueues; it never touches business state.
func (c *Client) handleMessage(_ pahomqtt.Client, msg pahomqtt.Message) {
	c.markActivity()

	payload := make([]byte, len(msg.Payload()))
	copy(payload, msg.Payload())

	m := Message{
		Topic:    msg.Topic(),
		Payload:  payload,
		Received: time.Now(),
	}

	select {
	case c.inbound <- m:
	default:
		c.logger.Warn("inbound queue full, dropping message", "topic", m.Topic)
	}
}

// subscribeAll subscribes the fixed fleet topic set. Called after every
// connection because clean sessions do not persist subscriptions.
func (c *Client) subscribeAll() error {
	subscriptions := []string{
		c.topics.AllDeviceControl(),
		c.topics.AllDeviceStatus(),
		c.topics.AllStatusRequests(),
		c.topics.SensorData(),
		c.topics.Test(),
	}

	qos := byte(c.cfg.QoS)
	for _, topic := range subscriptions {
		token := c.client.Subscribe(topic, qos, nil)
		if !token.WaitTimeout(subscribeTimeout) {
			return fmt.Errorf("%w: %s: timeout", ErrSubscribeFailed, topic)
		}
		if err := token.Error(); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrSubscribeFailed, topic, err)
		}
		c.logger.Debug("subscribed", "topic", topic)
	}
	return nil
}

// publishHello announces the core on the liveness topic.
func (c *Client) publishHello() {
	payload, err := json.Marshal(helloPayload{
		ClientID:  c.cfg.Broker.ClientID,
		Message:   "core online",
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		return
	}
	c.client.Publish(c.topics.Test(), byte(c.cfg.QoS), false, payload)
}

func (c *Client) setState(s State) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	if c.state != s {
		c.logger.Debug("link state", "from", c.state.String(), "to", s.String())
	}
	c.state = s
}

func (c *Client) bumpAttempts() {
	c.attemptMu.Lock()
	defer c.attemptMu.Unlock()
	c.attempts++
}

func (c *Client) resetAttempts() {
	c.attemptMu.Lock()
	defer c.attemptMu.Unlock()
	c.attempts = 0
}

// markActivity records traffic on the link. The keepalive watchdog uses
// this to detect half-open connections.
func (c *Client) markActivity() {
	c.activityMu.Lock()
	defer c.activityMu.Unlock()
	c.lastActivity = time.Now()
}

func (c *Client) sinceActivity() time.Duration {
	c.activityMu.Lock()
	defer c.activityMu.Unlock()
	return time.Since(c.lastActivity)
}
