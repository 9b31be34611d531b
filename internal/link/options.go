package link

import (
	"crypto/tls"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/agrisense/agrisense-core/internal/infrastructure/config"
)

const (
	// connectTimeout bounds how long a single connection attempt waits for
	// broker confirmation before it is abandoned.
	connectTimeout = 30 * time.Second

	// publishTimeout bounds how long a publish waits for transport
	// acknowledgement before it is reported as failed.
	publishTimeout = 5 * time.Second

	// subscribeTimeout bounds the post-connect subscription round.
	subscribeTimeout = 10 * time.Second

	// disconnectQuiesce gives in-flight messages a chance to drain on an
	// orderly shutdown (milliseconds, paho convention).
	disconnectQuiesce = 250

	// transportKeepalive is the MQTT-protocol keepalive. The application
	// watchdog in keepalive.go is layered on top of it.
	transportKeepalive = 60 * time.Second
)

// buildClientOptions translates our configuration into paho client options.
//
// Automatic reconnection is deliberately disabled: the backoff policy and
// the single-sequence guarantee are owned by this package (reconnect.go),
// not by the transport library.
func buildClientOptions(cfg config.MQTTConfig, c *Client) *pahomqtt.ClientOptions {
	scheme := "tcp"
	if cfg.Broker.TLS {
		scheme = "ssl"
	}
	brokerURL := fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port)

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(randomClientID(cfg.Broker.ClientID))
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	opts.SetKeepAlive(transportKeepalive)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetOrderMatters(true)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}

	if cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	opts.SetOnConnectHandler(c.handleConnect)
	opts.SetConnectionLostHandler(c.handleConnectionLost)
	opts.SetDefaultPublishHandler(c.handleMessage)

	return opts
}

// randomClientID suffixes the configured client ID so that a restarted core
// never collides with a stale session the broker still holds.
func randomClientID(base string) string {
	if base == "" {
		base = "agrisense-core"
	}
	return fmt.Sprintf("%s-%s", base, uuid.NewString()[:8])
}
