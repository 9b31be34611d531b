package realtime

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/agrisense/agrisense-core/internal/infrastructure/config"
)

const (
	// sendBuffer is the per-subscriber outbound queue. A subscriber whose
	// queue fills is dropped rather than throttling the hub.
	sendBuffer = 32

	writeWait = 10 * time.Second
)

// Client is one connected WebSocket subscriber.
// The connection is push-only; inbound frames are read solely to service
// pings and detect closure.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	cfg    config.WebSocketConfig
	send   chan []byte
	logger Logger
}

// NewClient wraps an upgraded connection. Call Start to begin pumping.
func NewClient(hub *Hub, conn *websocket.Conn, cfg config.WebSocketConfig, logger Logger) *Client {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Client{
		hub:    hub,
		conn:   conn,
		cfg:    cfg,
		send:   make(chan []byte, sendBuffer),
		logger: logger,
	}
}

// Start registers the client and launches its read and write pumps.
func (c *Client) Start() {
	c.hub.Register(c)
	go c.writePump()
	go c.readPump()
}

// trySend offers a payload without blocking. Returns false when the
// subscriber's queue is full.
func (c *Client) trySend(payload []byte) bool {
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// readPump drains inbound frames. Subscribers have nothing to say; the
// read loop exists to process pongs and observe closure.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	pongTimeout := time.Duration(c.cfg.PongTimeout) * time.Second
	c.conn.SetReadLimit(int64(c.cfg.MaxMessageSize))
	c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("subscriber read error", "error", err)
			}
			return
		}
	}
}

// writePump serialises all writes to the connection: queued events plus
// periodic pings. A closed send channel means the hub dropped us.
func (c *Client) writePump() {
	pingInterval := time.Duration(c.cfg.PingInterval) * time.Second
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
