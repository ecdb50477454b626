package websocket

import (
	"bytes"
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"bikedash/internal/config"
	"bikedash/internal/infrastructure"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Maximum message size allowed from peer
	maxMessageSize = 512

	// Outbound messages buffered per client before it counts as slow
	sendBuffer = 64
)

var heartbeat = []byte(`{"type":"heartbeat"}`)

// Client is a middleman between the websocket connection and the hub
type Client struct {
	hub  *Hub
	conn Connection

	// Buffered channel of outbound messages; closed by the hub
	send chan []byte

	id          string
	traceID     string
	remoteAddr  string
	connectedAt time.Time

	pongWait   time.Duration
	pingPeriod time.Duration

	logger *slog.Logger

	messagesSent     atomic.Int64
	messagesReceived atomic.Int64
}

// NewClient creates a client for conn. Zero durations in cfg fall back to
// the package defaults.
func NewClient(hub *Hub, conn Connection, traceID string, cfg config.WebSocketConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	pongWait := cfg.PongWait
	if pongWait <= 0 {
		pongWait = config.WebSocketPongWait
	}
	pingPeriod := cfg.PingPeriod
	if pingPeriod <= 0 || pingPeriod >= pongWait {
		pingPeriod = pongWait * 9 / 10
	}

	id := uuid.NewString()
	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, sendBuffer),
		id:          id,
		traceID:     traceID,
		remoteAddr:  conn.RemoteAddr(),
		connectedAt: time.Now(),
		pongWait:    pongWait,
		pingPeriod:  pingPeriod,
		logger: logger.With(
			slog.String("component", "websocket.client"),
			slog.String("client_id", id),
			slog.String("trace_id", traceID),
		),
	}
}

// ID returns the client's identifier.
func (c *Client) ID() string {
	return c.id
}

func (c *Client) context() context.Context {
	ctx := context.Background()
	if c.traceID != "" {
		ctx = infrastructure.WithTraceID(ctx, c.traceID)
	}
	return ctx
}

// ReadPump reads until the connection fails, then unregisters the client.
// Pages only send heartbeats; anything else is ignored.
func (c *Client) ReadPump() {
	defer func() {
		c.logger.InfoContext(c.context(), "WebSocket client disconnected",
			slog.Duration("connection_duration", time.Since(c.connectedAt)),
			slog.Int64("messages_received", c.messagesReceived.Load()))
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.WarnContext(c.context(), "Unexpected WebSocket close",
					slog.String("error", err.Error()))
			}
			return
		}
		c.messagesReceived.Add(1)

		if bytes.Equal(bytes.TrimSpace(message), heartbeat) {
			c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
			c.logger.Debug("Heartbeat received")
		}
	}
}

// WritePump forwards queued messages to the connection and pings the peer.
// It returns when the hub closes the send channel or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.logger.DebugContext(c.context(), "WebSocket write pump stopped",
			slog.Int64("messages_sent", c.messagesSent.Load()))
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.ErrorContext(c.context(), "Error writing message to WebSocket",
					slog.String("error", err.Error()))
				return
			}
			c.messagesSent.Add(1)

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.DebugContext(c.context(), "Failed to send ping message",
					slog.String("error", err.Error()))
				return
			}
		}
	}
}
