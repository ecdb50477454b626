package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"bikedash/internal/infrastructure"
	"bikedash/pkg/contracts/events"
)

const broadcastBuffer = 64

// ConnectMessage greets a page once it is registered.
const ConnectMessage = "Terhubung ke dashboard"

// HubStats is a snapshot of the hub counters.
type HubStats struct {
	Clients          int   `json:"clients"`
	TotalConnections int64 `json:"total_connections"`
	MessagesSent     int64 `json:"messages_sent"`
	SlowClients      int64 `json:"slow_clients"`
}

// Hub maintains the set of active clients and broadcasts dataset events to
// them. It implements services.Publisher and services.ClientCounter.
type Hub struct {
	clients map[*Client]bool

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	stats   HubStats
	running bool

	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	metrics *infrastructure.DashboardMetrics
	logger  *slog.Logger
}

// NewHub creates a hub. metrics may be nil.
func NewHub(metrics *infrastructure.DashboardMetrics, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		metrics:    metrics,
		logger:     logger.With(slog.String("component", "websocket.hub")),
	}
}

// Start runs the hub loop in a goroutine. Calling it twice is a no-op.
func (h *Hub) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return
	}
	h.running = true
	go h.run()
}

func (h *Hub) run() {
	defer close(h.done)
	for {
		select {
		case <-h.quit:
			h.logger.Info("Hub shutting down")
			return

		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case message := <-h.broadcast:
			h.fanOut(message)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	ctx := client.context()

	h.mu.Lock()
	h.clients[client] = true
	h.stats.TotalConnections++
	count := len(h.clients)
	h.mu.Unlock()

	h.metrics.RecordWebSocketClients(ctx, 1)
	h.logger.InfoContext(ctx, "Client registered",
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.String("remote_addr", client.remoteAddr))

	msg := events.NewMessage(events.MessageTypeConnect, events.ConnectEvent{
		ClientID: client.id,
		Message:  ConnectMessage,
	})
	msg.TraceID = client.traceID
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to encode connect message", slog.String("error", err.Error()))
		return
	}
	select {
	case client.send <- data:
	default:
		h.logger.WarnContext(ctx, "Failed to send connect message - client buffer full",
			slog.String("client_id", client.id))
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	close(client.send)
	count := len(h.clients)
	h.mu.Unlock()

	ctx := client.context()
	h.metrics.RecordWebSocketClients(ctx, -1)
	h.logger.InfoContext(ctx, "Client unregistered",
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.Duration("connection_duration", time.Since(client.connectedAt)))
}

// fanOut queues message for every client. A client whose buffer is full is
// disconnected rather than allowed to stall the others.
func (h *Hub) fanOut(message []byte) {
	var slow []*Client

	h.mu.Lock()
	for client := range h.clients {
		select {
		case client.send <- message:
			h.stats.MessagesSent++
		default:
			close(client.send)
			delete(h.clients, client)
			h.stats.SlowClients++
			slow = append(slow, client)
		}
	}
	h.mu.Unlock()

	for _, client := range slow {
		ctx := client.context()
		h.metrics.RecordWebSocketClients(ctx, -1)
		h.logger.WarnContext(ctx, "Dropped slow WebSocket client",
			slog.String("client_id", client.id))
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.quit:
	}
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// Publish broadcasts msg to every connected page. The trace id of ctx is
// attached when msg has none. It returns once the message is queued, the
// hub stops or ctx is done.
func (h *Hub) Publish(ctx context.Context, msg events.WebSocketMessage) {
	if msg.TraceID == "" {
		msg.TraceID = infrastructure.GetTraceID(ctx)
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to encode WebSocket message",
			slog.String("type", string(msg.Type)),
			slog.String("error", err.Error()))
		return
	}

	select {
	case h.broadcast <- data:
		h.logger.DebugContext(ctx, "WebSocket message queued", slog.String("type", string(msg.Type)))
	case <-h.quit:
	case <-ctx.Done():
		h.logger.WarnContext(ctx, "WebSocket message dropped",
			slog.String("type", string(msg.Type)),
			slog.String("error", ctx.Err().Error()))
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats returns a snapshot of the hub counters.
func (h *Hub) Stats() HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	stats := h.stats
	stats.Clients = len(h.clients)
	return stats
}

// Stop ends the hub loop and closes every client's send channel, which makes
// the write pumps send a close frame. It is safe to call more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.quit)

		h.mu.Lock()
		running := h.running
		h.mu.Unlock()
		if running {
			<-h.done
		}

		h.mu.Lock()
		for client := range h.clients {
			close(client.send)
			delete(h.clients, client)
		}
		h.mu.Unlock()
	})
}
