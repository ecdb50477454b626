package websocket

import (
	"log/slog"
	"net/http"
	"net/url"
	"slices"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"bikedash/internal/config"
	"bikedash/internal/infrastructure"
)

// Handler upgrades /ws requests and attaches the connection to the hub.
type Handler struct {
	hub            *Hub
	cfg            config.WebSocketConfig
	allowedOrigins []string
	upgrader       websocket.Upgrader
	logger         *slog.Logger
}

// NewHandler creates the upgrade handler. Requests without an Origin header,
// from the serving host, or from one of allowedOrigins are accepted.
func NewHandler(hub *Hub, cfg config.WebSocketConfig, allowedOrigins []string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	h := &Handler{
		hub:            hub,
		cfg:            cfg,
		allowedOrigins: allowedOrigins,
		logger:         logger.With(slog.String("component", "websocket.handler")),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin:     h.checkOrigin,
		Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			h.logger.WarnContext(r.Context(), "WebSocket upgrade error",
				slog.Int("status", status),
				slog.String("reason", reason.Error()),
				slog.String("origin", r.Header.Get("Origin")))
			http.Error(w, http.StatusText(status), status)
		},
	}
	return h
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if u, err := url.Parse(origin); err == nil && u.Host == r.Host {
		return true
	}
	return slices.Contains(h.allowedOrigins, origin)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetReqID(r.Context())
	if traceID == "" {
		traceID = infrastructure.GenerateTraceID()
	}
	ctx := infrastructure.WithTraceID(r.Context(), traceID)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already replied.
		return
	}

	client := NewClient(h.hub, WrapConn(conn), traceID, h.cfg, h.logger)
	h.hub.Register(client)
	h.logger.InfoContext(ctx, "WebSocket client connected",
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("client_id", client.id))

	go h.pump(client, "write", client.WritePump)
	go h.pump(client, "read", client.ReadPump)
}

func (h *Handler) pump(client *Client, name string, run func()) {
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.ErrorContext(client.context(), "WebSocket pump panic",
				slog.String("pump", name),
				slog.Any("panic", rec),
				slog.String("client_id", client.id))
		}
	}()
	run()
}
