package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	apierrors "bikedash/internal/errors"
	customMiddleware "bikedash/internal/middleware"
)

// ClientLogHandler records log entries sent by the dashboard page, such as
// failed uploads or dropped websocket connections.
type ClientLogHandler struct {
	validator    *customMiddleware.ValidationMiddleware
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewClientLogHandler creates a new client log handler
func NewClientLogHandler(validator *customMiddleware.ValidationMiddleware, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ClientLogHandler {
	return &ClientLogHandler{
		validator:    validator,
		logger:       logger.With(slog.String("handler", "client_log")),
		errorHandler: errorHandler,
	}
}

// LogRequest represents a client log entry
type LogRequest struct {
	Level   string                 `json:"level" validate:"omitempty,oneof=debug info warn error"`
	Message string                 `json:"message" validate:"required,max=1024"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Source  string                 `json:"source,omitempty" validate:"max=256"`
}

// Handle handles POST /api/logs
func (h *ClientLogHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var req LogRequest
	if err := render.DecodeJSON(http.MaxBytesReader(w, r.Body, 16<<10), &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	attrs := []slog.Attr{slog.String("client_source", req.Source)}
	if req.Data != nil {
		attrs = append(attrs, slog.Any("data", req.Data))
	}

	level := slog.LevelInfo
	switch req.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	h.logger.LogAttrs(r.Context(), level, req.Message, attrs...)

	w.WriteHeader(http.StatusNoContent)
}
