// Package events contains the websocket event contracts pushed to dashboard
// pages.
package events

import (
	"time"

	"github.com/google/uuid"

	"bikedash/pkg/contracts/domain"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Dataset lifecycle
	MessageTypeDatasetLoaded  MessageType = "dataset:loaded"
	MessageTypeDatasetRemoved MessageType = "dataset:removed"

	// Connection messages
	MessageTypeConnect MessageType = "connect"
	MessageTypeError   MessageType = "error"
)

// BaseMessage represents the base structure for all WebSocket messages
type BaseMessage struct {
	ID        string      `json:"id,omitempty"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// WebSocketMessage represents a complete WebSocket message
type WebSocketMessage struct {
	BaseMessage
	Data interface{} `json:"data,omitempty"`
}

// NewMessage stamps a message with a fresh id and the current time.
func NewMessage(msgType MessageType, data interface{}) WebSocketMessage {
	return WebSocketMessage{
		BaseMessage: BaseMessage{
			ID:        uuid.NewString(),
			Type:      msgType,
			Timestamp: time.Now().UTC(),
		},
		Data: data,
	}
}

// DatasetEvent is the payload of dataset:loaded and dataset:removed.
type DatasetEvent struct {
	Dataset domain.DatasetInfo `json:"dataset"`
}

// ConnectEvent greets a client after registration.
type ConnectEvent struct {
	ClientID string `json:"client_id"`
	Message  string `json:"message"`
}

// ErrorEvent reports a failure the client cannot recover from by itself.
type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
