package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bikedash/internal/config"
	"bikedash/internal/infrastructure"
	"bikedash/internal/shared/testutil"
	"bikedash/pkg/contracts/domain"
	"bikedash/pkg/contracts/events"
)

// quietLogger captures records without writing to t, since pumps may log
// after a test returns.
func quietLogger() (*slog.Logger, *testutil.BufferedSlogHandler) {
	h := testutil.NewBufferedSlogHandler(nil)
	return slog.New(h), h
}

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	logger, _ := quietLogger()
	hub := NewHub(nil, logger)
	hub.Start()
	t.Cleanup(hub.Stop)
	return hub
}

func newTestClient(hub *Hub, traceID string) (*Client, *MockConnection) {
	conn := NewMockConnection()
	logger, _ := quietLogger()
	return NewClient(hub, conn, traceID, config.WebSocketConfig{}, logger), conn
}

// receive decodes the next queued message of c.
func receive(t *testing.T, c *Client) events.WebSocketMessage {
	t.Helper()
	select {
	case data, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		var msg events.WebSocketMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return events.WebSocketMessage{}
	}
}

func waitClosed(t *testing.T, c *Client) {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-c.send:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("send channel not closed")
		}
	}
}

func TestHub_RegisterSendsConnectEvent(t *testing.T) {
	hub := newTestHub(t)
	client, _ := newTestClient(hub, "req-1")

	hub.Register(client)

	msg := receive(t, client)
	assert.Equal(t, events.MessageTypeConnect, msg.Type)
	assert.Equal(t, "req-1", msg.TraceID)
	assert.NotEmpty(t, msg.ID)
	data := msg.Data.(map[string]interface{})
	assert.Equal(t, client.ID(), data["client_id"])
	assert.Equal(t, ConnectMessage, data["message"])
	assert.Equal(t, 1, hub.ClientCount())
}

func TestHub_PublishFansOut(t *testing.T) {
	hub := newTestHub(t)
	first, _ := newTestClient(hub, "a")
	second, _ := newTestClient(hub, "b")
	hub.Register(first)
	hub.Register(second)
	receive(t, first)
	receive(t, second)

	ctx := infrastructure.WithTraceID(context.Background(), "upload-7")
	info := domain.DatasetInfo{ID: "ds-1", Name: "day.csv", RecordCount: 5}
	hub.Publish(ctx, events.NewMessage(events.MessageTypeDatasetLoaded, events.DatasetEvent{Dataset: info}))

	for _, c := range []*Client{first, second} {
		msg := receive(t, c)
		assert.Equal(t, events.MessageTypeDatasetLoaded, msg.Type)
		assert.Equal(t, "upload-7", msg.TraceID)
		dataset := msg.Data.(map[string]interface{})["dataset"].(map[string]interface{})
		assert.Equal(t, "ds-1", dataset["id"])
	}

	stats := hub.Stats()
	assert.Equal(t, 2, stats.Clients)
	assert.Equal(t, int64(2), stats.TotalConnections)
	assert.Equal(t, int64(2), stats.MessagesSent)
}

func TestHub_PublishKeepsExplicitTraceID(t *testing.T) {
	hub := newTestHub(t)
	client, _ := newTestClient(hub, "")
	hub.Register(client)
	receive(t, client)

	msg := events.NewMessage(events.MessageTypeDatasetRemoved, events.DatasetEvent{})
	msg.TraceID = "explicit"
	hub.Publish(infrastructure.WithTraceID(context.Background(), "ctx"), msg)

	assert.Equal(t, "explicit", receive(t, client).TraceID)
}

func TestHub_DropsSlowClient(t *testing.T) {
	hub := newTestHub(t)
	slow, _ := newTestClient(hub, "slow")
	fast, _ := newTestClient(hub, "fast")
	hub.Register(slow)
	hub.Register(fast)
	receive(t, fast)

	// slow still holds its connect message; fill the remaining slots.
	for len(slow.send) < cap(slow.send) {
		slow.send <- []byte(`{}`)
	}

	hub.Publish(context.Background(), events.NewMessage(events.MessageTypeDatasetLoaded, events.DatasetEvent{}))

	assert.Equal(t, events.MessageTypeDatasetLoaded, receive(t, fast).Type)
	waitClosed(t, slow)
	assert.Equal(t, 1, hub.ClientCount())
	assert.Equal(t, int64(1), hub.Stats().SlowClients)
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	hub := newTestHub(t)
	client, _ := newTestClient(hub, "")
	hub.Register(client)
	receive(t, client)

	hub.Unregister(client)
	waitClosed(t, client)
	assert.Equal(t, 0, hub.ClientCount())

	// A second unregister is ignored.
	hub.Unregister(client)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHub_Stop(t *testing.T) {
	logger, logs := quietLogger()
	hub := NewHub(nil, logger)
	hub.Start()
	client, _ := newTestClient(hub, "")
	hub.Register(client)
	receive(t, client)

	hub.Stop()
	hub.Stop()

	waitClosed(t, client)
	assert.Equal(t, 0, hub.ClientCount())
	assert.True(t, logs.ContainsMessage("Hub shutting down"))

	done := make(chan struct{})
	go func() {
		hub.Register(client)
		hub.Unregister(client)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("hub calls blocked after Stop")
	}
}

func TestHub_StopWithoutStart(t *testing.T) {
	logger, _ := quietLogger()
	hub := NewHub(nil, logger)

	done := make(chan struct{})
	go func() {
		hub.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked on a hub that never started")
	}
}

func TestHub_PublishHonoursContext(t *testing.T) {
	logger, logs := quietLogger()
	hub := NewHub(nil, logger)
	t.Cleanup(hub.Stop)
	for i := 0; i < broadcastBuffer; i++ {
		hub.broadcast <- nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	hub.Publish(ctx, events.NewMessage(events.MessageTypeDatasetLoaded, events.DatasetEvent{}))

	assert.True(t, logs.ContainsMessage("WebSocket message dropped"))
}
