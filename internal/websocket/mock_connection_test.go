package websocket

import (
	"errors"
	"sync"
	"time"
)

var errMockClosed = errors.New("connection closed")

// MockMessage is one frame read from or written to a MockConnection.
type MockMessage struct {
	Type int
	Data []byte
	Err  error
}

// MockConnection is an in-memory Connection. Reads come from a queue; once
// it is drained ReadMessage blocks until the connection is closed.
type MockConnection struct {
	mu      sync.Mutex
	written []MockMessage
	reads   chan MockMessage
	closed  chan struct{}
	once    sync.Once

	readLimit   int64
	pongHandler func(string) error
	failWrites  bool
}

func NewMockConnection() *MockConnection {
	return &MockConnection{
		reads:  make(chan MockMessage, 16),
		closed: make(chan struct{}),
	}
}

func (m *MockConnection) AddReadMessage(messageType int, data []byte) {
	m.reads <- MockMessage{Type: messageType, Data: data}
}

func (m *MockConnection) AddReadError(err error) {
	m.reads <- MockMessage{Err: err}
}

func (m *MockConnection) WriteMessage(messageType int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites {
		return errMockClosed
	}
	m.written = append(m.written, MockMessage{Type: messageType, Data: data})
	return nil
}

func (m *MockConnection) ReadMessage() (int, []byte, error) {
	select {
	case msg := <-m.reads:
		return msg.Type, msg.Data, msg.Err
	case <-m.closed:
		return 0, nil, errMockClosed
	}
}

func (m *MockConnection) Close() error {
	m.once.Do(func() { close(m.closed) })
	return nil
}

func (m *MockConnection) IsClosed() bool {
	select {
	case <-m.closed:
		return true
	default:
		return false
	}
}

func (m *MockConnection) SetReadDeadline(time.Time) error  { return nil }
func (m *MockConnection) SetWriteDeadline(time.Time) error { return nil }

func (m *MockConnection) SetReadLimit(limit int64) {
	m.mu.Lock()
	m.readLimit = limit
	m.mu.Unlock()
}

func (m *MockConnection) SetPongHandler(h func(string) error) {
	m.mu.Lock()
	m.pongHandler = h
	m.mu.Unlock()
}

func (m *MockConnection) RemoteAddr() string { return "127.0.0.1:50000" }

func (m *MockConnection) Written() []MockMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockMessage(nil), m.written...)
}
