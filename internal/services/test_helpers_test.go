package services

import (
	"context"

	"github.com/stretchr/testify/mock"

	"bikedash/pkg/contracts/domain"
	"bikedash/pkg/contracts/events"
)

// MockPublisher records published websocket events.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, msg events.WebSocketMessage) {
	m.Called(ctx, msg)
}

// MockDatasetProvider is a mock for DatasetProvider.
type MockDatasetProvider struct {
	mock.Mock
}

func (m *MockDatasetProvider) Get(ctx context.Context, id string) (*domain.Dataset, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Dataset), args.Error(1)
}

type countStub int

func (c countStub) Count() int       { return int(c) }
func (c countStub) ClientCount() int { return int(c) }
