package mocks

import (
	"context"

	"auditflow/internal/event"
	"github.com/stretchr/testify/mock"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyStateChange(ctx context.Context, ev event.StateChange) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

func (m *MockNotifier) NotifyDeadline(ctx context.Context, ev event.DeadlinePassed) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

type MockBroadcaster struct {
	mock.Mock
}

func (m *MockBroadcaster) Broadcast(ctx context.Context, channel string, payload any) error {
	args := m.Called(ctx, channel, payload)
	return args.Error(0)
}
