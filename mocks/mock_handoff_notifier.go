package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"aria/internal/port"
)

// MockHandoffNotifier is a mock implementation of port.HandoffNotifier.
type MockHandoffNotifier struct {
	mock.Mock
}

func (m *MockHandoffNotifier) NotifyHandoff(ctx context.Context, handoff port.Handoff) error {
	args := m.Called(ctx, handoff)
	return args.Error(0)
}
