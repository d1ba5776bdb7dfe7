package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"aria/internal/port"
)

// MockUnderstander is a mock implementation of port.Understander.
type MockUnderstander struct {
	mock.Mock
}

func (m *MockUnderstander) Understand(ctx context.Context, input port.UnderstandInput) (*port.Understanding, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.Understanding), args.Error(1)
}
