package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"aria/internal/domain"
)

// MockExtractionRunRepository is a mock implementation of port.ExtractionRunRepository.
type MockExtractionRunRepository struct {
	mock.Mock
}

func (m *MockExtractionRunRepository) Create(ctx context.Context, run *domain.ExtractionRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockExtractionRunRepository) GetLatest(ctx context.Context, conversationID string) (*domain.ExtractionRun, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExtractionRun), args.Error(1)
}

func (m *MockExtractionRunRepository) ListByConversation(ctx context.Context, conversationID string, offset, limit int) ([]domain.ExtractionRun, int, error) {
	args := m.Called(ctx, conversationID, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.ExtractionRun), args.Int(1), args.Error(2)
}

func (m *MockExtractionRunRepository) ListLatestByType(ctx context.Context, txType domain.TransactionType, offset, limit int) ([]domain.ExtractionRun, int, error) {
	args := m.Called(ctx, txType, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.ExtractionRun), args.Int(1), args.Error(2)
}
