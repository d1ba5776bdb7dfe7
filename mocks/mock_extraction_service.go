package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"aria/internal/domain"
	"aria/internal/export"
	"aria/internal/service"
)

// MockExtractionService is a mock implementation of service.ExtractionService.
type MockExtractionService struct {
	mock.Mock
}

func (m *MockExtractionService) Extract(ctx context.Context, input service.ExtractInput) (*service.ExtractResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ExtractResult), args.Error(1)
}

func (m *MockExtractionService) ExtractBatch(ctx context.Context, inputs []service.ExtractInput) ([]service.BatchResult, error) {
	args := m.Called(ctx, inputs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]service.BatchResult), args.Error(1)
}

func (m *MockExtractionService) GetLatest(ctx context.Context, conversationID string) (*domain.ExtractionRun, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExtractionRun), args.Error(1)
}

func (m *MockExtractionService) ListByConversation(ctx context.Context, conversationID string, offset, limit int) ([]domain.ExtractionRun, int, error) {
	args := m.Called(ctx, conversationID, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.ExtractionRun), args.Int(1), args.Error(2)
}

func (m *MockExtractionService) ExportConversation(ctx context.Context, conversationID string) ([]export.Sheet, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]export.Sheet), args.Error(1)
}

func (m *MockExtractionService) ExportLatest(ctx context.Context, txType domain.TransactionType) (*export.Sheet, error) {
	args := m.Called(ctx, txType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*export.Sheet), args.Error(1)
}
