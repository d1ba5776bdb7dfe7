package port

import (
	"context"

	"aria/internal/domain"
)

// ExtractionRunRepository defines the contract for extraction run persistence.
type ExtractionRunRepository interface {
	// Create inserts run, assigning the next pass number for its conversation.
	Create(ctx context.Context, run *domain.ExtractionRun) error
	GetLatest(ctx context.Context, conversationID string) (*domain.ExtractionRun, error)
	ListByConversation(ctx context.Context, conversationID string, offset, limit int) ([]domain.ExtractionRun, int, error)
	ListLatestByType(ctx context.Context, txType domain.TransactionType, offset, limit int) ([]domain.ExtractionRun, int, error)
}
