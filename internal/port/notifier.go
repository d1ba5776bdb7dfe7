package port

import (
	"context"

	"aria/internal/domain"
)

// Handoff is the summary sent when a conversation's transaction is confirmed.
type Handoff struct {
	ConversationID string
	Pass           int
	Record         *domain.TransactionRecord
}

// HandoffNotifier delivers confirmed transactions to whoever executes them.
type HandoffNotifier interface {
	NotifyHandoff(ctx context.Context, handoff Handoff) error
}
