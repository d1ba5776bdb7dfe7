package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ExtractionRun is one persisted extraction pass over a conversation.
// Record holds the serialized TransactionRecord exactly as returned to callers.
type ExtractionRun struct {
	ID               uuid.UUID         `db:"id" json:"id"`
	ConversationID   string            `db:"conversation_id" json:"conversation_id"`
	Pass             int               `db:"pass" json:"pass"`
	TransactionType  TransactionType   `db:"transaction_type" json:"transaction_type"`
	Status           TransactionStatus `db:"status" json:"status"`
	Record           json.RawMessage   `db:"record" json:"record"`
	ConversationHash string            `db:"conversation_hash" json:"conversation_hash"`
	ModelUsed        string            `db:"model_used" json:"model_used"`
	DurationMS       int64             `db:"duration_ms" json:"duration_ms"`
	CreatedAt        time.Time         `db:"created_at" json:"created_at"`
}
