package port

import (
	"context"
	"time"

	"aria/internal/domain"
)

// UnderstandInput carries the data needed for one understanding call.
type UnderstandInput struct {
	Conversation  string
	PriorType     *domain.TransactionType
	ReferenceTime time.Time
}

// FieldEvidence is the raw evidence the understanding step reports for one field.
// RawValue may be nil, a string, a number, a bool, an object or a list of alternatives.
type FieldEvidence struct {
	RawValue             any                     `json:"raw_value"`
	Strength             domain.EvidenceStrength `json:"evidence_strength"`
	ReportedConfidence   *float64                `json:"confidence,omitempty"`
	ExplicitConfirmation bool                    `json:"explicit_confirmation_signal,omitempty"`
}

// Understanding is the structured output of the understanding step.
type Understanding struct {
	TransactionType      string
	FieldEvidence        map[string]FieldEvidence
	ExplicitConfirmation bool
	ModelUsed            string
	PromptUsed           string
	FieldProvenance      map[string]string // which model provided each field (populated in merge mode)
	SecondaryModel       string
}

// Understander abstracts the language-model step that reads a conversation.
type Understander interface {
	Understand(ctx context.Context, input UnderstandInput) (*Understanding, error)
}
