package handler

import (
	"time"

	"aria/internal/domain"
)

// Swagger type definitions for API documentation.
// These types are used by swag to generate OpenAPI documentation.

// --- Request Types ---

// ExtractRequest represents one conversation to extract from.
type ExtractRequest struct {
	ConversationID string `json:"conversation_id" example:"conv-42"`
	Conversation   string `json:"conversation" binding:"required" example:"User: I need a hotel in Paris from June 10 to June 14 for 2 adults"`
	ReferenceDate  string `json:"reference_date" example:"2025-05-01"`
}

// BatchExtractRequest represents a batch of independent conversations.
type BatchExtractRequest struct {
	Conversations []ExtractRequest `json:"conversations" binding:"required,min=1,dive"`
}

// --- Response Types ---

// ExtractResponse is the result of one extraction pass.
type ExtractResponse struct {
	ConversationID  string                    `json:"conversation_id,omitempty" example:"conv-42"`
	Pass            int                       `json:"pass,omitempty" example:"2"`
	Record          *domain.TransactionRecord `json:"record" swaggertype:"object"`
	ModelUsed       string                    `json:"model_used,omitempty" example:"claude-sonnet-4-20250514"`
	FieldProvenance map[string]string         `json:"field_provenance,omitempty"`
	HandedOff       bool                      `json:"handed_off"`
	CreatedAt       *time.Time                `json:"created_at,omitempty"`
}

// BatchItemResponse is the outcome for one conversation of a batch.
type BatchItemResponse struct {
	ConversationID string           `json:"conversation_id,omitempty" example:"conv-42"`
	Result         *ExtractResponse `json:"result,omitempty"`
	Error          *APIError        `json:"error,omitempty"`
}

// BatchExtractResponse summarizes a batch run.
type BatchExtractResponse struct {
	Succeeded int                 `json:"succeeded" example:"3"`
	Failed    int                 `json:"failed" example:"1"`
	Results   []BatchItemResponse `json:"results"`
}

// --- Generic Response Wrappers ---

// Response wraps a successful response with data.
type Response struct {
	Success bool        `json:"success" example:"true"`
	Data    interface{} `json:"data,omitempty"`
	Meta    *PagMeta    `json:"meta,omitempty"`
}

// ErrorResponseBody wraps an error response.
type ErrorResponseBody struct {
	Success bool      `json:"success" example:"false"`
	Error   *APIError `json:"error"`
}
