package domain

import "errors"

var (
	ErrUnknownTransactionType = errors.New("unknown transaction type")
	ErrExtractionUnavailable  = errors.New("extraction unavailable")
	ErrInvalidRecord          = errors.New("record violates schema invariants")
	ErrNotFound               = errors.New("resource not found")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrInvalidConversation    = errors.New("conversation text is empty")
	ErrBatchTooLarge          = errors.New("batch exceeds the maximum number of conversations")
	ErrDuplicateConversation  = errors.New("conversation appears more than once in batch")
)
