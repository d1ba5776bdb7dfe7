package domain

import (
	"fmt"
	"strings"
)

// TransactionType is the closed set of record categories the engine extracts.
type TransactionType string

const (
	TransactionTypeHotelBooking    TransactionType = "hotel_booking"
	TransactionTypeBillPayment     TransactionType = "bill_payment"
	TransactionTypeProductPurchase TransactionType = "product_purchase"
)

// ValidTransactionTypes lists every TransactionType in declaration order.
var ValidTransactionTypes = []TransactionType{
	TransactionTypeHotelBooking,
	TransactionTypeBillPayment,
	TransactionTypeProductPurchase,
}

// ParseTransactionType converts an inferred type label into a TransactionType.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range ValidTransactionTypes {
		if t == v {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTransactionType, s)
}

// TransactionStatus is the lifecycle state derived for a record.
type TransactionStatus string

const (
	TransactionStatusInquiring TransactionStatus = "inquiring"
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
)

// FieldKind is the declared value kind of a schema field.
type FieldKind string

const (
	FieldKindString  FieldKind = "string"
	FieldKindInteger FieldKind = "integer"
	FieldKindFloat   FieldKind = "float"
	FieldKindDate    FieldKind = "date"
	FieldKindEnum    FieldKind = "enum"
)

// EvidenceStrength is the qualitative certainty the understanding step assigns to a field.
type EvidenceStrength string

const (
	EvidenceExplicit    EvidenceStrength = "explicit"
	EvidenceImplied     EvidenceStrength = "implied"
	EvidenceInferred    EvidenceStrength = "inferred"
	EvidenceSpeculative EvidenceStrength = "speculative"
	EvidenceNone        EvidenceStrength = "none"
)

// evidenceRank orders strengths from weakest to strongest.
var evidenceRank = map[EvidenceStrength]int{
	EvidenceNone:        0,
	EvidenceSpeculative: 1,
	EvidenceInferred:    2,
	EvidenceImplied:     3,
	EvidenceExplicit:    4,
}

// ParseEvidenceStrength normalizes a strength label. Unknown labels map to EvidenceNone.
func ParseEvidenceStrength(s string) EvidenceStrength {
	e := EvidenceStrength(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := evidenceRank[e]; ok {
		return e
	}
	return EvidenceNone
}

// Rank returns the ordinal position of the strength; unknown strengths rank as none.
func (e EvidenceStrength) Rank() int {
	return evidenceRank[e]
}

// Weaker returns the weaker of e and other.
func (e EvidenceStrength) Weaker(other EvidenceStrength) EvidenceStrength {
	if other.Rank() < e.Rank() {
		return other
	}
	return e
}

// Downgrade returns the strength one step weaker, bottoming out at speculative.
func (e EvidenceStrength) Downgrade() EvidenceStrength {
	switch e {
	case EvidenceExplicit:
		return EvidenceImplied
	case EvidenceImplied:
		return EvidenceInferred
	case EvidenceInferred, EvidenceSpeculative:
		return EvidenceSpeculative
	default:
		return EvidenceNone
	}
}

// Importance is the tier reported for a missing field.
type Importance string

const (
	ImportanceHigh   Importance = "high"
	ImportanceMedium Importance = "medium"
	ImportanceLow    Importance = "low"
	// ImportanceNone marks fields that never produce a missing-info note.
	ImportanceNone Importance = ""
)
