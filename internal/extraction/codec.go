package extraction

import (
	"encoding/json"
	"fmt"

	"aria/internal/domain"
	"aria/internal/schema"
)

type serializedNotes struct {
	Ambiguities []struct {
		Field         string            `json:"field"`
		Possibilities []json.RawMessage `json:"possibilities"`
		Reason        string            `json:"reason"`
	} `json:"ambiguities"`
	MissingCriticalInfo []domain.MissingInfoNote `json:"missing_critical_info"`
}

// DecodeRecord rebuilds a record from its serialized form and verifies it against registry.
func DecodeRecord(registry *schema.Registry, data []byte) (*domain.TransactionRecord, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("%w: decoding record: %w", domain.ErrInvalidRecord, err)
	}

	var typeLabel string
	if err := json.Unmarshal(top[domain.KeyTransactionType], &typeLabel); err != nil {
		return nil, fmt.Errorf("%w: decoding transaction_type: %w", domain.ErrInvalidRecord, err)
	}
	txType, err := domain.ParseTransactionType(typeLabel)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidRecord, err)
	}
	specs, err := registry.FieldsFor(txType)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidRecord, err)
	}

	var st domain.TransactionStatus
	if err := json.Unmarshal(top[domain.KeyStatus], &st); err != nil {
		return nil, fmt.Errorf("%w: decoding status: %w", domain.ErrInvalidRecord, err)
	}

	parts := domain.RecordParts{Type: txType, Status: st}
	kinds := make(map[string]domain.FieldKind, len(specs))
	for _, spec := range specs {
		kinds[spec.Name] = spec.Kind
		v, err := domain.DecodeFieldValue(spec.Kind, top[spec.Name])
		if err != nil {
			return nil, fmt.Errorf("%w: field %s: %w", domain.ErrInvalidRecord, spec.Name, err)
		}
		parts.Fields = append(parts.Fields, domain.FieldEntry{Name: spec.Name, Value: v})
	}
	for key := range top {
		switch key {
		case domain.KeyTransactionType, domain.KeyStatus, domain.KeyConfidenceScores, domain.KeyExtractionNotes:
			continue
		}
		if _, ok := kinds[key]; !ok {
			return nil, fmt.Errorf("%w: unexpected field %q for %s", domain.ErrInvalidRecord, key, txType)
		}
	}

	if err := json.Unmarshal(top[domain.KeyConfidenceScores], &parts.Confidence); err != nil {
		return nil, fmt.Errorf("%w: decoding confidence_scores: %w", domain.ErrInvalidRecord, err)
	}

	var notes serializedNotes
	if raw, ok := top[domain.KeyExtractionNotes]; ok {
		if err := json.Unmarshal(raw, &notes); err != nil {
			return nil, fmt.Errorf("%w: decoding extraction_notes: %w", domain.ErrInvalidRecord, err)
		}
	}
	for _, a := range notes.Ambiguities {
		kind, ok := kinds[a.Field]
		if !ok {
			return nil, fmt.Errorf("%w: ambiguity for unknown field %q", domain.ErrInvalidRecord, a.Field)
		}
		note := domain.AmbiguityNote{Field: a.Field, Reason: a.Reason}
		for _, p := range a.Possibilities {
			v, err := domain.DecodeFieldValue(kind, p)
			if err != nil {
				return nil, fmt.Errorf("%w: ambiguity for %s: %w", domain.ErrInvalidRecord, a.Field, err)
			}
			note.Possibilities = append(note.Possibilities, v)
		}
		parts.Ambiguities = append(parts.Ambiguities, note)
	}
	parts.Missing = notes.MissingCriticalInfo

	record := domain.NewTransactionRecord(parts)
	if err := VerifyRecord(registry, record); err != nil {
		return nil, err
	}
	return record, nil
}
