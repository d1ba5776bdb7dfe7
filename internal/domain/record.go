package domain

import (
	"bytes"
	"encoding/json"
)

// Reserved top-level keys of the serialized record. Schema fields may not use them.
const (
	KeyTransactionType  = "transaction_type"
	KeyStatus           = "status"
	KeyConfidenceScores = "confidence_scores"
	KeyExtractionNotes  = "extraction_notes"
)

// AmbiguityNote records a field for which the source text supports several plausible values.
type AmbiguityNote struct {
	Field         string       `json:"field"`
	Possibilities []FieldValue `json:"possibilities"`
	Reason        string       `json:"reason"`
}

// Contains reports whether v is one of the listed possibilities.
func (n AmbiguityNote) Contains(v FieldValue) bool {
	for _, p := range n.Possibilities {
		if p.Equal(v) {
			return true
		}
	}
	return false
}

// MissingInfoNote records a tiered field that has no resolvable value.
type MissingInfoNote struct {
	Field      string     `json:"field"`
	Importance Importance `json:"importance"`
}

// FieldEntry pairs a schema field name with its resolved value.
type FieldEntry struct {
	Name  string
	Value FieldValue
}

// RecordParts carries everything needed to assemble a TransactionRecord.
type RecordParts struct {
	Type        TransactionType
	Status      TransactionStatus
	Fields      []FieldEntry
	Confidence  map[string]float64
	Ambiguities []AmbiguityNote
	Missing     []MissingInfoNote
}

// TransactionRecord is the immutable result of one extraction pass.
type TransactionRecord struct {
	txType      TransactionType
	status      TransactionStatus
	fields      []FieldEntry
	confidence  map[string]float64
	ambiguities []AmbiguityNote
	missing     []MissingInfoNote
}

// NewTransactionRecord copies p into a new record. Later changes to p do not affect the record.
func NewTransactionRecord(p RecordParts) *TransactionRecord {
	r := &TransactionRecord{
		txType:      p.Type,
		status:      p.Status,
		fields:      append([]FieldEntry(nil), p.Fields...),
		confidence:  make(map[string]float64, len(p.Confidence)),
		ambiguities: copyAmbiguities(p.Ambiguities),
		missing:     append([]MissingInfoNote{}, p.Missing...),
	}
	for k, v := range p.Confidence {
		r.confidence[k] = v
	}
	return r
}

func copyAmbiguities(in []AmbiguityNote) []AmbiguityNote {
	out := make([]AmbiguityNote, len(in))
	for i, a := range in {
		out[i] = AmbiguityNote{
			Field:         a.Field,
			Possibilities: append([]FieldValue(nil), a.Possibilities...),
			Reason:        a.Reason,
		}
	}
	return out
}

func (r *TransactionRecord) Type() TransactionType     { return r.txType }
func (r *TransactionRecord) Status() TransactionStatus { return r.status }

// Fields returns the ordered field entries.
func (r *TransactionRecord) Fields() []FieldEntry {
	return append([]FieldEntry(nil), r.fields...)
}

// FieldNames returns the field names in schema order.
func (r *TransactionRecord) FieldNames() []string {
	names := make([]string, len(r.fields))
	for i, f := range r.fields {
		names[i] = f.Name
	}
	return names
}

// Value returns the resolved value for a field.
func (r *TransactionRecord) Value(name string) (FieldValue, bool) {
	for _, f := range r.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return FieldValue{}, false
}

// Confidence returns the score for a field.
func (r *TransactionRecord) Confidence(name string) (float64, bool) {
	c, ok := r.confidence[name]
	return c, ok
}

// ConfidenceScores returns a copy of the confidence map.
func (r *TransactionRecord) ConfidenceScores() map[string]float64 {
	out := make(map[string]float64, len(r.confidence))
	for k, v := range r.confidence {
		out[k] = v
	}
	return out
}

func (r *TransactionRecord) Ambiguities() []AmbiguityNote {
	return copyAmbiguities(r.ambiguities)
}

// Ambiguity returns the ambiguity note for a field, if any.
func (r *TransactionRecord) Ambiguity(name string) (AmbiguityNote, bool) {
	for _, a := range r.ambiguities {
		if a.Field == name {
			return copyAmbiguities([]AmbiguityNote{a})[0], true
		}
	}
	return AmbiguityNote{}, false
}

func (r *TransactionRecord) MissingCriticalInfo() []MissingInfoNote {
	return append([]MissingInfoNote{}, r.missing...)
}

// MarshalJSON writes the record with fields in schema order:
// transaction_type, status, one key per field, confidence_scores, extraction_notes.
func (r *TransactionRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	writeKey := func(first bool, key string) error {
		if !first {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		return nil
	}
	writeValue := func(v any) error {
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		buf.Write(b)
		return nil
	}

	if err := writeKey(true, KeyTransactionType); err != nil {
		return nil, err
	}
	if err := writeValue(r.txType); err != nil {
		return nil, err
	}
	if err := writeKey(false, KeyStatus); err != nil {
		return nil, err
	}
	if err := writeValue(r.status); err != nil {
		return nil, err
	}

	for _, f := range r.fields {
		if err := writeKey(false, f.Name); err != nil {
			return nil, err
		}
		if err := writeValue(f.Value); err != nil {
			return nil, err
		}
	}

	if err := writeKey(false, KeyConfidenceScores); err != nil {
		return nil, err
	}
	buf.WriteByte('{')
	for i, f := range r.fields {
		if err := writeKey(i == 0, f.Name); err != nil {
			return nil, err
		}
		if err := writeValue(r.confidence[f.Name]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')

	if err := writeKey(false, KeyExtractionNotes); err != nil {
		return nil, err
	}
	notes := struct {
		Ambiguities         []AmbiguityNote   `json:"ambiguities"`
		MissingCriticalInfo []MissingInfoNote `json:"missing_critical_info"`
	}{
		Ambiguities:         r.ambiguities,
		MissingCriticalInfo: r.missing,
	}
	if notes.Ambiguities == nil {
		notes.Ambiguities = []AmbiguityNote{}
	}
	if notes.MissingCriticalInfo == nil {
		notes.MissingCriticalInfo = []MissingInfoNote{}
	}
	if err := writeValue(notes); err != nil {
		return nil, err
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}
