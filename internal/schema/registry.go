package schema

import (
	"fmt"

	"aria/internal/domain"
)

// FieldSpec is the static descriptor of one field of a transaction type.
type FieldSpec struct {
	Name        string
	Kind        domain.FieldKind
	EnumValues  []string
	Importance  domain.Importance
	Description string
}

// Required reports whether the field gates the pending and completed statuses.
func (f FieldSpec) Required() bool {
	return f.Importance == domain.ImportanceHigh
}

// Registry maps each transaction type to its ordered field set.
// A Registry is never mutated after construction.
type Registry struct {
	schemas map[domain.TransactionType][]FieldSpec
	order   []domain.TransactionType
}

// NewRegistry builds a registry from per-type field sets. Types are kept in the order given.
func NewRegistry(types []domain.TransactionType, schemas map[domain.TransactionType][]FieldSpec) (*Registry, error) {
	r := &Registry{schemas: make(map[domain.TransactionType][]FieldSpec, len(types))}
	for _, t := range types {
		specs, ok := schemas[t]
		if !ok || len(specs) == 0 {
			return nil, fmt.Errorf("schema for %s has no fields", t)
		}
		seen := make(map[string]bool, len(specs))
		for _, s := range specs {
			switch s.Name {
			case "", domain.KeyTransactionType, domain.KeyStatus, domain.KeyConfidenceScores, domain.KeyExtractionNotes:
				return nil, fmt.Errorf("schema for %s: invalid field name %q", t, s.Name)
			}
			if seen[s.Name] {
				return nil, fmt.Errorf("schema for %s: duplicate field %q", t, s.Name)
			}
			if s.Kind == domain.FieldKindEnum && len(s.EnumValues) == 0 {
				return nil, fmt.Errorf("schema for %s: enum field %q has no values", t, s.Name)
			}
			seen[s.Name] = true
		}
		r.schemas[t] = append([]FieldSpec(nil), specs...)
		r.order = append(r.order, t)
	}
	return r, nil
}

// FieldsFor returns a copy of the ordered field set for t.
func (r *Registry) FieldsFor(t domain.TransactionType) ([]FieldSpec, error) {
	specs, ok := r.schemas[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownTransactionType, string(t))
	}
	out := make([]FieldSpec, len(specs))
	for i, s := range specs {
		s.EnumValues = append([]string(nil), s.EnumValues...)
		out[i] = s
	}
	return out, nil
}

// AllTypes returns every registered transaction type.
func (r *Registry) AllTypes() []domain.TransactionType {
	return append([]domain.TransactionType(nil), r.order...)
}

// Field looks up a single field of t by name.
func (r *Registry) Field(t domain.TransactionType, name string) (FieldSpec, bool) {
	for _, s := range r.schemas[t] {
		if s.Name == name {
			s.EnumValues = append([]string(nil), s.EnumValues...)
			return s, true
		}
	}
	return FieldSpec{}, false
}

// TypeDescription is the serializable view of one schema, used by the API, CLI and prompts.
type TypeDescription struct {
	Type   domain.TransactionType `json:"transaction_type" yaml:"transaction_type"`
	Fields []FieldDescription     `json:"fields" yaml:"fields"`
}

// FieldDescription is the serializable view of a FieldSpec.
type FieldDescription struct {
	Name        string            `json:"name" yaml:"name"`
	Kind        domain.FieldKind  `json:"kind" yaml:"kind"`
	EnumValues  []string          `json:"enum_values,omitempty" yaml:"enum_values,omitempty"`
	Importance  domain.Importance `json:"importance,omitempty" yaml:"importance,omitempty"`
	Description string            `json:"description" yaml:"description"`
}

// Describe returns the description of t.
func (r *Registry) Describe(t domain.TransactionType) (TypeDescription, error) {
	specs, err := r.FieldsFor(t)
	if err != nil {
		return TypeDescription{}, err
	}
	d := TypeDescription{Type: t, Fields: make([]FieldDescription, len(specs))}
	for i, s := range specs {
		d.Fields[i] = FieldDescription{
			Name:        s.Name,
			Kind:        s.Kind,
			EnumValues:  s.EnumValues,
			Importance:  s.Importance,
			Description: s.Description,
		}
	}
	return d, nil
}

// DescribeAll returns descriptions of every registered type.
func (r *Registry) DescribeAll() []TypeDescription {
	out := make([]TypeDescription, 0, len(r.order))
	for _, t := range r.order {
		d, _ := r.Describe(t)
		out = append(out, d)
	}
	return out
}
