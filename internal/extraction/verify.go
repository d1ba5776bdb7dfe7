package extraction

import (
	"fmt"

	"aria/internal/domain"
	"aria/internal/schema"
)

// VerifyRecord checks that record honours the schema contract of its type:
// exactly the schema's fields with one score each, scores in [0,1] with absent
// fields at 0, a status consistent with field presence, well-formed ambiguity
// notes, and missing notes only for absent tiered fields.
func VerifyRecord(registry *schema.Registry, record *domain.TransactionRecord) error {
	specs, err := registry.FieldsFor(record.Type())
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidRecord, err)
	}

	names := record.FieldNames()
	if len(names) != len(specs) {
		return invalid("has %d fields, schema %s declares %d", len(names), record.Type(), len(specs))
	}
	scores := record.ConfidenceScores()
	if len(scores) != len(specs) {
		return invalid("has %d confidence scores, schema %s declares %d fields", len(scores), record.Type(), len(specs))
	}

	bySpec := make(map[string]schema.FieldSpec, len(specs))
	allRequired := true
	for i, spec := range specs {
		bySpec[spec.Name] = spec
		if names[i] != spec.Name {
			return invalid("field %d is %q, want %q", i, names[i], spec.Name)
		}
		v, _ := record.Value(spec.Name)
		if v.Kind() != spec.Kind {
			return invalid("field %q has kind %q, want %q", spec.Name, v.Kind(), spec.Kind)
		}
		score, ok := scores[spec.Name]
		if !ok {
			return invalid("field %q has no confidence score", spec.Name)
		}
		if score < 0 || score > 1 {
			return invalid("field %q confidence %v outside [0,1]", spec.Name, score)
		}
		if v.IsAbsent() && score != 0 {
			return invalid("absent field %q has confidence %v", spec.Name, score)
		}
		if spec.Required() && v.IsAbsent() {
			allRequired = false
		}
	}

	switch record.Status() {
	case domain.TransactionStatusCompleted, domain.TransactionStatusPending:
		if !allRequired {
			return invalid("status %s with required fields absent", record.Status())
		}
	case domain.TransactionStatusInquiring:
	default:
		return invalid("unknown status %q", record.Status())
	}

	ambiguous := make(map[string]bool)
	for _, a := range record.Ambiguities() {
		if _, ok := bySpec[a.Field]; !ok {
			return invalid("ambiguity for unknown field %q", a.Field)
		}
		if ambiguous[a.Field] {
			return invalid("field %q has more than one ambiguity note", a.Field)
		}
		ambiguous[a.Field] = true
		if len(a.Possibilities) < 2 {
			return invalid("ambiguity for %q lists %d possibilities", a.Field, len(a.Possibilities))
		}
		if v, _ := record.Value(a.Field); !v.IsAbsent() && !a.Contains(v) {
			return invalid("chosen value for %q is not among its possibilities", a.Field)
		}
	}

	for _, m := range record.MissingCriticalInfo() {
		spec, ok := bySpec[m.Field]
		if !ok {
			return invalid("missing note for unknown field %q", m.Field)
		}
		if v, _ := record.Value(m.Field); !v.IsAbsent() {
			return invalid("field %q has a value but is reported missing", m.Field)
		}
		if m.Importance == domain.ImportanceNone || m.Importance != spec.Importance {
			return invalid("missing note for %q has importance %q, want %q", m.Field, m.Importance, spec.Importance)
		}
		if ambiguous[m.Field] {
			return invalid("field %q is reported both ambiguous and missing", m.Field)
		}
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{domain.ErrInvalidRecord}, args...)...)
}
