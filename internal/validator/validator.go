package validator

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"aria/internal/domain"
	"aria/internal/schema"
)

// Result is the outcome of normalizing one raw candidate.
// Value is absent when the input was unusable or resolved to several plausible readings
// that cannot be ranked; Ambiguity is set whenever more than one reading was plausible.
type Result struct {
	Value     domain.FieldValue
	Ambiguity *domain.AmbiguityNote
	Reason    string
}

// Ambiguous reports whether the result carries an ambiguity note.
func (r Result) Ambiguous() bool {
	return r.Ambiguity != nil
}

func absent(spec schema.FieldSpec, reason string) Result {
	return Result{Value: domain.Absent(spec.Kind), Reason: reason}
}

// Normalize converts a raw candidate into the declared kind of spec.
// raw may be nil, a string, a number, a bool, a JSON object or a list of candidates.
// ref anchors relative and year-less dates. Normalize never fails: unusable input
// resolves to an absent value with a reason.
func Normalize(raw any, spec schema.FieldSpec, ref time.Time) Result {
	switch v := raw.(type) {
	case []any:
		return normalizeCandidates(v, spec, ref)
	case []string:
		list := make([]any, len(v))
		for i, s := range v {
			list[i] = s
		}
		return normalizeCandidates(list, spec, ref)
	}
	return normalizeOne(raw, spec, ref)
}

func normalizeOne(raw any, spec schema.FieldSpec, ref time.Time) Result {
	if raw == nil {
		return absent(spec, "no value supplied")
	}
	if n, ok := raw.(json.Number); ok {
		raw = n.String()
	}
	switch spec.Kind {
	case domain.FieldKindString:
		return normalizeString(raw, spec)
	case domain.FieldKindEnum:
		return normalizeEnum(raw, spec)
	case domain.FieldKindInteger, domain.FieldKindFloat:
		return normalizeNumber(raw, spec)
	case domain.FieldKindDate:
		return normalizeDate(raw, spec, ref)
	default:
		return absent(spec, fmt.Sprintf("unsupported field kind %q", spec.Kind))
	}
}

// normalizeCandidates resolves a list of alternatives. The first usable candidate is
// chosen; every distinct reading is listed when there is more than one. Dates are the
// exception: several distinct dates leave the field absent.
func normalizeCandidates(list []any, spec schema.FieldSpec, ref time.Time) Result {
	var (
		chosen  = domain.Absent(spec.Kind)
		values  []domain.FieldValue
		reasons []string
	)
	for _, c := range list {
		r := normalizeOne(c, spec, ref)
		if r.Ambiguity != nil {
			values = appendDistinct(values, r.Ambiguity.Possibilities...)
		}
		if !r.Value.IsAbsent() {
			if chosen.IsAbsent() {
				chosen = r.Value
			}
			values = appendDistinct(values, r.Value)
		}
		if r.Reason != "" {
			reasons = append(reasons, r.Reason)
		}
	}

	switch len(values) {
	case 0:
		reason := "no usable candidate"
		if len(reasons) > 0 {
			reason = reasons[0]
		}
		return absent(spec, reason)
	case 1:
		return Result{Value: values[0]}
	}

	note := &domain.AmbiguityNote{
		Field:         spec.Name,
		Possibilities: sortPossibilities(values),
		Reason:        fmt.Sprintf("conversation mentions %d different values", len(values)),
	}
	if spec.Kind == domain.FieldKindDate {
		return Result{Value: domain.Absent(spec.Kind), Ambiguity: note, Reason: note.Reason}
	}
	return Result{Value: chosen, Ambiguity: note, Reason: note.Reason}
}

func appendDistinct(dst []domain.FieldValue, vs ...domain.FieldValue) []domain.FieldValue {
outer:
	for _, v := range vs {
		if v.IsAbsent() {
			continue
		}
		for _, d := range dst {
			if d.Equal(v) {
				continue outer
			}
		}
		dst = append(dst, v)
	}
	return dst
}

// sortPossibilities orders numbers and dates ascending; text keeps mention order.
func sortPossibilities(vs []domain.FieldValue) []domain.FieldValue {
	out := append([]domain.FieldValue(nil), vs...)
	if len(out) == 0 {
		return out
	}
	switch out[0].Kind() {
	case domain.FieldKindInteger:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Int() < out[j].Int() })
	case domain.FieldKindFloat:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Float() < out[j].Float() })
	case domain.FieldKindDate:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Date().Before(out[j].Date()) })
	}
	return out
}

// rawText renders scalar input as text. ok is false for values that have no text form.
func rawText(raw any) (string, bool) {
	switch v := raw.(type) {
	case string:
		return v, true
	case fmt.Stringer:
		return v.String(), true
	default:
		return "", false
	}
}

var placeholders = map[string]bool{
	"":              true,
	"-":             true,
	"--":            true,
	"n/a":           true,
	"na":            true,
	"none":          true,
	"null":          true,
	"nil":           true,
	"unknown":       true,
	"not specified": true,
	"not provided":  true,
	"tbd":           true,
}

func isPlaceholder(s string) bool {
	return placeholders[strings.ToLower(strings.TrimSpace(s))]
}
