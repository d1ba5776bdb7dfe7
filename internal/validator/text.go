package validator

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"aria/internal/domain"
	"aria/internal/schema"
)

// addressOrder ranks common address labels so structured values keep a readable order.
var addressOrder = map[string]int{
	"name":        0,
	"street":      1,
	"line1":       2,
	"line2":       3,
	"city":        4,
	"region":      5,
	"state":       6,
	"postal_code": 7,
	"zip":         8,
	"country":     9,
}

func normalizeString(raw any, spec schema.FieldSpec) Result {
	var s string
	switch v := raw.(type) {
	case bool:
		s = strconv.FormatBool(v)
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		s = strconv.Itoa(v)
	case int64:
		s = strconv.FormatInt(v, 10)
	case map[string]any:
		s = joinLabelled(v)
	default:
		text, ok := rawText(raw)
		if !ok {
			return absent(spec, fmt.Sprintf("unsupported %T value", raw))
		}
		s = text
	}

	s = cleanText(s)
	if isPlaceholder(s) {
		return absent(spec, "placeholder value")
	}
	return Result{Value: domain.StringValue(s)}
}

// cleanText trims each line, collapses inner whitespace and joins lines with ", ".
func cleanText(s string) string {
	lines := strings.FieldsFunc(s, func(r rune) bool { return r == '\n' || r == '\r' })
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		line = strings.TrimRight(line, ",; ")
		if line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, ", ")
}

// joinLabelled renders a structured value as "label: value" parts.
func joinLabelled(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, iok := addressOrder[strings.ToLower(keys[i])]
		rj, jok := addressOrder[strings.ToLower(keys[j])]
		switch {
		case iok && jok:
			return ri < rj
		case iok != jok:
			return iok
		default:
			return keys[i] < keys[j]
		}
	})

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		var text string
		switch v := m[k].(type) {
		case string:
			text = v
		case nil:
			continue
		default:
			text = fmt.Sprint(v)
		}
		text = cleanText(text)
		if isPlaceholder(text) {
			continue
		}
		parts = append(parts, k+": "+text)
	}
	return strings.Join(parts, "\n")
}

func foldEnum(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '/', '\t':
			return '_'
		}
		return r
	}, s)
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	return strings.Trim(s, "_")
}

var boolWords = map[string]string{
	"true":  "yes",
	"yes":   "yes",
	"y":     "yes",
	"on":    "yes",
	"false": "no",
	"no":    "no",
	"n":     "no",
	"off":   "no",
}

func normalizeEnum(raw any, spec schema.FieldSpec) Result {
	var key string
	switch v := raw.(type) {
	case bool:
		key = "no"
		if v {
			key = "yes"
		}
	default:
		text, ok := rawText(raw)
		if !ok {
			return absent(spec, fmt.Sprintf("unsupported %T value", raw))
		}
		if isPlaceholder(text) {
			return absent(spec, "placeholder value")
		}
		key = foldEnum(text)
	}

	if v, ok := matchEnum(spec.EnumValues, key); ok {
		return Result{Value: domain.EnumValue(v)}
	}
	if b, ok := boolWords[key]; ok {
		if v, ok := matchEnum(spec.EnumValues, b); ok {
			return Result{Value: domain.EnumValue(v)}
		}
	}

	// Fall back to members mentioned inside a longer phrase, in mention order.
	type hit struct {
		pos   int
		value string
	}
	var hits []hit
	padded := "_" + key + "_"
	for _, v := range spec.EnumValues {
		if i := strings.Index(padded, "_"+foldEnum(v)+"_"); i >= 0 {
			hits = append(hits, hit{pos: i, value: v})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	switch len(hits) {
	case 0:
		return absent(spec, fmt.Sprintf("%q is not one of %s", key, strings.Join(spec.EnumValues, ", ")))
	case 1:
		return Result{Value: domain.EnumValue(hits[0].value)}
	}
	possibilities := make([]domain.FieldValue, len(hits))
	for i, h := range hits {
		possibilities[i] = domain.EnumValue(h.value)
	}
	note := &domain.AmbiguityNote{
		Field:         spec.Name,
		Possibilities: possibilities,
		Reason:        "several options mentioned",
	}
	return Result{Value: possibilities[0], Ambiguity: note, Reason: note.Reason}
}

func matchEnum(values []string, key string) (string, bool) {
	for _, v := range values {
		if foldEnum(v) == key {
			return v, true
		}
	}
	return "", false
}
