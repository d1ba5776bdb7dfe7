package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"cloud.google.com/go/civil"
)

// FieldValue is a normalized value of one schema field, or the explicit absent marker.
// The zero value is absent with no kind.
type FieldValue struct {
	kind    FieldKind
	present bool
	text    string
	integer int64
	number  float64
	date    civil.Date
}

// Absent returns the absent marker for a field of the given kind.
func Absent(kind FieldKind) FieldValue {
	return FieldValue{kind: kind}
}

// StringValue wraps a normalized string.
func StringValue(s string) FieldValue {
	return FieldValue{kind: FieldKindString, present: true, text: s}
}

// EnumValue wraps a matched enum member.
func EnumValue(s string) FieldValue {
	return FieldValue{kind: FieldKindEnum, present: true, text: s}
}

// IntegerValue wraps a normalized integer.
func IntegerValue(n int64) FieldValue {
	return FieldValue{kind: FieldKindInteger, present: true, integer: n}
}

// FloatValue wraps a normalized float.
func FloatValue(f float64) FieldValue {
	return FieldValue{kind: FieldKindFloat, present: true, number: f}
}

// DateValue wraps a calendar date.
func DateValue(d civil.Date) FieldValue {
	return FieldValue{kind: FieldKindDate, present: true, date: d}
}

func (v FieldValue) Kind() FieldKind  { return v.kind }
func (v FieldValue) IsAbsent() bool   { return !v.present }
func (v FieldValue) Text() string     { return v.text }
func (v FieldValue) Int() int64       { return v.integer }
func (v FieldValue) Float() float64   { return v.number }
func (v FieldValue) Date() civil.Date { return v.date }

// Interface returns the value as a plain Go value suitable for JSON or YAML encoding.
// Absent values return nil.
func (v FieldValue) Interface() any {
	if !v.present {
		return nil
	}
	switch v.kind {
	case FieldKindInteger:
		return v.integer
	case FieldKindFloat:
		return v.number
	case FieldKindDate:
		return v.date.String()
	default:
		return v.text
	}
}

// String renders the canonical text form; absent values render as "".
func (v FieldValue) String() string {
	if !v.present {
		return ""
	}
	switch v.kind {
	case FieldKindInteger:
		return strconv.FormatInt(v.integer, 10)
	case FieldKindFloat:
		return strconv.FormatFloat(v.number, 'f', -1, 64)
	case FieldKindDate:
		return v.date.String()
	default:
		return v.text
	}
}

// Equal reports whether both values have the same kind, presence and content.
func (v FieldValue) Equal(o FieldValue) bool {
	if v.kind != o.kind || v.present != o.present {
		return false
	}
	if !v.present {
		return true
	}
	return v.String() == o.String()
}

func (v FieldValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// DecodeFieldValue parses a serialized value of the given kind. JSON null decodes to absent.
func DecodeFieldValue(kind FieldKind, raw json.RawMessage) (FieldValue, error) {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return Absent(kind), nil
	}
	switch kind {
	case FieldKindInteger:
		var n int64
		if err := json.Unmarshal(raw, &n); err != nil {
			return FieldValue{}, fmt.Errorf("decoding integer value: %w", err)
		}
		return IntegerValue(n), nil
	case FieldKindFloat:
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return FieldValue{}, fmt.Errorf("decoding float value: %w", err)
		}
		return FloatValue(f), nil
	case FieldKindDate:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return FieldValue{}, fmt.Errorf("decoding date value: %w", err)
		}
		d, err := civil.ParseDate(s)
		if err != nil {
			return FieldValue{}, fmt.Errorf("decoding date value: %w", err)
		}
		return DateValue(d), nil
	case FieldKindEnum, FieldKindString:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return FieldValue{}, fmt.Errorf("decoding %s value: %w", kind, err)
		}
		if kind == FieldKindEnum {
			return EnumValue(s), nil
		}
		return StringValue(s), nil
	default:
		return FieldValue{}, fmt.Errorf("unsupported field kind %q", kind)
	}
}
