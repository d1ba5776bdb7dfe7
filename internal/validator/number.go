package validator

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"aria/internal/domain"
	"aria/internal/schema"
)

const (
	numPattern      = `(\d{1,3}(?:\.\d{3})+,\d{1,2}\b|\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:\.\d+)?|\.\d+)(?:\s?(k|thousand|million)\b)?`
	currencyPattern = `(?:[$€£¥₹]\s*)?`

	// float64 cannot represent MaxInt64; 2^63 is the first value past it.
	intLimit = 1 << 63
)

var (
	numberRe       = regexp.MustCompile(`(-)?` + currencyPattern + `(-)?` + numPattern)
	betweenRangeRe = regexp.MustCompile(`between\s+` + currencyPattern + numPattern + `\s+and\s+` + currencyPattern + numPattern)
	dashRangeRe    = regexp.MustCompile(currencyPattern + numPattern + `\s*(?:-|–|—|to)\s*` + currencyPattern + numPattern)
	letterHyphenRe = regexp.MustCompile(`([a-z])-([a-z])`)
)

var unitWords = map[string]int{
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6, "seven": 7,
	"eight": 8, "nine": 9, "ten": 10, "eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14,
	"fifteen": 15, "sixteen": 16, "seventeen": 17, "eighteen": 18, "nineteen": 19,
}

var tensWords = map[string]int{
	"twenty": 20, "thirty": 30, "forty": 40, "fifty": 50, "sixty": 60, "seventy": 70, "eighty": 80, "ninety": 90,
}

var scaleWords = map[string]int{
	"hundred": 100, "thousand": 1000, "million": 1000000, "dozen": 12,
}

func normalizeNumber(raw any, spec schema.FieldSpec) Result {
	switch v := raw.(type) {
	case float64:
		return numberResult(spec, v)
	case float32:
		return numberResult(spec, float64(v))
	case int:
		return numberResult(spec, float64(v))
	case int64:
		return numberResult(spec, float64(v))
	case int32:
		return numberResult(spec, float64(v))
	case bool:
		return absent(spec, "boolean is not a number")
	}

	s, ok := rawText(raw)
	if !ok {
		return absent(spec, fmt.Sprintf("unsupported %T value", raw))
	}
	if isPlaceholder(s) {
		return absent(spec, "placeholder value")
	}
	text := replaceNumberWords(strings.ToLower(s))

	if lo, hi, ok := findRange(text); ok {
		if lo > hi {
			lo, hi = hi, lo
		}
		loV, okLo := numberValue(spec, lo)
		mid, okMid := numberValue(spec, (lo+hi)/2)
		hiV, okHi := numberValue(spec, hi)
		if !okLo || !okMid || !okHi {
			return absent(spec, fmt.Sprintf("range %s to %s does not fit an integer", formatNumber(lo), formatNumber(hi)))
		}
		possibilities := appendDistinct(nil, loV, mid, hiV)
		if len(possibilities) < 2 {
			return Result{Value: mid}
		}
		note := &domain.AmbiguityNote{
			Field:         spec.Name,
			Possibilities: sortPossibilities(possibilities),
			Reason:        fmt.Sprintf("range %s to %s resolved to its midpoint", formatNumber(lo), formatNumber(hi)),
		}
		return Result{Value: mid, Ambiguity: note, Reason: note.Reason}
	}

	var (
		values   []domain.FieldValue
		overflow bool
	)
	for _, m := range numberRe.FindAllStringSubmatchIndex(text, -1) {
		f, err := parseNumber(group(text, m, 3), group(text, m, 4))
		if err != nil {
			continue
		}
		if negativeSign(text, m) {
			f = -f
		}
		v, ok := numberValue(spec, f)
		if !ok {
			overflow = true
			continue
		}
		values = appendDistinct(values, v)
	}
	switch {
	case len(values) == 0 && overflow:
		return absent(spec, fmt.Sprintf("%q does not fit an integer", s))
	case len(values) == 0:
		return absent(spec, fmt.Sprintf("no number in %q", s))
	case len(values) == 1:
		return Result{Value: values[0]}
	}
	note := &domain.AmbiguityNote{
		Field:         spec.Name,
		Possibilities: sortPossibilities(values),
		Reason:        "several amounts mentioned; the first one was kept",
	}
	return Result{Value: values[0], Ambiguity: note, Reason: note.Reason}
}

func numberResult(spec schema.FieldSpec, f float64) Result {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return absent(spec, "not a finite number")
	}
	v, ok := numberValue(spec, f)
	if !ok {
		return absent(spec, fmt.Sprintf("%s does not fit an integer", formatNumber(f)))
	}
	return Result{Value: v}
}

// numberValue converts f to the kind of spec. Integers round to the nearest whole
// number and report false when the result is outside the int64 range.
func numberValue(spec schema.FieldSpec, f float64) (domain.FieldValue, bool) {
	if spec.Kind != domain.FieldKindInteger {
		return domain.FloatValue(f), true
	}
	r := math.Round(f)
	if r < -intLimit || r >= intLimit {
		return domain.Absent(spec.Kind), false
	}
	return domain.IntegerValue(int64(r)), true
}

func group(s string, m []int, i int) string {
	if m[2*i] < 0 {
		return ""
	}
	return s[m[2*i]:m[2*i+1]]
}

// negativeSign reports whether a number match carries a minus sign of its own.
// A hyphen glued to a preceding word or digit ("item-5") is not a sign.
func negativeSign(s string, m []int) bool {
	if m[2] < 0 && m[4] < 0 {
		return false
	}
	start := m[0]
	if start == 0 {
		return true
	}
	prev := s[start-1]
	return !(prev >= 'a' && prev <= 'z' || prev >= '0' && prev <= '9')
}

func findRange(text string) (float64, float64, bool) {
	for _, re := range []*regexp.Regexp{betweenRangeRe, dashRangeRe} {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		lo, err := parseNumber(m[1], m[2])
		if err != nil {
			continue
		}
		hi, err := parseNumber(m[3], m[4])
		if err != nil {
			continue
		}
		return lo, hi, true
	}
	return 0, 0, false
}

// parseNumber reads digits in either 1,234.56 or 1.234,56 grouping and applies suffix.
func parseNumber(digits, suffix string) (float64, error) {
	if strings.LastIndex(digits, ",") > strings.LastIndex(digits, ".") && strings.Contains(digits, ".") {
		digits = strings.ReplaceAll(digits, ".", "")
		digits = strings.Replace(digits, ",", ".", 1)
	} else {
		digits = strings.ReplaceAll(digits, ",", "")
	}
	f, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return 0, err
	}
	switch suffix {
	case "k", "thousand":
		f *= 1000
	case "million":
		f *= 1000000
	}
	return f, nil
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// replaceNumberWords rewrites runs of English number words as digits,
// so "twenty five" becomes "25" and "a hundred" becomes "100".
func replaceNumberWords(s string) string {
	s = letterHyphenRe.ReplaceAllString(s, "$1 $2")
	tokens := strings.Fields(s)
	out := make([]string, 0, len(tokens))

	const (
		kindNone = iota
		kindUnit
		kindTens
		kindScale
	)
	var (
		inRun          bool
		total, current int
		last           = kindNone
	)
	flush := func(punct string) {
		if inRun {
			out = append(out, strconv.Itoa(total+current)+punct)
		}
		inRun, total, current, last = false, 0, 0, kindNone
	}

	for i, tok := range tokens {
		word := strings.TrimRight(tok, ",.;:!?")
		punct := tok[len(word):]
		next := ""
		if i+1 < len(tokens) {
			next = strings.TrimRight(tokens[i+1], ",.;:!?")
		}

		if n, ok := unitWords[word]; ok {
			if inRun && (last == kindUnit || (last == kindTens && n >= 10)) {
				flush("")
			}
			current += n
			inRun, last = true, kindUnit
		} else if n, ok := tensWords[word]; ok {
			if inRun && (last == kindUnit || last == kindTens) {
				flush("")
			}
			current += n
			inRun, last = true, kindTens
		} else if n, ok := scaleWords[word]; ok && (inRun || i == 0 || !isDigits(tokens[i-1])) {
			if current == 0 {
				current = 1
			}
			if n >= 1000 {
				total += current * n
				current = 0
			} else {
				current *= n
			}
			inRun, last = true, kindScale
		} else if (word == "a" || word == "an") && !inRun && scaleWords[next] > 0 {
			current = 1
			inRun, last = true, kindUnit
		} else if word == "and" && inRun && last == kindScale && (unitWords[next] > 0 || tensWords[next] > 0) {
			continue
		} else {
			flush("")
			out = append(out, tok)
			continue
		}

		if punct != "" {
			flush(punct)
		}
	}
	flush("")
	return strings.Join(out, " ")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
