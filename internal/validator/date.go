package validator

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"aria/internal/domain"
	"aria/internal/schema"
)

var monthNames = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sept": time.September, "sep": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

var weekdayNames = map[string]time.Weekday{
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
	"sunday": time.Sunday, "sun": time.Sunday,
}

// Relative offsets past ten years are treated as noise.
const maxRelativeDays = 3660

const (
	monthAlt   = `january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sept|sep|oct|nov|dec`
	weekdayAlt = `monday|tuesday|wednesday|thursday|friday|saturday|sunday|tues|thurs|thur|mon|tue|wed|thu|fri|sat|sun`
)

var (
	isoDateRe     = regexp.MustCompile(`^(\d{4})[-/.](\d{1,2})[-/.](\d{1,2})$`)
	numericDateRe = regexp.MustCompile(`^(\d{1,2})[-/.](\d{1,2})(?:[-/.](\d{4}|\d{2}))?$`)
	monthDayRe    = regexp.MustCompile(`^(` + monthAlt + `)\s+(\d{1,2})(?:\s+(\d{4}))?$`)
	dayMonthRe    = regexp.MustCompile(`^(\d{1,2})\s+(?:of\s+)?(` + monthAlt + `)(?:\s+(\d{4}))?$`)
	weekdayRe     = regexp.MustCompile(`^(?:(this|next|coming|upcoming)\s+)?(` + weekdayAlt + `)$`)
	inDaysRe      = regexp.MustCompile(`^in\s+(\d+|a|an)\s+(days?|weeks?)$`)
	fromNowRe     = regexp.MustCompile(`^(\d+|a|an)\s+(days?|weeks?)\s+from\s+(?:now|today)$`)
	ordinalRe     = regexp.MustCompile(`(\d+)(?:st|nd|rd|th)\b`)
	leadingWeekRe = regexp.MustCompile(`^(?:` + weekdayAlt + `)\s+`)
)

var datePrefixes = []string{"on ", "the ", "for ", "by ", "from ", "until "}

func normalizeDate(raw any, spec schema.FieldSpec, ref time.Time) Result {
	var (
		dates  []civil.Date
		reason string
	)
	switch v := raw.(type) {
	case civil.Date:
		if !v.IsValid() {
			return absent(spec, "invalid calendar date")
		}
		return Result{Value: domain.DateValue(v)}
	case time.Time:
		return Result{Value: domain.DateValue(civil.DateOf(v))}
	default:
		s, ok := rawText(raw)
		if !ok {
			return absent(spec, fmt.Sprintf("unsupported %T value", raw))
		}
		if isPlaceholder(s) {
			return absent(spec, "placeholder value")
		}
		dates, reason = parseDateText(s, civil.DateOf(ref))
	}

	var values []domain.FieldValue
	for _, d := range dates {
		values = appendDistinct(values, domain.DateValue(d))
	}
	switch len(values) {
	case 0:
		return absent(spec, reason)
	case 1:
		return Result{Value: values[0]}
	}
	note := &domain.AmbiguityNote{
		Field:         spec.Name,
		Possibilities: sortPossibilities(values),
		Reason:        reason,
	}
	return Result{Value: domain.Absent(spec.Kind), Ambiguity: note, Reason: reason}
}

// parseDateText returns every calendar date s can plausibly mean relative to ref,
// with a reason when the result is empty or has several entries.
func parseDateText(s string, ref civil.Date) ([]civil.Date, string) {
	raw := strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return []civil.Date{civil.DateOf(t)}, ""
	}
	if t, err := time.Parse("2006-01-02T15:04:05", raw); err == nil {
		return []civil.Date{civil.DateOf(t)}, ""
	}

	if m := isoDateRe.FindStringSubmatch(raw); m != nil {
		d, ok := makeDate(atoi(m[1]), atoi(m[2]), atoi(m[3]))
		if !ok {
			return nil, fmt.Sprintf("%q is not a valid calendar date", raw)
		}
		return []civil.Date{d}, ""
	}

	if m := numericDateRe.FindStringSubmatch(raw); m != nil {
		return numericDate(atoi(m[1]), atoi(m[2]), m[3], ref, raw)
	}

	text := normalizeDatePhrase(raw)

	switch text {
	case "today", "tonight", "now":
		return []civil.Date{ref}, ""
	case "tomorrow", "tomorrow night":
		return []civil.Date{ref.AddDays(1)}, ""
	case "day after tomorrow":
		return []civil.Date{ref.AddDays(2)}, ""
	}

	for _, re := range []*regexp.Regexp{inDaysRe, fromNowRe} {
		if m := re.FindStringSubmatch(text); m != nil {
			n := 1
			if m[1] != "a" && m[1] != "an" {
				var err error
				if n, err = strconv.Atoi(m[1]); err != nil || n > maxRelativeDays {
					return nil, fmt.Sprintf("%q is too far from the reference date", raw)
				}
			}
			if strings.HasPrefix(m[2], "week") {
				n *= 7
			}
			if n > maxRelativeDays {
				return nil, fmt.Sprintf("%q is too far from the reference date", raw)
			}
			return []civil.Date{ref.AddDays(n)}, ""
		}
	}

	if m := weekdayRe.FindStringSubmatch(text); m != nil {
		return weekdayDate(m[1], weekdayNames[m[2]], ref)
	}

	// A weekday in front of an explicit date adds nothing.
	text = leadingWeekRe.ReplaceAllString(text, "")

	if m := monthDayRe.FindStringSubmatch(text); m != nil {
		return monthNameDate(monthNames[m[1]], atoi(m[2]), m[3], ref, raw)
	}
	if m := dayMonthRe.FindStringSubmatch(text); m != nil {
		return monthNameDate(monthNames[m[2]], atoi(m[1]), m[3], ref, raw)
	}

	return nil, fmt.Sprintf("unrecognized date expression %q", raw)
}

func normalizeDatePhrase(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer(",", " ", ".", " ").Replace(s)
	s = ordinalRe.ReplaceAllString(s, "$1")
	s = replaceNumberWords(s)
	s = strings.Join(strings.Fields(s), " ")
	for trimmed := true; trimmed; {
		trimmed = false
		for _, p := range datePrefixes {
			if strings.HasPrefix(s, p) {
				s = strings.TrimPrefix(s, p)
				trimmed = true
			}
		}
	}
	return s
}

// numericDate reads a/b as both month/day and day/month. Both readings are
// returned when they are valid and differ.
func numericDate(a, b int, year string, ref civil.Date, raw string) ([]civil.Date, string) {
	var dates []civil.Date
	for _, md := range [][2]int{{a, b}, {b, a}} {
		d, ok := resolveYear(time.Month(md[0]), md[1], year, ref)
		if !ok {
			continue
		}
		if len(dates) == 0 || dates[0] != d {
			dates = append(dates, d)
		}
	}
	switch len(dates) {
	case 0:
		return nil, fmt.Sprintf("%q is not a valid calendar date", raw)
	case 1:
		return dates, ""
	}
	return dates, fmt.Sprintf("%q reads as both month/day and day/month", raw)
}

func monthNameDate(month time.Month, day int, year string, ref civil.Date, raw string) ([]civil.Date, string) {
	d, ok := resolveYear(month, day, year, ref)
	if !ok {
		return nil, fmt.Sprintf("%q is not a valid calendar date", raw)
	}
	return []civil.Date{d}, ""
}

// weekdayDate resolves "Friday", "this Friday" and "next Friday". A bare or "this"
// weekday is the next occurrence on or after ref. "next" skips ref itself, and is
// ambiguous when that occurrence still falls inside the reference week.
func weekdayDate(qualifier string, wd time.Weekday, ref civil.Date) ([]civil.Date, string) {
	refTime := ref.In(time.UTC)
	days := (int(wd) - int(refTime.Weekday()) + 7) % 7
	if qualifier != "next" {
		return []civil.Date{ref.AddDays(days)}, ""
	}
	if days == 0 {
		days = 7
	}
	d := ref.AddDays(days)
	if !sameISOWeek(d, ref) {
		return []civil.Date{d}, ""
	}
	return []civil.Date{d, d.AddDays(7)},
		fmt.Sprintf("next %s could mean this week's or the following week's", strings.ToLower(wd.String()))
}

func sameISOWeek(a, b civil.Date) bool {
	ay, aw := a.In(time.UTC).ISOWeek()
	by, bw := b.In(time.UTC).ISOWeek()
	return ay == by && aw == bw
}

// resolveYear builds the date for month/day. A missing year is the reference year,
// moved forward when that date has already passed.
func resolveYear(month time.Month, day int, year string, ref civil.Date) (civil.Date, bool) {
	if year != "" {
		y := atoi(year)
		if len(year) == 2 {
			y += 2000
		}
		return makeDate(y, int(month), day)
	}
	for y := ref.Year; y <= ref.Year+4; y++ {
		d, ok := makeDate(y, int(month), day)
		if ok && !d.Before(ref) {
			return d, true
		}
		if !ok && (month < time.January || month > time.December || day < 1 || day > 31) {
			return civil.Date{}, false
		}
	}
	return civil.Date{}, false
}

func makeDate(y, m, d int) (civil.Date, bool) {
	date := civil.Date{Year: y, Month: time.Month(m), Day: d}
	return date, date.IsValid()
}

// atoi is only used on regexp groups of at most four digits.
func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
