package chat

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// DateKind tags a DateSpec.
type DateKind int

const (
	DateToday DateKind = iota
	DateExact
	DateNeedsYear
	DateNeedsClarification
	DateInvalid
)

const isoLayout = "2006-01-02"

// Markers the oracle uses in its date field.
const (
	markerToday             = "TODAY"
	markerNeedYear          = "NEED_YEAR:"
	markerNeedClarification = "NEED_CLARIFICATION:"
)

// DateSpec is a resolved or unresolved expense date. ISO is set for
// DateExact; Text holds the fragment that needs clarifying.
type DateSpec struct {
	Kind DateKind
	ISO  string
	Text string
}

func Today() DateSpec { return DateSpec{Kind: DateToday} }

func Exact(iso string) DateSpec { return DateSpec{Kind: DateExact, ISO: iso} }

func NeedsYear(partial string) DateSpec { return DateSpec{Kind: DateNeedsYear, Text: partial} }

func NeedsClarification(vague string) DateSpec {
	return DateSpec{Kind: DateNeedsClarification, Text: vague}
}

// Invalid is a date the user typed that is not on the calendar, like 31/02/2024.
func Invalid(typed string) DateSpec { return DateSpec{Kind: DateInvalid, Text: typed} }

// Ambiguous reports whether the date must be clarified before anything is stored.
func (d DateSpec) Ambiguous() bool {
	return d.Kind == DateNeedsYear || d.Kind == DateNeedsClarification || d.Kind == DateInvalid
}

// Time returns the calendar day d points at, in now's location.
// Exact dates keep now's wall clock so ordering among same-day rows follows
// entry order.
func (d DateSpec) Time(now time.Time) (time.Time, error) {
	switch d.Kind {
	case DateToday:
		return now, nil
	case DateExact:
		day, err := time.ParseInLocation(isoLayout, d.ISO, now.Location())
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date %q: %w", d.ISO, err)
		}
		h, m, s := now.Clock()
		return time.Date(day.Year(), day.Month(), day.Day(), h, m, s, 0, now.Location()), nil
	default:
		return time.Time{}, fmt.Errorf("date %q needs clarification", d.Text)
	}
}

// String renders d the way the oracle protocol spells it.
func (d DateSpec) String() string {
	switch d.Kind {
	case DateExact:
		return d.ISO
	case DateNeedsYear:
		return markerNeedYear + d.Text
	case DateNeedsClarification, DateInvalid:
		return markerNeedClarification + d.Text
	default:
		return markerToday
	}
}

const monthPattern = `(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sept?(?:ember)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)`

var (
	dayMonthYearRe = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+` + monthPattern + `,?\s+(\d{4})\b`)
	monthDayYearRe = regexp.MustCompile(`(?i)\b` + monthPattern + `\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})\b`)
	slashDateRe    = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	isoDateRe      = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)

	monthDayRe   = regexp.MustCompile(`(?i)\b` + monthPattern + `\s+(\d{1,2})(?:st|nd|rd|th)?\b`)
	dayMonthRe   = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+` + monthPattern + `\b`)
	// without a year a bare 1/2 is more often a fraction than a date
	slashShortRe = regexp.MustCompile(`(?i)\b(?:on|dated|date|from)\s+((\d{1,2})/(\d{1,2}))\b`)

	vagueRe     = regexp.MustCompile(`(?i)\blast\s+(week|month)\b`)
	yesterdayRe = regexp.MustCompile(`(?i)\byesterday\b`)
)

// ResolveDate decides the date of an expense from the message and the
// oracle's proposal (possibly empty). It is used for both the fast path and
// the oracle path.
func ResolveDate(message, proposed string, now time.Time) DateSpec {
	proposed = strings.TrimSpace(proposed)
	switch {
	case strings.HasPrefix(proposed, markerNeedYear):
		return NeedsYear(strings.TrimSpace(strings.TrimPrefix(proposed, markerNeedYear)))
	case strings.HasPrefix(proposed, markerNeedClarification):
		return NeedsClarification(strings.TrimSpace(strings.TrimPrefix(proposed, markerNeedClarification)))
	case proposed != "" && !strings.EqualFold(proposed, markerToday):
		if _, err := time.Parse(isoLayout, proposed); err == nil {
			return Exact(proposed)
		}
	}

	iso, typed := absoluteDate(message)
	if iso != "" {
		return Exact(iso)
	}
	// the oracle sometimes echoes the phrase instead of converting it
	proposedISO, proposedTyped := absoluteDate(proposed)
	if proposedISO != "" {
		return Exact(proposedISO)
	}
	if typed != "" {
		return Invalid(typed)
	}
	if proposedTyped != "" {
		return Invalid(proposedTyped)
	}
	if partial, ok := partialDate(message); ok {
		return NeedsYear(partial)
	}
	if m := vagueRe.FindString(message); m != "" {
		return NeedsClarification(strings.ToLower(m))
	}
	if yesterdayRe.MatchString(message) {
		return Exact(now.AddDate(0, 0, -1).Format(isoLayout))
	}
	return Today()
}

// absoluteDate returns the first full date in message that is on the
// calendar. If none is but something date-shaped was typed, that fragment is
// returned as typed instead.
func absoluteDate(message string) (iso, typed string) {
	for _, m := range dayMonthYearRe.FindAllStringSubmatch(message, -1) {
		if iso, ok := buildISO(m[3], monthNumber(m[2]), m[1]); ok {
			return iso, ""
		}
		typed = firstNonEmpty(typed, strings.ToLower(m[0]))
	}
	for _, m := range monthDayYearRe.FindAllStringSubmatch(message, -1) {
		if iso, ok := buildISO(m[3], monthNumber(m[1]), m[2]); ok {
			return iso, ""
		}
		typed = firstNonEmpty(typed, strings.ToLower(m[0]))
	}
	for _, m := range slashDateRe.FindAllStringSubmatch(message, -1) {
		month, _ := strconv.Atoi(m[2])
		if iso, ok := buildISO(m[3], month, m[1]); ok {
			return iso, ""
		}
		typed = firstNonEmpty(typed, m[0])
	}
	for _, m := range isoDateRe.FindAllString(message, -1) {
		if _, err := time.Parse(isoLayout, m); err == nil {
			return m, ""
		}
		typed = firstNonEmpty(typed, m)
	}
	return "", typed
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// partialDate finds a day and month with no year and returns the fragment as typed.
func partialDate(message string) (string, bool) {
	for _, m := range monthDayRe.FindAllStringSubmatch(message, -1) {
		if validDayMonth(m[2], monthNumber(m[1])) {
			return strings.ToLower(m[0]), true
		}
	}
	for _, loc := range dayMonthRe.FindAllStringSubmatchIndex(message, -1) {
		day, month := message[loc[2]:loc[3]], message[loc[4]:loc[5]]
		if strings.EqualFold(month, "may") && !endsPhrase(message[loc[1]:]) {
			// "3 may flowers" is not a date
			continue
		}
		if validDayMonth(day, monthNumber(month)) {
			return strings.ToLower(message[loc[0]:loc[1]]), true
		}
	}
	for _, m := range slashShortRe.FindAllStringSubmatch(message, -1) {
		month, _ := strconv.Atoi(m[3])
		if validDayMonth(m[2], month) {
			return m[1], true
		}
	}
	return "", false
}

// endsPhrase reports whether rest is empty or starts with a digit or punctuation.
func endsPhrase(rest string) bool {
	rest = strings.TrimLeft(rest, " \t")
	if rest == "" {
		return true
	}
	r, _ := utf8.DecodeRuneInString(rest)
	return unicode.IsDigit(r) || unicode.IsPunct(r)
}

func monthNumber(name string) int {
	name = strings.ToLower(name)
	if len(name) < 3 {
		return 0
	}
	months := []string{"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec"}
	for i, m := range months {
		if name[:3] == m {
			return i + 1
		}
	}
	return 0
}

func validDayMonth(dayText string, month int) bool {
	day, err := strconv.Atoi(dayText)
	if err != nil || month < 1 || month > 12 || day < 1 {
		return false
	}
	// leap year so 29 february is accepted without a year
	return day <= time.Date(2024, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func buildISO(yearText string, month int, dayText string) (string, bool) {
	year, err := strconv.Atoi(yearText)
	if err != nil || month < 1 || month > 12 {
		return "", false
	}
	day, err := strconv.Atoi(dayText)
	if err != nil {
		return "", false
	}
	iso := fmt.Sprintf("%04d-%02d-%02d", year, month, day)
	if _, err := time.Parse(isoLayout, iso); err != nil {
		return "", false
	}
	return iso, true
}

// FormatLongDate renders a day as "July 15, 2024".
func FormatLongDate(t time.Time) string {
	return t.Format("January 2, 2006")
}
