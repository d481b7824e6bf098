// Package normalizer converts raw statement cells into canonical values:
// calendar dates, integer cents, comparable payee names and bank identifiers.
// Every function here is pure and safe for concurrent use.
package normalizer

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// DateOrder decides how an ambiguous A/B/YYYY date is read when both A and B
// are 12 or lower.
type DateOrder int

const (
	// DayFirst reads 03/04/2025 as 3 April. It is the default.
	DayFirst DateOrder = iota
	// MonthFirst reads 03/04/2025 as 4 March.
	MonthFirst
)

var ErrInvalidDateOrder = errors.New("invalid date order")

var (
	isoDateTimePattern = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})[T ]\d{2}:\d{2}`)
	isoDatePattern     = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	numericDatePattern = regexp.MustCompile(`^(\d{1,2})[/\-.](\d{1,2})[/\-.](\d{4})$`)
)

func (o DateOrder) String() string {
	if o == MonthFirst {
		return "month-first"
	}
	return "day-first"
}

// ParseDateOrder reads a configuration value such as "day-first" or "MM/DD".
func ParseDateOrder(s string) (DateOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "day-first", "dayfirst", "dmy", "dd/mm", "dd/mm/yyyy":
		return DayFirst, nil
	case "month-first", "monthfirst", "mdy", "mm/dd", "mm/dd/yyyy":
		return MonthFirst, nil
	}
	return DayFirst, fmt.Errorf("%w: %q", ErrInvalidDateOrder, s)
}

// DateParser parses statement dates into YYYY-MM-DD strings.
// The zero value uses the day-first default.
type DateParser struct {
	Order DateOrder
}

// ParseDate parses raw with the day-first default.
func ParseDate(raw string) (string, bool) {
	return DateParser{}.Parse(raw)
}

// Parse recognises, in order: an ISO datetime prefix (time dropped), an ISO
// date with optional zero padding, then A[/-.]B[/-.]YYYY. In the last form a
// component above 12 must be the day; otherwise p.Order decides.
// A month outside 1-12 or a day outside 1-31 is rejected; month lengths are
// not checked. ok is false for anything else.
func (p DateParser) Parse(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}

	if m := isoDateTimePattern.FindStringSubmatch(trimmed); m != nil {
		return isoDate(m[1], m[2], m[3])
	}

	if m := isoDatePattern.FindStringSubmatch(trimmed); m != nil {
		return isoDate(m[1], m[2], m[3])
	}

	if m := numericDatePattern.FindStringSubmatch(trimmed); m != nil {
		first, _ := strconv.Atoi(m[1])
		second, _ := strconv.Atoi(m[2])
		year := m[3]

		switch {
		case first > 12:
			return civilDate(year, second, first)
		case second > 12:
			return civilDate(year, first, second)
		case p.Order == MonthFirst:
			return civilDate(year, first, second)
		default:
			return civilDate(year, second, first)
		}
	}

	return "", false
}

func isoDate(year, month, day string) (string, bool) {
	m, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	return civilDate(year, m, d)
}

func civilDate(year string, month, day int) (string, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return "", false
	}
	return fmt.Sprintf("%s-%02d-%02d", year, month, day), true
}
