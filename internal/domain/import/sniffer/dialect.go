package sniffer

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/FACorreiaa/ledger-import/internal/domain/import/normalizer"
)

// RegionalDialect is the inferred regional formatting of a statement.
// It is a hint for the preview; parsing still uses the configured date order.
type RegionalDialect struct {
	DecimalSeparator   string               `json:"decimal_separator"`   // "." or ","
	ThousandsSeparator string               `json:"thousands_separator"` // "," or "."
	DateOrder          normalizer.DateOrder `json:"-"`
	DateOrderKnown     bool                 `json:"date_order_known"`
	DateOrderName      string               `json:"date_order,omitempty"`
	CurrencyHint       string               `json:"currency_hint,omitempty"` // "EUR", "USD", "GBP"
	Confidence         float64              `json:"confidence"`               // share of amount hints that agree
	IsEuropeanFormat   bool                 `json:"is_european_format"`
}

var slashDate = regexp.MustCompile(`^\s*(\d{1,2})[/\-.](\d{1,2})[/\-.]\d{4}`)

// ProbeDialect inspects sample rows. amountIdx and dateIdx may be -1 when the
// column is unknown. The date order is only reported when some sample has a
// component above 12 and no sample contradicts it.
func ProbeDialect(sampleRows [][]string, amountIdx, dateIdx int) *RegionalDialect {
	dialect := &RegionalDialect{
		DecimalSeparator:   ".",
		ThousandsSeparator: ",",
		Confidence:         0.5,
	}

	europeanHints, usHints := 0, 0
	dayFirst, monthFirst := false, false

	for _, row := range sampleRows {
		if amountIdx >= 0 && amountIdx < len(row) {
			switch hint := amountHint(row[amountIdx]); {
			case hint > 0:
				europeanHints++
			case hint < 0:
				usHints++
			}
		}

		if dateIdx >= 0 && dateIdx < len(row) {
			switch dateHint(row[dateIdx]) {
			case normalizer.DayFirst:
				dayFirst = true
			case normalizer.MonthFirst:
				monthFirst = true
			}
		}

		for _, cell := range row {
			switch {
			case strings.Contains(cell, "€") || strings.Contains(cell, "EUR"):
				dialect.CurrencyHint = "EUR"
			case strings.Contains(cell, "£") || strings.Contains(cell, "GBP"):
				dialect.CurrencyHint = "GBP"
			case strings.Contains(cell, "$") && dialect.CurrencyHint == "":
				dialect.CurrencyHint = "USD"
			}
		}
	}

	switch {
	case europeanHints > usHints:
		dialect.DecimalSeparator = ","
		dialect.ThousandsSeparator = "."
		dialect.IsEuropeanFormat = true
	case usHints > europeanHints:
		dialect.DecimalSeparator = "."
		dialect.ThousandsSeparator = ","
	}

	if total := europeanHints + usHints; total > 0 {
		dialect.Confidence = float64(max(europeanHints, usHints)) / float64(total)
	}

	switch {
	case dayFirst && !monthFirst:
		dialect.DateOrder, dialect.DateOrderKnown = normalizer.DayFirst, true
	case monthFirst && !dayFirst:
		dialect.DateOrder, dialect.DateOrderKnown = normalizer.MonthFirst, true
	}
	if dialect.DateOrderKnown {
		dialect.DateOrderName = dialect.DateOrder.String()
	}

	return dialect
}

// amountHint returns >0 for a decimal comma, <0 for a decimal point and 0 when
// the value does not tell.
func amountHint(val string) int {
	cleaned := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' || r == ',' || r == '.' {
			return r
		}
		return -1
	}, val)
	if cleaned == "" {
		return 0
	}

	lastComma := strings.LastIndex(cleaned, ",")
	lastDot := strings.LastIndex(cleaned, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			return 1
		}
		return -1
	case lastComma >= 0:
		if len(cleaned)-lastComma-1 <= 2 {
			return 1
		}
	case lastDot >= 0:
		if len(cleaned)-lastDot-1 <= 2 {
			return -1
		}
	}
	return 0
}

// dateHint reports which order an A/B/YYYY date proves, or -1 when it proves neither.
func dateHint(val string) normalizer.DateOrder {
	m := slashDate.FindStringSubmatch(val)
	if m == nil {
		return -1
	}
	first, _ := strconv.Atoi(m[1])
	second, _ := strconv.Atoi(m[2])
	switch {
	case first > 12 && second <= 12:
		return normalizer.DayFirst
	case second > 12 && first <= 12:
		return normalizer.MonthFirst
	}
	return -1
}
