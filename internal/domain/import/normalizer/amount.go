package normalizer

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// currency symbols, the letter C (as in "C$") and any spacing
	amountNoise = regexp.MustCompile(`[€$£¥C\s\p{Zs}]`)
	// a float literal at the start of the cleaned value; trailing text is ignored
	leadingNumber = regexp.MustCompile(`^([+-]?)(\d*)(?:\.(\d*))?(?:[eE]([+-]?\d+))?`)
	zeroLiteral   = regexp.MustCompile(`^[0.,\s\p{Zs}€$£¥C]*$`)

	maxCents = decimal.NewFromInt(math.MaxInt64)
	minCents = decimal.NewFromInt(math.MinInt64)
)

// ParseAmountToCents converts a statement amount to integer cents.
//
// Currency symbols and whitespace are removed first. When the last comma comes
// after the last period the comma is the decimal separator (1.234,56),
// otherwise the period is (1,234.56). A leading sign is kept. Values are
// rounded half away from zero. Empty or non-numeric input yields 0.
func ParseAmountToCents(raw string) int64 {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0
	}

	cleaned := amountNoise.ReplaceAllString(trimmed, "")

	lastComma := strings.LastIndex(cleaned, ",")
	lastPeriod := strings.LastIndex(cleaned, ".")
	if lastComma > lastPeriod {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	} else {
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}

	value, ok := parseLeadingDecimal(cleaned)
	if !ok {
		return 0
	}

	cents := value.Shift(2).Round(0)
	if cents.GreaterThan(maxCents) || cents.LessThan(minCents) {
		return 0
	}
	return cents.IntPart()
}

// IsZeroAmountLiteral reports whether raw only spells zero, e.g. "0,00" or "€ 0".
// It tells a genuine zero apart from a value that failed to parse.
func IsZeroAmountLiteral(raw string) bool {
	return zeroLiteral.MatchString(raw)
}

func parseLeadingDecimal(s string) (decimal.Decimal, bool) {
	m := leadingNumber.FindStringSubmatch(s)
	if m == nil {
		return decimal.Zero, false
	}
	sign, whole, frac, exp := m[1], m[2], m[3], m[4]
	if whole == "" && frac == "" {
		return decimal.Zero, false
	}
	if whole == "" {
		whole = "0"
	}

	literal := sign + whole
	if frac != "" {
		literal += "." + frac
	}

	value, err := decimal.NewFromString(literal)
	if err != nil {
		return decimal.Zero, false
	}

	if exp != "" {
		shift, err := strconv.Atoi(exp)
		if err != nil || shift > 30 || shift < -30 {
			return decimal.Zero, false
		}
		value = value.Shift(int32(shift))
	}
	return value, true
}
