package normalizer

import (
	"regexp"
	"strings"
	"unicode"
)

// BankNumberFormat classifies an account identifier found in an account column.
type BankNumberFormat string

const (
	FormatIBAN    BankNumberFormat = "iban"
	FormatCLABE   BankNumberFormat = "clabe"
	FormatGeneric BankNumberFormat = "generic"
)

var (
	ibanPattern  = regexp.MustCompile(`^[A-Z]{2}\d{2}[A-Z0-9]{1,30}$`)
	clabePattern = regexp.MustCompile(`^\d{18}$`)
)

// NormalizeAccountNumber uppercases and removes all whitespace.
func NormalizeAccountNumber(value string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, strings.ToUpper(strings.TrimSpace(value)))
}

// IsIBAN reports whether value has the shape of an IBAN once spacing is removed.
// The check digits are not verified.
func IsIBAN(value string) bool {
	return ibanPattern.MatchString(NormalizeAccountNumber(value))
}

// IsCLABE reports whether value is an 18 digit Mexican CLABE.
func IsCLABE(value string) bool {
	return clabePattern.MatchString(strings.TrimSpace(value))
}

// DetectBankNumberFormat returns iban, clabe or generic. Empty input is generic.
func DetectBankNumberFormat(value string) BankNumberFormat {
	if strings.TrimSpace(value) == "" {
		return FormatGeneric
	}
	if IsIBAN(value) {
		return FormatIBAN
	}
	if IsCLABE(value) {
		return FormatCLABE
	}
	return FormatGeneric
}
