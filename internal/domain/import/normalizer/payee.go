package normalizer

import (
	"regexp"
	"strings"
)

// DefaultEntitySuffixes are the legal-entity markers ignored when comparing
// payees for duplicates. Dots are optional when matching.
var DefaultEntitySuffixes = []string{"b.v.", "n.v.", "inc.", "ltd.", "llc.", "gmbh", "bv", "nv"}

var (
	matchPunctuation    = regexp.MustCompile(`[.,\-_'"]`)
	trailingPunctuation = regexp.MustCompile(`[.,;:!]+$`)
)

// PayeeNormalizer folds payee names for duplicate comparison. It is the
// stronger of the two payee normalizations: punctuation and entity suffixes
// are removed as well as case and spacing.
type PayeeNormalizer struct {
	suffixes []string
	pattern  *regexp.Regexp
}

// NewPayeeNormalizer builds a normalizer for the given entity suffixes.
// A nil slice uses DefaultEntitySuffixes; an empty slice strips none.
func NewPayeeNormalizer(suffixes []string) *PayeeNormalizer {
	if suffixes == nil {
		suffixes = DefaultEntitySuffixes
	}
	n := &PayeeNormalizer{suffixes: append([]string(nil), suffixes...)}
	n.pattern = suffixPattern(n.suffixes)
	return n
}

var defaultPayeeNormalizer = NewPayeeNormalizer(nil)

// NormalizePayee applies the default duplicate-strength normalization.
func NormalizePayee(payee string) string {
	return defaultPayeeNormalizer.Normalize(payee)
}

// Suffixes returns a copy of the configured entity suffixes.
func (n *PayeeNormalizer) Suffixes() []string {
	return append([]string(nil), n.suffixes...)
}

// Normalize lowercases and trims, drops . , - _ ' ", collapses whitespace,
// removes entity suffixes as whole words and trims again.
// "ALBERT HEIJN B.V." and "Albert Heijn" both become "albert heijn".
func (n *PayeeNormalizer) Normalize(payee string) string {
	result := strings.TrimSpace(strings.ToLower(payee))
	result = matchPunctuation.ReplaceAllString(result, "")
	result = collapseSpaces(result)
	if n.pattern != nil {
		result = n.pattern.ReplaceAllString(result, "")
	}
	return strings.TrimSpace(result)
}

// NormalizeForGrouping is the lighter normalization used to group recurring
// payees: trim, lowercase, collapse whitespace and drop trailing .,;:!
// Entity suffixes and inner punctuation are kept.
func NormalizeForGrouping(payee string) string {
	result := collapseSpaces(strings.ToLower(strings.TrimSpace(payee)))
	result = trailingPunctuation.ReplaceAllString(result, "")
	return strings.TrimSpace(result)
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func suffixPattern(suffixes []string) *regexp.Regexp {
	alternatives := make([]string, 0, len(suffixes))
	for _, s := range suffixes {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		quoted := regexp.QuoteMeta(s)
		alternatives = append(alternatives, strings.ReplaceAll(quoted, `\.`, `\.?`))
	}
	if len(alternatives) == 0 {
		return nil
	}
	return regexp.MustCompile(`(?i)\b(` + strings.Join(alternatives, "|") + `)\b`)
}
