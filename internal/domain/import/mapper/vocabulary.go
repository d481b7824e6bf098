package mapper

import "strings"

// FieldPatterns lists the lowercase header keywords that suggest a field.
type FieldPatterns struct {
	Field    Field    `json:"field"`
	Patterns []string `json:"patterns"`
}

// Vocabulary is the header keyword configuration used by AutoDetect.
// Patterns are tried in slice order, so earlier fields win ties.
type Vocabulary struct {
	Patterns []FieldPatterns `json:"patterns"`
	// SkipPatterns exclude a header from substring matching, e.g. "Source fee amount".
	SkipPatterns []string `json:"skip_patterns"`
}

// DefaultVocabulary covers English, Dutch, German and Spanish bank exports.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Patterns: []FieldPatterns{
			{FieldDate, []string{"date", "datum", "transaction date", "trade date", "booking date", "value date", "fecha", "created on"}},
			{FieldPayee, []string{"description", "payee", "name", "omschrijving", "beschreibung", "merchant", "counterparty", "counterparty_name", "recipient", "beneficiary", "target name"}},
			{FieldAmount, []string{"amount", "amount_eur", "bedrag", "betrag", "value", "sum", "total", "importe", "monto", "source amount (after fees)"}},
			{FieldInflow, []string{"inflow", "credit", "deposit", "bij", "eingang", "income"}},
			{FieldOutflow, []string{"outflow", "debit", "withdrawal", "af", "ausgang", "expense"}},
			{FieldMemo, []string{"memo", "notes", "reference", "remarks", "notizen", "opmerkingen", "comment", "note"}},
			{FieldCategory, []string{"category", "type", "categorie", "kategorie"}},
			{FieldAccount, []string{"account", "account name", "konto", "rekening", "cuenta", "compte"}},
		},
		SkipPatterns: []string{"fee", "interest date", "source name", "created by"},
	}
}

// Clone returns a deep copy with every keyword lowercased and trimmed.
func (v Vocabulary) Clone() Vocabulary {
	out := Vocabulary{
		Patterns:     make([]FieldPatterns, 0, len(v.Patterns)),
		SkipPatterns: lowerAll(v.SkipPatterns),
	}
	for _, fp := range v.Patterns {
		if fp.Field == FieldSkip {
			continue
		}
		out.Patterns = append(out.Patterns, FieldPatterns{Field: fp.Field, Patterns: lowerAll(fp.Patterns)})
	}
	return out
}

// Extend appends keywords for field, adding the field at the end when missing.
func (v *Vocabulary) Extend(field Field, patterns ...string) {
	for i := range v.Patterns {
		if v.Patterns[i].Field == field {
			v.Patterns[i].Patterns = append(v.Patterns[i].Patterns, lowerAll(patterns)...)
			return
		}
	}
	v.Patterns = append(v.Patterns, FieldPatterns{Field: field, Patterns: lowerAll(patterns)})
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
