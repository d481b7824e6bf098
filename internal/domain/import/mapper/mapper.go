package mapper

import "strings"

// Mapper suggests and validates column mappings for one vocabulary.
// It holds no mutable state and is safe for concurrent use.
type Mapper struct {
	vocab Vocabulary
}

// NewMapper copies vocab. A vocabulary without patterns uses DefaultVocabulary.
func NewMapper(vocab Vocabulary) *Mapper {
	if len(vocab.Patterns) == 0 {
		vocab = DefaultVocabulary()
	}
	return &Mapper{vocab: vocab.Clone()}
}

var defaultMapper = NewMapper(DefaultVocabulary())

// AutoDetect suggests mappings with the default vocabulary.
func AutoDetect(headers, firstRow []string) []ColumnMapping {
	return defaultMapper.AutoDetect(headers, firstRow)
}

// Vocabulary returns a copy of the mapper's configuration.
func (m *Mapper) Vocabulary() Vocabulary {
	return m.vocab.Clone()
}

// AutoDetect returns one mapping per header, left to right. A field is claimed
// by the first header that matches it; later headers cannot take it again.
// Claiming amount also claims inflow and outflow, and the reverse, so a result
// never mixes the two amount modes.
func (m *Mapper) AutoDetect(headers, firstRow []string) []ColumnMapping {
	used := make(map[Field]bool)
	mappings := make([]ColumnMapping, 0, len(headers))

	for i, header := range headers {
		sample := ""
		if i < len(firstRow) {
			sample = firstRow[i]
		}

		field := m.DetectField(header, used)
		claim(used, field)

		mappings = append(mappings, ColumnMapping{
			ColumnIndex:  i,
			ColumnHeader: header,
			SampleValue:  sample,
			Field:        field,
		})
	}
	return mappings
}

func claim(used map[Field]bool, field Field) {
	switch field {
	case FieldSkip:
		return
	case FieldAmount:
		used[FieldInflow] = true
		used[FieldOutflow] = true
	case FieldInflow, FieldOutflow:
		used[FieldAmount] = true
	}
	used[field] = true
}

// DetectField matches one header against the fields not in used. Exact
// keyword matches are tried before substring matches, and substring matching
// is disabled for headers containing a skip pattern.
func (m *Mapper) DetectField(header string, used map[Field]bool) Field {
	normalized := strings.ToLower(strings.TrimSpace(header))

	for _, fp := range m.vocab.Patterns {
		if used[fp.Field] {
			continue
		}
		for _, p := range fp.Patterns {
			if normalized == p {
				return fp.Field
			}
		}
	}

	for _, skip := range m.vocab.SkipPatterns {
		if strings.Contains(normalized, skip) {
			return FieldSkip
		}
	}

	for _, fp := range m.vocab.Patterns {
		if used[fp.Field] {
			continue
		}
		for _, p := range fp.Patterns {
			if strings.Contains(normalized, p) {
				return fp.Field
			}
		}
	}

	return FieldSkip
}

// Validate lists what is missing before a mapping set can be imported.
// An empty result means the mappings are complete: date, payee and either a
// single amount or both inflow and outflow, never a mix.
func Validate(mappings []ColumnMapping) []string {
	mapped := mappedFields(mappings)
	var problems []string

	for _, f := range []Field{FieldDate, FieldPayee} {
		if !mapped[f] {
			problems = append(problems, "Please map the "+f.Label()+" column")
		}
	}

	hasAmount, hasInflow, hasOutflow := mapped[FieldAmount], mapped[FieldInflow], mapped[FieldOutflow]
	if hasAmount && (hasInflow || hasOutflow) {
		return append(problems, "Map either the Amount column or the Inflow and Outflow columns, not both")
	}
	if !hasAmount && !(hasInflow && hasOutflow) {
		switch {
		case !hasInflow && !hasOutflow:
			problems = append(problems, "Please map the Amount column")
		case !hasInflow:
			problems = append(problems, "Please map the Inflow column (or use single Amount column)")
		default:
			problems = append(problems, "Please map the Outflow column (or use single Amount column)")
		}
	}
	return problems
}

// AvailableFields lists the fields the column at columnIndex may take: skip,
// its current field and every field no other column uses. In inflow/outflow
// mode amount is hidden, otherwise inflow and outflow are, unless the column
// already holds the hidden field.
func AvailableFields(mappings []ColumnMapping, columnIndex int, useInflowOutflow bool) []FieldOption {
	used := make(map[Field]bool)
	for i, m := range mappings {
		if i != columnIndex && m.Field != FieldSkip {
			used[m.Field] = true
		}
	}

	var current Field
	if columnIndex >= 0 && columnIndex < len(mappings) {
		current = mappings[columnIndex].Field
	}

	hidden := map[Field]bool{FieldInflow: true, FieldOutflow: true}
	if useInflowOutflow {
		hidden = map[Field]bool{FieldAmount: true}
	}

	options := make([]FieldOption, 0, len(FieldOrder))
	for _, f := range FieldOrder {
		if hidden[f] && f != current {
			continue
		}
		if f == FieldSkip || f == current || !used[f] {
			options = append(options, FieldOption{Value: f, Label: f.Label()})
		}
	}
	return options
}

// IsInflowOutflowMode reports whether any column is mapped to inflow or outflow.
func IsInflowOutflowMode(mappings []ColumnMapping) bool {
	mapped := mappedFields(mappings)
	return mapped[FieldInflow] || mapped[FieldOutflow]
}

// ToggleAmountMode returns a copy where the fields of the other mode are reset
// to skip: amount when switching to inflow/outflow, inflow and outflow otherwise.
func ToggleAmountMode(mappings []ColumnMapping, useInflowOutflow bool) []ColumnMapping {
	out := make([]ColumnMapping, len(mappings))
	for i, m := range mappings {
		switch {
		case useInflowOutflow && m.Field == FieldAmount:
			m.Field = FieldSkip
		case !useInflowOutflow && (m.Field == FieldInflow || m.Field == FieldOutflow):
			m.Field = FieldSkip
		}
		out[i] = m
	}
	return out
}

// Columns returns the column index of every mapped field. Only the first
// column per field is kept.
func Columns(mappings []ColumnMapping) map[Field]int {
	cols := make(map[Field]int, len(mappings))
	for _, m := range mappings {
		if m.Field == FieldSkip {
			continue
		}
		if _, ok := cols[m.Field]; !ok {
			cols[m.Field] = m.ColumnIndex
		}
	}
	return cols
}

func mappedFields(mappings []ColumnMapping) map[Field]bool {
	mapped := make(map[Field]bool, len(mappings))
	for _, m := range mappings {
		if m.Field != FieldSkip {
			mapped[m.Field] = true
		}
	}
	return mapped
}
