package mapper

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/FACorreiaa/ledger-import/internal/domain/import/sniffer"
)

var ErrEmptyTemplate = errors.New("template has no mappings")

// TemplateMapping stores a field by column header rather than position, so a
// template survives reordered columns.
type TemplateMapping struct {
	ColumnHeader string `json:"column_header"`
	Field        Field  `json:"field"`
}

// Template is a saved mapping for a recurring bank layout.
type Template struct {
	Name             string            `json:"name"`
	Fingerprint      string            `json:"fingerprint"`
	UseInflowOutflow bool              `json:"use_inflow_outflow"`
	Mappings         []TemplateMapping `json:"mappings"`
}

// NewTemplate captures the non-skip mappings of a reviewed import.
func NewTemplate(name string, headers []string, mappings []ColumnMapping) *Template {
	t := &Template{
		Name:             name,
		Fingerprint:      sniffer.Fingerprint(headers),
		UseInflowOutflow: IsInflowOutflowMode(mappings),
	}
	for _, m := range mappings {
		if m.Field == FieldSkip {
			continue
		}
		t.Mappings = append(t.Mappings, TemplateMapping{ColumnHeader: m.ColumnHeader, Field: m.Field})
	}
	return t
}

// Matches reports whether headers have the layout the template was saved from.
func (t *Template) Matches(headers []string) bool {
	return t.Fingerprint != "" && t.Fingerprint == sniffer.Fingerprint(headers)
}

// Apply maps headers by name. Headers the template does not know are skipped,
// and a field is given to the first header that names it. Fields of the amount
// mode the template was not saved in are reset to skip.
func (t *Template) Apply(headers, firstRow []string) []ColumnMapping {
	byHeader := make(map[string]Field, len(t.Mappings))
	for _, m := range t.Mappings {
		key := headerKey(m.ColumnHeader)
		if _, ok := byHeader[key]; !ok {
			byHeader[key] = m.Field
		}
	}

	used := make(map[Field]bool)
	mappings := make([]ColumnMapping, 0, len(headers))
	for i, h := range headers {
		field, ok := byHeader[headerKey(h)]
		if !ok || used[field] {
			field = FieldSkip
		}
		if field != FieldSkip {
			used[field] = true
		}

		sample := ""
		if i < len(firstRow) {
			sample = firstRow[i]
		}
		mappings = append(mappings, ColumnMapping{ColumnIndex: i, ColumnHeader: h, SampleValue: sample, Field: field})
	}
	return ToggleAmountMode(mappings, t.UseInflowOutflow)
}

func headerKey(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

// templateRow is the CSV form of a template: one line per mapped column.
type templateRow struct {
	Template         string `csv:"template"`
	Fingerprint      string `csv:"fingerprint"`
	UseInflowOutflow bool   `csv:"use_inflow_outflow"`
	ColumnHeader     string `csv:"column_header"`
	Field            string `csv:"field"`
}

// WriteTemplateCSV writes t with a header line.
func WriteTemplateCSV(w io.Writer, t *Template) error {
	if t == nil || len(t.Mappings) == 0 {
		return ErrEmptyTemplate
	}
	rows := make([]*templateRow, 0, len(t.Mappings))
	for _, m := range t.Mappings {
		rows = append(rows, &templateRow{
			Template:         t.Name,
			Fingerprint:      t.Fingerprint,
			UseInflowOutflow: t.UseInflowOutflow,
			ColumnHeader:     m.ColumnHeader,
			Field:            string(m.Field),
		})
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("failed to write template: %w", err)
	}
	return nil
}

// ReadTemplateCSV reads a template written by WriteTemplateCSV. Name,
// fingerprint and mode come from the first line.
func ReadTemplateCSV(r io.Reader) (*Template, error) {
	var rows []*templateRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("failed to read template: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyTemplate
	}

	t := &Template{
		Name:             rows[0].Template,
		Fingerprint:      rows[0].Fingerprint,
		UseInflowOutflow: rows[0].UseInflowOutflow,
	}
	for i, row := range rows {
		field, err := ParseField(row.Field)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+2, err)
		}
		if field == FieldSkip {
			continue
		}
		t.Mappings = append(t.Mappings, TemplateMapping{ColumnHeader: row.ColumnHeader, Field: field})
	}
	return t, nil
}
