// Package mapper assigns a transaction field to every column of a statement.
// It suggests mappings from header names, validates a mapping set and keeps the
// single-amount and inflow/outflow modes consistent.
package mapper

import (
	"errors"
	"fmt"
	"strings"
)

// Field is the transaction attribute a column feeds.
type Field string

const (
	FieldDate     Field = "date"
	FieldPayee    Field = "payee"
	FieldAmount   Field = "amount"
	FieldInflow   Field = "inflow"
	FieldOutflow  Field = "outflow"
	FieldMemo     Field = "memo"
	FieldCategory Field = "category"
	FieldAccount  Field = "account"
	FieldSkip     Field = "skip"
)

var ErrUnknownField = errors.New("unknown field")

// FieldOrder is the canonical order used for detection priority and option lists.
var FieldOrder = []Field{
	FieldDate, FieldPayee, FieldAmount, FieldInflow, FieldOutflow,
	FieldMemo, FieldCategory, FieldAccount, FieldSkip,
}

var fieldLabels = map[Field]string{
	FieldDate:     "Date",
	FieldPayee:    "Payee",
	FieldAmount:   "Amount",
	FieldInflow:   "Inflow",
	FieldOutflow:  "Outflow",
	FieldMemo:     "Memo",
	FieldCategory: "Category",
	FieldAccount:  "Account",
	FieldSkip:     "Skip this column",
}

// Label is the human readable name of the field.
func (f Field) Label() string {
	if l, ok := fieldLabels[f]; ok {
		return l
	}
	return string(f)
}

func (f Field) Valid() bool {
	_, ok := fieldLabels[f]
	return ok
}

// ParseField accepts a field value or its label, case-insensitively.
// An empty string is FieldSkip.
func ParseField(s string) (Field, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return FieldSkip, nil
	}
	for _, f := range FieldOrder {
		if s == string(f) || s == strings.ToLower(f.Label()) {
			return f, nil
		}
	}
	return FieldSkip, fmt.Errorf("%w: %q", ErrUnknownField, s)
}

// ColumnMapping ties one column to a field. SampleValue is the column's value
// in the first data row.
type ColumnMapping struct {
	ColumnIndex  int    `json:"column_index"`
	ColumnHeader string `json:"column_header"`
	SampleValue  string `json:"sample_value"`
	Field        Field  `json:"field"`
}

// FieldOption is one entry of a field picker.
type FieldOption struct {
	Value Field  `json:"value"`
	Label string `json:"label"`
}

// Find returns the first mapping for field, or nil.
func Find(mappings []ColumnMapping, field Field) *ColumnMapping {
	for i := range mappings {
		if mappings[i].Field == field {
			return &mappings[i]
		}
	}
	return nil
}
