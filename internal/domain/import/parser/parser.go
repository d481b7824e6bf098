// Package parser turns tokenized statement rows into import candidates using a
// column mapping. Rows that cannot be read cleanly still produce a candidate;
// the problem is reported next to it as a RowError.
package parser

import (
	"fmt"
	"strings"

	"github.com/FACorreiaa/ledger-import/internal/domain/import/mapper"
	"github.com/FACorreiaa/ledger-import/internal/domain/import/normalizer"
	"github.com/FACorreiaa/ledger-import/internal/domain/import/sniffer"
)

// Candidate is one statement row converted to canonical values.
type Candidate struct {
	Date          string                      `json:"date"` // YYYY-MM-DD, or the raw value when unparseable
	Payee         string                      `json:"payee"`
	AmountCents   int64                       `json:"amount_cents"` // positive = inflow
	Memo          string                      `json:"memo"`
	Category      string                      `json:"category"`
	Account       string                      `json:"account"`
	AccountFormat normalizer.BankNumberFormat `json:"account_format,omitempty"`
}

// RowError describes a problem in one data row. Row is 1-based and counts the
// header line, so the first data row is row 2.
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

func (e RowError) Error() string {
	return e.Message
}

// Result holds one candidate per input row, in input order, and the row errors
// ordered by row.
type Result struct {
	Candidates []Candidate `json:"candidates"`
	Errors     []RowError  `json:"errors"`
}

// HasErrors reports whether any row had a problem.
func (r *Result) HasErrors() bool {
	return r != nil && len(r.Errors) > 0
}

// BuildCandidates converts every row of table sequentially with the default
// day-first date order.
func BuildCandidates(table *sniffer.RawTable, mappings []mapper.ColumnMapping) *Result {
	if table == nil {
		return &Result{Candidates: []Candidate{}, Errors: []RowError{}}
	}
	return buildRange(table.Rows, 0, mappings, normalizer.DateParser{})
}

// BuildCandidate applies mappings to one row in mapping order. Later amount
// columns overwrite earlier ones while inflow and outflow columns accumulate.
// A column index outside the row reads as "".
func BuildCandidate(row []string, mappings []mapper.ColumnMapping, dates normalizer.DateParser) Candidate {
	var c Candidate

	for _, m := range mappings {
		value := cell(row, m.ColumnIndex)
		switch m.Field {
		case mapper.FieldDate:
			if parsed, ok := dates.Parse(value); ok {
				c.Date = parsed
			} else {
				c.Date = value
			}
		case mapper.FieldPayee:
			c.Payee = value
		case mapper.FieldAmount:
			c.AmountCents = normalizer.ParseAmountToCents(value)
		case mapper.FieldInflow:
			c.AmountCents += abs(normalizer.ParseAmountToCents(value))
		case mapper.FieldOutflow:
			c.AmountCents -= abs(normalizer.ParseAmountToCents(value))
		case mapper.FieldMemo:
			c.Memo = value
		case mapper.FieldCategory:
			c.Category = value
		case mapper.FieldAccount:
			c.Account = value
		}
	}

	if strings.TrimSpace(c.Account) != "" {
		c.AccountFormat = normalizer.DetectBankNumberFormat(c.Account)
	}
	return c
}

// CheckRow returns the problems of one row. rowNumber is the 1-based line
// number used in messages. Only the first date, payee and amount columns
// are checked.
func CheckRow(row []string, rowNumber int, mappings []mapper.ColumnMapping, dates normalizer.DateParser) []RowError {
	var errs []RowError

	if m := mapper.Find(mappings, mapper.FieldDate); m != nil {
		raw := cell(row, m.ColumnIndex)
		if strings.TrimSpace(raw) == "" {
			errs = append(errs, rowError(rowNumber, m.ColumnHeader, raw,
				fmt.Sprintf("Missing date value in \"%s\" column", m.ColumnHeader)))
		} else if _, ok := dates.Parse(raw); !ok {
			errs = append(errs, rowError(rowNumber, m.ColumnHeader, raw,
				fmt.Sprintf("Could not parse date \"%s\" in \"%s\" column", raw, m.ColumnHeader)))
		}
	}

	if m := mapper.Find(mappings, mapper.FieldPayee); m != nil {
		raw := cell(row, m.ColumnIndex)
		if strings.TrimSpace(raw) == "" {
			errs = append(errs, rowError(rowNumber, m.ColumnHeader, raw,
				fmt.Sprintf("Missing payee value in \"%s\" column", m.ColumnHeader)))
		}
	}

	if m := mapper.Find(mappings, mapper.FieldAmount); m != nil {
		raw := cell(row, m.ColumnIndex)
		if strings.TrimSpace(raw) != "" && normalizer.ParseAmountToCents(raw) == 0 && !normalizer.IsZeroAmountLiteral(raw) {
			errs = append(errs, rowError(rowNumber, m.ColumnHeader, raw,
				fmt.Sprintf("Could not parse amount \"%s\" in \"%s\" column", raw, m.ColumnHeader)))
		}
	}

	return errs
}

// buildRange converts rows whose first element is data row number offset (0-based).
func buildRange(rows [][]string, offset int, mappings []mapper.ColumnMapping, dates normalizer.DateParser) *Result {
	result := &Result{
		Candidates: make([]Candidate, 0, len(rows)),
		Errors:     []RowError{},
	}
	for i, row := range rows {
		rowNumber := offset + i + 2
		result.Errors = append(result.Errors, CheckRow(row, rowNumber, mappings, dates)...)
		result.Candidates = append(result.Candidates, BuildCandidate(row, mappings, dates))
	}
	return result
}

func rowError(row int, column, value, detail string) RowError {
	return RowError{
		Row:     row,
		Column:  column,
		Value:   value,
		Message: fmt.Sprintf("Row %d: %s", row, detail),
	}
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
