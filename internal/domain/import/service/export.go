package service

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/FACorreiaa/ledger-import/pkg/money"
)

// ReviewRow is one candidate in a review export.
type ReviewRow struct {
	Row               int    `csv:"row"`
	Date              string `csv:"date"`
	Payee             string `csv:"payee"`
	Amount            string `csv:"amount"`
	Memo              string `csv:"memo"`
	Category          string `csv:"category"`
	Account           string `csv:"account"`
	Duplicate         string `csv:"duplicate"`
	DuplicateOf       string `csv:"duplicate_of"`
	Include           bool   `csv:"include"`
	SuggestedCategory string `csv:"suggested_category"`
	SuggestionSource  string `csv:"suggestion_source"`
}

// Rows flattens the review into one row per candidate, in candidate order.
// Row is the statement line the candidate came from.
func (r *Review) Rows() []ReviewRow {
	rows := make([]ReviewRow, len(r.Candidates))
	for i, c := range r.Candidates {
		rows[i] = ReviewRow{
			Row:      i + 2,
			Date:     c.Date,
			Payee:    c.Payee,
			Amount:   money.FormatCents(c.AmountCents),
			Memo:     c.Memo,
			Category: c.Category,
			Account:  c.Account,
			Include:  true,
		}
	}

	if r.Duplicates != nil {
		for _, m := range r.Duplicates.Matches {
			if m.ImportIndex < 0 || m.ImportIndex >= len(rows) {
				continue
			}
			row := &rows[m.ImportIndex]
			row.Duplicate = string(m.Confidence)
			row.DuplicateOf = m.Existing.ID
			row.Include = m.Include
		}
	}

	for _, s := range r.Suggestions {
		if s.Index < 0 || s.Index >= len(rows) {
			continue
		}
		row := &rows[s.Index]
		row.SuggestedCategory = s.CategoryName
		if row.SuggestedCategory == "" {
			row.SuggestedCategory = s.CategoryID
		}
		row.SuggestionSource = string(s.Source)
	}
	return rows
}

// WriteReviewCSV writes Rows as CSV with a header line.
func WriteReviewCSV(w io.Writer, r *Review) error {
	rows := r.Rows()
	ptrs := make([]*ReviewRow, len(rows))
	for i := range rows {
		ptrs[i] = &rows[i]
	}
	if err := gocsv.Marshal(ptrs, w); err != nil {
		return fmt.Errorf("failed to write review: %w", err)
	}
	return nil
}
