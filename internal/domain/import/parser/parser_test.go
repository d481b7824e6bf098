package parser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/ledger-import/internal/domain/import/mapper"
	"github.com/FACorreiaa/ledger-import/internal/domain/import/normalizer"
	"github.com/FACorreiaa/ledger-import/internal/domain/import/sniffer"
)

func TestBuildCandidates(t *testing.T) {
	t.Run("single amount column", func(t *testing.T) {
		table := sniffer.Tokenize(`Date,Description,Amount,Notes,Category
2024-01-15,Coffee Shop,-4.50,latte,Food
16/01/2024,Salary,"5.000,00",,Income`)
		mappings := mapper.AutoDetect(table.Headers, table.FirstRow())

		result := BuildCandidates(table, mappings)

		require.Len(t, result.Candidates, 2)
		assert.Empty(t, result.Errors)
		assert.Equal(t, Candidate{
			Date: "2024-01-15", Payee: "Coffee Shop", AmountCents: -450, Memo: "latte", Category: "Food",
		}, result.Candidates[0])
		assert.Equal(t, "2024-01-16", result.Candidates[1].Date)
		assert.Equal(t, int64(500000), result.Candidates[1].AmountCents)
	})

	t.Run("inflow and outflow columns", func(t *testing.T) {
		table := sniffer.Tokenize(`Datum;Omschrijving;Bij;Af
15-01-2024;Koffie;;4,50
16-01-2024;Salaris;5000,00;
17-01-2024;Refund;-10,00;-2,00`)
		mappings := mapper.AutoDetect(table.Headers, table.FirstRow())
		require.True(t, mapper.IsInflowOutflowMode(mappings))

		result := BuildCandidates(table, mappings)

		require.Len(t, result.Candidates, 3)
		assert.Equal(t, int64(-450), result.Candidates[0].AmountCents)
		assert.Equal(t, int64(500000), result.Candidates[1].AmountCents)
		// signs in the cells are ignored: inflow adds, outflow subtracts
		assert.Equal(t, int64(800), result.Candidates[2].AmountCents)
		assert.Empty(t, result.Errors)
	})

	t.Run("row errors", func(t *testing.T) {
		table := sniffer.Tokenize(`Date,Payee,Amount
,Coffee,-4.50
someday,Coffee,-4.50
2024-01-15,,abc
2024-01-16,Zero,"0,00"
2024-01-17,Valid,-10.00`)
		mappings := mapper.AutoDetect(table.Headers, table.FirstRow())

		result := BuildCandidates(table, mappings)

		require.Len(t, result.Candidates, 5, "every row yields a candidate")
		assert.Equal(t, "someday", result.Candidates[1].Date)
		assert.Equal(t, int64(0), result.Candidates[2].AmountCents)

		messages := make([]string, len(result.Errors))
		for i, e := range result.Errors {
			messages[i] = e.Error()
		}
		assert.Equal(t, []string{
			`Row 2: Missing date value in "Date" column`,
			`Row 3: Could not parse date "someday" in "Date" column`,
			`Row 4: Missing payee value in "Payee" column`,
			`Row 4: Could not parse amount "abc" in "Amount" column`,
		}, messages)
		assert.Equal(t, RowError{Row: 3, Column: "Date", Value: "someday", Message: messages[1]}, result.Errors[1])
		assert.True(t, result.HasErrors())
	})

	t.Run("short rows read missing cells as empty", func(t *testing.T) {
		table := sniffer.Tokenize("Date,Payee,Amount,Memo\n2024-01-15,Shop")
		result := BuildCandidates(table, mapper.AutoDetect(table.Headers, nil))

		require.Len(t, result.Candidates, 1)
		assert.Equal(t, int64(0), result.Candidates[0].AmountCents)
		assert.Empty(t, result.Errors)
	})

	t.Run("nil table", func(t *testing.T) {
		result := BuildCandidates(nil, nil)
		assert.Empty(t, result.Candidates)
		assert.False(t, result.HasErrors())
	})
}

func TestBuildCandidate(t *testing.T) {
	mappings := []mapper.ColumnMapping{
		{ColumnIndex: 0, ColumnHeader: "When", Field: mapper.FieldDate},
		{ColumnIndex: 1, ColumnHeader: "Who", Field: mapper.FieldPayee},
		{ColumnIndex: 2, ColumnHeader: "Amount", Field: mapper.FieldAmount},
		{ColumnIndex: 3, ColumnHeader: "IBAN", Field: mapper.FieldAccount},
		{ColumnIndex: 9, ColumnHeader: "Ghost", Field: mapper.FieldMemo},
	}

	t.Run("day first default", func(t *testing.T) {
		c := BuildCandidate([]string{"03/04/2025", "Shop", "€ 12,50", "NL91 ABNA 0417 1643 00"}, mappings, normalizer.DateParser{})
		assert.Equal(t, "2025-04-03", c.Date)
		assert.Equal(t, int64(1250), c.AmountCents)
		assert.Equal(t, normalizer.FormatIBAN, c.AccountFormat)
		assert.Empty(t, c.Memo)
	})

	t.Run("month first override", func(t *testing.T) {
		c := BuildCandidate([]string{"03/04/2025", "Shop", "1"}, mappings, normalizer.DateParser{Order: normalizer.MonthFirst})
		assert.Equal(t, "2025-03-04", c.Date)
		assert.Empty(t, c.AccountFormat)
	})

	t.Run("later amount column wins", func(t *testing.T) {
		twoAmounts := []mapper.ColumnMapping{
			{ColumnIndex: 0, Field: mapper.FieldAmount},
			{ColumnIndex: 1, Field: mapper.FieldAmount},
		}
		c := BuildCandidate([]string{"1.00", "2.00"}, twoAmounts, normalizer.DateParser{})
		assert.Equal(t, int64(200), c.AmountCents)
	})

	t.Run("clabe account", func(t *testing.T) {
		c := BuildCandidate([]string{"", "", "", "002010077777777771"}, mappings, normalizer.DateParser{})
		assert.Equal(t, normalizer.FormatCLABE, c.AccountFormat)
	})
}

func TestBuildCandidates_BankExports(t *testing.T) {
	tests := []struct {
		file       string
		wantDates  []string
		wantAmount []int64
		wantErrors []string
	}{
		{"bunq.csv", []string{"2026-01-12", "2026-01-11", "2026-01-10"}, []int64{-2499, 150000, -350},
			[]string{`Row 4: Missing payee value in "Counterparty" column`}},
		{"wise.csv", []string{"2026-01-12", "2026-01-11", "2026-01-10", "2026-01-09"}, []int64{2499, 540, 50000, 309}, nil},
		{"consolidated.csv", []string{"2026-01-14", "2026-01-14", "2026-01-13"}, []int64{-328, -378, -2499}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			data, err := os.ReadFile(filepath.Join("..", "testdata", tt.file))
			require.NoError(t, err)

			table := sniffer.Tokenize(string(data))
			result := BuildCandidates(table, mapper.AutoDetect(table.Headers, table.FirstRow()))

			require.Len(t, result.Candidates, len(tt.wantDates))
			for i, c := range result.Candidates {
				assert.Equal(t, tt.wantDates[i], c.Date)
				assert.Equal(t, tt.wantAmount[i], c.AmountCents)
			}

			var messages []string
			for _, e := range result.Errors {
				messages = append(messages, e.Message)
			}
			assert.Equal(t, tt.wantErrors, messages)
		})
	}
}
