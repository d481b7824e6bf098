package duplicates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/ledger-import/internal/domain/import/parser"
	"github.com/FACorreiaa/ledger-import/internal/domain/ledger"
)

func TestGetDateRange(t *testing.T) {
	tests := []struct {
		name       string
		candidates []parser.Candidate
		want       *DateRange
	}{
		{"no candidates", nil, nil},
		{"only empty dates", []parser.Candidate{{Date: ""}, {Date: ""}}, nil},
		{"single", []parser.Candidate{{Date: "2025-02-01"}}, &DateRange{"2025-02-01", "2025-02-01"}},
		{
			"unordered with gaps",
			[]parser.Candidate{{Date: "2025-03-10"}, {Date: ""}, {Date: "2024-12-31"}, {Date: "2025-01-05"}},
			&DateRange{"2024-12-31", "2025-03-10"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetDateRange(tt.candidates))
		})
	}
}

func reviewFixture() ([]parser.Candidate, *Result) {
	candidates := []parser.Candidate{
		{Date: "2025-01-15", Payee: "Albert Heijn", AmountCents: -2500},
		{Date: "2025-01-16", Payee: "Lidl", AmountCents: -1299},
		{Date: "2025-01-17", Payee: "Jumbo", AmountCents: -870},
		{Date: "2025-01-18", Payee: "Salary", AmountCents: 250000},
	}
	existing := []ledger.Record{
		{ID: "a", Date: "2025-01-15", Payee: "ALBERT HEIJN", AmountCents: -2500},
		{ID: "b", Date: "2025-01-17", Payee: "Jumbo B.V.", AmountCents: -870},
	}
	return candidates, Detect(candidates, existing)
}

func TestBuildSummary(t *testing.T) {
	candidates, result := reviewFixture()
	require.Len(t, result.Matches, 2)

	s := BuildSummary(candidates, result)
	assert.Equal(t, 4, s.TotalTransactions)
	assert.Equal(t, 2, s.DuplicatesFound)
	assert.Equal(t, 2, s.ToImport)
	assert.Equal(t, &DateRange{"2025-01-15", "2025-01-18"}, s.DateRange)

	require.True(t, result.SetInclude(1, true))
	assert.Equal(t, 3, BuildSummary(candidates, result).ToImport)

	assert.False(t, result.SetInclude(2, true))
	assert.False(t, result.SetInclude(-1, true))

	noResult := BuildSummary(candidates, nil)
	assert.Equal(t, 4, noResult.ToImport)
	assert.Zero(t, noResult.DuplicatesFound)
}

func TestResult_Accepted(t *testing.T) {
	candidates, result := reviewFixture()

	accepted := result.Accepted(candidates)
	require.Len(t, accepted, 2)
	assert.Equal(t, "Lidl", accepted[0].Payee)
	assert.Equal(t, "Salary", accepted[1].Payee)

	result.SetInclude(0, true)
	accepted = result.Accepted(candidates)
	require.Len(t, accepted, 3)
	assert.Equal(t, "Albert Heijn", accepted[0].Payee)

	result.IncludeAll(true)
	assert.Len(t, result.Accepted(candidates), 4)
	assert.Equal(t, 2, result.IncludedCount())

	var none *Result
	assert.Len(t, none.Accepted(candidates), 4)
}
