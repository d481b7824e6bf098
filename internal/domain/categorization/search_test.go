package categorization

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/ledger-import/internal/domain/ledger"
)

func searchRecords() []ledger.Record {
	return []ledger.Record{
		{ID: "r1", Date: "2025-01-15", Payee: "Albert Heijn", Memo: "Groceries week 3", CategoryID: strPtr("cat-groceries"), AccountID: "acc-1", AmountCents: -4250},
		{ID: "r2", Date: "2025-01-16", Payee: "ALBERT HEIJN.", AccountID: "acc-1", AmountCents: -1299},
		{ID: "r3", Date: "2025-01-17", Payee: "Spotify", Memo: "Premium family", CategoryID: strPtr("cat-subs"), AccountID: "acc-1", AmountCents: -1799},
		{ID: "r4", Date: "2025-01-18", Payee: "NS Reizigers", Memo: "OV-chipkaart reload", CategoryID: strPtr("cat-transport"), AccountID: "acc-2", AmountCents: -2000},
		{ID: "r5", Date: "2025-01-31", Payee: "Acme Payroll", Memo: "Salary January", CategoryID: strPtr("cat-income"), AccountID: "acc-1", AmountCents: 250000},
	}
}

func newTestIndex(t *testing.T) *SearchIndex {
	t.Helper()
	index, err := NewSearchIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })
	require.NoError(t, index.IndexRecords(searchRecords()))
	return index
}

func resultIDs(results []SearchResult) []string {
	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.Record.ID)
	}
	return ids
}

func TestSearchIndex_Search(t *testing.T) {
	index := newTestIndex(t)

	tests := []struct {
		name string
		run  func() ([]SearchResult, error)
		want []string
	}{
		{"match", func() ([]SearchResult, error) { return index.Search("albert", 10) }, []string{"r1", "r2"}},
		{"match with typo", func() ([]SearchResult, error) { return index.Search("albrt", 10) }, []string{"r1", "r2"}},
		{"memo text", func() ([]SearchResult, error) { return index.Search("salary", 10) }, []string{"r5"}},
		{"prefix", func() ([]SearchResult, error) { return index.SearchWithPrefix("Chip", 10) }, []string{"r4"}},
		{"fuzzy", func() ([]SearchResult, error) { return index.SearchFuzzy("spotfy", 1, 10) }, []string{"r3"}},
		{"fuzzy exact only", func() ([]SearchResult, error) { return index.SearchFuzzy("spotfy", 0, 10) }, []string{}},
		{"fuzziness clamped", func() ([]SearchResult, error) { return index.SearchFuzzy("sptfy", 5, 10) }, []string{"r3"}},
		{"by payee key", func() ([]SearchResult, error) { return index.SearchByPayee("Albert Heijn", 10) }, []string{"r1", "r2"}},
		{"by category", func() ([]SearchResult, error) { return index.SearchByCategory("cat-transport", 0) }, []string{"r4"}},
		{"query string", func() ([]SearchResult, error) { return index.SearchAdvanced("+payee:acme", 10) }, []string{"r5"}},
		{"numeric range", func() ([]SearchResult, error) { return index.SearchAdvanced("amount_cents:>100000", 10) }, []string{"r5"}},
		{"no hits", func() ([]SearchResult, error) { return index.Search("vattenfall", 10) }, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := tt.run()
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, resultIDs(results))
		})
	}
}

func TestSearchIndex_StoredFields(t *testing.T) {
	index := newTestIndex(t)

	results, err := index.SearchByCategory("cat-groceries", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)

	got := results[0].Record
	assert.Equal(t, "2025-01-15", got.Date)
	assert.Equal(t, "Albert Heijn", got.Payee)
	assert.Equal(t, "Groceries week 3", got.Memo)
	assert.Equal(t, "acc-1", got.AccountID)
	assert.Equal(t, int64(-4250), got.AmountCents)
	require.NotNil(t, got.CategoryID)
	assert.Equal(t, "cat-groceries", *got.CategoryID)
	assert.Greater(t, results[0].Score, 0.0)
}

func TestSearchIndex_ReindexAndClear(t *testing.T) {
	index := newTestIndex(t)

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(5), count)

	require.NoError(t, index.IndexRecords(searchRecords()[:2]))
	count, err = index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(5), count)

	require.NoError(t, index.Clear())
	count, err = index.DocumentCount()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSearchIndex_OnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index", "records.bleve")

	index, err := NewSearchIndex(path)
	require.NoError(t, err)
	require.NoError(t, index.IndexRecords(searchRecords()))
	require.NoError(t, index.Close())

	reopened, err := NewSearchIndex(path)
	require.NoError(t, err)
	defer reopened.Close()

	count, err := reopened.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(5), count)

	results, err := reopened.Search("spotify", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"r3"}, resultIDs(results))
}
