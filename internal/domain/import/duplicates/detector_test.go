package duplicates

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/ledger-import/internal/domain/import/normalizer"
	"github.com/FACorreiaa/ledger-import/internal/domain/import/parser"
	"github.com/FACorreiaa/ledger-import/internal/domain/ledger"
	"github.com/FACorreiaa/ledger-import/pkg/money"
)

func TestMatchPayee(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want Tier
	}{
		{"suffix and case collapse", "ALBERT HEIJN B.V.", "Albert Heijn", TierExact},
		{"punctuation ignored", "Bol.com", "bolcom", TierExact},
		{"different payee", "Gas Station", "Albert Heijn", TierNone},
		{"containment", "Albert Heijn 1234 Utrecht", "Albert Heijn", TierLikely},
		{"similar spelling", "Jumbo Supermarkt", "Jumbo Supermarket", TierLikely},
		{"empty side", "", "Lidl", TierNone},
		{"only a suffix", "Inc.", "Inc", TierNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchPayee(tt.a, tt.b))
			assert.Equal(t, tt.want, MatchPayee(tt.b, tt.a))
		})
	}
}

func TestDetector_Threshold(t *testing.T) {
	strict := NewDetector(WithThreshold(0.95))
	assert.Equal(t, TierNone, strict.MatchPayee("Jumbo Supermarkt", "Jumbo Supermarket"))

	ignored := NewDetector(WithThreshold(1.5))
	assert.Equal(t, TierLikely, ignored.MatchPayee("Jumbo Supermarkt", "Jumbo Supermarket"))
}

func TestDetector_Normalizer(t *testing.T) {
	d := NewDetector(WithNormalizer(normalizer.NewPayeeNormalizer([]string{"s.a."})))
	assert.Equal(t, TierExact, d.MatchPayee("Mercadona S.A.", "mercadona"))
	assert.Equal(t, TierLikely, d.MatchPayee("Mercadona GmbH", "mercadona"))
}

func TestDetect(t *testing.T) {
	existing := []ledger.Record{
		{ID: "e1", Date: "2025-01-15", Payee: "Albert Heijn", AmountCents: -2500},
	}
	candidates := []parser.Candidate{
		{Date: "2025-01-15", Payee: "ALBERT HEIJN B.V.", AmountCents: -2500},
		{Date: "2025-01-15", Payee: "Gas Station", AmountCents: -2500},
		{Date: "2025-01-16", Payee: "Albert Heijn", AmountCents: -2500},
		{Date: "2025-01-15", Payee: "Albert Heijn", AmountCents: -2501},
	}

	result := Detect(candidates, existing)

	require.Len(t, result.Matches, 1)
	m := result.Matches[0]
	assert.Equal(t, 0, m.ImportIndex)
	assert.Equal(t, TierExact, m.Confidence)
	assert.Equal(t, "e1", m.Existing.ID)
	assert.Equal(t, candidates[0], m.Imported)
	assert.False(t, m.Include)
	assert.Equal(t, 4, result.TotalCount)
	assert.Equal(t, 3, result.CleanCount)
}

func TestDetect_FirstQualifyingRecordWins(t *testing.T) {
	existing := []ledger.Record{
		{ID: "other", Date: "2025-03-01", Payee: "Coffee Shop", AmountCents: -350},
		{ID: "likely", Date: "2025-03-01", Payee: "Coffee Shop Amsterdam", AmountCents: -350},
		{ID: "exact", Date: "2025-03-01", Payee: "Coffee Shop", AmountCents: -350},
	}
	existing[0].Date = "2025-03-02"

	result := Detect([]parser.Candidate{{Date: "2025-03-01", Payee: "coffee shop", AmountCents: -350}}, existing)

	require.Len(t, result.Matches, 1)
	assert.Equal(t, "likely", result.Matches[0].Existing.ID)
	assert.Equal(t, TierLikely, result.Matches[0].Confidence)
}

func TestDetect_DoesNotMutateExisting(t *testing.T) {
	category := "groceries"
	existing := []ledger.Record{
		{ID: "e1", Date: "2025-01-15", Payee: "Lidl", AmountCents: -999, CategoryID: &category, Tags: []string{"food"}},
	}
	before := fmt.Sprintf("%+v", existing)

	result := Detect([]parser.Candidate{{Date: "2025-01-15", Payee: "LIDL", AmountCents: -999}}, existing)
	require.Len(t, result.Matches, 1)
	result.SetInclude(0, true)

	assert.Equal(t, before, fmt.Sprintf("%+v", existing))
}

func TestDetect_Empty(t *testing.T) {
	result := Detect(nil, nil)
	assert.NotNil(t, result.Matches)
	assert.Empty(t, result.Matches)
	assert.Zero(t, result.TotalCount)
	assert.Zero(t, result.CleanCount)

	result = Detect([]parser.Candidate{{Date: "2025-01-01", Payee: "Lidl", AmountCents: -1}}, nil)
	assert.Equal(t, 1, result.CleanCount)
}

// generatedLedger builds a ledger with colliding dates and amounts, and
// candidates where every third one is a re-export of a ledger record.
func generatedLedger(t testing.TB, size int) ([]parser.Candidate, []ledger.Record) {
	t.Helper()

	gen := money.NewTestDataGeneratorWithSeed(7)
	ref := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

	var existing []ledger.Record
	for i, tx := range gen.Transactions(ref, size) {
		existing = append(existing, ledger.Record{ID: tx.ID, Date: tx.Date, Payee: tx.Payee, AmountCents: tx.AmountCents})
		if i%5 == 0 {
			// same date and amount, different payee
			existing = append(existing, ledger.Record{ID: tx.ID + "-twin", Date: tx.Date, Payee: gen.Payee(), AmountCents: tx.AmountCents})
		}
	}

	var candidates []parser.Candidate
	for i, rec := range existing {
		if i%3 == 0 {
			candidates = append(candidates, parser.Candidate{Date: rec.Date, Payee: strings.ToUpper(rec.Payee) + " B.V.", AmountCents: rec.AmountCents})
		}
	}
	for _, tx := range gen.Transactions(ref, size/2) {
		candidates = append(candidates, parser.Candidate{Date: tx.Date, Payee: tx.Payee, AmountCents: tx.AmountCents})
	}
	return candidates, existing
}

func TestDetector_OptionsMatchLinearScan(t *testing.T) {
	candidates, existing := generatedLedger(t, 400)
	want := Detect(candidates, existing)
	require.NotEmpty(t, want.Matches)

	tests := []struct {
		name string
		opts []Option
	}{
		{"index", []Option{WithIndex(true)}},
		{"workers", []Option{WithWorkers(4)}},
		{"index and workers", []Option{WithIndex(true), WithWorkers(8)}},
		{"gomaxprocs workers", []Option{WithWorkers(0)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewDetector(tt.opts...).Detect(context.Background(), candidates, existing)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestDetector_ContextCancelled(t *testing.T) {
	candidates, existing := generatedLedger(t, 100)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, d := range []*Detector{NewDetector(), NewDetector(WithWorkers(4))} {
		_, err := d.Detect(ctx, candidates, existing)
		assert.ErrorIs(t, err, context.Canceled)
	}
}

func BenchmarkDetect(b *testing.B) {
	candidates, existing := generatedLedger(b, 2500)
	candidates = candidates[:300]

	for _, tt := range []struct {
		name string
		d    *Detector
	}{
		{"linear", NewDetector()},
		{"index", NewDetector(WithIndex(true))},
		{"index_workers", NewDetector(WithIndex(true), WithWorkers(0))},
	} {
		b.Run(tt.name, func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if _, err := tt.d.Detect(context.Background(), candidates, existing); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
