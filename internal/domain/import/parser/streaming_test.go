package parser

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/ledger-import/internal/domain/import/mapper"
	"github.com/FACorreiaa/ledger-import/internal/domain/import/normalizer"
	"github.com/FACorreiaa/ledger-import/internal/domain/import/sniffer"
	"github.com/FACorreiaa/ledger-import/pkg/money"
)

var refDate = time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

func generatedTable(t testing.TB, rows int, layout money.StatementLayout) *sniffer.RawTable {
	t.Helper()
	gen := money.NewTestDataGeneratorWithSeed(7)
	table := sniffer.Tokenize(money.StatementCSV(gen.Transactions(refDate, rows), layout))
	require.Equal(t, rows, table.TotalRows)
	return table
}

func TestBuilder_MatchesSequential(t *testing.T) {
	layouts := map[string]money.StatementLayout{
		"comma":    {},
		"european": {Delimiter: ";", DecimalComma: true, DayFirst: true},
		"split":    {SplitAmounts: true},
	}

	for name, layout := range layouts {
		t.Run(name, func(t *testing.T) {
			table := generatedTable(t, 1500, layout)
			// sprinkle in rows that produce errors
			table.Rows[10][0] = ""
			table.Rows[700][0] = "not a date"
			table.Rows[1499][1] = " "

			mappings := mapper.AutoDetect(table.Headers, table.FirstRow())
			require.Empty(t, mapper.Validate(mappings))

			want := BuildCandidates(table, mappings)
			got, err := NewBuilder(normalizer.DateParser{}, 4).WithChunkSize(64).Build(context.Background(), table, mappings)

			require.NoError(t, err)
			assert.Equal(t, want, got)
			require.Len(t, got.Errors, 3)
			assert.Equal(t, 12, got.Errors[0].Row)
			assert.Equal(t, 702, got.Errors[1].Row)
			assert.Equal(t, 1501, got.Errors[2].Row)
		})
	}
}

func TestBuilder_SmallTableInline(t *testing.T) {
	table := sniffer.Tokenize("Date,Payee,Amount\n2025-01-01,Shop,-1.00")
	mappings := mapper.AutoDetect(table.Headers, table.FirstRow())

	got, err := NewBuilder(normalizer.DateParser{}, 0).Build(context.Background(), table, mappings)
	require.NoError(t, err)
	assert.Equal(t, BuildCandidates(table, mappings), got)

	got, err = NewBuilder(normalizer.DateParser{}, 2).Build(context.Background(), nil, mappings)
	require.NoError(t, err)
	assert.Empty(t, got.Candidates)
}

func TestBuilder_DateOrder(t *testing.T) {
	table := sniffer.Tokenize("Date,Payee,Amount\n03/04/2025,Shop,1")
	mappings := mapper.AutoDetect(table.Headers, table.FirstRow())

	got, err := NewBuilder(normalizer.DateParser{Order: normalizer.MonthFirst}, 1).Build(context.Background(), table, mappings)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-04", got.Candidates[0].Date)
}

func TestBuilder_ContextCancellation(t *testing.T) {
	table := generatedTable(t, 500, money.StatementLayout{})
	mappings := mapper.AutoDetect(table.Headers, table.FirstRow())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewBuilder(normalizer.DateParser{}, 4).WithChunkSize(10).Build(ctx, table, mappings)
	assert.ErrorIs(t, err, context.Canceled)
}

func BenchmarkBuildCandidates(b *testing.B) {
	for _, size := range []int{1000, 10000, 100000} {
		table := generatedTable(b, size, money.StatementLayout{Delimiter: ";", DecimalComma: true, DayFirst: true})
		mappings := mapper.AutoDetect(table.Headers, table.FirstRow())

		b.Run(fmt.Sprintf("sequential_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = BuildCandidates(table, mappings)
			}
		})

		b.Run(fmt.Sprintf("parallel_%d", size), func(b *testing.B) {
			builder := NewBuilder(normalizer.DateParser{}, 0)
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_, _ = builder.Build(context.Background(), table, mappings)
			}
		})
	}
}

func BenchmarkTokenize(b *testing.B) {
	gen := money.NewTestDataGeneratorWithSeed(1)
	content := money.StatementCSV(gen.Transactions(refDate, 10000), money.StatementLayout{})
	b.SetBytes(int64(len(content)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = sniffer.Tokenize(content)
	}
}
