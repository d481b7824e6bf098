package sniffer

import (
	"testing"

	"github.com/FACorreiaa/ledger-import/internal/domain/import/normalizer"
	"github.com/stretchr/testify/assert"
)

func TestProbeDialect(t *testing.T) {
	tests := []struct {
		name           string
		rows           [][]string
		wantDecimal    string
		wantEuropean   bool
		wantOrderKnown bool
		wantOrder      normalizer.DateOrder
		wantCurrency   string
	}{
		{
			name:           "european amounts and day first dates",
			rows:           [][]string{{"15/01/2025", "€ 1.234,56"}, {"03/02/2025", "-12,50"}},
			wantDecimal:    ",",
			wantEuropean:   true,
			wantOrderKnown: true,
			wantOrder:      normalizer.DayFirst,
			wantCurrency:   "EUR",
		},
		{
			name:           "us amounts and month first dates",
			rows:           [][]string{{"01/15/2025", "$1,234.56"}, {"02/03/2025", "-12.50"}},
			wantDecimal:    ".",
			wantOrderKnown: true,
			wantOrder:      normalizer.MonthFirst,
			wantCurrency:   "USD",
		},
		{
			name:        "ambiguous dates stay unknown",
			rows:        [][]string{{"01/02/2025", "10.00"}, {"03/04/2025", "11.00"}},
			wantDecimal: ".",
		},
		{
			name:        "contradicting dates stay unknown",
			rows:        [][]string{{"15/01/2025", "1.00"}, {"01/15/2025", "2.00"}},
			wantDecimal: ".",
		},
		{
			name:        "iso dates give no order",
			rows:        [][]string{{"2025-01-15", "1.00"}},
			wantDecimal: ".",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := ProbeDialect(tt.rows, 1, 0)
			assert.Equal(t, tt.wantDecimal, d.DecimalSeparator)
			assert.Equal(t, tt.wantEuropean, d.IsEuropeanFormat)
			assert.Equal(t, tt.wantOrderKnown, d.DateOrderKnown)
			if tt.wantOrderKnown {
				assert.Equal(t, tt.wantOrder, d.DateOrder)
				assert.Equal(t, tt.wantOrder.String(), d.DateOrderName)
			}
			assert.Equal(t, tt.wantCurrency, d.CurrencyHint)
		})
	}
}

func TestProbeDialect_UnknownColumns(t *testing.T) {
	d := ProbeDialect([][]string{{"x", "y"}}, -1, -1)
	assert.Equal(t, ".", d.DecimalSeparator)
	assert.Equal(t, 0.5, d.Confidence)
	assert.False(t, d.DateOrderKnown)
}
