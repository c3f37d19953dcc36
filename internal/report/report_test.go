package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akashaero/fairval/internal/dcf"
	"github.com/akashaero/fairval/internal/provider"
	"github.com/akashaero/fairval/internal/solve"
)

func TestFormatAmount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		amount   float64
		expected string
	}{
		{2.41e12, "$2.41T"},
		{5.31e10, "$53.10B"},
		{1_500_000_000, "$1.50B"},
		{22_000_000, "$22.00M"},
		{500_000, "$500.00K"},
		{999, "$999.00"},
		{-1.5e9, "-$1.50B"},
	}
	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, FormatAmount(tt.amount))
		})
	}
}

func TestFormatCount(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "4,282,000,000", FormatCount(4.282e9))
}

func TestPercent(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "12.25%", Percent(0.1225))
	assert.Equal(t, "-1.50%", Percent(-0.015))
}

func TestUpsideDownside(t *testing.T) {
	t.Parallel()
	assert.InDelta(t, 0.0916, UpsideDownside(37.3333, 34.2), 1e-3)
	assert.InDelta(t, -0.25, UpsideDownside(30, 40), 1e-9)
	assert.Zero(t, UpsideDownside(30, 0))
}

func testValuation(t *testing.T) Valuation {
	t.Helper()
	in := dcf.ValuationInputs{
		BaseRevenue:        100,
		GrowthRate:         0.10,
		FCFMargin:          0.20,
		HorizonYears:       5,
		RequiredReturn:     0.10,
		TerminalGrowthRate: 0.025,
		SharesOutstanding:  10,
	}
	res, err := dcf.Evaluate(in)
	require.NoError(t, err)
	return Valuation{
		Ticker: "INTC",
		Name:   "Intel Corporation",
		Price:  34.2,
		Inputs: in,
		Result: res,
		Implied: map[solve.Field]float64{
			solve.FieldGrowthRate:     0.081,
			solve.FieldFCFMargin:      0.183,
			solve.FieldRequiredReturn: 0.112,
		},
	}
}

func TestRender(t *testing.T) {
	t.Parallel()

	out := Render(testValuation(t))

	assert.Contains(t, out, "INTC - Intel Corporation")
	assert.Contains(t, out, "Fair value / share  $37.33")
	assert.Contains(t, out, "Current price       $34.20")
	assert.Contains(t, out, "Upside")
	assert.Contains(t, out, "To justify the current price of $34.20, either:")
	assert.Contains(t, out, "revenue growth of 8.10%, or")
	assert.Contains(t, out, "FCF margin of 18.30%, or")
	assert.Contains(t, out, "rate of return of 11.20%")
	assert.NotContains(t, out, "History")
}

func TestRenderDownside(t *testing.T) {
	t.Parallel()

	v := testValuation(t)
	v.Price = 40

	out := Render(v)
	assert.Contains(t, out, "Downside")
	assert.NotContains(t, out, "Upside")
}

func TestRenderNoPrice(t *testing.T) {
	t.Parallel()

	v := testValuation(t)
	v.Price = 0
	v.Implied = nil

	out := Render(v)
	assert.Contains(t, out, "Fair value / share")
	assert.NotContains(t, out, "Current price")
	assert.NotContains(t, out, "To justify")
}

func TestRenderHistory(t *testing.T) {
	t.Parallel()

	v := testValuation(t)
	v.History = &provider.History{
		RevenueGrowth: []provider.TrailingRate{{Years: 1, Rate: 0.081}, {Years: 3, Rate: 0.075}},
		FCFMargins:    []provider.MarginPoint{{Year: 2024, Margin: 0.201}},
		Dilution:      []provider.TrailingRate{{Years: 1, Rate: -0.005}},
	}

	out := Render(v)
	assert.Contains(t, out, "History")
	assert.Contains(t, out, "1y 8.10%")
	assert.Contains(t, out, "3y 7.50%")
	assert.Contains(t, out, "2024 20.10%")
	assert.Contains(t, out, "1y -0.50%")
}
