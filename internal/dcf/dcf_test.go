package dcf

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validInputs is the worked scenario used across the engine tests: growth
// equal to the discount rate makes every discounted year exactly 20.0.
func validInputs() ValuationInputs {
	return ValuationInputs{
		BaseRevenue:        100,
		GrowthRate:         0.10,
		FCFMargin:          0.20,
		HorizonYears:       5,
		RequiredReturn:     0.10,
		TerminalGrowthRate: 0.025,
		SharesOutstanding:  10,
	}
}

func TestForecast(t *testing.T) {
	t.Parallel()

	proj, err := Forecast(100, 0.10, 0.20, 3)
	require.NoError(t, err)
	require.Len(t, proj, 3)

	assert.Equal(t, 1, proj[0].Year)
	assert.InDelta(t, 110.0, proj[0].Revenue, 1e-9)
	assert.InDelta(t, 22.0, proj[0].FreeCashFlow, 1e-9)
	assert.InDelta(t, 121.0, proj[1].Revenue, 1e-9)
	assert.InDelta(t, 133.1, proj[2].Revenue, 1e-9)
	assert.InDelta(t, 26.62, proj[2].FreeCashFlow, 1e-9)
}

func TestForecastRejectsBadHorizon(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, -1, -7} {
		_, err := Forecast(100, 0.1, 0.2, n)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}
}

func TestPresentValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		amount float64
		rrr    float64
		year   int
		want   float64
	}{
		{"one year at 10%", 110, 0.10, 1, 100},
		{"five years at 10%", 161.051, 0.10, 5, 100},
		{"zero rate is identity", 42, 0, 3, 42},
		{"negative rate inflates", 100, -0.5, 1, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := PresentValue(tt.amount, tt.rrr, tt.year)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestPresentValueRejectsRateAtOrBelowMinusOne(t *testing.T) {
	t.Parallel()

	for _, rrr := range []float64{-1, -1.5} {
		_, err := PresentValue(100, rrr, 1)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}
}

func TestTerminalValue(t *testing.T) {
	t.Parallel()

	// 100 * 1.025 / 0.075
	tv, err := TerminalValue(100, 0.10, 0.025)
	require.NoError(t, err)
	assert.InDelta(t, 1366.6667, tv, 1e-3)
}

func TestTerminalValueRejectsRateNotAboveGrowth(t *testing.T) {
	t.Parallel()

	// Equal rates and inverted rates both make the perpetuity meaningless.
	_, err := TerminalValue(100, 0.025, 0.025)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = TerminalValue(100, 0.02, 0.025)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestEvaluateWorkedExample(t *testing.T) {
	t.Parallel()

	res, err := Evaluate(validInputs())
	require.NoError(t, err)

	// Growth equals the discount rate, so each year's PV is exactly
	// 100 * 0.20 = 20 and the sum over 5 years is 100.
	require.Len(t, res.DiscountedFlows, 5)
	for _, pv := range res.DiscountedFlows {
		assert.InDelta(t, 20.0, pv, 1e-9)
	}

	// Discounted TV collapses to 20 * 1.025 / 0.075 for the same reason.
	assert.InDelta(t, 273.3333, res.DiscountedTV, 1e-3)
	assert.InDelta(t, 373.3333, res.TotalPresentValue, 1e-3)
	assert.InDelta(t, 37.3333, res.FairValuePerShare, 1e-3)
}

func TestEvaluateValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*ValuationInputs)
	}{
		{"zero horizon", func(in *ValuationInputs) { in.HorizonYears = 0 }},
		{"rrr equals tgr", func(in *ValuationInputs) { in.RequiredReturn = 0.025 }},
		{"rrr below tgr", func(in *ValuationInputs) { in.RequiredReturn = 0.01 }},
		{"rrr at -100%", func(in *ValuationInputs) { in.RequiredReturn = -1; in.TerminalGrowthRate = -2 }},
		{"zero shares", func(in *ValuationInputs) { in.SharesOutstanding = 0 }},
		{"negative shares", func(in *ValuationInputs) { in.SharesOutstanding = -5 }},
		{"zero base revenue", func(in *ValuationInputs) { in.BaseRevenue = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			in := validInputs()
			tt.mutate(&in)
			res, err := Evaluate(in)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestEvaluateMonotonicity(t *testing.T) {
	t.Parallel()

	base := validInputs()
	fair := func(mutate func(*ValuationInputs)) float64 {
		in := base
		mutate(&in)
		res, err := Evaluate(in)
		require.NoError(t, err)
		return res.FairValuePerShare
	}

	t.Run("increasing in growth", func(t *testing.T) {
		t.Parallel()
		prev := math.Inf(-1)
		for _, g := range []float64{-0.10, 0, 0.05, 0.10, 0.20, 0.50} {
			v := fair(func(in *ValuationInputs) { in.GrowthRate = g })
			assert.Greater(t, v, prev, "growth %g", g)
			prev = v
		}
	})

	t.Run("increasing in margin", func(t *testing.T) {
		t.Parallel()
		prev := math.Inf(-1)
		for _, m := range []float64{0.01, 0.05, 0.20, 0.40, 1.0, 1.77} {
			v := fair(func(in *ValuationInputs) { in.FCFMargin = m })
			assert.Greater(t, v, prev, "margin %g", m)
			prev = v
		}
	})

	t.Run("decreasing in required return", func(t *testing.T) {
		t.Parallel()
		prev := math.Inf(-1)
		// Approaches the terminal growth rate from above but stays valid;
		// fair value rises as the rate falls.
		for _, r := range []float64{0.30, 0.15, 0.10, 0.05, 0.03, 0.026} {
			v := fair(func(in *ValuationInputs) { in.RequiredReturn = r })
			assert.Greater(t, v, prev, "rrr %g", r)
			prev = v
		}
	})
}

func TestEvaluateDoesNotMutateInputs(t *testing.T) {
	t.Parallel()

	in := validInputs()
	before := in
	_, err := Evaluate(in)
	require.NoError(t, err)
	assert.Equal(t, before, in)
}
