// Package dcf implements the discounted cash flow valuation engine:
// flat-assumption cash flow forecasting, per-year discounting, Gordon
// growth terminal value, and the per-share fair value aggregate.
package dcf

// ValuationInputs holds every assumption needed for one valuation.
// All rates are fractional (0.12 = 12%). Values are never mutated after
// construction; Evaluate and the solver work on copies.
type ValuationInputs struct {
	BaseRevenue        float64 `json:"base_revenue"`         // last known annual revenue
	GrowthRate         float64 `json:"growth_rate"`          // annual revenue growth
	FCFMargin          float64 `json:"fcf_margin"`           // free cash flow / revenue
	HorizonYears       int     `json:"horizon_years"`        // explicit forecast horizon N
	RequiredReturn     float64 `json:"required_return"`      // discount rate
	TerminalGrowthRate float64 `json:"terminal_growth_rate"` // perpetuity growth past year N
	SharesOutstanding  float64 `json:"shares_outstanding"`
}

// YearFlow is one projected year of the forecast.
type YearFlow struct {
	Year         int     `json:"year"` // 1-based
	Revenue      float64 `json:"revenue"`
	FreeCashFlow float64 `json:"free_cash_flow"`
}

// Projection is the ordered forecast for years 1..N.
type Projection []YearFlow

// ValuationResult holds the discounted output of a single evaluation.
type ValuationResult struct {
	DiscountedFlows   []float64 `json:"discounted_flows"` // PV of each projected year
	DiscountedTV      float64   `json:"discounted_terminal_value"`
	TotalPresentValue float64   `json:"total_present_value"`
	FairValuePerShare float64   `json:"fair_value_per_share"`
}

// Validate checks every input invariant. It returns an ErrInvalidInput
// wrap naming the first offending field, before any computation runs.
func (in ValuationInputs) Validate() error {
	if in.BaseRevenue <= 0 {
		return invalidInputf("base revenue must be positive, got %g", in.BaseRevenue)
	}
	if in.HorizonYears < 1 {
		return invalidInputf("horizon years must be >= 1, got %d", in.HorizonYears)
	}
	if in.RequiredReturn <= -1 {
		return invalidInputf("required return must be above -100%%, got %g", in.RequiredReturn)
	}
	if in.RequiredReturn <= in.TerminalGrowthRate {
		return invalidInputf("required return %g must exceed terminal growth rate %g", in.RequiredReturn, in.TerminalGrowthRate)
	}
	if in.SharesOutstanding <= 0 {
		return invalidInputf("shares outstanding must be positive, got %g", in.SharesOutstanding)
	}
	return nil
}
