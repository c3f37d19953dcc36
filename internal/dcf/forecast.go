package dcf

import "math"

// Forecast expands a base revenue into n projected years under a flat
// growth and margin assumption:
//
//	revenue_i = base * (1+growth)^i
//	fcf_i     = revenue_i * margin
//
// The flat assumption is what makes Evaluate monotone in growth and
// margin, which the implied-parameter solver relies on.
func Forecast(baseRevenue, growthRate, fcfMargin float64, horizonYears int) (Projection, error) {
	if horizonYears < 1 {
		return nil, invalidInputf("horizon years must be >= 1, got %d", horizonYears)
	}

	proj := make(Projection, 0, horizonYears)
	revenue := baseRevenue
	for year := 1; year <= horizonYears; year++ {
		revenue *= 1 + growthRate
		proj = append(proj, YearFlow{
			Year:         year,
			Revenue:      revenue,
			FreeCashFlow: revenue * fcfMargin,
		})
	}
	return proj, nil
}

// PresentValue discounts a single future amount back from the given year:
// amount / (1+requiredReturn)^year.
func PresentValue(amount, requiredReturn float64, year int) (float64, error) {
	if requiredReturn <= -1 {
		return 0, invalidInputf("required return must be above -100%%, got %g", requiredReturn)
	}
	return amount / math.Pow(1+requiredReturn, float64(year)), nil
}

// TerminalValue estimates the value of all cash flows beyond the horizon
// with the Gordon growth perpetuity:
//
//	TV = lastFCF * (1+tgr) / (rrr - tgr)
//
// A discount rate at or below the terminal growth rate would make the
// perpetuity infinite or negative, so it is rejected rather than computed.
func TerminalValue(lastFreeCashFlow, requiredReturn, terminalGrowthRate float64) (float64, error) {
	if requiredReturn <= terminalGrowthRate {
		return 0, invalidInputf("required return %g must exceed terminal growth rate %g", requiredReturn, terminalGrowthRate)
	}
	return lastFreeCashFlow * (1 + terminalGrowthRate) / (requiredReturn - terminalGrowthRate), nil
}
