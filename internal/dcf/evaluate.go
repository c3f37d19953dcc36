package dcf

// Evaluate runs the full model: forecast, discount each projected year,
// discount the terminal value, and divide the total by shares outstanding.
// Pure function of its inputs; the projection is recomputed on every call.
//
// FairValuePerShare is strictly increasing in GrowthRate and FCFMargin
// and strictly decreasing in RequiredReturn (for valid inputs). The
// implied-parameter solver depends on this.
func Evaluate(in ValuationInputs) (*ValuationResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	proj, err := Forecast(in.BaseRevenue, in.GrowthRate, in.FCFMargin, in.HorizonYears)
	if err != nil {
		return nil, err
	}

	res := &ValuationResult{
		DiscountedFlows: make([]float64, 0, len(proj)),
	}
	for _, yf := range proj {
		pv, err := PresentValue(yf.FreeCashFlow, in.RequiredReturn, yf.Year)
		if err != nil {
			return nil, err
		}
		res.DiscountedFlows = append(res.DiscountedFlows, pv)
		res.TotalPresentValue += pv
	}

	tv, err := TerminalValue(proj[len(proj)-1].FreeCashFlow, in.RequiredReturn, in.TerminalGrowthRate)
	if err != nil {
		return nil, err
	}
	res.DiscountedTV, err = PresentValue(tv, in.RequiredReturn, in.HorizonYears)
	if err != nil {
		return nil, err
	}
	res.TotalPresentValue += res.DiscountedTV

	res.FairValuePerShare = res.TotalPresentValue / in.SharesOutstanding
	return res, nil
}
