package provider

import "math"

// TrailingRate is an annualized rate computed over a lookback window.
type TrailingRate struct {
	Years int     `json:"years"`
	Rate  float64 `json:"rate"`
}

// MarginPoint is one fiscal year's FCF margin.
type MarginPoint struct {
	Year   int     `json:"year"`
	Margin float64 `json:"margin"`
}

// History holds the trailing statistics derived from a snapshot, used to
// anchor the user's growth and margin estimates.
type History struct {
	RevenueGrowth []TrailingRate `json:"revenue_growth"` // 1y, 2y, 3y CAGR where data allows
	Dilution      []TrailingRate `json:"dilution"`       // share count CAGR; negative = buybacks
	FCFMargins    []MarginPoint  `json:"fcf_margins"`    // newest first
}

// CAGR annualizes the growth from older to newer over the given number of
// years. Sign is preserved for histories that cross zero.
func CAGR(newer, older float64, years int) float64 {
	if years < 1 || older == 0 {
		return 0
	}
	ratio := newer / older
	return math.Copysign(math.Pow(math.Abs(ratio), 1/float64(years))-1, ratio)
}

// BuildHistory derives trailing growth, dilution, and margin statistics
// from a snapshot. Histories shorter than the window are skipped, never
// extrapolated.
func BuildHistory(snap *Snapshot) History {
	var h History
	h.RevenueGrowth = trailingRates(snap.Revenue)
	h.Dilution = trailingRates(snap.Shares)

	n := min(len(snap.Revenue), len(snap.FreeCashFlow))
	for i := range n {
		rev := snap.Revenue[i]
		fcf := snap.FreeCashFlow[i]
		if rev.Value == 0 {
			continue
		}
		h.FCFMargins = append(h.FCFMargins, MarginPoint{
			Year:   rev.Year,
			Margin: fcf.Value / rev.Value,
		})
	}
	return h
}

// LatestMargin returns the most recent FCF margin, or 0 when unknown.
func (h History) LatestMargin() float64 {
	if len(h.FCFMargins) == 0 {
		return 0
	}
	return h.FCFMargins[0].Margin
}

// LatestGrowth returns the 1-year revenue growth rate, or 0 when unknown.
func (h History) LatestGrowth() float64 {
	for _, tr := range h.RevenueGrowth {
		if tr.Years == 1 {
			return tr.Rate
		}
	}
	return 0
}

// trailingRates computes 1/2/3-year CAGRs from a newest-first history.
func trailingRates(vals []AnnualValue) []TrailingRate {
	var out []TrailingRate
	for years := 1; years <= 3; years++ {
		if years >= len(vals) {
			break
		}
		newer, older := vals[0].Value, vals[years].Value
		if older == 0 {
			continue
		}
		out = append(out, TrailingRate{Years: years, Rate: CAGR(newer, older, years)})
	}
	return out
}
