// Package report renders valuation results as human-readable text.
package report

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/akashaero/fairval/internal/dcf"
	"github.com/akashaero/fairval/internal/provider"
	"github.com/akashaero/fairval/internal/solve"
)

// Valuation bundles everything one rendered report needs.
type Valuation struct {
	Ticker  string
	Name    string
	Price   float64
	Inputs  dcf.ValuationInputs
	Result  *dcf.ValuationResult
	Implied map[solve.Field]float64
	History *provider.History // optional
}

var printer = message.NewPrinter(language.English)

// FormatAmount renders a dollar amount with a K/M/B/T suffix.
func FormatAmount(v float64) string {
	neg := v < 0
	a := math.Abs(v)

	var s string
	switch {
	case a >= 1e12:
		s = fmt.Sprintf("$%.2fT", a/1e12)
	case a >= 1e9:
		s = fmt.Sprintf("$%.2fB", a/1e9)
	case a >= 1e6:
		s = fmt.Sprintf("$%.2fM", a/1e6)
	case a >= 1e3:
		s = fmt.Sprintf("$%.2fK", a/1e3)
	default:
		s = fmt.Sprintf("$%.2f", a)
	}
	if neg {
		return "-" + s
	}
	return s
}

// FormatCount renders a share count with digit grouping.
func FormatCount(v float64) string {
	return printer.Sprintf("%v", number.Decimal(v, number.MaxFractionDigits(0)))
}

// Percent renders a fraction as a percentage with two decimals.
func Percent(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

// UpsideDownside returns (fair - price) / price as a fraction. Zero when the
// price is not positive.
func UpsideDownside(fair, price float64) float64 {
	if price <= 0 {
		return 0
	}
	return (fair - price) / price
}

var fieldLabels = map[solve.Field]string{
	solve.FieldGrowthRate:     "revenue growth",
	solve.FieldFCFMargin:      "FCF margin",
	solve.FieldRequiredReturn: "rate of return",
}

// impliedOrder fixes the rendering order of implied fields.
var impliedOrder = []solve.Field{
	solve.FieldGrowthRate,
	solve.FieldFCFMargin,
	solve.FieldRequiredReturn,
}

// Render produces the full text report for one valuation.
func Render(v Valuation) string {
	var b strings.Builder

	header := v.Ticker
	if v.Name != "" {
		header += " - " + v.Name
	}
	fmt.Fprintf(&b, "%s\n%s\n\n", header, strings.Repeat("=", len(header)))

	in := v.Inputs
	fmt.Fprintf(&b, "Assumptions\n")
	fmt.Fprintf(&b, "  Base revenue        %s\n", FormatAmount(in.BaseRevenue))
	fmt.Fprintf(&b, "  Revenue growth      %s\n", Percent(in.GrowthRate))
	fmt.Fprintf(&b, "  FCF margin          %s\n", Percent(in.FCFMargin))
	fmt.Fprintf(&b, "  Horizon             %d years\n", in.HorizonYears)
	fmt.Fprintf(&b, "  Required return     %s\n", Percent(in.RequiredReturn))
	fmt.Fprintf(&b, "  Terminal growth     %s\n", Percent(in.TerminalGrowthRate))
	fmt.Fprintf(&b, "  Shares outstanding  %s\n\n", FormatCount(in.SharesOutstanding))

	res := v.Result
	pvForecast := res.TotalPresentValue - res.DiscountedTV
	fmt.Fprintf(&b, "Valuation\n")
	fmt.Fprintf(&b, "  PV of forecast FCF  %s\n", FormatAmount(pvForecast))
	fmt.Fprintf(&b, "  PV of terminal      %s\n", FormatAmount(res.DiscountedTV))
	fmt.Fprintf(&b, "  Fair value / share  $%.2f\n", res.FairValuePerShare)

	if v.Price > 0 {
		delta := UpsideDownside(res.FairValuePerShare, v.Price)
		label := "Upside"
		if delta < 0 {
			label = "Downside"
		}
		fmt.Fprintf(&b, "  Current price       $%.2f\n", v.Price)
		fmt.Fprintf(&b, "  %-18s  %s\n", label, Percent(delta))
	}

	if v.Price > 0 && len(v.Implied) > 0 {
		fmt.Fprintf(&b, "\nTo justify the current price of $%.2f, either:\n", v.Price)
		var lines []string
		for _, field := range impliedOrder {
			val, ok := v.Implied[field]
			if !ok {
				continue
			}
			lines = append(lines, fmt.Sprintf("  %s of %s", fieldLabels[field], Percent(val)))
		}
		for i, line := range lines {
			if i < len(lines)-1 {
				line += ", or"
			}
			fmt.Fprintf(&b, "%s\n", line)
		}
	}

	if v.History != nil {
		renderHistory(&b, v.History)
	}

	return b.String()
}

func renderHistory(b *strings.Builder, h *provider.History) {
	fmt.Fprintf(b, "\nHistory\n")

	if len(h.RevenueGrowth) > 0 {
		fmt.Fprintf(b, "  Revenue CAGR  ")
		for _, tr := range h.RevenueGrowth {
			fmt.Fprintf(b, " %dy %s ", tr.Years, Percent(tr.Rate))
		}
		fmt.Fprintf(b, "\n")
	}
	if len(h.FCFMargins) > 0 {
		fmt.Fprintf(b, "  FCF margin    ")
		for _, mp := range h.FCFMargins {
			fmt.Fprintf(b, " %d %s ", mp.Year, Percent(mp.Margin))
		}
		fmt.Fprintf(b, "\n")
	}
	if len(h.Dilution) > 0 {
		fmt.Fprintf(b, "  Share change  ")
		for _, tr := range h.Dilution {
			fmt.Fprintf(b, " %dy %s ", tr.Years, Percent(tr.Rate))
		}
		fmt.Fprintf(b, "\n")
	}
}
