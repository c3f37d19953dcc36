package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/akashaero/fairval/internal/dcf"
	"github.com/akashaero/fairval/internal/provider"
	"github.com/akashaero/fairval/internal/report"
	"github.com/akashaero/fairval/internal/solve"
	"github.com/akashaero/fairval/internal/store"
)

var (
	valueGrowth  float64
	valueMargin  float64
	valueYears   int
	valueRRR     float64
	valueTGR     float64
	valueRevenue float64
	valueShares  float64
	valuePrice   float64
	valueJSON    bool
	valueSilent  bool
	valueNoSave  bool
)

// valueOutput is the JSON shape of one valuation.
type valueOutput struct {
	Ticker  string               `json:"ticker"`
	Name    string               `json:"name,omitempty"`
	Inputs  dcf.ValuationInputs  `json:"inputs"`
	Result  *dcf.ValuationResult `json:"result"`
	Price   float64              `json:"price,omitempty"`
	Upside  float64              `json:"upside,omitempty"`
	Implied map[string]float64   `json:"implied,omitempty"`
	History *provider.History    `json:"history,omitempty"`
}

var valueCmd = &cobra.Command{
	Use:   "value TICKER",
	Short: "Compute the DCF fair value for one ticker",
	Long:  "Fetches price and fundamentals, projects free cash flow over the horizon, and discounts it to a per-share fair value. When --revenue and --shares are given no data is fetched.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ticker := strings.ToUpper(strings.TrimSpace(args[0]))

		offline := cmd.Flags().Changed("revenue") && cmd.Flags().Changed("shares")

		var (
			snap    *provider.Snapshot
			history *provider.History
			st      store.Store
		)
		if offline {
			snap = &provider.Snapshot{
				Ticker:            ticker,
				Price:             valuePrice,
				SharesOutstanding: valueShares,
				Revenue:           []provider.AnnualValue{{Value: valueRevenue}},
			}
		} else {
			var err error
			st, err = initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
			if err := st.Migrate(ctx); err != nil {
				return eris.Wrap(err, "migrate store")
			}

			snap, err = cachedFetch(ctx, st, initSource(), ticker)
			if err != nil {
				return eris.Wrapf(err, "fetch %s", ticker)
			}
			h := provider.BuildHistory(snap)
			history = &h
			if valuePrice > 0 {
				snap.Price = valuePrice
			}
		}

		in := dcf.ValuationInputs{
			BaseRevenue:        snap.BaseRevenue(),
			GrowthRate:         valueGrowth,
			FCFMargin:          valueMargin,
			HorizonYears:       valueYears,
			RequiredReturn:     valueRRR,
			TerminalGrowthRate: valueTGR,
			SharesOutstanding:  snap.SharesOutstanding,
		}

		// Flags not set on the command line fall back to configuration.
		if !cmd.Flags().Changed("growth") {
			in.GrowthRate = cfg.Assumptions.GrowthRate
		}
		if !cmd.Flags().Changed("margin") {
			in.FCFMargin = cfg.Assumptions.FCFMargin
		}
		if !cmd.Flags().Changed("years") {
			in.HorizonYears = cfg.Assumptions.HorizonYears
		}
		if !cmd.Flags().Changed("rrr") {
			in.RequiredReturn = cfg.Assumptions.RequiredReturn
		}
		if !cmd.Flags().Changed("tgr") {
			in.TerminalGrowthRate = cfg.Assumptions.TerminalGrowth
		}

		// Anchor unset growth/margin on trailing history when we have it.
		if history != nil {
			if !cmd.Flags().Changed("growth") && history.LatestGrowth() != 0 {
				in.GrowthRate = history.LatestGrowth()
			}
			if !cmd.Flags().Changed("margin") && history.LatestMargin() != 0 {
				in.FCFMargin = history.LatestMargin()
			}
		}

		res, err := dcf.Evaluate(in)
		if err != nil {
			return err
		}

		implied := impliedAgainstPrice(in, snap.Price)

		if st != nil && !valueNoSave {
			run := &store.Run{
				Ticker:    ticker,
				Inputs:    in,
				FairValue: res.FairValuePerShare,
				Price:     snap.Price,
				Implied:   impliedByName(implied),
			}
			if err := st.SaveRun(ctx, run); err != nil {
				zap.L().Warn("save run failed", zap.String("ticker", ticker), zap.Error(err))
			}
		}

		return printValuation(snap, in, res, implied, history)
	},
}

// impliedAgainstPrice inverts the valuation for each solvable field. Fields
// whose bracket misses the target are dropped.
func impliedAgainstPrice(in dcf.ValuationInputs, price float64) map[solve.Field]float64 {
	if price <= 0 {
		return nil
	}

	implied := make(map[solve.Field]float64)
	for field, bracket := range cfg.Solver.Brackets() {
		q := solve.Query{Field: field, TargetPrice: price, Lo: bracket[0], Hi: bracket[1]}
		res, err := solve.Solve(in, q, cfg.Solver.Options())
		if err != nil || !res.Converged {
			zap.L().Debug("implied solve skipped",
				zap.String("field", string(field)),
				zap.Error(err),
			)
			continue
		}
		implied[field] = res.Value
	}
	return implied
}

func impliedByName(implied map[solve.Field]float64) map[string]float64 {
	out := make(map[string]float64, len(implied))
	for f, v := range implied {
		out[string(f)] = v
	}
	return out
}

func printValuation(snap *provider.Snapshot, in dcf.ValuationInputs, res *dcf.ValuationResult, implied map[solve.Field]float64, history *provider.History) error {
	switch {
	case valueJSON:
		out := valueOutput{
			Ticker:  snap.Ticker,
			Name:    snap.Name,
			Inputs:  in,
			Result:  res,
			Price:   snap.Price,
			Implied: impliedByName(implied),
			History: history,
		}
		if snap.Price > 0 {
			out.Upside = report.UpsideDownside(res.FairValuePerShare, snap.Price)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)

	case valueSilent:
		_, err := fmt.Printf("%.2f\n", res.FairValuePerShare)
		return err

	default:
		fmt.Print(report.Render(report.Valuation{
			Ticker:  snap.Ticker,
			Name:    snap.Name,
			Price:   snap.Price,
			Inputs:  in,
			Result:  res,
			Implied: implied,
			History: history,
		}))
		return nil
	}
}

func init() {
	valueCmd.Flags().Float64Var(&valueGrowth, "growth", 0.10, "annual revenue growth rate (fraction)")
	valueCmd.Flags().Float64Var(&valueMargin, "margin", 0.20, "free cash flow margin (fraction)")
	valueCmd.Flags().IntVar(&valueYears, "years", 7, "forecast horizon in years")
	valueCmd.Flags().Float64Var(&valueRRR, "rrr", 0.10, "required rate of return (fraction)")
	valueCmd.Flags().Float64Var(&valueTGR, "tgr", 0.025, "terminal growth rate (fraction)")
	valueCmd.Flags().Float64Var(&valueRevenue, "revenue", 0, "base revenue (skips fetching with --shares)")
	valueCmd.Flags().Float64Var(&valueShares, "shares", 0, "shares outstanding (skips fetching with --revenue)")
	valueCmd.Flags().Float64Var(&valuePrice, "price", 0, "current price override")
	valueCmd.Flags().BoolVar(&valueJSON, "json", false, "print result as JSON")
	valueCmd.Flags().BoolVar(&valueSilent, "silent", false, "print only the fair value")
	valueCmd.Flags().BoolVar(&valueNoSave, "no-save", false, "do not record the run")
	rootCmd.AddCommand(valueCmd)
}
