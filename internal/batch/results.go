package batch

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/akashaero/fairval/internal/solve"
)

var resultsHeader = []string{
	"stock",
	"fair_value",
	"current_price",
	"upside_downside_pct",
	"assumed_rev_growth_pct",
	"assumed_fcf_margin_pct",
	"implied_rev_growth_pct",
	"implied_fcf_margin_pct",
	"implied_rate_of_return_pct",
	"error",
}

// WriteResults writes a timestamped results CSV into dir and returns its
// path. Failed rows are kept with the error column set.
func WriteResults(dir string, rows []RowResult, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrap(err, "results: create dir")
	}

	path := filepath.Join(dir, "results_"+now.Format("20060102_150405")+".csv")
	f, err := os.Create(path)
	if err != nil {
		return "", eris.Wrap(err, "results: create file")
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	if err := w.Write(resultsHeader); err != nil {
		return "", eris.Wrap(err, "results: write header")
	}

	for _, row := range rows {
		record := formatRow(row)
		if err := w.Write(record); err != nil {
			return "", eris.Wrapf(err, "results: write row %s", row.Ticker)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", eris.Wrap(err, "results: flush")
	}
	return path, nil
}

func formatRow(row RowResult) []string {
	if row.Err != nil {
		return []string{row.Ticker, "", "", "", pct(row.GrowthRate), pct(row.FCFMargin), "", "", "", row.Err.Error()}
	}
	return []string{
		row.Ticker,
		money(row.FairValue),
		money(row.Price),
		pct(row.Upside),
		pct(row.GrowthRate),
		pct(row.FCFMargin),
		impliedPct(row, solve.FieldGrowthRate),
		impliedPct(row, solve.FieldFCFMargin),
		impliedPct(row, solve.FieldRequiredReturn),
		"",
	}
}

func impliedPct(row RowResult, field solve.Field) string {
	v, ok := row.Implied[field]
	if !ok {
		return ""
	}
	return pct(v)
}

func pct(v float64) string {
	return strconv.FormatFloat(v*100, 'f', 2, 64)
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
