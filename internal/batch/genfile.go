package batch

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// TemplateDefaults seed the growth and margin columns of a generated
// estimates file, as fractions.
type TemplateDefaults struct {
	GrowthRate float64
	FCFMargin  float64
}

var templateHeader = []string{"ticker", "rev_growth_pct", "fcf_margin_pct"}

// ReadTickerList parses a plain ticker list: one ticker per line, blank
// lines and #-comments skipped, tickers uppercased.
func ReadTickerList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "genfile: open ticker list")
	}
	defer f.Close() //nolint:errcheck

	var tickers []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		tickers = append(tickers, strings.ToUpper(line))
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "genfile: read ticker list")
	}
	if len(tickers) == 0 {
		return nil, eris.Errorf("genfile: %s has no tickers", path)
	}
	return tickers, nil
}

// DefaultEstimates fills one row per ticker with the shared defaults.
func DefaultEstimates(tickers []string, defaults TemplateDefaults) []Estimate {
	out := make([]Estimate, 0, len(tickers))
	for _, t := range tickers {
		out = append(out, Estimate{
			Ticker:     strings.ToUpper(strings.TrimSpace(t)),
			GrowthRate: defaults.GrowthRate,
			FCFMargin:  defaults.FCFMargin,
		})
	}
	return out
}

// PromptEstimates asks for a growth and margin percentage per ticker,
// reading answers from r. An empty answer keeps the default.
func PromptEstimates(r io.Reader, w io.Writer, tickers []string, defaults TemplateDefaults) ([]Estimate, error) {
	sc := bufio.NewScanner(r)
	out := make([]Estimate, 0, len(tickers))

	for _, t := range tickers {
		ticker := strings.ToUpper(strings.TrimSpace(t))

		growth, err := promptPercent(sc, w, fmt.Sprintf("%s revenue growth %% [%.2f]: ", ticker, defaults.GrowthRate*100), defaults.GrowthRate)
		if err != nil {
			return nil, eris.Wrapf(err, "genfile: %s growth", ticker)
		}
		margin, err := promptPercent(sc, w, fmt.Sprintf("%s FCF margin %% [%.2f]: ", ticker, defaults.FCFMargin*100), defaults.FCFMargin)
		if err != nil {
			return nil, eris.Wrapf(err, "genfile: %s margin", ticker)
		}

		out = append(out, Estimate{Ticker: ticker, GrowthRate: growth, FCFMargin: margin})
	}
	return out, nil
}

// promptPercent reads one percent answer; EOF and blank lines fall back to
// the default.
func promptPercent(sc *bufio.Scanner, w io.Writer, prompt string, fallback float64) (float64, error) {
	fmt.Fprint(w, prompt)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return 0, err
		}
		return fallback, nil
	}
	answer := strings.TrimSpace(sc.Text())
	if answer == "" {
		return fallback, nil
	}
	return parsePercent(answer)
}

// WriteTemplate generates an estimates file (.csv or .xlsx, by extension)
// with one row per estimate. The result is readable by ReadEstimates.
func WriteTemplate(path string, estimates []Estimate) error {
	if len(estimates) == 0 {
		return eris.New("genfile: no tickers given")
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return writeCSVTemplate(path, estimates)
	case ".xlsx":
		return writeXLSXTemplate(path, estimates)
	default:
		return eris.Errorf("genfile: unsupported file type %q (want .csv or .xlsx)", filepath.Ext(path))
	}
}

func writeCSVTemplate(path string, estimates []Estimate) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "genfile: create csv")
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	if err := w.Write(templateHeader); err != nil {
		return eris.Wrap(err, "genfile: write header")
	}
	for _, est := range estimates {
		record := []string{est.Ticker, pct(est.GrowthRate), pct(est.FCFMargin)}
		if err := w.Write(record); err != nil {
			return eris.Wrapf(err, "genfile: write row %s", est.Ticker)
		}
	}

	w.Flush()
	return eris.Wrap(w.Error(), "genfile: flush")
}

func writeXLSXTemplate(path string, estimates []Estimate) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("estimates")
	if err != nil {
		return eris.Wrap(err, "genfile: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range templateHeader {
		header.AddCell().SetString(h)
	}
	for _, est := range estimates {
		row := sheet.AddRow()
		row.AddCell().SetString(est.Ticker)
		row.AddCell().SetFloatWithFormat(round2(est.GrowthRate*100), "0.00")
		row.AddCell().SetFloatWithFormat(round2(est.FCFMargin*100), "0.00")
	}

	return eris.Wrap(f.Save(path), "genfile: save xlsx")
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
