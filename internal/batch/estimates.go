// Package batch values many tickers at once from an estimates file and
// writes a timestamped results CSV.
package batch

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Estimate is one row of an estimates file: a ticker plus the analyst's
// growth and margin assumptions, stored as fractions (0.125 for 12.5%).
type Estimate struct {
	Ticker     string
	GrowthRate float64
	FCFMargin  float64
}

// ReadEstimates parses a .csv or .xlsx estimates file. The expected columns
// are ticker, revenue growth %, FCF margin %; the first row is treated as a
// header. Percent columns accept an optional trailing "%".
func ReadEstimates(path string) ([]Estimate, error) {
	var rows [][]string
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		rows, err = readCSVRows(path)
	case ".xlsx":
		rows, err = readXLSXRows(path)
	default:
		return nil, eris.Errorf("estimates: unsupported file type %q (want .csv or .xlsx)", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, eris.Errorf("estimates: %s has no data rows", path)
	}

	var out []Estimate
	for i, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		if len(row) < 3 {
			return nil, eris.Errorf("estimates: row %d has %d columns, want 3", i+2, len(row))
		}

		ticker := strings.ToUpper(strings.TrimSpace(row[0]))
		if ticker == "" {
			return nil, eris.Errorf("estimates: row %d has an empty ticker", i+2)
		}

		growth, err := parsePercent(row[1])
		if err != nil {
			return nil, eris.Wrapf(err, "estimates: row %d growth", i+2)
		}
		margin, err := parsePercent(row[2])
		if err != nil {
			return nil, eris.Wrapf(err, "estimates: row %d margin", i+2)
		}

		out = append(out, Estimate{Ticker: ticker, GrowthRate: growth, FCFMargin: margin})
	}

	if len(out) == 0 {
		return nil, eris.Errorf("estimates: %s has no data rows", path)
	}
	return out, nil
}

func readCSVRows(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "estimates: open csv")
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "estimates: read csv")
	}
	return rows, nil
}

func readXLSXRows(path string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "estimates: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("estimates: %s has no sheets", path)
	}

	var rows [][]string
	for _, row := range f.Sheets[0].Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// parsePercent converts "12.5" or "12.5%" into 0.125.
func parsePercent(s string) (float64, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "parse percent %q", s)
	}
	return v / 100, nil
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
