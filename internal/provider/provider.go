// Package provider fetches market data (price, shares, revenue and free
// cash flow history) from a Yahoo-style quote API and derives the
// trailing statistics shown alongside a valuation.
package provider

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
)

// ErrNotFound means the ticker is unknown to the data source.
var ErrNotFound = eris.New("provider: ticker not found")

// AnnualValue is one fiscal-year data point, newest first in histories.
type AnnualValue struct {
	Year  int     `json:"year"`
	Value float64 `json:"value"`
}

// Snapshot is everything the valuation commands need for one ticker.
// BaseRevenue for the DCF is the newest entry of Revenue; the current
// price is the reverse-DCF target.
type Snapshot struct {
	Ticker            string        `json:"ticker"`
	Name              string        `json:"name"`
	Currency          string        `json:"currency"`
	Price             float64       `json:"price"` // previous close
	SharesOutstanding float64       `json:"shares_outstanding"`
	Revenue           []AnnualValue `json:"revenue"`        // newest first
	FreeCashFlow      []AnnualValue `json:"free_cash_flow"` // newest first
	Shares            []AnnualValue `json:"shares"`         // diluted average, newest first
	FetchedAt         time.Time     `json:"fetched_at"`
}

// BaseRevenue returns the most recent annual revenue, or 0 if none.
func (s *Snapshot) BaseRevenue() float64 {
	if len(s.Revenue) == 0 {
		return 0
	}
	return s.Revenue[0].Value
}

// Source is the market data dependency of the commands. The production
// implementation is *Client; tests use stubs.
type Source interface {
	Fetch(ctx context.Context, ticker string) (*Snapshot, error)
}
