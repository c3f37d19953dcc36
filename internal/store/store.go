// Package store persists provider snapshots (TTL cache) and completed
// valuation runs, on SQLite or Postgres selected by configuration.
package store

import (
	"context"
	"time"

	"github.com/akashaero/fairval/internal/dcf"
	"github.com/akashaero/fairval/internal/provider"
)

// Run is one completed valuation, kept for later inspection.
type Run struct {
	ID        string              `json:"id"`
	Ticker    string              `json:"ticker"`
	Inputs    dcf.ValuationInputs `json:"inputs"`
	FairValue float64             `json:"fair_value"`
	Price     float64             `json:"price"`   // market price at valuation time
	Implied   map[string]float64  `json:"implied"` // converged implied parameters by field
	CreatedAt time.Time           `json:"created_at"`
}

// Store is the persistence interface shared by both drivers.
type Store interface {
	// Snapshot cache
	GetSnapshot(ctx context.Context, ticker string) (*provider.Snapshot, error) // nil, nil on miss or expiry
	PutSnapshot(ctx context.Context, snap *provider.Snapshot, ttl time.Duration) error
	DeleteExpiredSnapshots(ctx context.Context) (int64, error)

	// Run history
	SaveRun(ctx context.Context, run *Run) error
	ListRuns(ctx context.Context, ticker string, limit int) ([]Run, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
