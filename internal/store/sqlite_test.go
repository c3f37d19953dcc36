package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akashaero/fairval/internal/dcf"
	"github.com/akashaero/fairval/internal/provider"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "fairval.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func testSnapshot() *provider.Snapshot {
	return &provider.Snapshot{
		Ticker:            "INTC",
		Name:              "Intel Corporation",
		Currency:          "USD",
		Price:             34.2,
		SharesOutstanding: 4.282e9,
		Revenue: []provider.AnnualValue{
			{Year: 2024, Value: 5.31e10},
			{Year: 2023, Value: 5.42e10},
		},
		FetchedAt: time.Now().UTC(),
	}
}

func TestSQLiteSnapshotRoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestSQLite(t)
	ctx := context.Background()

	// Miss before put.
	got, err := s.GetSnapshot(ctx, "INTC")
	require.NoError(t, err)
	assert.Nil(t, got)

	snap := testSnapshot()
	require.NoError(t, s.PutSnapshot(ctx, snap, time.Hour))

	got, err = s.GetSnapshot(ctx, "INTC")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, snap.Ticker, got.Ticker)
	assert.InDelta(t, snap.Price, got.Price, 1e-9)
	require.Len(t, got.Revenue, 2)
	assert.Equal(t, 2024, got.Revenue[0].Year)
}

func TestSQLiteSnapshotExpiry(t *testing.T) {
	t.Parallel()
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.PutSnapshot(ctx, testSnapshot(), -time.Minute))

	got, err := s.GetSnapshot(ctx, "INTC")
	require.NoError(t, err)
	assert.Nil(t, got)

	n, err := s.DeleteExpiredSnapshots(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestSQLiteSnapshotUpsert(t *testing.T) {
	t.Parallel()
	s := newTestSQLite(t)
	ctx := context.Background()

	snap := testSnapshot()
	require.NoError(t, s.PutSnapshot(ctx, snap, time.Hour))
	snap.Price = 40.0
	require.NoError(t, s.PutSnapshot(ctx, snap, time.Hour))

	got, err := s.GetSnapshot(ctx, "INTC")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.InDelta(t, 40.0, got.Price, 1e-9)
}

func TestSQLiteRuns(t *testing.T) {
	t.Parallel()
	s := newTestSQLite(t)
	ctx := context.Background()

	run := &Run{
		Ticker: "INTC",
		Inputs: dcf.ValuationInputs{
			BaseRevenue:        5.31e10,
			GrowthRate:         0.122,
			FCFMargin:          0.20,
			HorizonYears:       7,
			RequiredReturn:     0.10,
			TerminalGrowthRate: 0.025,
			SharesOutstanding:  4.282e9,
		},
		FairValue: 28.4,
		Price:     34.2,
		Implied:   map[string]float64{"growth_rate": 0.152},
	}
	require.NoError(t, s.SaveRun(ctx, run))
	assert.NotEmpty(t, run.ID)
	assert.False(t, run.CreatedAt.IsZero())

	runs, err := s.ListRuns(ctx, "INTC", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
	assert.InDelta(t, 0.122, runs[0].Inputs.GrowthRate, 1e-9)
	assert.InDelta(t, 0.152, runs[0].Implied["growth_rate"], 1e-9)

	// Filter excludes other tickers.
	runs, err = s.ListRuns(ctx, "AAPL", 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
