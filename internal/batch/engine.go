package batch

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/akashaero/fairval/internal/dcf"
	"github.com/akashaero/fairval/internal/provider"
	"github.com/akashaero/fairval/internal/solve"
	"github.com/akashaero/fairval/internal/store"
)

// Assumptions are the shared valuation knobs applied to every ticker in a
// batch; the per-ticker growth and margin come from the estimates file.
type Assumptions struct {
	HorizonYears   int
	RequiredReturn float64
	TerminalGrowth float64
}

// RowResult is the outcome for a single ticker. Err is set when the row
// failed; the rest of the batch keeps going.
type RowResult struct {
	Ticker     string
	FairValue  float64
	Price      float64
	Upside     float64 // (fair value - price) / price, as a fraction
	GrowthRate float64
	FCFMargin  float64
	Implied    map[solve.Field]float64
	Err        error
}

// Summary counts batch outcomes.
type Summary struct {
	Succeeded int64
	Failed    int64
}

// Engine runs valuations for a list of estimates with bounded concurrency.
type Engine struct {
	Source      provider.Source
	Store       store.Store // optional: snapshot cache and run history
	Assumptions Assumptions
	Solver      solve.Options
	Brackets    map[solve.Field][2]float64
	Concurrency int
	SnapshotTTL time.Duration
	SaveRuns    bool
}

const (
	defaultConcurrency = 4
	defaultSnapshotTTL = 6 * time.Hour
)

// Run values every estimate. Individual failures are logged and recorded on
// the row; only context cancellation aborts the batch.
func (e *Engine) Run(ctx context.Context, estimates []Estimate) ([]RowResult, Summary, error) {
	concurrency := e.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	results := make([]RowResult, len(estimates))
	var succeeded, failed atomic.Int64

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, est := range estimates {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}

			row, err := e.valueOne(gCtx, est)
			if err != nil {
				zap.L().Warn("batch: ticker failed",
					zap.String("ticker", est.Ticker),
					zap.Error(err),
				)
				results[i] = RowResult{Ticker: est.Ticker, GrowthRate: est.GrowthRate, FCFMargin: est.FCFMargin, Err: err}
				failed.Add(1)
				return nil
			}

			results[i] = *row
			succeeded.Add(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, Summary{Succeeded: succeeded.Load(), Failed: failed.Load()}, err
	}

	sum := Summary{Succeeded: succeeded.Load(), Failed: failed.Load()}
	zap.L().Info("batch: done",
		zap.Int64("succeeded", sum.Succeeded),
		zap.Int64("failed", sum.Failed),
	)
	return results, sum, nil
}

func (e *Engine) valueOne(ctx context.Context, est Estimate) (*RowResult, error) {
	snap, err := e.fetchSnapshot(ctx, est.Ticker)
	if err != nil {
		return nil, err
	}

	in := dcf.ValuationInputs{
		BaseRevenue:        snap.BaseRevenue(),
		GrowthRate:         est.GrowthRate,
		FCFMargin:          est.FCFMargin,
		HorizonYears:       e.Assumptions.HorizonYears,
		RequiredReturn:     e.Assumptions.RequiredReturn,
		TerminalGrowthRate: e.Assumptions.TerminalGrowth,
		SharesOutstanding:  snap.SharesOutstanding,
	}

	res, err := dcf.Evaluate(in)
	if err != nil {
		return nil, err
	}

	row := &RowResult{
		Ticker:     est.Ticker,
		FairValue:  res.FairValuePerShare,
		Price:      snap.Price,
		GrowthRate: est.GrowthRate,
		FCFMargin:  est.FCFMargin,
	}
	if snap.Price > 0 {
		row.Upside = (res.FairValuePerShare - snap.Price) / snap.Price
		row.Implied = e.impliedFields(in, snap.Price)
	}

	if e.Store != nil && e.SaveRuns {
		implied := make(map[string]float64, len(row.Implied))
		for f, v := range row.Implied {
			implied[string(f)] = v
		}
		run := &store.Run{
			Ticker:    est.Ticker,
			Inputs:    in,
			FairValue: res.FairValuePerShare,
			Price:     snap.Price,
			Implied:   implied,
		}
		if err := e.Store.SaveRun(ctx, run); err != nil {
			zap.L().Warn("batch: save run failed",
				zap.String("ticker", est.Ticker),
				zap.Error(err),
			)
		}
	}

	return row, nil
}

// impliedFields inverts the valuation for each solvable field against the
// current price. Fields whose bracket misses the root are skipped.
func (e *Engine) impliedFields(in dcf.ValuationInputs, price float64) map[solve.Field]float64 {
	implied := make(map[solve.Field]float64)
	for field, bracket := range e.Brackets {
		q := solve.Query{Field: field, TargetPrice: price, Lo: bracket[0], Hi: bracket[1]}
		res, err := solve.Solve(in, q, e.Solver)
		if err != nil || !res.Converged {
			zap.L().Debug("batch: implied solve skipped",
				zap.String("field", string(field)),
				zap.Error(err),
			)
			continue
		}
		implied[field] = res.Value
	}
	return implied
}

func (e *Engine) fetchSnapshot(ctx context.Context, ticker string) (*provider.Snapshot, error) {
	if e.Store != nil {
		snap, err := e.Store.GetSnapshot(ctx, ticker)
		if err != nil {
			zap.L().Warn("batch: snapshot cache read failed",
				zap.String("ticker", ticker),
				zap.Error(err),
			)
		} else if snap != nil {
			return snap, nil
		}
	}

	snap, err := e.Source.Fetch(ctx, ticker)
	if err != nil {
		return nil, err
	}

	if e.Store != nil {
		ttl := e.SnapshotTTL
		if ttl <= 0 {
			ttl = defaultSnapshotTTL
		}
		if err := e.Store.PutSnapshot(ctx, snap, ttl); err != nil {
			zap.L().Warn("batch: snapshot cache write failed",
				zap.String("ticker", ticker),
				zap.Error(err),
			)
		}
	}
	return snap, nil
}
