package main

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/akashaero/fairval/internal/batch"
)

var (
	batchOutDir      string
	batchConcurrency int
	batchNoSave      bool
)

var batchCmd = &cobra.Command{
	Use:   "batch ESTIMATES_FILE",
	Short: "Value every ticker in an estimates file",
	Long:  "Reads a .csv or .xlsx estimates file (ticker, revenue growth %, FCF margin %), values each ticker concurrently, and writes a timestamped results CSV.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		estimates, err := batch.ReadEstimates(args[0])
		if err != nil {
			return err
		}
		zap.L().Info("estimates loaded",
			zap.String("file", args[0]),
			zap.Int("tickers", len(estimates)),
		)

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		concurrency := batchConcurrency
		if concurrency == 0 {
			concurrency = cfg.Batch.MaxConcurrentTickers
		}

		engine := &batch.Engine{
			Source: initSource(),
			Store:  st,
			Assumptions: batch.Assumptions{
				HorizonYears:   cfg.Assumptions.HorizonYears,
				RequiredReturn: cfg.Assumptions.RequiredReturn,
				TerminalGrowth: cfg.Assumptions.TerminalGrowth,
			},
			Solver:      cfg.Solver.Options(),
			Brackets:    cfg.Solver.Brackets(),
			Concurrency: concurrency,
			SnapshotTTL: cfg.Provider.CacheTTL(),
			SaveRuns:    cfg.Batch.SaveRuns && !batchNoSave,
		}

		rows, sum, err := engine.Run(ctx, estimates)
		if err != nil {
			return eris.Wrap(err, "batch run")
		}

		outDir := batchOutDir
		if outDir == "" {
			outDir = cfg.Batch.ResultsDir
		}
		path, err := batch.WriteResults(outDir, rows, time.Now())
		if err != nil {
			return err
		}

		fmt.Printf("valued %d tickers (%d failed), results in %s\n", sum.Succeeded, sum.Failed, path)
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchOutDir, "out", "", "results directory (default from config)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "concurrent tickers (default from config)")
	batchCmd.Flags().BoolVar(&batchNoSave, "no-save", false, "do not record runs")
	rootCmd.AddCommand(batchCmd)
}
