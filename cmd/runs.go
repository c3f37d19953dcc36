package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/akashaero/fairval/internal/report"
)

var (
	runsLimit int
	runsJSON  bool
)

var runsCmd = &cobra.Command{
	Use:   "runs [TICKER]",
	Short: "List saved valuation runs",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		ticker := ""
		if len(args) == 1 {
			ticker = strings.ToUpper(strings.TrimSpace(args[0]))
		}

		runs, err := st.ListRuns(ctx, ticker, runsLimit)
		if err != nil {
			return err
		}

		if runsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(runs)
		}

		if len(runs) == 0 {
			fmt.Println("no runs recorded")
			return nil
		}
		for _, r := range runs {
			delta := report.UpsideDownside(r.FairValue, r.Price)
			fmt.Printf("%s  %-6s  fair $%.2f  price $%.2f  %s\n",
				r.CreatedAt.Format("2006-01-02 15:04"),
				r.Ticker,
				r.FairValue,
				r.Price,
				report.Percent(delta),
			)
		}
		return nil
	},
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum runs to list")
	runsCmd.Flags().BoolVar(&runsJSON, "json", false, "print runs as JSON")
	rootCmd.AddCommand(runsCmd)
}
