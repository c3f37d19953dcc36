package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/akashaero/fairval/internal/batch"
)

var (
	genfileTickers     []string
	genfileFrom        string
	genfileInteractive bool
	genfileGrowth      float64
	genfileMargin      float64
)

var genfileCmd = &cobra.Command{
	Use:   "genfile OUT_FILE",
	Short: "Generate an estimates file for a list of tickers",
	Long:  "Writes a .csv or .xlsx estimates file for tickers given via --tickers or a plain ticker list file (--from). With --interactive each ticker's growth and margin are prompted for; otherwise the defaults fill every row.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var tickers []string
		if genfileFrom != "" {
			listed, err := batch.ReadTickerList(genfileFrom)
			if err != nil {
				return err
			}
			tickers = append(tickers, listed...)
		}
		for _, t := range genfileTickers {
			for _, part := range strings.Split(t, ",") {
				if part = strings.TrimSpace(part); part != "" {
					tickers = append(tickers, part)
				}
			}
		}
		if len(tickers) == 0 {
			return eris.New("no tickers given: use --tickers or --from")
		}

		defaults := batch.TemplateDefaults{GrowthRate: genfileGrowth, FCFMargin: genfileMargin}
		if !cmd.Flags().Changed("growth") {
			defaults.GrowthRate = cfg.Assumptions.GrowthRate
		}
		if !cmd.Flags().Changed("margin") {
			defaults.FCFMargin = cfg.Assumptions.FCFMargin
		}

		var estimates []batch.Estimate
		if genfileInteractive {
			var err error
			estimates, err = batch.PromptEstimates(cmd.InOrStdin(), os.Stdout, tickers, defaults)
			if err != nil {
				return err
			}
		} else {
			estimates = batch.DefaultEstimates(tickers, defaults)
		}

		if err := batch.WriteTemplate(args[0], estimates); err != nil {
			return err
		}

		fmt.Printf("wrote %s with %d tickers\n", args[0], len(estimates))
		return nil
	},
}

func init() {
	genfileCmd.Flags().StringSliceVar(&genfileTickers, "tickers", nil, "tickers to include (comma separated, repeatable)")
	genfileCmd.Flags().StringVar(&genfileFrom, "from", "", "plain ticker list file, one ticker per line")
	genfileCmd.Flags().BoolVar(&genfileInteractive, "interactive", false, "prompt for each ticker's growth and margin")
	genfileCmd.Flags().Float64Var(&genfileGrowth, "growth", 0.10, "default revenue growth rate (fraction)")
	genfileCmd.Flags().Float64Var(&genfileMargin, "margin", 0.20, "default FCF margin (fraction)")
	rootCmd.AddCommand(genfileCmd)
}
