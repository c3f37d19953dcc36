package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/akashaero/fairval/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "fairval",
	Short: "DCF fair value calculator for stocks",
	Long:  "Computes discounted cash flow fair values from revenue forecasts, and inverts the model to find the growth, margin, or rate of return implied by the current price.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
