package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mboahomes/trust-engine/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "trust-engine",
	Short: "Listing trust scoring and provider directory engine",
	Long:  "Computes multi-category trust scores for property listings, caches them with a TTL, recomputes stale scores in batch, and ranks the service-provider directory.",
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
