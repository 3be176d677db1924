package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var recalcCmd = &cobra.Command{
	Use:   "recalc",
	Short: "Recompute all expired score snapshots",
	Long:  "Enumerates snapshots past their expiry and recomputes each from fresh facts. Intended to be run from an external periodic trigger (cron).",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Scheduler.RecomputeExpiredBatch(ctx, time.Now())
		if err != nil {
			return err
		}

		fmt.Printf("recalculated %d/%d snapshots (%d failed)\n",
			result.Succeeded, result.Total, result.Failed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(recalcCmd)
}
