package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mboahomes/trust-engine/internal/scoring"
)

var (
	scoreBreakdown bool
	scoreRecommend bool
)

var scoreCmd = &cobra.Command{
	Use:   "score <listing-id>",
	Short: "Get or compute the trust score for a listing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		listingID := args[0]

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		snap, err := env.Scheduler.GetOrCompute(ctx, listingID)
		if err != nil {
			return err
		}

		zap.L().Info("listing scored",
			zap.String("listing_id", listingID),
			zap.Int("total_score", snap.TotalScore),
			zap.String("confidence", string(snap.ConfidenceLevel)),
		)

		out := map[string]any{"snapshot": snap}
		if scoreBreakdown {
			out["breakdown"] = scoring.Breakdown(snap)
		}
		if scoreRecommend {
			out["recommendations"] = scoring.Recommendations(snap)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	scoreCmd.Flags().BoolVar(&scoreBreakdown, "breakdown", false, "include the per-category breakdown")
	scoreCmd.Flags().BoolVar(&scoreRecommend, "recommendations", false, "include improvement recommendations")
	rootCmd.AddCommand(scoreCmd)
}
