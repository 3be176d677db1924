package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mboahomes/trust-engine/internal/report"
)

var (
	exportOut   string
	exportLimit int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored score snapshots to an xlsx report",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		snapshots, err := env.Store.ListSnapshots(ctx, exportLimit)
		if err != nil {
			return err
		}

		if err := report.WriteScoreReport(exportOut, snapshots); err != nil {
			return err
		}

		fmt.Printf("exported %d snapshots to %s\n", len(snapshots), exportOut)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "scores.xlsx", "output file path")
	exportCmd.Flags().IntVar(&exportLimit, "limit", 0, "max snapshots to export (0 = all)")
	rootCmd.AddCommand(exportCmd)
}
