package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mboahomes/trust-engine/internal/locality"
)

var citiesCmd = &cobra.Command{
	Use:   "cities",
	Short: "Manage city reference data",
}

var citiesLoadCmd = &cobra.Command{
	Use:   "load <shapefile>",
	Short: "Load city centroids from a shapefile into the store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cities, err := locality.LoadCitiesShapefile(args[0])
		if err != nil {
			return err
		}

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		n, err := env.Store.UpsertCities(ctx, cities)
		if err != nil {
			return err
		}

		fmt.Printf("loaded %d cities\n", n)
		return nil
	},
}

func init() {
	citiesCmd.AddCommand(citiesLoadCmd)
	rootCmd.AddCommand(citiesCmd)
}
