package main

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/mboahomes/trust-engine/internal/model"
)

var (
	searchCity      string
	searchSpecialty string
	searchMinRating float64
	searchAvailable string
	searchFeatured  string
	searchSort      string
	searchOrigin    string
	searchLimit     int
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "Search the provider directory and inspect provider stats",
}

var providersSearchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search providers with filters and a sort strategy",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		filters := model.SearchFilters{
			CityID:    searchCity,
			Specialty: searchSpecialty,
			MinRating: searchMinRating,
			Sort:      model.SortStrategy(searchSort),
			Limit:     searchLimit,
		}

		if searchAvailable != "" {
			b, err := strconv.ParseBool(searchAvailable)
			if err != nil {
				return err
			}
			filters.Available = &b
		}
		if searchFeatured != "" {
			b, err := strconv.ParseBool(searchFeatured)
			if err != nil {
				return err
			}
			filters.Featured = &b
		}
		if searchOrigin != "" {
			origin, err := parseCoordinates(searchOrigin)
			if err != nil {
				return err
			}
			filters.Origin = origin
		}

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		results, err := env.Directory.Search(ctx, filters)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	},
}

var providersStatsCmd = &cobra.Command{
	Use:   "stats <provider-id>",
	Short: "Show completion and rating statistics for a provider",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		stats, err := env.Stats.ComputeStats(ctx, args[0])
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	},
}

// parseCoordinates parses "lat,lng".
func parseCoordinates(s string) (*model.Coordinates, error) {
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return nil, eris.Errorf("invalid origin %q, want \"lat,lng\"", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return nil, eris.Wrapf(err, "invalid origin latitude %q", parts[0])
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return nil, eris.Wrapf(err, "invalid origin longitude %q", parts[1])
	}
	return &model.Coordinates{Lat: lat, Lng: lng}, nil
}

func init() {
	providersSearchCmd.Flags().StringVar(&searchCity, "city", "", "filter by city id")
	providersSearchCmd.Flags().StringVar(&searchSpecialty, "specialty", "", "filter by specialty")
	providersSearchCmd.Flags().Float64Var(&searchMinRating, "min-rating", 0, "minimum rating (0-5)")
	providersSearchCmd.Flags().StringVar(&searchAvailable, "available", "", "filter by availability (true/false)")
	providersSearchCmd.Flags().StringVar(&searchFeatured, "featured", "", "filter by featured flag (true/false)")
	providersSearchCmd.Flags().StringVar(&searchSort, "sort", "", "sort strategy: rating, volume, alphabetical, proximity")
	providersSearchCmd.Flags().StringVar(&searchOrigin, "origin", "", "origin coordinates \"lat,lng\" for proximity sort")
	providersSearchCmd.Flags().IntVar(&searchLimit, "limit", 0, "max results (0 = unlimited)")

	providersCmd.AddCommand(providersSearchCmd)
	providersCmd.AddCommand(providersStatsCmd)
	rootCmd.AddCommand(providersCmd)
}
