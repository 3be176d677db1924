// Package directory filters and ranks the service-provider directory.
package directory

import (
	"context"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/mboahomes/trust-engine/internal/faults"
	"github.com/mboahomes/trust-engine/internal/geodesy"
	"github.com/mboahomes/trust-engine/internal/model"
	"github.com/mboahomes/trust-engine/internal/store"
)

// ProviderLister is the subset of the store the engine reads from.
type ProviderLister interface {
	ListProviders(ctx context.Context, filter store.ProviderFilter) ([]model.ProviderRecord, error)
}

// Engine applies search filters and ordering strategies to the directory.
type Engine struct {
	store ProviderLister
}

// NewEngine creates a directory Engine over the given store.
func NewEngine(s ProviderLister) *Engine {
	return &Engine{store: s}
}

// Search returns the providers matching every supplied filter, ordered by
// the requested strategy and truncated to the limit. Only ACTIVE providers
// are ever returned. Proximity ordering is computed locally after the
// store query, so it works against any backend.
func (e *Engine) Search(ctx context.Context, filters model.SearchFilters) ([]model.ProviderRecord, error) {
	strategy, err := validate(filters)
	if err != nil {
		return nil, err
	}

	providers, err := e.store.ListProviders(ctx, store.ProviderFilter{
		CityID:    filters.CityID,
		Specialty: filters.Specialty,
		MinRating: filters.MinRating,
		Available: filters.Available,
		Featured:  filters.Featured,
		Status:    model.ProviderActive,
	})
	if err != nil {
		return nil, faults.NewStore("list providers", err)
	}

	switch strategy {
	case model.SortByRating:
		sortByRating(providers)
	case model.SortByVolume:
		sortByVolume(providers)
	case model.SortByAlphabetical:
		sortByName(providers)
	case model.SortByProximity:
		providers = sortByProximity(providers, *filters.Origin)
	}

	if filters.Limit > 0 && len(providers) > filters.Limit {
		providers = providers[:filters.Limit]
	}

	zap.L().Debug("directory: search complete",
		zap.String("sort", string(strategy)),
		zap.Int("results", len(providers)),
	)
	return providers, nil
}

// validate rejects malformed filters before any I/O and resolves the
// default sort strategy.
func validate(filters model.SearchFilters) (model.SortStrategy, error) {
	strategy := filters.Sort
	if strategy == "" {
		strategy = model.SortByRating
	}

	switch strategy {
	case model.SortByRating, model.SortByVolume, model.SortByAlphabetical:
	case model.SortByProximity:
		if filters.Origin == nil {
			return "", faults.NewValidation("origin", "required for proximity sort")
		}
	default:
		return "", faults.NewValidation("sort", "unknown strategy "+string(strategy))
	}

	if filters.MinRating < 0 || filters.MinRating > 5 {
		return "", faults.NewValidation("min_rating", "must be between 0 and 5")
	}
	if filters.Limit < 0 {
		return "", faults.NewValidation("limit", "must be >= 0")
	}
	return strategy, nil
}

func sortByRating(providers []model.ProviderRecord) {
	c := newCollator()
	sort.SliceStable(providers, func(i, j int) bool {
		if providers[i].Rating != providers[j].Rating {
			return providers[i].Rating > providers[j].Rating
		}
		if providers[i].CompletedEngagements != providers[j].CompletedEngagements {
			return providers[i].CompletedEngagements > providers[j].CompletedEngagements
		}
		return c.CompareString(providers[i].DisplayName, providers[j].DisplayName) < 0
	})
}

func sortByVolume(providers []model.ProviderRecord) {
	c := newCollator()
	sort.SliceStable(providers, func(i, j int) bool {
		if providers[i].CompletedEngagements != providers[j].CompletedEngagements {
			return providers[i].CompletedEngagements > providers[j].CompletedEngagements
		}
		if providers[i].Rating != providers[j].Rating {
			return providers[i].Rating > providers[j].Rating
		}
		return c.CompareString(providers[i].DisplayName, providers[j].DisplayName) < 0
	})
}

func sortByName(providers []model.ProviderRecord) {
	c := newCollator()
	sort.SliceStable(providers, func(i, j int) bool {
		return c.CompareString(providers[i].DisplayName, providers[j].DisplayName) < 0
	})
}

// sortByProximity orders providers by great-circle distance from the
// origin, nearest first. Providers without coordinates cannot be placed in
// a distance ordering and are dropped.
func sortByProximity(providers []model.ProviderRecord, origin model.Coordinates) []model.ProviderRecord {
	located := providers[:0]
	for i := range providers {
		p := providers[i]
		if p.Coordinates == nil {
			continue
		}
		d := geodesy.RoundKM1(geodesy.HaversineKM(origin, *p.Coordinates))
		p.DistanceKM = &d
		located = append(located, p)
	}

	c := newCollator()
	sort.SliceStable(located, func(i, j int) bool {
		if *located[i].DistanceKM != *located[j].DistanceKM {
			return *located[i].DistanceKM < *located[j].DistanceKM
		}
		if located[i].Rating != located[j].Rating {
			return located[i].Rating > located[j].Rating
		}
		return c.CompareString(located[i].DisplayName, located[j].DisplayName) < 0
	})
	return located
}

// newCollator returns a French-locale collator; provider names carry
// accented characters a byte-wise sort would misorder. Collators are not
// safe for concurrent use, so each sort builds its own.
func newCollator() *collate.Collator {
	return collate.New(language.French, collate.IgnoreCase)
}
