// Package store provides the persistence layer for score snapshots, listing
// facts, the provider directory and its activity history, with SQLite and
// PostgreSQL backends.
package store

import (
	"context"
	"time"

	"github.com/mboahomes/trust-engine/internal/model"
)

// ProviderFilter specifies conjunctive criteria for listing providers.
// Zero-valued fields are not applied.
type ProviderFilter struct {
	CityID    string               `json:"city_id,omitempty"`
	Specialty string               `json:"specialty,omitempty"`
	MinRating float64              `json:"min_rating,omitempty"`
	Available *bool                `json:"available,omitempty"`
	Featured  *bool                `json:"featured,omitempty"`
	Status    model.ProviderStatus `json:"status,omitempty"`
}

// Store defines the persistence interface for the trust scoring engine.
// Single-record lookups return (nil, nil) when no record exists; the caller
// decides whether absence is an error.
type Store interface {
	// Score snapshots. Upsert replaces the listing's snapshot whole.
	GetSnapshot(ctx context.Context, listingID string) (*model.ScoreSnapshot, error)
	UpsertSnapshot(ctx context.Context, snap *model.ScoreSnapshot) error
	ListExpiredSnapshots(ctx context.Context, now time.Time) ([]model.ScoreSnapshot, error)
	ListSnapshots(ctx context.Context, limit int) ([]model.ScoreSnapshot, error)

	// Listing facts, fed by the surrounding product's verification flows.
	GetListingFacts(ctx context.Context, listingID string) (*model.ListingFacts, error)
	UpsertListingFacts(ctx context.Context, facts *model.ListingFacts) error

	// Provider directory.
	GetProvider(ctx context.Context, id string) (*model.ProviderRecord, error)
	ListProviders(ctx context.Context, filter ProviderFilter) ([]model.ProviderRecord, error)
	UpsertProvider(ctx context.Context, p *model.ProviderRecord) error

	// Provider activity history.
	AddEngagement(ctx context.Context, e *model.EngagementRequest) error
	ListEngagements(ctx context.Context, providerID string) ([]model.EngagementRequest, error)
	AddReview(ctx context.Context, r *model.Review) error
	ListPublishedReviews(ctx context.Context, providerID string) ([]model.Review, error)

	// City reference centroids.
	UpsertCities(ctx context.Context, cities []model.City) (int, error)
	GetCity(ctx context.Context, id string) (*model.City, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
