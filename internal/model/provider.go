package model

import "time"

// ProviderStatus is the lifecycle state of a directory provider.
type ProviderStatus string

const (
	ProviderActive    ProviderStatus = "ACTIVE"
	ProviderInactive  ProviderStatus = "INACTIVE"
	ProviderSuspended ProviderStatus = "SUSPENDED"
	ProviderPending   ProviderStatus = "PENDING"
)

// ProviderRecord is a directory entry for a service provider (notary,
// surveyor, property agent). The record is owned by the directory
// management screens; this engine reads it only.
type ProviderRecord struct {
	ID                   string         `json:"id"`
	DisplayName          string         `json:"display_name"`
	Specialty            string         `json:"specialty,omitempty"`
	CityID               string         `json:"city_id"`
	Coordinates          *Coordinates   `json:"coordinates,omitempty"`
	Rating               float64        `json:"rating"` // 0..5
	CompletedEngagements int            `json:"completed_engagements"`
	IsAvailable          bool           `json:"is_available"`
	IsFeatured           bool           `json:"is_featured"`
	Status               ProviderStatus `json:"status"`

	// DistanceKM is populated only on proximity-sorted results, rounded
	// to one decimal.
	DistanceKM *float64 `json:"distance_km,omitempty"`
}

// SortStrategy selects the ordering of a provider search.
type SortStrategy string

const (
	SortByRating       SortStrategy = "rating"
	SortByVolume       SortStrategy = "volume"
	SortByAlphabetical SortStrategy = "alphabetical"
	SortByProximity    SortStrategy = "proximity"
)

// SearchFilters specifies criteria for a directory search. All supplied
// criteria are conjunctive.
type SearchFilters struct {
	CityID    string       `json:"city_id,omitempty"`
	Specialty string       `json:"specialty,omitempty"`
	MinRating float64      `json:"min_rating,omitempty"`
	Available *bool        `json:"available,omitempty"`
	Featured  *bool        `json:"featured,omitempty"`
	Sort      SortStrategy `json:"sort,omitempty"`
	Origin    *Coordinates `json:"origin,omitempty"` // required for proximity
	Limit     int          `json:"limit,omitempty"`
}

// EngagementStatus is the lifecycle state of an engagement request.
type EngagementStatus string

const (
	EngagementPending   EngagementStatus = "pending"
	EngagementConfirmed EngagementStatus = "confirmed"
	EngagementCompleted EngagementStatus = "completed"
	EngagementCancelled EngagementStatus = "cancelled"
)

// EngagementRequest is one client request handled by a provider.
type EngagementRequest struct {
	ID         string           `json:"id"`
	ProviderID string           `json:"provider_id"`
	Status     EngagementStatus `json:"status"`
	CreatedAt  time.Time        `json:"created_at"`
}

// Review is one published client review of a provider.
type Review struct {
	ID         string    `json:"id"`
	ProviderID string    `json:"provider_id"`
	Rating     int       `json:"rating"` // 1..5
	Published  bool      `json:"published"`
	CreatedAt  time.Time `json:"created_at"`
}

// ProviderStats is the derived activity summary for one provider.
type ProviderStats struct {
	ProviderID      string  `json:"provider_id"`
	TotalRequests   int     `json:"total_requests"`
	Pending         int     `json:"pending"`
	Confirmed       int     `json:"confirmed"`
	Completed       int     `json:"completed"`
	Cancelled       int     `json:"cancelled"`
	CompletionRate  int     `json:"completion_rate"` // percent, rounded
	AverageRating   float64 `json:"average_rating"`  // 2 decimals
	RatingHistogram [5]int  `json:"rating_histogram"`
	TotalReviews    int     `json:"total_reviews"`
}

// City is a reference entry mapping a city id to its centroid, loaded from
// the national boundary shapefile.
type City struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Centroid Coordinates `json:"centroid"`
}
