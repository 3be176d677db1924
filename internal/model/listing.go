package model

import "time"

// LocationTier describes how precisely a listing's location is specified.
type LocationTier string

const (
	LocationNone            LocationTier = "none"
	LocationCityOnly        LocationTier = "city_only"
	LocationCityAndDistrict LocationTier = "city_and_district"
	LocationGPSPrecise      LocationTier = "gps_precise"
)

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ListingFacts holds the verification facts a scoring run consumes.
// Facts are supplied by the surrounding product (document verification,
// registry lookups, KYC workflow) and are read-only to the engine.
type ListingFacts struct {
	ListingID         string       `json:"listing_id"`
	SIGFUVerified     bool         `json:"sigfu_verified"`     // land title confirmed in the SIGFU registry
	NoLitigation      bool         `json:"no_litigation"`      // no open dispute on the title
	CompleteDocuments bool         `json:"complete_documents"` // full ownership dossier uploaded
	OwnerKYCVerified  bool         `json:"owner_kyc_verified"`
	NotaryValidated   bool         `json:"notary_validated"`
	LocationTier      LocationTier `json:"location_tier"`
	CityID            string       `json:"city_id,omitempty"`
	GPS               *Coordinates `json:"gps,omitempty"`
	// Transparency is the fraction (0..1) of optional description and
	// metadata fields the owner filled in.
	Transparency float64 `json:"transparency"`
}

// ConfidenceLevel classifies a total trust score.
type ConfidenceLevel string

const (
	ConfidenceExcellent ConfidenceLevel = "EXCELLENT"
	ConfidenceGood      ConfidenceLevel = "GOOD"
	ConfidenceAverage   ConfidenceLevel = "AVERAGE"
	ConfidenceWeak      ConfidenceLevel = "WEAK"
	ConfidenceVeryWeak  ConfidenceLevel = "VERY_WEAK"
)

// ScoreSnapshot is one stored scoring result for a listing. Snapshots are
// written only by the cache scheduler and replaced whole, never patched.
type ScoreSnapshot struct {
	ID        string `json:"id"`
	ListingID string `json:"listing_id"`

	TitleScore        int `json:"title_score"`
	DocumentsScore    int `json:"documents_score"`
	OwnerScore        int `json:"owner_score"`
	LocationScore     int `json:"location_score"`
	HistoryScore      int `json:"history_score"`
	TransparencyScore int `json:"transparency_score"`

	TotalScore      int             `json:"total_score"`
	ConfidenceLevel ConfidenceLevel `json:"confidence_level"`
	CalculatedAt    time.Time       `json:"calculated_at"`
	ExpiresAt       time.Time       `json:"expires_at"`
}

// CategoryScores returns the six category scores in their canonical order.
func (s *ScoreSnapshot) CategoryScores() [6]int {
	return [6]int{
		s.TitleScore, s.DocumentsScore, s.OwnerScore,
		s.LocationScore, s.HistoryScore, s.TransparencyScore,
	}
}

// CategoryStatus is the qualitative rating of one score category.
type CategoryStatus string

const (
	StatusExcellent CategoryStatus = "excellent"
	StatusGood      CategoryStatus = "good"
	StatusAverage   CategoryStatus = "average"
	StatusPoor      CategoryStatus = "poor"
)

// CategoryBreakdown is the per-category decomposition of a snapshot.
// It is derived on read and never persisted.
type CategoryBreakdown struct {
	Category   string         `json:"category"`
	Score      int            `json:"score"`
	MaxScore   int            `json:"max_score"`
	Percentage float64        `json:"percentage"`
	Status     CategoryStatus `json:"status"`
	Details    []string       `json:"details"`
}

// Recommendation is an improvement hint for a listing owner, naming the
// deficient category and the points recoverable by fixing it.
type Recommendation struct {
	Category          string `json:"category"`
	RecoverablePoints int    `json:"recoverable_points"`
	Message           string `json:"message"`
}

// BatchResult summarizes one expired-snapshot recomputation run.
type BatchResult struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Total     int `json:"total"`
}
