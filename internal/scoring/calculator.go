package scoring

import (
	"math"
	"time"

	"github.com/mboahomes/trust-engine/internal/model"
)

// Calculator computes trust score snapshots. It is pure: no I/O, identical
// facts always yield identical category scores.
type Calculator struct {
	weights Weights
	ttl     time.Duration
}

// NewCalculator creates a Calculator with the given weights and snapshot TTL.
func NewCalculator(weights Weights, ttl time.Duration) *Calculator {
	return &Calculator{weights: weights, ttl: ttl}
}

// Weights returns the calculator's configured weights.
func (c *Calculator) Weights() Weights {
	return c.weights
}

// Compute scores one listing. TotalScore always equals the sum of the six
// category scores and falls in [0, 100].
func (c *Calculator) Compute(facts model.ListingFacts, now time.Time) model.ScoreSnapshot {
	w := c.weights

	snap := model.ScoreSnapshot{
		ListingID:         facts.ListingID,
		TitleScore:        scoreTitle(facts, w),
		DocumentsScore:    scoreDocuments(facts, w),
		OwnerScore:        scoreOwner(facts, w),
		LocationScore:     scoreLocation(facts.LocationTier, w),
		HistoryScore:      scoreHistory(facts, w),
		TransparencyScore: scoreTransparency(facts.Transparency),
		CalculatedAt:      now.UTC(),
		ExpiresAt:         now.UTC().Add(c.ttl),
	}

	snap.TotalScore = snap.TitleScore + snap.DocumentsScore + snap.OwnerScore +
		snap.LocationScore + snap.HistoryScore + snap.TransparencyScore
	snap.ConfidenceLevel = c.Confidence(snap.TotalScore)

	return snap
}

// Confidence maps a total score to its confidence level. Monotonic in the
// total: a higher score never yields a lower level.
func (c *Calculator) Confidence(total int) model.ConfidenceLevel {
	w := c.weights
	switch {
	case total >= w.ExcellentMin:
		return model.ConfidenceExcellent
	case total >= w.GoodMin:
		return model.ConfidenceGood
	case total >= w.AverageMin:
		return model.ConfidenceAverage
	case total >= w.WeakMin:
		return model.ConfidenceWeak
	default:
		return model.ConfidenceVeryWeak
	}
}

func scoreTitle(facts model.ListingFacts, w Weights) int {
	score := 0
	if facts.SIGFUVerified {
		score += w.TitleSIGFU
	}
	if facts.NoLitigation {
		score += w.TitleNoLitigation
	}
	return score
}

func scoreDocuments(facts model.ListingFacts, w Weights) int {
	score := 0
	if facts.CompleteDocuments {
		score += w.DocumentsDossier
	}
	if facts.NotaryValidated {
		score += w.DocumentsNotary
	}
	return score
}

func scoreOwner(facts model.ListingFacts, w Weights) int {
	if facts.OwnerKYCVerified {
		return w.OwnerKYC
	}
	return 0
}

func scoreLocation(tier model.LocationTier, w Weights) int {
	switch tier {
	case model.LocationGPSPrecise:
		return w.LocationGPS
	case model.LocationCityAndDistrict:
		return w.LocationCityDistrict
	case model.LocationCityOnly:
		return w.LocationCityOnly
	default:
		return 0
	}
}

func scoreHistory(facts model.ListingFacts, w Weights) int {
	if facts.NoLitigation {
		return w.HistoryClear
	}
	return 0
}

func scoreTransparency(fraction float64) int {
	if fraction <= 0 {
		return 0
	}
	if fraction > 1 {
		fraction = 1
	}
	return int(math.Round(fraction * TransparencyMax))
}
