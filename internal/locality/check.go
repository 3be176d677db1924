package locality

import (
	"context"

	"go.uber.org/zap"

	"github.com/mboahomes/trust-engine/internal/geodesy"
	"github.com/mboahomes/trust-engine/internal/model"
)

// CityGetter resolves a city id to its reference centroid.
type CityGetter interface {
	GetCity(ctx context.Context, id string) (*model.City, error)
}

// Checker demotes a listing's location tier when its GPS coordinates are
// implausibly far from the declared city's centroid. It only ever lowers
// the tier, never raises it.
type Checker struct {
	cities   CityGetter
	radiusKM float64
}

// NewChecker creates a Checker with the given plausibility radius in km.
func NewChecker(cities CityGetter, radiusKM float64) *Checker {
	if radiusKM <= 0 {
		radiusKM = 50
	}
	return &Checker{cities: cities, radiusKM: radiusKM}
}

// AdjustFacts verifies a gps_precise claim against the city centroid and
// returns the facts with the tier demoted if the claim is implausible.
// Missing reference data leaves the facts unchanged; the check is an
// upgrade on top of scoring, not a gate.
func (c *Checker) AdjustFacts(ctx context.Context, facts model.ListingFacts) model.ListingFacts {
	if facts.LocationTier != model.LocationGPSPrecise || facts.GPS == nil || facts.CityID == "" {
		return facts
	}

	city, err := c.cities.GetCity(ctx, facts.CityID)
	if err != nil {
		zap.L().Warn("locality: city lookup failed",
			zap.String("listing_id", facts.ListingID),
			zap.String("city_id", facts.CityID),
			zap.Error(err),
		)
		return facts
	}
	if city == nil {
		return facts
	}

	distance := geodesy.HaversineKM(*facts.GPS, city.Centroid)
	if distance > c.radiusKM {
		zap.L().Info("locality: gps claim demoted",
			zap.String("listing_id", facts.ListingID),
			zap.String("city_id", facts.CityID),
			zap.Float64("distance_km", geodesy.RoundKM1(distance)),
		)
		facts.LocationTier = model.LocationCityAndDistrict
	}
	return facts
}
