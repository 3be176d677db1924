// Package scoring implements the multi-category trust score calculator for
// listings: deterministic weighted sub-scores, confidence classification,
// per-category breakdowns and improvement recommendations.
package scoring

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Category allocation. The six maxima are fixed product constants summing
// to 100; only the sub-point splits inside a category are tunable.
const (
	TitleMax        = 40
	DocumentsMax    = 20
	OwnerMax        = 15
	LocationMax     = 10
	HistoryMax      = 10
	TransparencyMax = 5
)

// Weights holds the sub-point splits and confidence cut points.
type Weights struct {
	TitleSIGFU        int `yaml:"title_sigfu"`
	TitleNoLitigation int `yaml:"title_no_litigation"`

	DocumentsDossier int `yaml:"documents_dossier"`
	DocumentsNotary  int `yaml:"documents_notary"`

	OwnerKYC int `yaml:"owner_kyc"`

	LocationGPS          int `yaml:"location_gps"`
	LocationCityDistrict int `yaml:"location_city_district"`
	LocationCityOnly     int `yaml:"location_city_only"`

	HistoryClear int `yaml:"history_clear"`

	// Confidence cut points on the 0-100 total.
	ExcellentMin int `yaml:"excellent_min"`
	GoodMin      int `yaml:"good_min"`
	AverageMin   int `yaml:"average_min"`
	WeakMin      int `yaml:"weak_min"`
}

// DefaultWeights returns the product-default sub-point splits.
func DefaultWeights() Weights {
	return Weights{
		TitleSIGFU:        25,
		TitleNoLitigation: 15,

		DocumentsDossier: 14,
		DocumentsNotary:  6,

		OwnerKYC: OwnerMax,

		LocationGPS:          LocationMax,
		LocationCityDistrict: 7,
		LocationCityOnly:     4,

		HistoryClear: HistoryMax,

		ExcellentMin: 85,
		GoodMin:      70,
		AverageMin:   50,
		WeakMin:      30,
	}
}

// LoadWeights reads a weights file, filling omitted fields from defaults.
func LoadWeights(path string) (Weights, error) {
	w := DefaultWeights()
	if path == "" {
		return w, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return w, eris.Wrapf(err, "scoring: read weights %s", path)
	}

	var wrapper struct {
		Scoring Weights `yaml:"scoring"`
	}
	wrapper.Scoring = w
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return w, eris.Wrap(err, "scoring: parse weights")
	}

	return wrapper.Scoring, nil
}

// ValidateWeights checks that a Weights is internally consistent: sub-splits
// must fill their category exactly and cut points must descend.
func ValidateWeights(w Weights) error {
	var errs []string

	if w.TitleSIGFU < 0 || w.TitleNoLitigation < 0 {
		errs = append(errs, "title sub-points must be >= 0")
	}
	if w.TitleSIGFU+w.TitleNoLitigation != TitleMax {
		errs = append(errs, fmt.Sprintf("title sub-points must sum to %d, got %d", TitleMax, w.TitleSIGFU+w.TitleNoLitigation))
	}

	if w.DocumentsDossier < 0 || w.DocumentsNotary < 0 {
		errs = append(errs, "documents sub-points must be >= 0")
	}
	if w.DocumentsDossier+w.DocumentsNotary != DocumentsMax {
		errs = append(errs, fmt.Sprintf("documents sub-points must sum to %d, got %d", DocumentsMax, w.DocumentsDossier+w.DocumentsNotary))
	}

	if w.OwnerKYC != OwnerMax {
		errs = append(errs, fmt.Sprintf("owner_kyc must equal %d", OwnerMax))
	}

	if w.LocationGPS != LocationMax {
		errs = append(errs, fmt.Sprintf("location_gps must equal %d", LocationMax))
	}
	if !(w.LocationGPS > w.LocationCityDistrict && w.LocationCityDistrict > w.LocationCityOnly && w.LocationCityOnly > 0) {
		errs = append(errs, "location tiers must strictly decrease: gps > city_district > city_only > 0")
	}

	if w.HistoryClear != HistoryMax {
		errs = append(errs, fmt.Sprintf("history_clear must equal %d", HistoryMax))
	}

	if !(w.ExcellentMin > w.GoodMin && w.GoodMin > w.AverageMin && w.AverageMin > w.WeakMin && w.WeakMin > 0) {
		errs = append(errs, "confidence cut points must strictly decrease and stay positive")
	}
	if w.ExcellentMin > 100 {
		errs = append(errs, "excellent_min must be <= 100")
	}

	if len(errs) > 0 {
		return eris.Errorf("scoring: weights validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
