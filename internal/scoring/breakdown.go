package scoring

import (
	"fmt"
	"math"
	"sort"

	"github.com/mboahomes/trust-engine/internal/model"
)

// Canonical category names, in display order.
const (
	CategoryTitle        = "title"
	CategoryDocuments    = "documents"
	CategoryOwner        = "owner"
	CategoryLocation     = "location"
	CategoryHistory      = "history"
	CategoryTransparency = "transparency"
)

var categoryOrder = []string{
	CategoryTitle, CategoryDocuments, CategoryOwner,
	CategoryLocation, CategoryHistory, CategoryTransparency,
}

var categoryMax = map[string]int{
	CategoryTitle:        TitleMax,
	CategoryDocuments:    DocumentsMax,
	CategoryOwner:        OwnerMax,
	CategoryLocation:     LocationMax,
	CategoryHistory:      HistoryMax,
	CategoryTransparency: TransparencyMax,
}

// Breakdown derives the per-category decomposition of a snapshot. The same
// percentage thresholds apply to every category: >=85% excellent, >=70%
// good, >=50% average, else poor.
func Breakdown(snap *model.ScoreSnapshot) []model.CategoryBreakdown {
	scores := categoryScores(snap)

	out := make([]model.CategoryBreakdown, 0, len(categoryOrder))
	for _, name := range categoryOrder {
		score := scores[name]
		max := categoryMax[name]
		pct := float64(score) / float64(max) * 100

		out = append(out, model.CategoryBreakdown{
			Category:   name,
			Score:      score,
			MaxScore:   max,
			Percentage: math.Round(pct*100) / 100,
			Status:     statusFor(pct),
			Details:    details(name, score),
		})
	}
	return out
}

// Recommendations lists one improvement hint per category that has points
// left on the table, ordered by recoverable points descending.
func Recommendations(snap *model.ScoreSnapshot) []model.Recommendation {
	scores := categoryScores(snap)

	var recs []model.Recommendation
	for _, name := range categoryOrder {
		gap := categoryMax[name] - scores[name]
		if gap <= 0 {
			continue
		}
		recs = append(recs, model.Recommendation{
			Category:          name,
			RecoverablePoints: gap,
			Message:           recommendationMessage(name, gap),
		})
	}

	// Stable keeps canonical category order between equal gaps.
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].RecoverablePoints > recs[j].RecoverablePoints
	})
	return recs
}

func categoryScores(snap *model.ScoreSnapshot) map[string]int {
	return map[string]int{
		CategoryTitle:        snap.TitleScore,
		CategoryDocuments:    snap.DocumentsScore,
		CategoryOwner:        snap.OwnerScore,
		CategoryLocation:     snap.LocationScore,
		CategoryHistory:      snap.HistoryScore,
		CategoryTransparency: snap.TransparencyScore,
	}
}

func statusFor(pct float64) model.CategoryStatus {
	switch {
	case pct >= 85:
		return model.StatusExcellent
	case pct >= 70:
		return model.StatusGood
	case pct >= 50:
		return model.StatusAverage
	default:
		return model.StatusPoor
	}
}

func details(category string, score int) []string {
	switch category {
	case CategoryTitle:
		switch {
		case score >= 35:
			return []string{"Title secured and in order"}
		case score >= 25:
			return []string{"Title valid but caution advised"}
		default:
			return []string{"Title issues detected"}
		}
	case CategoryDocuments:
		switch {
		case score >= 18:
			return []string{"All documents complete and verified"}
		case score >= 12:
			return []string{"Some documents missing"}
		default:
			return []string{"Insufficient documentation"}
		}
	case CategoryOwner:
		switch {
		case score >= 12:
			return []string{"Owner fully verified"}
		case score >= 8:
			return []string{"Owner partially verified"}
		default:
			return []string{"Owner unverified"}
		}
	case CategoryLocation:
		switch {
		case score >= 9:
			return []string{"Precise GPS location provided"}
		case score >= 6:
			return []string{"City and district specified"}
		case score >= 3:
			return []string{"City specified without district"}
		default:
			return []string{"Location information missing"}
		}
	case CategoryHistory:
		if score >= 8 {
			return []string{"Clear history"}
		}
		return []string{"History items to verify"}
	case CategoryTransparency:
		switch {
		case score >= 4:
			return []string{"Complete listing details"}
		case score >= 2:
			return []string{"Partially complete listing details"}
		default:
			return []string{"Insufficient listing details"}
		}
	}
	return nil
}

func recommendationMessage(category string, gap int) string {
	var action string
	switch category {
	case CategoryTitle:
		action = "Verify the land title in the SIGFU registry and clear any litigation"
	case CategoryDocuments:
		action = "Upload the complete ownership dossier and obtain notary validation"
	case CategoryOwner:
		action = "Complete owner identity verification"
	case CategoryLocation:
		action = "Provide precise GPS coordinates for the property"
	case CategoryHistory:
		action = "Resolve outstanding litigation on the property"
	case CategoryTransparency:
		action = "Fill in the remaining listing description fields"
	}
	return fmt.Sprintf("%s to gain up to %d points", action, gap)
}
