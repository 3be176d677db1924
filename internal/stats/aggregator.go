// Package stats derives activity statistics for directory providers.
package stats

import (
	"context"
	"fmt"
	"math"

	"github.com/mboahomes/trust-engine/internal/faults"
	"github.com/mboahomes/trust-engine/internal/model"
)

// ActivityStore is the subset of the store the aggregator reads from.
type ActivityStore interface {
	GetProvider(ctx context.Context, id string) (*model.ProviderRecord, error)
	ListEngagements(ctx context.Context, providerID string) ([]model.EngagementRequest, error)
	ListPublishedReviews(ctx context.Context, providerID string) ([]model.Review, error)
}

// Aggregator computes ProviderStats from engagement and review history.
type Aggregator struct {
	store ActivityStore
}

// NewAggregator creates an Aggregator over the given store.
func NewAggregator(s ActivityStore) *Aggregator {
	return &Aggregator{store: s}
}

// ComputeStats derives the stats for one provider. Completion rate and
// average rating are 0, not an error, when the provider has no activity.
// A review rating outside 1..5 is a data-integrity violation.
func (a *Aggregator) ComputeStats(ctx context.Context, providerID string) (*model.ProviderStats, error) {
	provider, err := a.store.GetProvider(ctx, providerID)
	if err != nil {
		return nil, faults.NewStore("get provider", err)
	}
	if provider == nil {
		return nil, faults.NewNotFound("provider", providerID)
	}

	engagements, err := a.store.ListEngagements(ctx, providerID)
	if err != nil {
		return nil, faults.NewStore("list engagements", err)
	}
	reviews, err := a.store.ListPublishedReviews(ctx, providerID)
	if err != nil {
		return nil, faults.NewStore("list reviews", err)
	}

	st := &model.ProviderStats{
		ProviderID:    providerID,
		TotalRequests: len(engagements),
		TotalReviews:  len(reviews),
	}

	for _, e := range engagements {
		switch e.Status {
		case model.EngagementPending:
			st.Pending++
		case model.EngagementConfirmed:
			st.Confirmed++
		case model.EngagementCompleted:
			st.Completed++
		case model.EngagementCancelled:
			st.Cancelled++
		}
	}

	if st.TotalRequests > 0 {
		st.CompletionRate = int(math.Round(float64(st.Completed) / float64(st.TotalRequests) * 100))
	}

	var sum int
	for _, r := range reviews {
		if r.Rating < 1 || r.Rating > 5 {
			return nil, faults.NewDataIntegrity("review",
				fmt.Sprintf("rating %d for review %s outside 1-5", r.Rating, r.ID))
		}
		st.RatingHistogram[r.Rating-1]++
		sum += r.Rating
	}
	if len(reviews) > 0 {
		st.AverageRating = math.Round(float64(sum)/float64(len(reviews))*100) / 100
	}

	return st, nil
}
