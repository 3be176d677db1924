// Package cache owns score snapshot persistence: cache-aside reads with
// single-flight recomputation, staleness checks, and the bounded-concurrency
// batch job that refreshes expired snapshots.
package cache

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/mboahomes/trust-engine/internal/faults"
	"github.com/mboahomes/trust-engine/internal/model"
	"github.com/mboahomes/trust-engine/internal/scoring"
)

// FactsSource supplies the verification facts for a listing. The engine
// does not know how facts are derived; collaborators plug in their own
// adapter (the store-backed one is the default).
type FactsSource interface {
	ListingFacts(ctx context.Context, listingID string) (*model.ListingFacts, error)
}

// SnapshotStore is the subset of the store the scheduler writes through.
// Snapshots are logically owned by the scheduler; nothing else writes them.
type SnapshotStore interface {
	GetSnapshot(ctx context.Context, listingID string) (*model.ScoreSnapshot, error)
	UpsertSnapshot(ctx context.Context, snap *model.ScoreSnapshot) error
	ListExpiredSnapshots(ctx context.Context, now time.Time) ([]model.ScoreSnapshot, error)
}

// Config tunes the batch recompute job.
type Config struct {
	BatchConcurrency int           // bounded worker count, default 4
	ItemTimeout      time.Duration // per-listing deadline, default 30s
	FactsRatePerSec  float64       // fact-fetch rate limit, 0 = unlimited
}

// Scheduler computes, caches and refreshes score snapshots.
type Scheduler struct {
	store   SnapshotStore
	facts   FactsSource
	calc    *scoring.Calculator
	cfg     Config
	flight  singleflight.Group
	limiter *rate.Limiter

	// adjust, when set, is applied to facts before scoring (locality
	// demotion). It must be pure.
	adjust func(ctx context.Context, facts model.ListingFacts) model.ListingFacts

	now func() time.Time
}

// NewScheduler creates a Scheduler.
func NewScheduler(store SnapshotStore, facts FactsSource, calc *scoring.Calculator, cfg Config) *Scheduler {
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = 4
	}
	if cfg.ItemTimeout <= 0 {
		cfg.ItemTimeout = 30 * time.Second
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.FactsRatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.FactsRatePerSec), 1)
	}
	return &Scheduler{
		store:   store,
		facts:   facts,
		calc:    calc,
		cfg:     cfg,
		limiter: limiter,
		now:     time.Now,
	}
}

// SetFactsAdjuster installs a fact pre-processing step (locality demotion).
func (s *Scheduler) SetFactsAdjuster(fn func(ctx context.Context, facts model.ListingFacts) model.ListingFacts) {
	s.adjust = fn
}

// IsStale reports whether a snapshot has expired at the given instant.
// A snapshot with no expiry is always stale; a snapshot is not stale at
// exactly its expiry instant.
func IsStale(snap *model.ScoreSnapshot, now time.Time) bool {
	if snap == nil || snap.ExpiresAt.IsZero() {
		return true
	}
	return now.After(snap.ExpiresAt)
}

// GetOrCompute returns the listing's cached snapshot, recomputing it first
// if absent or stale. Concurrent callers for the same listing share one
// computation.
func (s *Scheduler) GetOrCompute(ctx context.Context, listingID string) (*model.ScoreSnapshot, error) {
	snap, err := s.store.GetSnapshot(ctx, listingID)
	if err != nil {
		return nil, faults.NewStore("get snapshot", err)
	}
	if snap != nil && !IsStale(snap, s.now()) {
		return snap, nil
	}

	v, err, _ := s.flight.Do(listingID, func() (any, error) {
		return s.recompute(ctx, listingID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.ScoreSnapshot), nil
}

// recompute fetches fresh facts, scores them and overwrites the snapshot.
// On any failure the previous snapshot is left untouched.
func (s *Scheduler) recompute(ctx context.Context, listingID string) (*model.ScoreSnapshot, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, faults.NewStore("facts rate limit", err)
	}

	facts, err := s.facts.ListingFacts(ctx, listingID)
	if err != nil {
		return nil, faults.NewStore("fetch facts", err)
	}
	if facts == nil {
		return nil, faults.NewNotFound("listing", listingID)
	}

	f := *facts
	if s.adjust != nil {
		f = s.adjust(ctx, f)
	}

	snap := s.calc.Compute(f, s.now())
	if err := s.store.UpsertSnapshot(ctx, &snap); err != nil {
		return nil, faults.NewStore("write snapshot", err)
	}

	zap.L().Debug("cache: snapshot recomputed",
		zap.String("listing_id", listingID),
		zap.Int("total_score", snap.TotalScore),
		zap.String("confidence", string(snap.ConfidenceLevel)),
	)
	return &snap, nil
}

// RecomputeExpiredBatch refreshes every snapshot expired before now.
// Listings are processed by a bounded worker pool; a failure on one listing
// is logged and counted without aborting the batch, and its old snapshot
// stays in place.
func (s *Scheduler) RecomputeExpiredBatch(ctx context.Context, now time.Time) (model.BatchResult, error) {
	expired, err := s.store.ListExpiredSnapshots(ctx, now)
	if err != nil {
		return model.BatchResult{}, faults.NewStore("list expired snapshots", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.BatchConcurrency)

	var succeeded, failed atomic.Int64

	for _, snap := range expired {
		listingID := snap.ListingID
		g.Go(func() error {
			itemCtx, cancel := context.WithTimeout(gctx, s.cfg.ItemTimeout)
			defer cancel()

			// Shared single-flight key with the interactive path, so a
			// batch worker and a concurrent read never interleave writes
			// for the same listing.
			_, err, _ := s.flight.Do(listingID, func() (any, error) {
				return s.recompute(itemCtx, listingID)
			})
			if err != nil {
				failed.Add(1)
				zap.L().Warn("cache: batch recompute failed",
					zap.String("listing_id", listingID),
					zap.Error(err),
				)
				return nil // don't abort batch on individual failure
			}
			succeeded.Add(1)
			return nil
		})
	}

	_ = g.Wait()

	result := model.BatchResult{
		Succeeded: int(succeeded.Load()),
		Failed:    int(failed.Load()),
		Total:     len(expired),
	}
	zap.L().Info("cache: batch recompute complete",
		zap.Int("total", result.Total),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// StoreFactsSource adapts the persistence layer to FactsSource.
type StoreFactsSource struct {
	Store interface {
		GetListingFacts(ctx context.Context, listingID string) (*model.ListingFacts, error)
	}
}

// ListingFacts returns the stored facts for a listing, or nil when the
// listing is unknown.
func (s StoreFactsSource) ListingFacts(ctx context.Context, listingID string) (*model.ListingFacts, error) {
	return s.Store.GetListingFacts(ctx, listingID)
}
