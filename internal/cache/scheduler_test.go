package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mboahomes/trust-engine/internal/faults"
	"github.com/mboahomes/trust-engine/internal/model"
	"github.com/mboahomes/trust-engine/internal/scoring"
)

type memStore struct {
	mu        sync.Mutex
	snapshots map[string]model.ScoreSnapshot
	getErr    error
	upsertErr error
}

func newMemStore() *memStore {
	return &memStore{snapshots: map[string]model.ScoreSnapshot{}}
}

func (m *memStore) GetSnapshot(ctx context.Context, listingID string) (*model.ScoreSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	snap, ok := m.snapshots[listingID]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

func (m *memStore) UpsertSnapshot(ctx context.Context, snap *model.ScoreSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.snapshots[snap.ListingID] = *snap
	return nil
}

func (m *memStore) ListExpiredSnapshots(ctx context.Context, now time.Time) ([]model.ScoreSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ScoreSnapshot
	for _, snap := range m.snapshots {
		if now.After(snap.ExpiresAt) {
			out = append(out, snap)
		}
	}
	return out, nil
}

type memFacts struct {
	mu      sync.Mutex
	facts   map[string]model.ListingFacts
	errFor  map[string]error
	fetches atomic.Int64
}

func newMemFacts() *memFacts {
	return &memFacts{facts: map[string]model.ListingFacts{}, errFor: map[string]error{}}
}

func (m *memFacts) ListingFacts(ctx context.Context, listingID string) (*model.ListingFacts, error) {
	m.fetches.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.errFor[listingID]; err != nil {
		return nil, err
	}
	f, ok := m.facts[listingID]
	if !ok {
		return nil, nil
	}
	return &f, nil
}

func testScheduler(st *memStore, facts *memFacts) *Scheduler {
	calc := scoring.NewCalculator(scoring.DefaultWeights(), 30*24*time.Hour)
	return NewScheduler(st, facts, calc, Config{})
}

func fullFacts(id string) model.ListingFacts {
	return model.ListingFacts{
		ListingID:         id,
		SIGFUVerified:     true,
		NoLitigation:      true,
		CompleteDocuments: true,
		OwnerKYCVerified:  true,
		NotaryValidated:   true,
		LocationTier:      model.LocationGPSPrecise,
		Transparency:      1.0,
	}
}

func TestIsStale(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		snap *model.ScoreSnapshot
		want bool
	}{
		{"nil snapshot", nil, true},
		{"zero expiry", &model.ScoreSnapshot{}, true},
		{"expired yesterday", &model.ScoreSnapshot{ExpiresAt: now.Add(-24 * time.Hour)}, true},
		{"expires tomorrow", &model.ScoreSnapshot{ExpiresAt: now.Add(24 * time.Hour)}, false},
		{"exactly at expiry", &model.ScoreSnapshot{ExpiresAt: now}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsStale(tt.snap, now))
		})
	}
}

func TestIsStale_AroundTTL(t *testing.T) {
	calculated := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	snap := &model.ScoreSnapshot{
		CalculatedAt: calculated,
		ExpiresAt:    calculated.Add(30 * 24 * time.Hour),
	}

	assert.False(t, IsStale(snap, calculated.Add(29*24*time.Hour)))
	assert.True(t, IsStale(snap, calculated.Add(31*24*time.Hour)))
}

func TestGetOrCompute_MissComputesAndStores(t *testing.T) {
	st := newMemStore()
	facts := newMemFacts()
	facts.facts["l1"] = fullFacts("l1")

	s := testScheduler(st, facts)

	snap, err := s.GetOrCompute(context.Background(), "l1")
	require.NoError(t, err)
	assert.Equal(t, 100, snap.TotalScore)
	assert.Equal(t, model.ConfidenceExcellent, snap.ConfidenceLevel)

	stored, err := st.GetSnapshot(context.Background(), "l1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, snap.TotalScore, stored.TotalScore)
	assert.Equal(t, int64(1), facts.fetches.Load())
}

func TestGetOrCompute_FreshHitSkipsFactsFetch(t *testing.T) {
	st := newMemStore()
	facts := newMemFacts()
	facts.facts["l1"] = fullFacts("l1")

	s := testScheduler(st, facts)

	_, err := s.GetOrCompute(context.Background(), "l1")
	require.NoError(t, err)

	snap, err := s.GetOrCompute(context.Background(), "l1")
	require.NoError(t, err)
	assert.Equal(t, 100, snap.TotalScore)
	assert.Equal(t, int64(1), facts.fetches.Load())
}

func TestGetOrCompute_StaleHitRecomputes(t *testing.T) {
	st := newMemStore()
	facts := newMemFacts()
	facts.facts["l1"] = fullFacts("l1")

	s := testScheduler(st, facts)

	past := time.Now().Add(-60 * 24 * time.Hour)
	s.now = func() time.Time { return past }
	_, err := s.GetOrCompute(context.Background(), "l1")
	require.NoError(t, err)

	s.now = time.Now
	snap, err := s.GetOrCompute(context.Background(), "l1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), facts.fetches.Load())
	assert.False(t, IsStale(snap, time.Now()))
}

func TestGetOrCompute_UnknownListing(t *testing.T) {
	s := testScheduler(newMemStore(), newMemFacts())

	_, err := s.GetOrCompute(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, faults.IsNotFound(err))
}

func TestGetOrCompute_StoreReadFailure(t *testing.T) {
	st := newMemStore()
	st.getErr = eris.New("disk on fire")

	s := testScheduler(st, newMemFacts())

	_, err := s.GetOrCompute(context.Background(), "l1")
	require.Error(t, err)
	assert.True(t, faults.IsStore(err))
}

func TestGetOrCompute_AppliesFactsAdjuster(t *testing.T) {
	st := newMemStore()
	facts := newMemFacts()
	facts.facts["l1"] = fullFacts("l1")

	s := testScheduler(st, facts)
	s.SetFactsAdjuster(func(ctx context.Context, f model.ListingFacts) model.ListingFacts {
		f.LocationTier = model.LocationCityAndDistrict
		return f
	})

	snap, err := s.GetOrCompute(context.Background(), "l1")
	require.NoError(t, err)
	assert.Equal(t, 7, snap.LocationScore)
	assert.Equal(t, 97, snap.TotalScore)
}

func TestGetOrCompute_ConcurrentCallersShareOneComputation(t *testing.T) {
	st := newMemStore()
	facts := newMemFacts()
	facts.facts["l1"] = fullFacts("l1")

	s := testScheduler(st, facts)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			snap, err := s.GetOrCompute(context.Background(), "l1")
			assert.NoError(t, err)
			assert.Equal(t, 100, snap.TotalScore)
		}()
	}
	close(start)
	wg.Wait()

	// Single-flight coalesces the burst; far fewer fetches than callers.
	assert.Less(t, facts.fetches.Load(), int64(16))
}

func TestRecomputeExpiredBatch(t *testing.T) {
	st := newMemStore()
	facts := newMemFacts()

	expired := time.Now().Add(-time.Hour)
	for _, id := range []string{"l1", "l2", "l3", "l4", "l5"} {
		st.snapshots[id] = model.ScoreSnapshot{
			ListingID: id,
			ExpiresAt: expired,
		}
		facts.facts[id] = fullFacts(id)
	}
	// l3's facts source is broken; its stale snapshot must survive.
	facts.errFor["l3"] = eris.New("registry unavailable")

	s := testScheduler(st, facts)

	result, err := s.RecomputeExpiredBatch(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, model.BatchResult{Succeeded: 4, Failed: 1, Total: 5}, result)

	for _, id := range []string{"l1", "l2", "l4", "l5"} {
		snap, err := st.GetSnapshot(context.Background(), id)
		require.NoError(t, err)
		require.NotNil(t, snap, id)
		assert.False(t, IsStale(snap, time.Now()), id)
		assert.Equal(t, 100, snap.TotalScore, id)
	}

	stale, err := st.GetSnapshot(context.Background(), "l3")
	require.NoError(t, err)
	require.NotNil(t, stale)
	assert.Equal(t, expired, stale.ExpiresAt)
	assert.Zero(t, stale.TotalScore)
}

func TestRecomputeExpiredBatch_NothingExpired(t *testing.T) {
	st := newMemStore()
	st.snapshots["l1"] = model.ScoreSnapshot{
		ListingID: "l1",
		ExpiresAt: time.Now().Add(time.Hour),
	}

	s := testScheduler(st, newMemFacts())

	result, err := s.RecomputeExpiredBatch(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, model.BatchResult{}, result)
}
