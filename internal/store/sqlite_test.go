package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mboahomes/trust-engine/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testSnapshot(listingID string, expiresAt time.Time) *model.ScoreSnapshot {
	return &model.ScoreSnapshot{
		ListingID:         listingID,
		TitleScore:        40,
		DocumentsScore:    14,
		OwnerScore:        15,
		LocationScore:     7,
		HistoryScore:      10,
		TransparencyScore: 4,
		TotalScore:        90,
		ConfidenceLevel:   model.ConfidenceExcellent,
		CalculatedAt:      time.Now().UTC().Truncate(time.Second),
		ExpiresAt:         expiresAt.UTC().Truncate(time.Second),
	}
}

// --- Score snapshots ---

func TestSQLite_Snapshot_UpsertAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	snap := testSnapshot("listing-1", time.Now().Add(30*24*time.Hour))
	require.NoError(t, st.UpsertSnapshot(ctx, snap))
	assert.NotEmpty(t, snap.ID)

	got, err := st.GetSnapshot(ctx, "listing-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, snap.ID, got.ID)
	assert.Equal(t, 90, got.TotalScore)
	assert.Equal(t, model.ConfidenceExcellent, got.ConfidenceLevel)
	assert.Equal(t, snap.ExpiresAt, got.ExpiresAt.UTC())
}

func TestSQLite_Snapshot_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	got, err := st.GetSnapshot(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_Snapshot_UpsertReplaces(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	first := testSnapshot("listing-1", time.Now().Add(time.Hour))
	require.NoError(t, st.UpsertSnapshot(ctx, first))

	second := testSnapshot("listing-1", time.Now().Add(48*time.Hour))
	second.TotalScore = 55
	second.ConfidenceLevel = model.ConfidenceAverage
	require.NoError(t, st.UpsertSnapshot(ctx, second))

	got, err := st.GetSnapshot(ctx, "listing-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 55, got.TotalScore)
	assert.Equal(t, model.ConfidenceAverage, got.ConfidenceLevel)
}

func TestSQLite_ListExpiredSnapshots(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, st.UpsertSnapshot(ctx, testSnapshot("stale-1", now.Add(-2*time.Hour))))
	require.NoError(t, st.UpsertSnapshot(ctx, testSnapshot("stale-2", now.Add(-time.Minute))))
	require.NoError(t, st.UpsertSnapshot(ctx, testSnapshot("fresh", now.Add(time.Hour))))

	expired, err := st.ListExpiredSnapshots(ctx, now)
	require.NoError(t, err)
	require.Len(t, expired, 2)

	// Oldest expiry first.
	assert.Equal(t, "stale-1", expired[0].ListingID)
	assert.Equal(t, "stale-2", expired[1].ListingID)
}

func TestSQLite_ListSnapshots_Limit(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, st.UpsertSnapshot(ctx, testSnapshot(id, time.Now().Add(time.Hour))))
	}

	all, err := st.ListSnapshots(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	limited, err := st.ListSnapshots(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

// --- Listing facts ---

func TestSQLite_ListingFacts_RoundTrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	facts := &model.ListingFacts{
		ListingID:         "listing-1",
		SIGFUVerified:     true,
		NoLitigation:      true,
		CompleteDocuments: false,
		OwnerKYCVerified:  true,
		NotaryValidated:   false,
		LocationTier:      model.LocationGPSPrecise,
		CityID:            "douala",
		GPS:               &model.Coordinates{Lat: 4.0511, Lng: 9.7679},
		Transparency:      0.75,
	}
	require.NoError(t, st.UpsertListingFacts(ctx, facts))

	got, err := st.GetListingFacts(ctx, "listing-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, facts, got)
}

func TestSQLite_ListingFacts_NoGPS(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	facts := &model.ListingFacts{
		ListingID:    "listing-2",
		LocationTier: model.LocationCityOnly,
		CityID:       "yaounde",
	}
	require.NoError(t, st.UpsertListingFacts(ctx, facts))

	got, err := st.GetListingFacts(ctx, "listing-2")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.GPS)
	assert.Equal(t, model.LocationCityOnly, got.LocationTier)
}

func TestSQLite_ListingFacts_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	got, err := st.GetListingFacts(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Nil(t, got)
}

// --- Providers ---

func activeProvider(name, city, specialty string, rating float64) *model.ProviderRecord {
	return &model.ProviderRecord{
		DisplayName: name,
		Specialty:   specialty,
		CityID:      city,
		Rating:      rating,
		IsAvailable: true,
		Status:      model.ProviderActive,
	}
}

func TestSQLite_Provider_UpsertAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	p := activeProvider("Notaire Kamga", "douala", "notary", 4.5)
	p.Coordinates = &model.Coordinates{Lat: 4.05, Lng: 9.77}
	require.NoError(t, st.UpsertProvider(ctx, p))
	assert.NotEmpty(t, p.ID)

	got, err := st.GetProvider(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Notaire Kamga", got.DisplayName)
	assert.Equal(t, "notary", got.Specialty)
	require.NotNil(t, got.Coordinates)
	assert.InDelta(t, 4.05, got.Coordinates.Lat, 1e-9)
}

func TestSQLite_Provider_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	got, err := st.GetProvider(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_ListProviders_Filters(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	kamga := activeProvider("Kamga", "douala", "notary", 4.5)
	require.NoError(t, st.UpsertProvider(ctx, kamga))

	mbarga := activeProvider("Mbarga", "douala", "surveyor", 3.2)
	require.NoError(t, st.UpsertProvider(ctx, mbarga))

	fotso := activeProvider("Fotso", "yaounde", "notary", 4.9)
	fotso.IsFeatured = true
	require.NoError(t, st.UpsertProvider(ctx, fotso))

	suspended := activeProvider("Ngono", "douala", "notary", 5.0)
	suspended.Status = model.ProviderSuspended
	require.NoError(t, st.UpsertProvider(ctx, suspended))

	tests := []struct {
		name   string
		filter ProviderFilter
		want   []string
	}{
		{"by city", ProviderFilter{CityID: "douala"}, []string{"Kamga", "Mbarga", "Ngono"}},
		{"by specialty", ProviderFilter{Specialty: "notary"}, []string{"Fotso", "Kamga", "Ngono"}},
		{"by min rating", ProviderFilter{MinRating: 4.0}, []string{"Fotso", "Kamga", "Ngono"}},
		{"by featured", ProviderFilter{Featured: boolPtr(true)}, []string{"Fotso"}},
		{"by status", ProviderFilter{Status: model.ProviderActive}, []string{"Fotso", "Kamga", "Mbarga"}},
		{"conjunctive", ProviderFilter{CityID: "douala", Specialty: "notary", Status: model.ProviderActive}, []string{"Kamga"}},
		{"no match", ProviderFilter{CityID: "bafoussam"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := st.ListProviders(ctx, tt.filter)
			require.NoError(t, err)
			names := make([]string, 0, len(got))
			for _, p := range got {
				names = append(names, p.DisplayName)
			}
			if tt.want == nil {
				assert.Empty(t, names)
				return
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func boolPtr(b bool) *bool { return &b }

// --- Activity history ---

func TestSQLite_Engagements(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	p := activeProvider("Kamga", "douala", "notary", 4.5)
	require.NoError(t, st.UpsertProvider(ctx, p))

	for i, status := range []model.EngagementStatus{
		model.EngagementCompleted, model.EngagementPending, model.EngagementCancelled,
	} {
		e := &model.EngagementRequest{
			ProviderID: p.ID,
			Status:     status,
			CreatedAt:  time.Now().UTC().Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, st.AddEngagement(ctx, e))
		assert.NotEmpty(t, e.ID)
	}

	got, err := st.ListEngagements(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, model.EngagementCompleted, got[0].Status)
	assert.Equal(t, model.EngagementCancelled, got[2].Status)
}

func TestSQLite_Reviews_OnlyPublishedListed(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	p := activeProvider("Kamga", "douala", "notary", 4.5)
	require.NoError(t, st.UpsertProvider(ctx, p))

	require.NoError(t, st.AddReview(ctx, &model.Review{ProviderID: p.ID, Rating: 5, Published: true}))
	require.NoError(t, st.AddReview(ctx, &model.Review{ProviderID: p.ID, Rating: 1, Published: false}))

	got, err := st.ListPublishedReviews(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 5, got[0].Rating)
	assert.True(t, got[0].Published)
}

// --- Cities ---

func TestSQLite_Cities_UpsertAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	cities := []model.City{
		{ID: "douala", Name: "Douala", Centroid: model.Coordinates{Lat: 4.0511, Lng: 9.7679}},
		{ID: "yaounde", Name: "Yaoundé", Centroid: model.Coordinates{Lat: 3.848, Lng: 11.5021}},
	}
	n, err := st.UpsertCities(ctx, cities)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := st.GetCity(ctx, "douala")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Douala", got.Name)
	assert.InDelta(t, 4.0511, got.Centroid.Lat, 1e-9)

	// Re-upsert overwrites.
	cities[0].Name = "Douala V"
	_, err = st.UpsertCities(ctx, cities[:1])
	require.NoError(t, err)

	got, err = st.GetCity(ctx, "douala")
	require.NoError(t, err)
	assert.Equal(t, "Douala V", got.Name)
}

func TestSQLite_Cities_EmptySliceNoop(t *testing.T) {
	st := newTestSQLiteStore(t)

	n, err := st.UpsertCities(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSQLite_City_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	got, err := st.GetCity(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Nil(t, got)
}
