package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/mboahomes/trust-engine/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS score_snapshots (
	listing_id         TEXT PRIMARY KEY,
	id                 TEXT NOT NULL,
	title_score        INTEGER NOT NULL,
	documents_score    INTEGER NOT NULL,
	owner_score        INTEGER NOT NULL,
	location_score     INTEGER NOT NULL,
	history_score      INTEGER NOT NULL,
	transparency_score INTEGER NOT NULL,
	total_score        INTEGER NOT NULL,
	confidence_level   TEXT NOT NULL,
	calculated_at      DATETIME NOT NULL,
	expires_at         DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS listing_facts (
	listing_id         TEXT PRIMARY KEY,
	sigfu_verified     INTEGER NOT NULL DEFAULT 0,
	no_litigation      INTEGER NOT NULL DEFAULT 0,
	complete_documents INTEGER NOT NULL DEFAULT 0,
	owner_kyc_verified INTEGER NOT NULL DEFAULT 0,
	notary_validated   INTEGER NOT NULL DEFAULT 0,
	location_tier      TEXT NOT NULL DEFAULT 'none',
	city_id            TEXT,
	lat                REAL,
	lng                REAL,
	transparency       REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS providers (
	id                    TEXT PRIMARY KEY,
	display_name          TEXT NOT NULL,
	specialty             TEXT,
	city_id               TEXT NOT NULL,
	lat                   REAL,
	lng                   REAL,
	rating                REAL NOT NULL DEFAULT 0,
	completed_engagements INTEGER NOT NULL DEFAULT 0,
	is_available          INTEGER NOT NULL DEFAULT 1,
	is_featured           INTEGER NOT NULL DEFAULT 0,
	status                TEXT NOT NULL DEFAULT 'PENDING'
);

CREATE TABLE IF NOT EXISTS engagement_requests (
	id          TEXT PRIMARY KEY,
	provider_id TEXT NOT NULL REFERENCES providers(id),
	status      TEXT NOT NULL,
	created_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS reviews (
	id          TEXT PRIMARY KEY,
	provider_id TEXT NOT NULL REFERENCES providers(id),
	rating      INTEGER NOT NULL,
	published   INTEGER NOT NULL DEFAULT 0,
	created_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS cities (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	lat  REAL NOT NULL,
	lng  REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_score_snapshots_expires_at ON score_snapshots(expires_at);
CREATE INDEX IF NOT EXISTS idx_providers_city ON providers(city_id);
CREATE INDEX IF NOT EXISTS idx_providers_status ON providers(status);
CREATE INDEX IF NOT EXISTS idx_engagements_provider ON engagement_requests(provider_id);
CREATE INDEX IF NOT EXISTS idx_reviews_provider ON reviews(provider_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const snapshotColumns = `listing_id, id, title_score, documents_score, owner_score,
	location_score, history_score, transparency_score, total_score,
	confidence_level, calculated_at, expires_at`

func (s *SQLiteStore) GetSnapshot(ctx context.Context, listingID string) (*model.ScoreSnapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+snapshotColumns+` FROM score_snapshots WHERE listing_id = ?`,
		listingID,
	)
	snap, err := scanSnapshot(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get snapshot %s", listingID)
	}
	return snap, nil
}

func (s *SQLiteStore) UpsertSnapshot(ctx context.Context, snap *model.ScoreSnapshot) error {
	if snap.ID == "" {
		snap.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO score_snapshots (`+snapshotColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(listing_id) DO UPDATE SET
			id = excluded.id,
			title_score = excluded.title_score,
			documents_score = excluded.documents_score,
			owner_score = excluded.owner_score,
			location_score = excluded.location_score,
			history_score = excluded.history_score,
			transparency_score = excluded.transparency_score,
			total_score = excluded.total_score,
			confidence_level = excluded.confidence_level,
			calculated_at = excluded.calculated_at,
			expires_at = excluded.expires_at`,
		snap.ListingID, snap.ID,
		snap.TitleScore, snap.DocumentsScore, snap.OwnerScore,
		snap.LocationScore, snap.HistoryScore, snap.TransparencyScore,
		snap.TotalScore, string(snap.ConfidenceLevel),
		snap.CalculatedAt.UTC(), snap.ExpiresAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: upsert snapshot %s", snap.ListingID)
}

func (s *SQLiteStore) ListExpiredSnapshots(ctx context.Context, now time.Time) ([]model.ScoreSnapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+snapshotColumns+` FROM score_snapshots WHERE expires_at < ? ORDER BY expires_at ASC`,
		now.UTC(),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list expired snapshots")
	}
	defer rows.Close()
	return collectSnapshots(rows)
}

func (s *SQLiteStore) ListSnapshots(ctx context.Context, limit int) ([]model.ScoreSnapshot, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+snapshotColumns+` FROM score_snapshots ORDER BY calculated_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list snapshots")
	}
	defer rows.Close()
	return collectSnapshots(rows)
}

func (s *SQLiteStore) GetListingFacts(ctx context.Context, listingID string) (*model.ListingFacts, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT listing_id, sigfu_verified, no_litigation, complete_documents,
			owner_kyc_verified, notary_validated, location_tier, city_id, lat, lng, transparency
		 FROM listing_facts WHERE listing_id = ?`,
		listingID,
	)

	var f model.ListingFacts
	var tier string
	var cityID sql.NullString
	var lat, lng sql.NullFloat64
	err := row.Scan(
		&f.ListingID, &f.SIGFUVerified, &f.NoLitigation, &f.CompleteDocuments,
		&f.OwnerKYCVerified, &f.NotaryValidated, &tier, &cityID, &lat, &lng,
		&f.Transparency,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get listing facts %s", listingID)
	}
	f.LocationTier = model.LocationTier(tier)
	f.CityID = cityID.String
	if lat.Valid && lng.Valid {
		f.GPS = &model.Coordinates{Lat: lat.Float64, Lng: lng.Float64}
	}
	return &f, nil
}

func (s *SQLiteStore) UpsertListingFacts(ctx context.Context, facts *model.ListingFacts) error {
	var lat, lng any
	if facts.GPS != nil {
		lat, lng = facts.GPS.Lat, facts.GPS.Lng
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO listing_facts (listing_id, sigfu_verified, no_litigation,
			complete_documents, owner_kyc_verified, notary_validated,
			location_tier, city_id, lat, lng, transparency)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(listing_id) DO UPDATE SET
			sigfu_verified = excluded.sigfu_verified,
			no_litigation = excluded.no_litigation,
			complete_documents = excluded.complete_documents,
			owner_kyc_verified = excluded.owner_kyc_verified,
			notary_validated = excluded.notary_validated,
			location_tier = excluded.location_tier,
			city_id = excluded.city_id,
			lat = excluded.lat,
			lng = excluded.lng,
			transparency = excluded.transparency`,
		facts.ListingID, facts.SIGFUVerified, facts.NoLitigation,
		facts.CompleteDocuments, facts.OwnerKYCVerified, facts.NotaryValidated,
		string(facts.LocationTier), nullIfEmpty(facts.CityID), lat, lng,
		facts.Transparency,
	)
	return eris.Wrapf(err, "sqlite: upsert listing facts %s", facts.ListingID)
}

const providerColumns = `id, display_name, specialty, city_id, lat, lng, rating,
	completed_engagements, is_available, is_featured, status`

func (s *SQLiteStore) GetProvider(ctx context.Context, id string) (*model.ProviderRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+providerColumns+` FROM providers WHERE id = ?`, id,
	)
	p, err := scanProvider(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get provider %s", id)
	}
	return p, nil
}

func (s *SQLiteStore) ListProviders(ctx context.Context, filter ProviderFilter) ([]model.ProviderRecord, error) {
	query := `SELECT ` + providerColumns + ` FROM providers WHERE 1=1`
	var args []any

	if filter.CityID != "" {
		query += ` AND city_id = ?`
		args = append(args, filter.CityID)
	}
	if filter.Specialty != "" {
		query += ` AND specialty = ?`
		args = append(args, filter.Specialty)
	}
	if filter.MinRating > 0 {
		query += ` AND rating >= ?`
		args = append(args, filter.MinRating)
	}
	if filter.Available != nil {
		query += ` AND is_available = ?`
		args = append(args, *filter.Available)
	}
	if filter.Featured != nil {
		query += ` AND is_featured = ?`
		args = append(args, *filter.Featured)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY display_name ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list providers")
	}
	defer rows.Close()

	var providers []model.ProviderRecord
	for rows.Next() {
		p, err := scanProvider(rows.Scan)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan provider")
		}
		providers = append(providers, *p)
	}
	return providers, eris.Wrap(rows.Err(), "sqlite: list providers iterate")
}

func (s *SQLiteStore) UpsertProvider(ctx context.Context, p *model.ProviderRecord) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	var lat, lng any
	if p.Coordinates != nil {
		lat, lng = p.Coordinates.Lat, p.Coordinates.Lng
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO providers (`+providerColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			display_name = excluded.display_name,
			specialty = excluded.specialty,
			city_id = excluded.city_id,
			lat = excluded.lat,
			lng = excluded.lng,
			rating = excluded.rating,
			completed_engagements = excluded.completed_engagements,
			is_available = excluded.is_available,
			is_featured = excluded.is_featured,
			status = excluded.status`,
		p.ID, p.DisplayName, nullIfEmpty(p.Specialty), p.CityID, lat, lng,
		p.Rating, p.CompletedEngagements, p.IsAvailable, p.IsFeatured,
		string(p.Status),
	)
	return eris.Wrapf(err, "sqlite: upsert provider %s", p.ID)
}

func (s *SQLiteStore) AddEngagement(ctx context.Context, e *model.EngagementRequest) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO engagement_requests (id, provider_id, status, created_at) VALUES (?, ?, ?, ?)`,
		e.ID, e.ProviderID, string(e.Status), e.CreatedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: add engagement for %s", e.ProviderID)
}

func (s *SQLiteStore) ListEngagements(ctx context.Context, providerID string) ([]model.EngagementRequest, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, provider_id, status, created_at FROM engagement_requests
		 WHERE provider_id = ? ORDER BY created_at ASC`,
		providerID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list engagements %s", providerID)
	}
	defer rows.Close()

	var out []model.EngagementRequest
	for rows.Next() {
		var e model.EngagementRequest
		var status string
		if err := rows.Scan(&e.ID, &e.ProviderID, &status, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan engagement")
		}
		e.Status = model.EngagementStatus(status)
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list engagements iterate")
}

func (s *SQLiteStore) AddReview(ctx context.Context, r *model.Review) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reviews (id, provider_id, rating, published, created_at) VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.ProviderID, r.Rating, r.Published, r.CreatedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: add review for %s", r.ProviderID)
}

func (s *SQLiteStore) ListPublishedReviews(ctx context.Context, providerID string) ([]model.Review, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, provider_id, rating, published, created_at FROM reviews
		 WHERE provider_id = ? AND published = 1 ORDER BY created_at ASC`,
		providerID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list reviews %s", providerID)
	}
	defer rows.Close()

	var out []model.Review
	for rows.Next() {
		var r model.Review
		if err := rows.Scan(&r.ID, &r.ProviderID, &r.Rating, &r.Published, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan review")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list reviews iterate")
}

func (s *SQLiteStore) UpsertCities(ctx context.Context, cities []model.City) (int, error) {
	if len(cities) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin cities tx")
	}
	defer tx.Rollback()

	for _, c := range cities {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO cities (id, name, lat, lng) VALUES (?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET name = excluded.name, lat = excluded.lat, lng = excluded.lng`,
			c.ID, c.Name, c.Centroid.Lat, c.Centroid.Lng,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert city %s", c.ID)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit cities")
	}
	return len(cities), nil
}

func (s *SQLiteStore) GetCity(ctx context.Context, id string) (*model.City, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, lat, lng FROM cities WHERE id = ?`, id,
	)
	var c model.City
	err := row.Scan(&c.ID, &c.Name, &c.Centroid.Lat, &c.Centroid.Lng)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get city %s", id)
	}
	return &c, nil
}

// helpers

func scanSnapshot(scan func(dest ...any) error) (*model.ScoreSnapshot, error) {
	var snap model.ScoreSnapshot
	var level string
	err := scan(
		&snap.ListingID, &snap.ID,
		&snap.TitleScore, &snap.DocumentsScore, &snap.OwnerScore,
		&snap.LocationScore, &snap.HistoryScore, &snap.TransparencyScore,
		&snap.TotalScore, &level, &snap.CalculatedAt, &snap.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	snap.ConfidenceLevel = model.ConfidenceLevel(level)
	return &snap, nil
}

func collectSnapshots(rows *sql.Rows) ([]model.ScoreSnapshot, error) {
	var out []model.ScoreSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows.Scan)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan snapshot")
		}
		out = append(out, *snap)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate snapshots")
}

func scanProvider(scan func(dest ...any) error) (*model.ProviderRecord, error) {
	var p model.ProviderRecord
	var specialty sql.NullString
	var lat, lng sql.NullFloat64
	var status string
	err := scan(
		&p.ID, &p.DisplayName, &specialty, &p.CityID, &lat, &lng,
		&p.Rating, &p.CompletedEngagements, &p.IsAvailable, &p.IsFeatured,
		&status,
	)
	if err != nil {
		return nil, err
	}
	p.Specialty = specialty.String
	p.Status = model.ProviderStatus(status)
	if lat.Valid && lng.Valid {
		p.Coordinates = &model.Coordinates{Lat: lat.Float64, Lng: lng.Float64}
	}
	return &p, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
