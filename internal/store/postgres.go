package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/mboahomes/trust-engine/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it
// in tests.
type Pool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
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
	calculated_at      TIMESTAMPTZ NOT NULL,
	expires_at         TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS listing_facts (
	listing_id         TEXT PRIMARY KEY,
	sigfu_verified     BOOLEAN NOT NULL DEFAULT false,
	no_litigation      BOOLEAN NOT NULL DEFAULT false,
	complete_documents BOOLEAN NOT NULL DEFAULT false,
	owner_kyc_verified BOOLEAN NOT NULL DEFAULT false,
	notary_validated   BOOLEAN NOT NULL DEFAULT false,
	location_tier      TEXT NOT NULL DEFAULT 'none',
	city_id            TEXT,
	lat                DOUBLE PRECISION,
	lng                DOUBLE PRECISION,
	transparency       DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS providers (
	id                    TEXT PRIMARY KEY,
	display_name          TEXT NOT NULL,
	specialty             TEXT,
	city_id               TEXT NOT NULL,
	location              BYTEA,
	rating                DOUBLE PRECISION NOT NULL DEFAULT 0,
	completed_engagements INTEGER NOT NULL DEFAULT 0,
	is_available          BOOLEAN NOT NULL DEFAULT true,
	is_featured           BOOLEAN NOT NULL DEFAULT false,
	status                TEXT NOT NULL DEFAULT 'PENDING'
);

CREATE TABLE IF NOT EXISTS engagement_requests (
	id          TEXT PRIMARY KEY,
	provider_id TEXT NOT NULL REFERENCES providers(id),
	status      TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS reviews (
	id          TEXT PRIMARY KEY,
	provider_id TEXT NOT NULL REFERENCES providers(id),
	rating      INTEGER NOT NULL,
	published   BOOLEAN NOT NULL DEFAULT false,
	created_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS cities (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	lat  DOUBLE PRECISION NOT NULL,
	lng  DOUBLE PRECISION NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_score_snapshots_expires_at ON score_snapshots(expires_at);
CREATE INDEX IF NOT EXISTS idx_providers_city ON providers(city_id);
CREATE INDEX IF NOT EXISTS idx_providers_status ON providers(status);
CREATE INDEX IF NOT EXISTS idx_engagements_provider ON engagement_requests(provider_id);
CREATE INDEX IF NOT EXISTS idx_reviews_provider ON reviews(provider_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) GetSnapshot(ctx context.Context, listingID string) (*model.ScoreSnapshot, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+snapshotColumns+` FROM score_snapshots WHERE listing_id = $1`,
		listingID,
	)
	snap, err := scanSnapshot(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get snapshot %s", listingID)
	}
	return snap, nil
}

func (s *PostgresStore) UpsertSnapshot(ctx context.Context, snap *model.ScoreSnapshot) error {
	if snap.ID == "" {
		snap.ID = uuid.New().String()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO score_snapshots (`+snapshotColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (listing_id) DO UPDATE SET
			id = EXCLUDED.id,
			title_score = EXCLUDED.title_score,
			documents_score = EXCLUDED.documents_score,
			owner_score = EXCLUDED.owner_score,
			location_score = EXCLUDED.location_score,
			history_score = EXCLUDED.history_score,
			transparency_score = EXCLUDED.transparency_score,
			total_score = EXCLUDED.total_score,
			confidence_level = EXCLUDED.confidence_level,
			calculated_at = EXCLUDED.calculated_at,
			expires_at = EXCLUDED.expires_at`,
		snap.ListingID, snap.ID,
		snap.TitleScore, snap.DocumentsScore, snap.OwnerScore,
		snap.LocationScore, snap.HistoryScore, snap.TransparencyScore,
		snap.TotalScore, string(snap.ConfidenceLevel),
		snap.CalculatedAt.UTC(), snap.ExpiresAt.UTC(),
	)
	return eris.Wrapf(err, "postgres: upsert snapshot %s", snap.ListingID)
}

func (s *PostgresStore) ListExpiredSnapshots(ctx context.Context, now time.Time) ([]model.ScoreSnapshot, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+snapshotColumns+` FROM score_snapshots WHERE expires_at < $1 ORDER BY expires_at ASC`,
		now.UTC(),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list expired snapshots")
	}
	defer rows.Close()
	return collectPgxSnapshots(rows)
}

func (s *PostgresStore) ListSnapshots(ctx context.Context, limit int) ([]model.ScoreSnapshot, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+snapshotColumns+` FROM score_snapshots ORDER BY calculated_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list snapshots")
	}
	defer rows.Close()
	return collectPgxSnapshots(rows)
}

func (s *PostgresStore) GetListingFacts(ctx context.Context, listingID string) (*model.ListingFacts, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT listing_id, sigfu_verified, no_litigation, complete_documents,
			owner_kyc_verified, notary_validated, location_tier, city_id, lat, lng, transparency
		 FROM listing_facts WHERE listing_id = $1`,
		listingID,
	)

	var f model.ListingFacts
	var tier string
	var cityID *string
	var lat, lng *float64
	err := row.Scan(
		&f.ListingID, &f.SIGFUVerified, &f.NoLitigation, &f.CompleteDocuments,
		&f.OwnerKYCVerified, &f.NotaryValidated, &tier, &cityID, &lat, &lng,
		&f.Transparency,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get listing facts %s", listingID)
	}
	f.LocationTier = model.LocationTier(tier)
	if cityID != nil {
		f.CityID = *cityID
	}
	if lat != nil && lng != nil {
		f.GPS = &model.Coordinates{Lat: *lat, Lng: *lng}
	}
	return &f, nil
}

func (s *PostgresStore) UpsertListingFacts(ctx context.Context, facts *model.ListingFacts) error {
	var lat, lng any
	if facts.GPS != nil {
		lat, lng = facts.GPS.Lat, facts.GPS.Lng
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO listing_facts (listing_id, sigfu_verified, no_litigation,
			complete_documents, owner_kyc_verified, notary_validated,
			location_tier, city_id, lat, lng, transparency)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (listing_id) DO UPDATE SET
			sigfu_verified = EXCLUDED.sigfu_verified,
			no_litigation = EXCLUDED.no_litigation,
			complete_documents = EXCLUDED.complete_documents,
			owner_kyc_verified = EXCLUDED.owner_kyc_verified,
			notary_validated = EXCLUDED.notary_validated,
			location_tier = EXCLUDED.location_tier,
			city_id = EXCLUDED.city_id,
			lat = EXCLUDED.lat,
			lng = EXCLUDED.lng,
			transparency = EXCLUDED.transparency`,
		facts.ListingID, facts.SIGFUVerified, facts.NoLitigation,
		facts.CompleteDocuments, facts.OwnerKYCVerified, facts.NotaryValidated,
		string(facts.LocationTier), nullIfEmpty(facts.CityID), lat, lng,
		facts.Transparency,
	)
	return eris.Wrapf(err, "postgres: upsert listing facts %s", facts.ListingID)
}

const pgProviderColumns = `id, display_name, specialty, city_id, location, rating,
	completed_engagements, is_available, is_featured, status`

func (s *PostgresStore) GetProvider(ctx context.Context, id string) (*model.ProviderRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgProviderColumns+` FROM providers WHERE id = $1`, id,
	)
	p, err := scanPgxProvider(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get provider %s", id)
	}
	return p, nil
}

func (s *PostgresStore) ListProviders(ctx context.Context, filter ProviderFilter) ([]model.ProviderRecord, error) {
	query := `SELECT ` + pgProviderColumns + ` FROM providers WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return placeholder(len(args))
	}

	if filter.CityID != "" {
		query += ` AND city_id = ` + arg(filter.CityID)
	}
	if filter.Specialty != "" {
		query += ` AND specialty = ` + arg(filter.Specialty)
	}
	if filter.MinRating > 0 {
		query += ` AND rating >= ` + arg(filter.MinRating)
	}
	if filter.Available != nil {
		query += ` AND is_available = ` + arg(*filter.Available)
	}
	if filter.Featured != nil {
		query += ` AND is_featured = ` + arg(*filter.Featured)
	}
	if filter.Status != "" {
		query += ` AND status = ` + arg(string(filter.Status))
	}
	query += ` ORDER BY display_name ASC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list providers")
	}
	defer rows.Close()

	var providers []model.ProviderRecord
	for rows.Next() {
		p, err := scanPgxProvider(rows.Scan)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan provider")
		}
		providers = append(providers, *p)
	}
	return providers, eris.Wrap(rows.Err(), "postgres: list providers iterate")
}

func (s *PostgresStore) UpsertProvider(ctx context.Context, p *model.ProviderRecord) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	location, err := encodeLocation(p.Coordinates)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO providers (`+pgProviderColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			specialty = EXCLUDED.specialty,
			city_id = EXCLUDED.city_id,
			location = EXCLUDED.location,
			rating = EXCLUDED.rating,
			completed_engagements = EXCLUDED.completed_engagements,
			is_available = EXCLUDED.is_available,
			is_featured = EXCLUDED.is_featured,
			status = EXCLUDED.status`,
		p.ID, p.DisplayName, nullIfEmpty(p.Specialty), p.CityID, location,
		p.Rating, p.CompletedEngagements, p.IsAvailable, p.IsFeatured,
		string(p.Status),
	)
	return eris.Wrapf(err, "postgres: upsert provider %s", p.ID)
}

func (s *PostgresStore) AddEngagement(ctx context.Context, e *model.EngagementRequest) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO engagement_requests (id, provider_id, status, created_at) VALUES ($1, $2, $3, $4)`,
		e.ID, e.ProviderID, string(e.Status), e.CreatedAt.UTC(),
	)
	return eris.Wrapf(err, "postgres: add engagement for %s", e.ProviderID)
}

func (s *PostgresStore) ListEngagements(ctx context.Context, providerID string) ([]model.EngagementRequest, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, provider_id, status, created_at FROM engagement_requests
		 WHERE provider_id = $1 ORDER BY created_at ASC`,
		providerID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list engagements %s", providerID)
	}
	defer rows.Close()

	var out []model.EngagementRequest
	for rows.Next() {
		var e model.EngagementRequest
		var status string
		if err := rows.Scan(&e.ID, &e.ProviderID, &status, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan engagement")
		}
		e.Status = model.EngagementStatus(status)
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list engagements iterate")
}

func (s *PostgresStore) AddReview(ctx context.Context, r *model.Review) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO reviews (id, provider_id, rating, published, created_at) VALUES ($1, $2, $3, $4, $5)`,
		r.ID, r.ProviderID, r.Rating, r.Published, r.CreatedAt.UTC(),
	)
	return eris.Wrapf(err, "postgres: add review for %s", r.ProviderID)
}

func (s *PostgresStore) ListPublishedReviews(ctx context.Context, providerID string) ([]model.Review, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, provider_id, rating, published, created_at FROM reviews
		 WHERE provider_id = $1 AND published = true ORDER BY created_at ASC`,
		providerID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list reviews %s", providerID)
	}
	defer rows.Close()

	var out []model.Review
	for rows.Next() {
		var r model.Review
		if err := rows.Scan(&r.ID, &r.ProviderID, &r.Rating, &r.Published, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan review")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list reviews iterate")
}

func (s *PostgresStore) UpsertCities(ctx context.Context, cities []model.City) (int, error) {
	if len(cities) == 0 {
		return 0, nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: begin cities tx")
	}
	defer tx.Rollback(ctx)

	for _, c := range cities {
		_, err := tx.Exec(ctx,
			`INSERT INTO cities (id, name, lat, lng) VALUES ($1, $2, $3, $4)
			 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, lat = EXCLUDED.lat, lng = EXCLUDED.lng`,
			c.ID, c.Name, c.Centroid.Lat, c.Centroid.Lng,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: upsert city %s", c.ID)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: commit cities")
	}
	return len(cities), nil
}

func (s *PostgresStore) GetCity(ctx context.Context, id string) (*model.City, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, lat, lng FROM cities WHERE id = $1`, id,
	)
	var c model.City
	err := row.Scan(&c.ID, &c.Name, &c.Centroid.Lat, &c.Centroid.Lng)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get city %s", id)
	}
	return &c, nil
}

// helpers

func placeholder(n int) string {
	const digits = "0123456789"
	if n < 10 {
		return "$" + digits[n:n+1]
	}
	return "$" + digits[n/10:n/10+1] + digits[n%10:n%10+1]
}

// encodeLocation marshals coordinates as an EWKB point with SRID 4326, the
// same encoding the catalog's geospatial consumers read.
func encodeLocation(c *model.Coordinates) ([]byte, error) {
	if c == nil {
		return nil, nil
	}
	pt := geom.NewPointFlat(geom.XY, []float64{c.Lng, c.Lat}).SetSRID(4326)
	data, err := ewkb.Marshal(pt, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: encode location")
	}
	return data, nil
}

// decodeLocation unmarshals an EWKB point back to coordinates.
func decodeLocation(data []byte) (*model.Coordinates, error) {
	if len(data) == 0 {
		return nil, nil
	}
	g, err := ewkb.Unmarshal(data)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: decode location")
	}
	pt, ok := g.(*geom.Point)
	if !ok {
		return nil, eris.Errorf("postgres: location is %T, want point", g)
	}
	coords := pt.Coords()
	return &model.Coordinates{Lat: coords[1], Lng: coords[0]}, nil
}

func scanPgxProvider(scan func(dest ...any) error) (*model.ProviderRecord, error) {
	var p model.ProviderRecord
	var specialty *string
	var location []byte
	var status string
	err := scan(
		&p.ID, &p.DisplayName, &specialty, &p.CityID, &location,
		&p.Rating, &p.CompletedEngagements, &p.IsAvailable, &p.IsFeatured,
		&status,
	)
	if err != nil {
		return nil, err
	}
	if specialty != nil {
		p.Specialty = *specialty
	}
	p.Status = model.ProviderStatus(status)
	coords, err := decodeLocation(location)
	if err != nil {
		return nil, err
	}
	p.Coordinates = coords
	return &p, nil
}

func collectPgxSnapshots(rows pgx.Rows) ([]model.ScoreSnapshot, error) {
	var out []model.ScoreSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows.Scan)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan snapshot")
		}
		out = append(out, *snap)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate snapshots")
}
