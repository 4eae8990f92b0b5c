package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/ncdata-cli/pkg/geocode"
)

// Pool is the subset of *pgxpool.Pool the cache uses. pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresCache implements Store using pgxpool.
type PostgresCache struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresCache with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresCache, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
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
	return &PostgresCache{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS geocode_cache (
	address_hash      TEXT PRIMARY KEY,
	latitude          DOUBLE PRECISION NOT NULL DEFAULT 0,
	longitude         DOUBLE PRECISION NOT NULL DEFAULT 0,
	source            TEXT NOT NULL DEFAULT '',
	quality           TEXT NOT NULL DEFAULT '',
	confidence        DOUBLE PRECISION NOT NULL DEFAULT 0,
	formatted_address TEXT NOT NULL DEFAULT '',
	matched           BOOLEAN NOT NULL DEFAULT false,
	cached_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at        TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_geocode_cache_expires_at ON geocode_cache(expires_at);
`

func (s *PostgresCache) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresCache) Close() error {
	s.pool.Close()
	return nil
}

// Get returns the cached result for key, or nil if absent or expired.
func (s *PostgresCache) Get(ctx context.Context, key string) (*geocode.Result, error) {
	var r geocode.Result
	err := s.pool.QueryRow(ctx,
		`SELECT latitude, longitude, source, quality, confidence, formatted_address, matched
		 FROM geocode_cache
		 WHERE address_hash = $1 AND (expires_at IS NULL OR expires_at > now())`,
		key,
	).Scan(&r.Latitude, &r.Longitude, &r.Source, &r.Quality, &r.Confidence, &r.FormattedAddress, &r.Matched)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get cached geocode")
	}
	return &r, nil
}

// Put upserts r under key. A zero ttl never expires.
func (s *PostgresCache) Put(ctx context.Context, key string, r *geocode.Result, ttl time.Duration) error {
	var expiresAt *time.Time
	if ttl > 0 {
		t := time.Now().UTC().Add(ttl)
		expiresAt = &t
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO geocode_cache
			(address_hash, latitude, longitude, source, quality, confidence, formatted_address, matched, cached_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), $9)
		 ON CONFLICT (address_hash) DO UPDATE SET
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			source = EXCLUDED.source,
			quality = EXCLUDED.quality,
			confidence = EXCLUDED.confidence,
			formatted_address = EXCLUDED.formatted_address,
			matched = EXCLUDED.matched,
			cached_at = now(),
			expires_at = EXCLUDED.expires_at`,
		key, r.Latitude, r.Longitude, r.Source, r.Quality, r.Confidence, r.FormattedAddress, r.Matched, expiresAt,
	)
	return eris.Wrap(err, "postgres: put cached geocode")
}

func (s *PostgresCache) DeleteExpired(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM geocode_cache WHERE expires_at IS NOT NULL AND expires_at <= now()`)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired geocodes")
	}
	return int(tag.RowsAffected()), nil
}
