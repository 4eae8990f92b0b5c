package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/ncdata-cli/pkg/geocode"
)

// SQLiteCache implements Store using modernc.org/sqlite.
type SQLiteCache struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteCache{db: db, now: time.Now}, nil
}

// expires_at is unix seconds; NULL never expires.
const sqliteMigration = `
CREATE TABLE IF NOT EXISTS geocode_cache (
	address_hash      TEXT PRIMARY KEY,
	latitude          REAL NOT NULL DEFAULT 0,
	longitude         REAL NOT NULL DEFAULT 0,
	source            TEXT NOT NULL DEFAULT '',
	quality           TEXT NOT NULL DEFAULT '',
	confidence        REAL NOT NULL DEFAULT 0,
	formatted_address TEXT NOT NULL DEFAULT '',
	matched           INTEGER NOT NULL DEFAULT 0,
	cached_at         INTEGER NOT NULL,
	expires_at        INTEGER
);

CREATE INDEX IF NOT EXISTS idx_geocode_cache_expires_at ON geocode_cache(expires_at);
`

func (s *SQLiteCache) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteCache) Close() error {
	return s.db.Close()
}

// Get returns the cached result for key, or nil if absent or expired.
func (s *SQLiteCache) Get(ctx context.Context, key string) (*geocode.Result, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT latitude, longitude, source, quality, confidence, formatted_address, matched
		 FROM geocode_cache
		 WHERE address_hash = ? AND (expires_at IS NULL OR expires_at > ?)`,
		key, s.now().Unix(),
	)

	var r geocode.Result
	err := row.Scan(&r.Latitude, &r.Longitude, &r.Source, &r.Quality, &r.Confidence, &r.FormattedAddress, &r.Matched)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get cached geocode")
	}
	return &r, nil
}

// Put upserts r under key. A zero ttl never expires.
func (s *SQLiteCache) Put(ctx context.Context, key string, r *geocode.Result, ttl time.Duration) error {
	now := s.now()
	var expiresAt any
	if ttl > 0 {
		expiresAt = now.Add(ttl).Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO geocode_cache
			(address_hash, latitude, longitude, source, quality, confidence, formatted_address, matched, cached_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (address_hash) DO UPDATE SET
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			source = excluded.source,
			quality = excluded.quality,
			confidence = excluded.confidence,
			formatted_address = excluded.formatted_address,
			matched = excluded.matched,
			cached_at = excluded.cached_at,
			expires_at = excluded.expires_at`,
		key, r.Latitude, r.Longitude, r.Source, r.Quality, r.Confidence, r.FormattedAddress, r.Matched,
		now.Unix(), expiresAt,
	)
	return eris.Wrap(err, "sqlite: put cached geocode")
}

func (s *SQLiteCache) DeleteExpired(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM geocode_cache WHERE expires_at IS NOT NULL AND expires_at <= ?`,
		s.now().Unix(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired geocodes")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}
