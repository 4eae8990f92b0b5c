// Package store persists geocode results so repeat runs skip the network.
package store

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/ncdata-cli/internal/config"
	"github.com/sells-group/ncdata-cli/pkg/geocode"
)

// Store is a geocode.Cache with a lifecycle.
type Store interface {
	geocode.Cache

	// DeleteExpired removes entries past their TTL and returns how many went.
	DeleteExpired(ctx context.Context) (int, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Drivers accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverNone     = "none"
)

// Open connects to the configured backend and applies migrations. The "none"
// driver (or an empty one) returns a nil Store and no error.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch strings.ToLower(cfg.Driver) {
	case "", DriverNone:
		return nil, nil
	case DriverSQLite:
		if cfg.Path == "" {
			return nil, eris.New("store: sqlite path is required")
		}
		s, err = NewSQLite(cfg.Path)
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, eris.New("store: postgres database_url is required")
		}
		s, err = NewPostgres(ctx, cfg.DatabaseURL, &PoolConfig{MaxConns: cfg.MaxConns, MinConns: cfg.MinConns})
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}
