package geocode

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"time"
)

// Cache stores geocode results keyed by normalised address. Get returns
// (nil, nil) on a miss. Cached non-matches (Matched=false) are valid hits.
type Cache interface {
	Get(ctx context.Context, key string) (*Result, error)
	Put(ctx context.Context, key string, r *Result, ttl time.Duration) error
}

// CacheKey returns the key Geocode uses for addr.
func CacheKey(addr AddressInput) string {
	return cacheKey(addr)
}

// cacheKey returns SHA-256 hex of the normalized address for cache lookup.
func cacheKey(addr AddressInput) string {
	normalized := fmt.Sprintf("%s|%s|%s|%s",
		strings.ToLower(strings.TrimSpace(addr.Street)),
		strings.ToLower(strings.TrimSpace(addr.City)),
		strings.ToLower(strings.TrimSpace(addr.State)),
		strings.TrimSpace(addr.ZipCode),
	)
	h := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", h)
}
