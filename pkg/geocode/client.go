// Package geocode turns postal addresses into coordinates using the Geoapify
// search API.
package geocode

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/ncdata-cli/internal/resilience"
)

const (
	// DefaultBaseURL is the Geoapify API root.
	DefaultBaseURL = "https://api.geoapify.com"

	// DefaultRateLimit matches the Geoapify free-tier quota.
	DefaultRateLimit = 5.0

	defaultBatchConcurrency = 4
)

// Client geocodes addresses.
type Client interface {
	// Geocode geocodes a single address. An address with no match returns a
	// Result with Matched=false and a nil error.
	Geocode(ctx context.Context, addr AddressInput) (*Result, error)

	// BatchGeocode geocodes multiple addresses. Results are in input order;
	// individual failures come back as unmatched results.
	BatchGeocode(ctx context.Context, addrs []AddressInput) ([]Result, error)
}

// AddressInput represents an address to geocode.
type AddressInput struct {
	ID      string // Optional identifier for batch correlation
	Street  string
	City    string
	State   string
	ZipCode string
}

// Result holds the geocoding output for an address.
type Result struct {
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	Source           string  `json:"source"`
	Quality          string  `json:"quality"` // "rooftop", "range", "centroid", "approximate"
	Confidence       float64 `json:"confidence"`
	FormattedAddress string  `json:"formatted_address"`
	Matched          bool    `json:"matched"`
}

// Option configures the geocoder.
type Option func(*geocoder)

// WithAPIKey sets the Geoapify API key.
func WithAPIKey(key string) Option {
	return func(g *geocoder) {
		g.apiKey = key
	}
}

// WithBaseURL points the client at a different API root.
func WithBaseURL(u string) Option {
	return func(g *geocoder) {
		g.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *geocoder) {
		g.httpClient = hc
	}
}

// WithRateLimit sets the requests-per-second rate limit. Non-positive values
// disable limiting.
func WithRateLimit(rps float64) Option {
	return func(g *geocoder) {
		if rps <= 0 {
			g.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		g.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
	}
}

// WithRetry sets the retry policy for transient failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(g *geocoder) {
		g.retry = cfg
	}
}

// WithCache enables result caching.
func WithCache(c Cache) Option {
	return func(g *geocoder) {
		g.cache = c
	}
}

// WithCacheTTL sets how long cached results stay valid. Zero keeps them forever.
func WithCacheTTL(ttl time.Duration) Option {
	return func(g *geocoder) {
		g.cacheTTL = ttl
	}
}

// WithBatchConcurrency sets how many requests BatchGeocode keeps in flight.
func WithBatchConcurrency(n int) Option {
	return func(g *geocoder) {
		if n > 0 {
			g.concurrency = n
		}
	}
}

type geocoder struct {
	apiKey      string
	baseURL     string
	httpClient  *http.Client
	limiter     *rate.Limiter
	retry       resilience.RetryConfig
	cache       Cache
	cacheTTL    time.Duration
	concurrency int
}

// NewClient creates a new geocoding Client with the given options.
func NewClient(opts ...Option) (Client, error) {
	g := &geocoder{
		baseURL:     DefaultBaseURL,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		limiter:     rate.NewLimiter(DefaultRateLimit, int(DefaultRateLimit)),
		retry:       resilience.DefaultRetryConfig(),
		concurrency: defaultBatchConcurrency,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.apiKey == "" {
		return nil, eris.New("geocode: api key is required")
	}
	if g.retry.OnRetry == nil {
		g.retry.OnRetry = resilience.RetryLogger("geoapify", "search")
	}
	return g, nil
}

// Geocode checks the cache, then queries Geoapify with retries. Matches and
// non-matches are both cached; failed requests are not.
func (g *geocoder) Geocode(ctx context.Context, addr AddressInput) (*Result, error) {
	text := formatOneLine(addr)
	if text == "" {
		return &Result{Matched: false}, nil
	}

	key := cacheKey(addr)
	if g.cache != nil {
		cached, err := g.cache.Get(ctx, key)
		if err != nil {
			zap.L().Warn("geocode: cache lookup failed", zap.Error(err))
		} else if cached != nil {
			zap.L().Debug("geocode cache hit", zap.String("key", key[:12]), zap.Bool("matched", cached.Matched))
			return cached, nil
		}
	}

	result, err := resilience.DoVal(ctx, g.retry, func(ctx context.Context) (*Result, error) {
		return g.search(ctx, text)
	})
	if err != nil {
		return nil, err
	}

	if g.cache != nil {
		if err := g.cache.Put(ctx, key, result, g.cacheTTL); err != nil {
			zap.L().Warn("geocode: cache store failed", zap.Error(err))
		}
	}
	return result, nil
}

// BatchGeocode geocodes addrs concurrently. A failed address is logged and
// returned as unmatched so one bad row never fails the batch.
func (g *geocoder) BatchGeocode(ctx context.Context, addrs []AddressInput) ([]Result, error) {
	if len(addrs) == 0 {
		return nil, nil
	}

	results := make([]Result, len(addrs))
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.concurrency)

	for i, addr := range addrs {
		eg.Go(func() error {
			r, err := g.Geocode(gctx, addr)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				zap.L().Warn("geocode: batch item failed",
					zap.Int("index", i),
					zap.String("id", addr.ID),
					zap.Error(err),
				)
				return nil
			}
			results[i] = *r
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, eris.Wrap(err, "geocode: batch")
	}
	return results, nil
}

// formatOneLine joins the non-empty address parts with ", ".
func formatOneLine(addr AddressInput) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{addr.Street, addr.City, addr.State, addr.ZipCode} {
		if s := strings.TrimSpace(p); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}
