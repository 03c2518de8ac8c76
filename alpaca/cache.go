package alpaca

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rustyeddy/marketdash/pricing"
)

// DefaultTTL is how long a fetched series stays valid in the cache.
const DefaultTTL = time.Hour

type cacheKey struct {
	symbol      string
	start       int64 // unix nanos
	end         int64
	granularity Granularity
}

type cacheEntry struct {
	series  pricing.BarSeries
	fetched time.Time
}

// Cache memoizes successful fetches by the full request tuple
// (symbol, start, end, granularity) so repeated identical requests
// within the TTL never hit the network twice. Expiry is purely
// time-based; entries are purged lazily on access. Errors are never
// cached, so a failed symbol is retried on the next request.
type Cache struct {
	inner Fetcher
	ttl   time.Duration
	now   func() time.Time

	mu      sync.Mutex
	entries map[cacheKey]cacheEntry
}

// NewCache wraps a fetcher with TTL memoization. A non-positive ttl
// falls back to DefaultTTL.
func NewCache(inner Fetcher, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		inner:   inner,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[cacheKey]cacheEntry),
	}
}

// GetBars returns the cached series when the tuple is fresh, otherwise
// delegates to the wrapped fetcher and stores the result. Returned
// series are clones, so callers cannot mutate cached bars.
func (c *Cache) GetBars(ctx context.Context, req BarsRequest) (pricing.BarSeries, error) {
	key := cacheKey{
		symbol:      strings.ToUpper(strings.TrimSpace(req.Symbol)),
		start:       req.Start.UnixNano(),
		end:         req.End.UnixNano(),
		granularity: req.Granularity,
	}

	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		if c.now().Sub(e.fetched) < c.ttl {
			series := e.series.Clone()
			c.mu.Unlock()
			return series, nil
		}
		delete(c.entries, key)
	}
	c.mu.Unlock()

	series, err := c.inner.GetBars(ctx, req)
	if err != nil {
		return series, err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{series: series.Clone(), fetched: c.now()}
	c.mu.Unlock()

	return series, nil
}

// Len reports the number of live entries, purging expired ones.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, e := range c.entries {
		if now.Sub(e.fetched) >= c.ttl {
			delete(c.entries, k)
		}
	}
	return len(c.entries)
}
