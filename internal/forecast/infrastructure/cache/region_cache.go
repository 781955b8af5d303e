package cache

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	forecast "nowcasting-dashboard/internal/forecast/domain"
	"nowcasting-dashboard/internal/observability/metrics"
)

// DefaultSize holds every region with and without history.
const DefaultSize = 2 * 400

// Source fetches one region's detail.
type Source interface {
	RegionDetail(ctx context.Context, regionID int, includeHistory bool) (forecast.RegionDetail, error)
}

type regionKey struct {
	regionID       int
	includeHistory bool
}

// RegionCache keeps recently fetched region details for a fixed TTL.
// Errors are never cached. Cached values share slices with earlier
// callers and must be treated as read-only.
type RegionCache struct {
	source Source
	lru    *expirable.LRU[regionKey, forecast.RegionDetail]
}

// NewRegionCache wraps source with an expiring LRU.
func NewRegionCache(source Source, size int, ttl time.Duration) (*RegionCache, error) {
	if source == nil {
		return nil, errors.New("region cache: source is required")
	}
	if ttl <= 0 {
		return nil, errors.New("region cache: ttl must be positive")
	}
	if size <= 0 {
		size = DefaultSize
	}
	return &RegionCache{
		source: source,
		lru:    expirable.NewLRU[regionKey, forecast.RegionDetail](size, nil, ttl),
	}, nil
}

// RegionDetail returns a cached detail or fetches and caches it.
func (c *RegionCache) RegionDetail(ctx context.Context, regionID int, includeHistory bool) (forecast.RegionDetail, error) {
	key := regionKey{regionID: regionID, includeHistory: includeHistory}
	if detail, ok := c.lru.Get(key); ok {
		metrics.IncDetailCache(true)
		return detail, nil
	}
	metrics.IncDetailCache(false)

	detail, err := c.source.RegionDetail(ctx, regionID, includeHistory)
	if err != nil {
		return forecast.RegionDetail{}, err
	}
	c.lru.Add(key, detail)
	return detail, nil
}

// Purge drops every cached entry.
func (c *RegionCache) Purge() {
	c.lru.Purge()
}

// Len returns the number of live entries.
func (c *RegionCache) Len() int {
	return c.lru.Len()
}
