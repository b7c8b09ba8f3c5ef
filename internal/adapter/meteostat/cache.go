package meteostat

import (
	"context"
	"fmt"
	"time"

	"github.com/couchcryptid/agent-precip-etl/internal/domain"
	"github.com/couchcryptid/agent-precip-etl/internal/observability"
	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedClimateSource wraps a ClimateSource with an in-memory LRU cache.
type CachedClimateSource struct {
	inner   domain.ClimateSource
	cache   *lru.Cache[string, float64]
	metrics *observability.Metrics
}

// NewCachedClimateSource creates a cache decorator around a climate source.
func NewCachedClimateSource(inner domain.ClimateSource, maxEntries int, metrics *observability.Metrics) (*CachedClimateSource, error) {
	cache, err := lru.New[string, float64](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("create climate cache: %w", err)
	}
	return &CachedClimateSource{inner: inner, cache: cache, metrics: metrics}, nil
}

func (c *CachedClimateSource) MonthlyPrecipitation(ctx context.Context, p domain.Point, start, end time.Time) (*float64, error) {
	key := fmt.Sprintf("%.4f,%.4f|%s|%s", p.Lat, p.Lon, start.Format(dateLayout), end.Format(dateLayout))
	if v, ok := c.cache.Get(key); ok {
		c.metrics.ClimateCache.WithLabelValues("hit").Inc()
		return &v, nil
	}
	c.metrics.ClimateCache.WithLabelValues("miss").Inc()

	prcp, err := c.inner.MonthlyPrecipitation(ctx, p, start, end)
	if err != nil {
		return nil, err
	}
	// Absent observations are not cached; the API may backfill them.
	if prcp != nil {
		c.cache.Add(key, *prcp)
	}
	return prcp, nil
}

// Len returns the number of cached observations.
func (c *CachedClimateSource) Len() int {
	return c.cache.Len()
}
