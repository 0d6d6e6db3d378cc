package cache

import (
	"context"
	"log/slog"

	"github.com/paulmach/orb"

	"github.com/couchcryptid/fccs-lookup-service/internal/domain"
	"github.com/couchcryptid/fccs-lookup-service/internal/observability"
)

// CachedLooker wraps a Looker with a composition Store. Only successful
// lookups are cached, so regions without data are retried. Store failures
// are logged and treated as misses.
type CachedLooker struct {
	inner   domain.Looker
	store   Store
	opts    domain.Options
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewCachedLooker creates a cache decorator around inner. opts must be the
// options inner runs with; they are part of every key.
func NewCachedLooker(inner domain.Looker, store Store, opts domain.Options, metrics *observability.Metrics, logger *slog.Logger) *CachedLooker {
	return &CachedLooker{
		inner:   inner,
		store:   store,
		opts:    opts.Clone(),
		metrics: metrics,
		logger:  logger,
	}
}

// LookUp returns the cached composition for g or computes and stores it.
func (c *CachedLooker) LookUp(ctx context.Context, g orb.Geometry, areaAcres float64) (domain.Composition, error) {
	key, err := Key(g, areaAcres, c.opts)
	if err != nil {
		c.logger.Warn("composition cache key failed", "error", err)
		return c.inner.LookUp(ctx, g, areaAcres)
	}

	cached, ok, err := c.store.Get(ctx, key)
	switch {
	case err != nil:
		c.metrics.CompositionCache.WithLabelValues("error").Inc()
		c.logger.Warn("composition cache get failed", "key", key, "error", err)
	case ok:
		c.metrics.CompositionCache.WithLabelValues("hit").Inc()
		return cached, nil
	default:
		c.metrics.CompositionCache.WithLabelValues("miss").Inc()
	}

	comp, err := c.inner.LookUp(ctx, g, areaAcres)
	if err != nil {
		return comp, err
	}
	if err := c.store.Put(ctx, key, comp); err != nil {
		c.logger.Warn("composition cache put failed", "key", key, "error", err)
	}
	return comp, nil
}
