// Package querycache memoizes ranked results per normalized query profile.
package querycache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/careerlens/careers-cli/internal/config"
	"github.com/careerlens/careers-cli/internal/model"
)

// Backend persists cached queries. GetCachedQuery returns nil, nil when the
// key is absent. DeleteExpiredQueries removes rows with expires_at < now,
// evaluated at delete time.
type Backend interface {
	GetCachedQuery(ctx context.Context, key string) (*model.CachedQuery, error)
	SetCachedQuery(ctx context.Context, q model.CachedQuery) error
	DeleteExpiredQueries(ctx context.Context, now time.Time) (int, error)
}

// ComputeFunc produces the ranked results for a cache miss.
type ComputeFunc func(ctx context.Context) ([]model.RankedCareer, error)

// Stats are cumulative counters since the Cache was created.
type Stats struct {
	Hits          int64 `json:"hits"`
	Misses        int64 `json:"misses"`
	ReadFailures  int64 `json:"read_failures"`
	WriteFailures int64 `json:"write_failures"`
	Swept         int64 `json:"swept"`
}

// Cache is a best-effort memoization layer. Two callers missing on the same
// key may both compute and both write; the later write wins.
type Cache struct {
	backend Backend
	ttl     time.Duration
	now     func() time.Time

	hits, misses, readFailures, writeFailures, swept atomic.Int64
}

// New creates a Cache over backend.
func New(backend Backend, cfg config.CacheConfig) *Cache {
	return &Cache{backend: backend, ttl: cfg.TTL(), now: time.Now}
}

// GetOrCompute returns the unexpired cached result for key, or runs compute
// and stores its result with expires_at = now + TTL. Backend failures are
// logged and never fail the call; compute errors are returned uncached.
func (c *Cache) GetOrCompute(ctx context.Context, key string, compute ComputeFunc) ([]model.RankedCareer, error) {
	now := c.now()
	cached, err := c.backend.GetCachedQuery(ctx, key)
	switch {
	case err != nil:
		c.readFailures.Add(1)
		zap.L().Warn("querycache: read failed, computing", zap.String("key", key), zap.Error(err))
	case cached != nil && !cached.Expired(now):
		c.hits.Add(1)
		return cached.Results, nil
	}
	c.misses.Add(1)

	results, err := compute(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "querycache: compute")
	}

	now = c.now()
	entry := model.CachedQuery{
		Key:       key,
		Results:   results,
		CreatedAt: now,
		ExpiresAt: now.Add(c.ttl),
	}
	if err := c.backend.SetCachedQuery(ctx, entry); err != nil {
		c.writeFailures.Add(1)
		zap.L().Warn("querycache: write failed", zap.String("key", key), zap.Error(err))
	}
	return results, nil
}

// Sweep deletes expired entries. Safe to run alongside lookups.
func (c *Cache) Sweep(ctx context.Context) (int, error) {
	n, err := c.backend.DeleteExpiredQueries(ctx, c.now())
	if err != nil {
		return 0, eris.Wrap(err, "querycache: sweep")
	}
	c.swept.Add(int64(n))
	return n, nil
}

// RunSweeper sweeps every interval until ctx is done. Sweep failures are
// logged and the loop keeps going.
func (c *Cache) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := c.Sweep(ctx)
			if err != nil {
				zap.L().Warn("querycache: sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				zap.L().Debug("querycache: swept expired entries", zap.Int("deleted", n))
			}
		}
	}
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		ReadFailures:  c.readFailures.Load(),
		WriteFailures: c.writeFailures.Load(),
		Swept:         c.swept.Load(),
	}
}
