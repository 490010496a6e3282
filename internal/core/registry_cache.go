package core

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultRegistryCacheTTL is how long a registry snapshot is reused.
const DefaultRegistryCacheTTL = 5 * time.Minute

// registryCache holds the last full registry fetch. Concurrent refreshes
// collapse into one store walk. A failed refresh falls back to the previous
// snapshot when there is one.
type registryCache struct {
	ttl   time.Duration
	now   func() time.Time
	group singleflight.Group

	mu         sync.RWMutex
	snapshot   []Registrant
	fetchedAt  time.Time
	fresh      bool
	generation uint64
}

func newRegistryCache(ttl time.Duration) *registryCache {
	return &registryCache{ttl: ttl, now: time.Now}
}

// get returns a snapshot, calling load when the cached one is missing,
// invalidated or older than ttl. A ttl of zero disables reuse.
func (c *registryCache) get(ctx context.Context, load func(context.Context) ([]Registrant, error)) ([]Registrant, error) {
	c.mu.RLock()
	if c.fresh && c.ttl > 0 && c.now().Sub(c.fetchedAt) < c.ttl {
		snap := c.snapshot
		c.mu.RUnlock()
		return snap, nil
	}
	gen := c.generation
	c.mu.RUnlock()

	// Keyed by generation so callers arriving after an invalidation never
	// join a load that started before it. The shared load must outlive any
	// single caller's cancellation.
	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan("registry:"+strconv.FormatUint(gen, 10), func() (any, error) {
		snap, err := load(loadCtx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if gen == c.generation {
			c.snapshot = snap
			c.fetchedAt = c.now()
			c.fresh = true
		}
		c.mu.Unlock()
		return snap, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err == nil {
			return res.Val.([]Registrant), nil
		}
		c.mu.RLock()
		stale := c.snapshot
		c.mu.RUnlock()
		if stale != nil {
			slog.WarnContext(ctx, "registry refresh failed, serving stale snapshot",
				"error", res.Err, "registrants", len(stale))
			return stale, nil
		}
		return nil, res.Err
	}
}

// invalidate marks the snapshot stale. The data is kept as a fallback.
func (c *registryCache) invalidate() {
	c.mu.Lock()
	c.fresh = false
	c.generation++
	c.mu.Unlock()
}
