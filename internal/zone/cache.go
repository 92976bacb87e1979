package zone

import (
	"context"
	"sync"
	"time"

	"field-attendance-api-server/internal/metrics"
	"field-attendance-api-server/internal/models"

	"golang.org/x/sync/singleflight"
)

// Lister is the uncached active-zone read.
type Lister func(ctx context.Context) ([]models.Zone, error)

// ActiveCache is a read-through snapshot of the active zones with a bounded
// age. Staleness within maxAge is accepted; zones change rarely and the
// validator does not need a consistent read.
type ActiveCache struct {
	load    Lister
	maxAge  time.Duration
	now     func() time.Time
	metrics *metrics.Metrics
	group   singleflight.Group

	mu        sync.RWMutex
	snapshot  []models.Zone
	fetchedAt time.Time
	valid     bool
	// generation guards against a fetch that started before Invalidate
	// overwriting the cleared snapshot.
	generation uint64
}

// NewActiveCache builds a cache over load. maxAge <= 0 disables caching.
// A nil clock means time.Now.
func NewActiveCache(load Lister, maxAge time.Duration, clock func() time.Time, m *metrics.Metrics) *ActiveCache {
	if clock == nil {
		clock = time.Now
	}
	return &ActiveCache{load: load, maxAge: maxAge, now: clock, metrics: m}
}

func (c *ActiveCache) Get(ctx context.Context) ([]models.Zone, error) {
	if zones, ok := c.fresh(); ok {
		return zones, nil
	}

	c.mu.RLock()
	gen := c.generation
	c.mu.RUnlock()

	// The fetch is shared, so it must not die with whichever caller started
	// it. Each caller still stops waiting when its own ctx is done.
	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan("active", func() (any, error) {
		zones, err := c.load(loadCtx)
		if err != nil {
			return nil, err
		}
		c.metrics.ObserveZoneCacheRefresh()
		c.mu.Lock()
		if c.generation == gen {
			c.snapshot = zones
			c.fetchedAt = c.now()
			c.valid = true
		}
		c.mu.Unlock()
		return zones, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return copyZones(res.Val.([]models.Zone)), nil
	}
}

func (c *ActiveCache) fresh() ([]models.Zone, bool) {
	if c.maxAge <= 0 {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.valid || c.now().Sub(c.fetchedAt) >= c.maxAge {
		return nil, false
	}
	return copyZones(c.snapshot), true
}

// Invalidate drops the snapshot so the next Get refetches.
func (c *ActiveCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = nil
	c.valid = false
	c.generation++
	c.group.Forget("active")
}

func copyZones(in []models.Zone) []models.Zone {
	out := make([]models.Zone, len(in))
	for i, z := range in {
		z.Vertices = append([]models.LatLng(nil), z.Vertices...)
		out[i] = z
	}
	return out
}
