package geocode

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cached memoizes successful lookups of the wrapped geocoder in memory.
// Concurrent lookups of the same address share one upstream request.
type Cached struct {
	next  Geocoder
	group singleflight.Group

	mu      sync.RWMutex
	entries map[string]Coordinates
}

// NewCached wraps next with an in-memory cache
func NewCached(next Geocoder) *Cached {
	return &Cached{
		next:    next,
		entries: make(map[string]Coordinates),
	}
}

func (c *Cached) Geocode(ctx context.Context, address string) (Coordinates, error) {
	key := normalizeAddress(address)
	if coords, ok := c.lookup(key); ok {
		return coords, nil
	}

	ch := c.group.DoChan(key, func() (interface{}, error) {
		// a flight that finished meanwhile already filled the entry
		if coords, ok := c.lookup(key); ok {
			return coords, nil
		}
		coords, err := c.next.Geocode(ctx, address)
		if err != nil {
			return Coordinates{}, err
		}
		c.mu.Lock()
		c.entries[key] = coords
		c.mu.Unlock()
		return coords, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return Coordinates{}, res.Err
		}
		return res.Val.(Coordinates), nil
	case <-ctx.Done():
		return Coordinates{}, ctx.Err()
	}
}

func (c *Cached) lookup(key string) (Coordinates, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	coords, ok := c.entries[key]
	return coords, ok
}

// Len returns the number of cached addresses
func (c *Cached) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
