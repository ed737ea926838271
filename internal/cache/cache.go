// Package cache memoizes the backend release listing in coarse time buckets.
//
// The bucket key is baseID + ceil(now / maxAge). Every reader inside one
// bucket shares the same fetch, including readers that arrive while the
// fetch is still running, so a bucket rollover costs exactly one backend
// call no matter how many requests are in flight.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ralt/relserve/internal/release"
)

// FetchFunc loads the full release listing from a backend
type FetchFunc func(ctx context.Context) (*release.Collection, error)

// Option configures a Cache
type Option func(*Cache)

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// WithBaseID offsets every bucket key
func WithBaseID(id int64) Option {
	return func(c *Cache) {
		c.baseID = id
	}
}

type entry struct {
	done  chan struct{}
	value *release.Collection
	err   error
}

// Cache is safe for concurrent use
type Cache struct {
	fetch  FetchFunc
	maxAge time.Duration
	baseID int64
	now    func() time.Time

	mu      sync.Mutex
	entries map[int64]*entry
}

// New wraps fetch. A maxAge of zero or less disables time based expiry,
// leaving Invalidate as the only way to refresh.
func New(fetch FetchFunc, maxAge time.Duration, opts ...Option) *Cache {
	c := &Cache{
		fetch:   fetch,
		maxAge:  maxAge,
		now:     time.Now,
		entries: make(map[int64]*entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) bucket() int64 {
	age := c.maxAge.Milliseconds()
	if age <= 0 {
		return c.baseID
	}
	ms := c.now().UnixMilli()
	// ceil for non-negative timestamps
	return c.baseID + (ms+age-1)/age
}

// Releases returns the collection for the current bucket, fetching it at
// most once per bucket. The fetch itself is not cancelled when ctx is,
// only this caller's wait is.
func (c *Cache) Releases(ctx context.Context) (*release.Collection, error) {
	key := c.bucket()

	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		e = &entry{done: make(chan struct{})}
		c.pruneLocked(key)
		c.entries[key] = e
		go c.run(context.WithoutCancel(ctx), key, e)
	}
	c.mu.Unlock()

	select {
	case <-e.done:
		return e.value, e.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Cache) run(ctx context.Context, key int64, e *entry) {
	start := time.Now()
	logrus.Debugf("Fetching releases for cache bucket %d", key)

	e.value, e.err = c.fetch(ctx)
	if e.err != nil {
		logrus.Warnf("Failed to fetch releases: %v", e.err)
		// evict so the next reader retries instead of replaying the error
		c.mu.Lock()
		if c.entries[key] == e {
			delete(c.entries, key)
		}
		c.mu.Unlock()
	} else {
		logrus.Infof("Fetched %d releases in %s", e.value.Len(), time.Since(start).Round(time.Millisecond))
	}

	close(e.done)
}

// pruneLocked drops every bucket other than key. Fetches still running for
// dropped buckets complete for their own waiters.
func (c *Cache) pruneLocked(key int64) {
	for k := range c.entries {
		if k != key {
			delete(c.entries, k)
		}
	}
}

// Invalidate forgets every bucket so the next read fetches again
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	logrus.Infof("Invalidating %d cached release listings", len(c.entries))
	clear(c.entries)
}

// Warm fetches the current bucket ahead of the first request
func (c *Cache) Warm(ctx context.Context) error {
	_, err := c.Releases(ctx)
	return err
}
