package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Cache reads through to a fetch function on a miss and forgets keys on
// Invalidate. Listeners registered with OnInvalidate learn which keys went
// stale so views can refetch.
type Cache struct {
	store Store
	ttl   time.Duration
	log   *logrus.Entry

	mu        sync.Mutex
	next      int
	listeners map[int]func(keys []string)
}

// New returns a cache over store. Entries expire after ttl (0 = never).
func New(store Store, ttl time.Duration, log *logrus.Entry) *Cache {
	if log == nil {
		log = logrus.StandardLogger().WithField("component", "cache")
	}
	return &Cache{store: store, ttl: ttl, log: log, listeners: make(map[int]func([]string))}
}

// Load returns the value cached under key, calling fetch and caching its
// result on a miss. Store errors on read are logged and treated as misses.
func Load[T any](ctx context.Context, c *Cache, key string, fetch func(context.Context) (T, error)) (T, error) {
	var zero T
	data, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.log.WithError(err).WithField("key", key).Warn("cache read failed")
	}
	if ok {
		var v T
		if err := json.Unmarshal(data, &v); err == nil {
			c.log.WithField("key", key).Debug("cache hit")
			return v, nil
		}
		c.log.WithField("key", key).Warn("discarding undecodable cache entry")
	}

	v, err := fetch(ctx)
	if err != nil {
		return zero, err
	}
	if err := c.Put(ctx, key, v); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("cache write failed")
	}
	return v, nil
}

// Put stores v under key, replacing any cached value.
func (c *Cache) Put(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding cache entry %s: %w", key, err)
	}
	return c.store.Set(ctx, key, data, c.ttl)
}

// Invalidate drops keys so the next Load refetches, then notifies listeners.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.store.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("invalidating %v: %w", keys, err)
	}
	c.log.WithField("keys", keys).Debug("invalidated")

	c.mu.Lock()
	fns := make([]func([]string), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(append([]string(nil), keys...))
	}
	return nil
}

// OnInvalidate registers fn to run after each invalidation. The returned
// function removes it.
func (c *Cache) OnInvalidate(fn func(keys []string)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next++
	id := c.next
	c.listeners[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}
