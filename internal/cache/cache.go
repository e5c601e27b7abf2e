// Package cache is the default access path for list screens: a TTL-bounded
// local cache keyed per logical query, serving stale data immediately while a
// background refresh replaces the entry in place.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/equipdesk/equipdesk/pkg/util"
)

// Fetcher loads the authoritative value for a cache key.
type Fetcher func(ctx context.Context) (any, error)

// RemoteStore optionally persists entries outside the process so warm values
// survive a restart. Implementations bound staleness with their own expiry.
type RemoteStore interface {
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Purge(ctx context.Context, keys []string) error
}

type entry struct {
	value     any
	fetchedAt time.Time
	populated bool
	// inflight is non-nil while a fetch for this key is running; it is the
	// single-flight guard against duplicate fetch storms.
	inflight chan struct{}
	fetchErr error
}

// Cache is process-wide and shared by every screen reading the same key.
// Only the cache mutates its entries.
type Cache struct {
	mu        sync.Mutex
	entries   map[string]*entry
	watchers  map[string]map[int64]func(any)
	watcherID int64
	store     RemoteStore
	logger    *zap.Logger
	now       func() time.Time
	onLookup  func(result string)
}

// Option configures optional cache behavior.
type Option func(*Cache)

// WithRemoteStore enables write-through persistence of entries.
func WithRemoteStore(store RemoteStore) Option {
	return func(c *Cache) { c.store = store }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithLookupHook observes lookup outcomes ("hit", "stale", "miss").
func WithLookupHook(hook func(result string)) Option {
	return func(c *Cache) { c.onLookup = hook }
}

// New builds an empty cache.
func New(logger *zap.Logger, opts ...Option) *Cache {
	c := &Cache{
		entries:  make(map[string]*entry),
		watchers: make(map[string]map[int64]func(any)),
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the entry for key. A fresh entry is returned as-is. An expired
// entry is returned immediately with stale=true while one background fetch
// replaces it. A missing entry blocks until the fetcher resolves. A ttl <= 0
// treats any cached value as expired (serve stale, confirm on every load).
func (c *Cache) Get(ctx context.Context, key string, ttl time.Duration, fetch Fetcher) (any, bool, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		e = &entry{}
		c.entries[key] = e
	}

	if e.populated && ttl > 0 && c.now().Sub(e.fetchedAt) < ttl {
		value := e.value
		c.mu.Unlock()
		c.record("hit")
		return value, false, nil
	}

	if e.populated {
		value := e.value
		if e.inflight == nil {
			done := make(chan struct{})
			e.inflight = done
			go c.refresh(context.WithoutCancel(ctx), key, done, fetch)
		}
		c.mu.Unlock()
		c.record("stale")
		return value, true, nil
	}

	// Miss: join an in-flight fetch if one exists, otherwise own it.
	if e.inflight != nil {
		done := e.inflight
		c.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}
		c.mu.Lock()
		e, ok = c.entries[key]
		if ok && e.populated {
			value := e.value
			c.mu.Unlock()
			return value, false, nil
		}
		var err error
		if ok {
			err = e.fetchErr
		}
		c.mu.Unlock()
		if err == nil {
			err = apperrors.NewStorageUnavailable(nil)
		}
		return nil, false, err
	}

	done := make(chan struct{})
	e.inflight = done
	c.mu.Unlock()
	c.record("miss")

	value, err := fetch(ctx)
	c.mu.Lock()
	var fns []func(any)
	if e, ok := c.entries[key]; ok && e.inflight == done {
		e.inflight = nil
		e.fetchErr = err
		if err == nil {
			e.value = value
			e.fetchedAt = c.now()
			e.populated = true
			fns = c.watcherList(key)
		}
	}
	c.mu.Unlock()
	close(done)
	if err != nil {
		return nil, false, err
	}
	for _, fn := range fns {
		fn(value)
	}
	return value, false, nil
}

func (c *Cache) refresh(ctx context.Context, key string, done chan struct{}, fetch Fetcher) {
	defer close(done)
	value, err := fetch(ctx)

	c.mu.Lock()
	var fns []func(any)
	if e, ok := c.entries[key]; ok && e.inflight == done {
		e.inflight = nil
		e.fetchErr = err
		if err == nil {
			e.value = value
			e.fetchedAt = c.now()
			e.populated = true
			fns = c.watcherList(key)
		}
	}
	c.mu.Unlock()

	if err != nil {
		if c.logger != nil {
			c.logger.Warn("cache refresh failed", zap.String("key", key), zap.Error(err))
		}
		return
	}
	for _, fn := range fns {
		fn(value)
	}
}

// Put replaces the entry directly, bypassing the fetcher. This is the push
// invalidation path: subscription deliveries take priority over pull TTL.
func (c *Cache) Put(key string, value any) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		e = &entry{}
		c.entries[key] = e
	}
	e.value = value
	e.fetchedAt = c.now()
	e.populated = true
	fns := c.watcherList(key)
	c.mu.Unlock()

	for _, fn := range fns {
		fn(value)
	}
}

// Watch registers fn to run whenever the entry for key is replaced. The
// returned cancel is idempotent.
func (c *Cache) Watch(key string, fn func(any)) (cancel func()) {
	c.mu.Lock()
	c.watcherID++
	id := c.watcherID
	if c.watchers[key] == nil {
		c.watchers[key] = make(map[int64]func(any))
	}
	c.watchers[key][id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.watchers[key], id)
		c.mu.Unlock()
	}
}

// Clear drops every entry. Called on logout; entries are never proactively
// evicted otherwise.
func (c *Cache) Clear(ctx context.Context) {
	c.mu.Lock()
	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	c.entries = make(map[string]*entry)
	store := c.store
	c.mu.Unlock()

	if store != nil && len(keys) > 0 {
		if err := store.Purge(ctx, keys); err != nil && c.logger != nil {
			c.logger.Warn("cache remote purge failed", zap.Error(err))
		}
	}
}

// Len reports the number of resident entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) watcherList(key string) []func(any) {
	fns := make([]func(any), 0, len(c.watchers[key]))
	for _, fn := range c.watchers[key] {
		fns = append(fns, fn)
	}
	return fns
}

func (c *Cache) record(result string) {
	if c.onLookup != nil {
		c.onLookup(result)
	}
}

// Fetch is the typed access path. When a remote store is configured and the
// ttl is positive, the fetcher is decorated to try the remote copy first and
// to write fresh values through with the same ttl.
func Fetch[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, fetch func(ctx context.Context) (T, error)) (T, bool, error) {
	var zero T
	raw, stale, err := c.Get(ctx, key, ttl, func(ctx context.Context) (any, error) {
		if c.store != nil && ttl > 0 {
			if data, ok, err := c.store.Load(ctx, key); err == nil && ok {
				var v T
				if jerr := json.Unmarshal(data, &v); jerr == nil {
					return v, nil
				}
			}
		}
		v, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		if c.store != nil && ttl > 0 {
			if data, jerr := json.Marshal(v); jerr == nil {
				if serr := c.store.Save(ctx, key, data, ttl); serr != nil && c.logger != nil {
					c.logger.Warn("cache remote save failed", zap.String("key", key), zap.Error(serr))
				}
			}
		}
		return v, nil
	})
	if err != nil {
		return zero, false, err
	}
	value, ok := raw.(T)
	if !ok {
		return zero, false, apperrors.NewInternalError(fmt.Errorf("cache entry %s holds %T", key, raw))
	}
	return value, stale, nil
}
