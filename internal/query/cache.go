// Package query is the cache in front of the effective stores. Reads of the
// same key share one in-flight fetch; data older than the stale time is
// served while a background refresh runs; mutations invalidate exactly
// their family's keys.
package query

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mesh-intelligence/coinwatch/pkg/types"
)

// Key joins a family name and optional parts into a cache key. Every key of
// a family starts with its name, which is what Invalidate matches on.
func Key(family string, parts ...string) string {
	if len(parts) == 0 {
		return family
	}
	return family + "/" + strings.Join(parts, "/")
}

type entry struct {
	data        any
	fetchedAt   time.Time
	invalidated bool
}

// Option configures a Client.
type Option func(*Client)

// WithStaleTime sets how long fetched data is served without a refresh.
func WithStaleTime(d time.Duration) Option {
	return func(c *Client) { c.staleTime = d }
}

// WithClock overrides the clock used for staleness.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithLogger sets the logger for failed background refreshes.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// Client holds cached query results keyed by string.
type Client struct {
	mu      sync.Mutex
	entries map[string]*entry
	// gens counts invalidations per key. A fetch only stores its result if
	// the key's generation is unchanged since the fetch began.
	gens map[string]uint64

	group     singleflight.Group
	refreshes sync.WaitGroup

	staleTime time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// NewClient returns an empty cache with the default stale time.
func NewClient(opts ...Option) *Client {
	c := &Client{
		entries:   make(map[string]*entry),
		gens:      make(map[string]uint64),
		staleTime: types.DefaultStaleTime,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch returns the value under key. Fresh data comes from the cache. Stale
// data is returned immediately and refreshed in the background. Missing or
// invalidated entries block on fn, shared with any concurrent Fetch of the
// same key. Errors are not cached.
func Fetch[V any](ctx context.Context, c *Client, key string, fn func(context.Context) (V, error)) (V, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok && !e.invalidated {
		if v, ok := e.data.(V); ok {
			stale := c.now().Sub(e.fetchedAt) >= c.staleTime
			c.mu.Unlock()
			if stale {
				refresh(ctx, c, key, fn)
			}
			return v, nil
		}
	}
	c.mu.Unlock()

	res, err, _ := c.group.Do(key, func() (any, error) {
		return load(ctx, c, key, fn)
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}

// load runs fn and stores its result unless key was invalidated meanwhile.
func load[V any](ctx context.Context, c *Client, key string, fn func(context.Context) (V, error)) (any, error) {
	c.mu.Lock()
	gen := c.gens[key]
	c.gens[key] = gen
	c.mu.Unlock()

	v, err := fn(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.gens[key] == gen {
		c.entries[key] = &entry{data: v, fetchedAt: c.now()}
	}
	c.mu.Unlock()
	return v, nil
}

// refresh starts a background fetch of key. A refresh already in flight
// for key absorbs this one.
func refresh[V any](ctx context.Context, c *Client, key string, fn func(context.Context) (V, error)) {
	c.refreshes.Add(1)
	ch := c.group.DoChan(key, func() (any, error) {
		return load(context.WithoutCancel(ctx), c, key, fn)
	})
	go func() {
		defer c.refreshes.Done()
		if res := <-ch; res.Err != nil {
			c.logger.Warn("background refresh failed", slog.String("key", key), slog.Any("err", res.Err))
		}
	}()
}

// Invalidate marks every key equal to family or under family/ as
// invalidated. The next Fetch of those keys blocks on a fresh fetch rather
// than joining one already in flight, and fetches already in flight do not
// repopulate them.
func (c *Client) Invalidate(family string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.group.Forget(family)
	for key := range c.gens {
		if matches(key, family) {
			c.gens[key]++
			c.group.Forget(key)
		}
	}
	for key, e := range c.entries {
		if matches(key, family) {
			e.invalidated = true
		}
	}
	c.logger.Debug("cache invalidated", slog.String("family", family))
}

// InvalidateAll invalidates every key.
func (c *Client) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.gens {
		c.gens[key]++
		c.group.Forget(key)
	}
	for _, e := range c.entries {
		e.invalidated = true
	}
}

// Wait blocks until running background refreshes finish.
func (c *Client) Wait() {
	c.refreshes.Wait()
}

func matches(key, family string) bool {
	return key == family || strings.HasPrefix(key, family+"/")
}
