package localstore

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mesh-intelligence/coinwatch/pkg/types"
)

// Option configures a Collection.
type Option func(*options)

type options struct {
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// WithLogger sets the logger used for swallowed storage failures.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithClock overrides the timestamp source for new and updated records.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithIDGenerator overrides the local id generator.
func WithIDGenerator(newID func() string) Option {
	return func(o *options) { o.newID = newID }
}

// Collection is the local store for one entity family: a JSON array under
// family.StorageKey. A nil storage models an inaccessible engine.
//
// Mutations are serialized within the process. Two processes sharing the
// same storage race with last-write-wins.
type Collection[T, D any] struct {
	mu      sync.Mutex
	storage Storage
	family  types.Family[T, D]
	opts    options
}

// NewCollection binds family to storage.
func NewCollection[T, D any](storage Storage, family types.Family[T, D], opts ...Option) *Collection[T, D] {
	o := options{
		logger: slog.Default(),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  types.NewLocalID,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Collection[T, D]{storage: storage, family: family, opts: o}
}

// Family returns the descriptor the collection was built with.
func (c *Collection[T, D]) Family() types.Family[T, D] {
	return c.family
}

func (c *Collection[T, D]) log() *slog.Logger {
	return c.opts.logger.With(slog.String("family", c.family.Name), slog.String("store", "local"))
}

// Read returns every stored record in insertion order. It never fails: an
// absent key, an inaccessible engine or unparseable JSON all read as empty.
func (c *Collection[T, D]) Read() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.read()
}

func (c *Collection[T, D]) read() []T {
	if c.storage == nil {
		return []T{}
	}
	raw, ok, err := c.storage.Get(c.family.StorageKey)
	if err != nil {
		c.log().Warn("local read failed", slog.Any("err", err))
		return []T{}
	}
	if !ok {
		return []T{}
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		c.log().Warn("local value is not a JSON array", slog.Any("err", err))
		return []T{}
	}
	if items == nil {
		return []T{}
	}
	return items
}

// Write serializes items and replaces the stored array. On failure the error
// is logged and returned, and the previous value stays in place.
func (c *Collection[T, D]) Write(items []T) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.write(items)
}

func (c *Collection[T, D]) write(items []T) error {
	if c.storage == nil {
		c.log().Warn("local write skipped", slog.Any("err", types.ErrStorageUnavailable))
		return types.ErrStorageUnavailable
	}
	if items == nil {
		items = []T{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		c.log().Warn("local encode failed", slog.Any("err", err))
		return fmt.Errorf("%w: %v", types.ErrSerialization, err)
	}
	if err := c.storage.Set(c.family.StorageKey, raw); err != nil {
		c.log().Warn("local write failed", slog.Any("err", err))
		return fmt.Errorf("%w: %v", types.ErrSerialization, err)
	}
	return nil
}

// Get returns the record with the given id.
func (c *Collection[T, D]) Get(id string) (T, bool) {
	for _, item := range c.Read() {
		if c.family.ID(item) == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// Add validates d, rejects it with ErrAlreadyExists when its dedup key is
// already stored, and otherwise appends a record with a fresh local id and
// timestamp.
func (c *Collection[T, D]) Add(d D) (T, error) {
	var zero T
	d, err := c.family.Draft(d)
	if err != nil {
		return zero, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	items := c.read()
	if c.family.Deduplicated() {
		key := c.family.DraftKey(d)
		for _, item := range items {
			if c.family.DedupKey(item) == key {
				return zero, fmt.Errorf("%w: %s %q", types.ErrAlreadyExists, c.family.Name, key)
			}
		}
	}

	rec := c.family.NewRecord(d, c.opts.newID(), c.opts.now())
	if err := c.write(append(items, rec)); err != nil {
		return zero, err
	}
	return rec, nil
}

// Remove deletes the first record whose remove key matches key and reports
// whether anything was removed.
func (c *Collection[T, D]) Remove(key string) bool {
	key = c.family.Key(key)

	c.mu.Lock()
	defer c.mu.Unlock()

	items := c.read()
	for i, item := range items {
		if c.family.RemoveKey(item) != key {
			continue
		}
		items = append(items[:i], items[i+1:]...)
		return c.write(items) == nil
	}
	return false
}

// Update merges patch into the record with the given id and reports whether
// a record was found and saved. A patch that would duplicate another
// record's dedup key is refused.
func (c *Collection[T, D]) Update(id string, patch types.Patch) bool {
	p, err := c.family.Patch(patch)
	if err != nil {
		c.log().Warn("local update rejected", slog.String("id", id), slog.Any("err", err))
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	items := c.read()
	idx := -1
	for i, item := range items {
		if c.family.ID(item) == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}

	merged, err := types.MergePatch(items[idx], p)
	if err != nil {
		c.log().Warn("local update rejected", slog.String("id", id), slog.Any("err", err))
		return false
	}
	if c.family.Deduplicated() {
		key := c.family.DedupKey(merged)
		for i, item := range items {
			if i != idx && c.family.DedupKey(item) == key {
				c.log().Warn("local update would duplicate", slog.String("id", id), slog.String("key", key))
				return false
			}
		}
	}
	if c.family.Touch != nil {
		merged = c.family.Touch(merged, c.opts.now())
	}
	items[idx] = merged
	return c.write(items) == nil
}

// Clear deletes the family's key.
func (c *Collection[T, D]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.storage == nil {
		return
	}
	if err := c.storage.Delete(c.family.StorageKey); err != nil {
		c.log().Warn("local clear failed", slog.Any("err", err))
	}
}
