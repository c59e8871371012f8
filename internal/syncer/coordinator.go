package syncer

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mesh-intelligence/coinwatch/internal/session"
)

// State is a family's position in the sync state machine.
type State string

const (
	StateIdle    State = "idle"
	StateSyncing State = "syncing"
)

// Subscriber emits an event on every transition from no session to a
// session.
type Subscriber interface {
	Subscribe() (<-chan session.Session, func())
}

// Invalidator drops cached reads for a family.
type Invalidator interface {
	Invalidate(family string)
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the coordinator's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// WithOnComplete registers a hook called with the results of every Sync
// that ran at least one family.
func WithOnComplete(fn func([]Result)) Option {
	return func(c *Coordinator) { c.onComplete = fn }
}

// Coordinator runs one migration per observed session acquisition. Families
// migrate concurrently; each has an Idle/Syncing guard, and a trigger that
// finds a family already syncing is ignored for that family.
type Coordinator struct {
	events     Subscriber
	cache      Invalidator
	migrators  []Migrator
	logger     *slog.Logger
	onComplete func([]Result)

	mu     sync.Mutex
	states map[string]State

	stop    func()
	running sync.WaitGroup
}

// New builds a coordinator. cache may be nil.
func New(events Subscriber, cache Invalidator, migrators []Migrator, opts ...Option) *Coordinator {
	c := &Coordinator{
		events:    events,
		cache:     cache,
		migrators: migrators,
		logger:    slog.Default(),
		states:    make(map[string]State),
	}
	for _, opt := range opts {
		opt(c)
	}
	for _, m := range migrators {
		c.states[m.Family()] = StateIdle
	}
	return c
}

// Start subscribes to session events and runs a Sync in the background for
// each one until ctx is done or Stop is called. A session that already
// exists when Start is called does not trigger a sync.
func (c *Coordinator) Start(ctx context.Context) {
	ch, cancel := c.events.Subscribe()
	ctx, cancelCtx := context.WithCancel(ctx)

	c.mu.Lock()
	c.stop = func() {
		cancelCtx()
		cancel()
	}
	c.mu.Unlock()

	c.running.Add(1)
	go func() {
		defer c.running.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case s, ok := <-ch:
				if !ok {
					return
				}
				c.logger.Info("session acquired, syncing", slog.String("user_id", s.UserID))
				c.running.Add(1)
				go func() {
					defer c.running.Done()
					c.Sync(ctx)
				}()
			}
		}
	}()
}

// Stop unsubscribes and waits for running syncs to finish.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	stop := c.stop
	c.stop = nil
	c.mu.Unlock()
	if stop != nil {
		stop()
	}
	c.running.Wait()
}

// State returns the family's current state.
func (c *Coordinator) State(family string) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.states[family]
}

func (c *Coordinator) begin(family string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.states[family] == StateSyncing {
		return false
	}
	c.states[family] = StateSyncing
	return true
}

func (c *Coordinator) end(family string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states[family] = StateIdle
}

// Sync migrates every idle family concurrently and returns the results of
// the families it ran. Each family's cache entries are invalidated after
// its sweep completes and before it returns to Idle. An abandoned sweep
// leaves its family's cache alone; other families still run.
func (c *Coordinator) Sync(ctx context.Context) []Result {
	results := make([]*Result, len(c.migrators))
	var g errgroup.Group

	for i, m := range c.migrators {
		family := m.Family()
		if !c.begin(family) {
			c.logger.Info("sync already in flight, ignoring trigger", slog.String("family", family))
			continue
		}
		g.Go(func() error {
			defer c.end(family)
			res, err := m.Migrate(ctx)
			results[i] = &res
			if err != nil {
				return err
			}
			if c.cache != nil {
				c.cache.Invalidate(family)
			}
			c.logger.Info("family synced",
				slog.String("family", family),
				slog.Int("attempted", res.Attempted),
				slog.Int("migrated", res.Migrated),
				slog.Int("failed", res.Failed),
				slog.Int("skipped", res.Skipped))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		c.logger.Warn("sync incomplete", slog.Any("err", err))
	}

	out := []Result{}
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	if len(out) > 0 && c.onComplete != nil {
		c.onComplete(out)
	}
	return out
}
