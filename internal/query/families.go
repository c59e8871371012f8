package query

import (
	"context"

	"github.com/mesh-intelligence/coinwatch/internal/effective"
	"github.com/mesh-intelligence/coinwatch/pkg/types"
)

// Watchlist serves watchlist reads from the cache. Successful mutations
// invalidate the watchlist keys and nothing else.
type Watchlist struct {
	cache *Client
	store *effective.Watchlist
}

// NewWatchlist wraps store with cache.
func NewWatchlist(cache *Client, store *effective.Watchlist) *Watchlist {
	return &Watchlist{cache: cache, store: store}
}

func (w *Watchlist) family() string {
	return w.store.Family().Name
}

// Store returns the wrapped effective store.
func (w *Watchlist) Store() *effective.Watchlist {
	return w.store
}

// List returns the watchlist items.
func (w *Watchlist) List(ctx context.Context) []types.WatchlistItem {
	items, _ := Fetch(ctx, w.cache, Key(w.family()), func(ctx context.Context) ([]types.WatchlistItem, error) {
		return w.store.List(ctx), nil
	})
	return items
}

// Contains reports whether coinID is watched, ignoring case.
func (w *Watchlist) Contains(ctx context.Context, coinID string) bool {
	coinID = types.NormalizeCoinID(coinID)
	for _, item := range w.List(ctx) {
		if item.CoinID == coinID {
			return true
		}
	}
	return false
}

// CoinIDs returns the watched coin ids in list order.
func (w *Watchlist) CoinIDs(ctx context.Context) []string {
	items := w.List(ctx)
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.CoinID)
	}
	return ids
}

// Add watches coinID.
func (w *Watchlist) Add(ctx context.Context, coinID string) (types.WatchlistItem, error) {
	item, err := w.store.AddCoin(ctx, coinID)
	if err != nil {
		return item, err
	}
	w.cache.Invalidate(w.family())
	return item, nil
}

// Remove stops watching coinID.
func (w *Watchlist) Remove(ctx context.Context, coinID string) bool {
	if !w.store.Remove(ctx, coinID) {
		return false
	}
	w.cache.Invalidate(w.family())
	return true
}

// Refresh drops the cached watchlist.
func (w *Watchlist) Refresh() {
	w.cache.Invalidate(w.family())
}

// Alerts serves alert reads from the cache. Successful mutations invalidate
// the alert keys and nothing else.
type Alerts struct {
	cache *Client
	store *effective.Alerts
}

// NewAlerts wraps store with cache.
func NewAlerts(cache *Client, store *effective.Alerts) *Alerts {
	return &Alerts{cache: cache, store: store}
}

func (a *Alerts) family() string {
	return a.store.Family().Name
}

// Store returns the wrapped effective store.
func (a *Alerts) Store() *effective.Alerts {
	return a.store
}

// List returns every alert.
func (a *Alerts) List(ctx context.Context) []types.Alert {
	alerts, _ := Fetch(ctx, a.cache, Key(a.family()), func(ctx context.Context) ([]types.Alert, error) {
		return a.store.List(ctx), nil
	})
	return alerts
}

// Get returns the alert with the given id.
func (a *Alerts) Get(ctx context.Context, id string) (types.Alert, bool) {
	for _, alert := range a.List(ctx) {
		if alert.ID == id {
			return alert, true
		}
	}
	return types.Alert{}, false
}

// ForCoin returns the alerts watching coinID.
func (a *Alerts) ForCoin(ctx context.Context, coinID string) []types.Alert {
	coinID = types.NormalizeCoinID(coinID)
	alerts, _ := Fetch(ctx, a.cache, Key(a.family(), "coin", coinID), func(ctx context.Context) ([]types.Alert, error) {
		return a.store.ForCoin(ctx, coinID), nil
	})
	return alerts
}

// Create adds an alert.
func (a *Alerts) Create(ctx context.Context, d types.AlertDraft) (types.Alert, error) {
	alert, err := a.store.Add(ctx, d)
	if err != nil {
		return alert, err
	}
	a.cache.Invalidate(a.family())
	return alert, nil
}

// Update applies patch to the alert with the given id.
func (a *Alerts) Update(ctx context.Context, id string, patch types.AlertPatch) bool {
	if !a.store.Update(ctx, id, patch.Patch()) {
		return false
	}
	a.cache.Invalidate(a.family())
	return true
}

// Toggle flips the alert's active flag.
func (a *Alerts) Toggle(ctx context.Context, id string) bool {
	if !a.store.Toggle(ctx, id) {
		return false
	}
	a.cache.Invalidate(a.family())
	return true
}

// Delete removes the alert with the given id.
func (a *Alerts) Delete(ctx context.Context, id string) bool {
	if !a.store.Remove(ctx, id) {
		return false
	}
	a.cache.Invalidate(a.family())
	return true
}

// Refresh drops the cached alerts.
func (a *Alerts) Refresh() {
	a.cache.Invalidate(a.family())
}
