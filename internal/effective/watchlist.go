package effective

import (
	"context"
	"log/slog"

	"github.com/mesh-intelligence/coinwatch/internal/localstore"
	"github.com/mesh-intelligence/coinwatch/internal/remote"
	"github.com/mesh-intelligence/coinwatch/internal/session"
	"github.com/mesh-intelligence/coinwatch/pkg/types"
)

// Watchlist is the effective store for watchlist items.
type Watchlist struct {
	*Store[types.WatchlistItem, types.WatchlistDraft]
}

// NewWatchlist builds the watchlist store.
func NewWatchlist(local *localstore.Collection[types.WatchlistItem, types.WatchlistDraft], rc *remote.Collection[types.WatchlistItem, types.WatchlistDraft], sp session.Provider, logger *slog.Logger) *Watchlist {
	return &Watchlist{Store: New(local, rc, sp, logger)}
}

// AddCoin adds coinID to the watchlist.
func (w *Watchlist) AddCoin(ctx context.Context, coinID string) (types.WatchlistItem, error) {
	return w.Add(ctx, types.WatchlistDraft{CoinID: coinID})
}

// Contains reports whether coinID is on the watchlist, ignoring case.
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
