package types

import (
	"fmt"
	"strings"
	"time"
)

// WatchlistItem is one coin on a user's watchlist. At most one item exists
// per owner and CoinID.
type WatchlistItem struct {
	ID      string    `json:"id"`
	CoinID  string    `json:"coinId"`
	AddedAt time.Time `json:"addedAt"`
}

// WatchlistDraft carries the fields supplied when adding a coin.
type WatchlistDraft struct {
	CoinID string `json:"coinId"`
}

// NormalizeCoinID lower-cases and trims a coin id. Every write path and
// every comparison goes through it.
func NormalizeCoinID(coinID string) string {
	return strings.ToLower(strings.TrimSpace(coinID))
}

func normalizeWatchlistDraft(d WatchlistDraft) (WatchlistDraft, error) {
	d.CoinID = NormalizeCoinID(d.CoinID)
	if d.CoinID == "" {
		return d, fmt.Errorf("%w: coinId is required", ErrInvalidData)
	}
	return d, nil
}

func normalizeCoinIDPatch(p Patch) (Patch, error) {
	v, ok := p["coinId"]
	if !ok {
		return p, nil
	}
	s, ok := v.(string)
	if !ok || NormalizeCoinID(s) == "" {
		return nil, fmt.Errorf("%w: coinId", ErrInvalidPatch)
	}
	p["coinId"] = NormalizeCoinID(s)
	return p, nil
}

// WatchlistFamily describes watchlist items: deduplicated and removed by
// coin id.
var WatchlistFamily = Family[WatchlistItem, WatchlistDraft]{
	Name:        "watchlist",
	StorageKey:  "coinwatch.watchlist",
	Endpoint:    "/api/watchlist",
	RemoveParam: "coinId",
	Immutable:   []string{"addedAt"},

	ID:        func(w WatchlistItem) string { return w.ID },
	RemoveKey: func(w WatchlistItem) string { return w.CoinID },
	DedupKey:  func(w WatchlistItem) string { return w.CoinID },
	DraftKey:  func(d WatchlistDraft) string { return d.CoinID },

	NormalizeDraft: normalizeWatchlistDraft,
	NormalizeKey:   NormalizeCoinID,
	NormalizePatch: normalizeCoinIDPatch,

	NewRecord: func(d WatchlistDraft, id string, now time.Time) WatchlistItem {
		return WatchlistItem{ID: id, CoinID: d.CoinID, AddedAt: now}
	},
	DraftOf: func(w WatchlistItem) WatchlistDraft {
		return WatchlistDraft{CoinID: w.CoinID}
	},
}
