package sqlite

import (
	"testing"

	"github.com/mesh-intelligence/coinwatch/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchlistAddListRemove(t *testing.T) {
	wl := newTestBackend(t).Watchlist()

	first, err := wl.Add("u1", types.WatchlistDraft{CoinID: " Bitcoin "})
	require.NoError(t, err)
	assert.Equal(t, "bitcoin", first.CoinID)
	assert.Equal(t, types.OriginRemote, types.OriginOf(first.ID))

	_, err = wl.Add("u1", types.WatchlistDraft{CoinID: "ethereum"})
	require.NoError(t, err)

	_, err = wl.Add("u1", types.WatchlistDraft{CoinID: "BITCOIN"})
	require.ErrorIs(t, err, types.ErrAlreadyExists)

	_, err = wl.Add("u2", types.WatchlistDraft{CoinID: "bitcoin"})
	require.NoError(t, err, "uniqueness is per user")

	items, err := wl.List("u1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "bitcoin", items[0].CoinID)
	assert.Equal(t, "ethereum", items[1].CoinID)
	assert.Equal(t, first, items[0])

	require.NoError(t, wl.Remove("u1", "BITCOIN"))
	require.ErrorIs(t, wl.Remove("u1", "bitcoin"), types.ErrNotFound)
	require.ErrorIs(t, wl.Remove("u1", " "), types.ErrInvalidData)

	others, err := wl.List("u2")
	require.NoError(t, err)
	assert.Len(t, others, 1)
}

func TestWatchlistListEmptyIsNotNil(t *testing.T) {
	items, err := newTestBackend(t).Watchlist().List("nobody")
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestWatchlistValidation(t *testing.T) {
	wl := newTestBackend(t).Watchlist()

	_, err := wl.Add("u1", types.WatchlistDraft{CoinID: ""})
	require.ErrorIs(t, err, types.ErrInvalidData)

	_, err = wl.Add("", types.WatchlistDraft{CoinID: "bitcoin"})
	require.ErrorIs(t, err, types.ErrUnauthorized)
}

func TestWatchlistUpdate(t *testing.T) {
	wl := newTestBackend(t).Watchlist()

	btc, err := wl.Add("u1", types.WatchlistDraft{CoinID: "bitcoin"})
	require.NoError(t, err)
	_, err = wl.Add("u1", types.WatchlistDraft{CoinID: "ethereum"})
	require.NoError(t, err)

	require.NoError(t, wl.Update("u1", btc.ID, types.Patch{"coinId": "Solana"}))
	require.ErrorIs(t, wl.Update("u1", btc.ID, types.Patch{"coinId": "ethereum"}), types.ErrAlreadyExists)
	require.ErrorIs(t, wl.Update("u2", btc.ID, types.Patch{"coinId": "cardano"}), types.ErrNotFound)
	require.ErrorIs(t, wl.Update("u1", btc.ID, types.Patch{"addedAt": "2020-01-01T00:00:00Z"}), types.ErrInvalidPatch)

	items, err := wl.List("u1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "solana", items[0].CoinID)
	assert.Equal(t, btc.AddedAt, items[0].AddedAt)
}
