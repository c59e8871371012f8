package query

import (
	"context"
	"testing"

	"github.com/mesh-intelligence/coinwatch/internal/effective"
	"github.com/mesh-intelligence/coinwatch/internal/localstore"
	"github.com/mesh-intelligence/coinwatch/internal/session"
	"github.com/mesh-intelligence/coinwatch/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newLocalFamilies wires both wrappers to local-only stores.
func newLocalFamilies(t *testing.T) (*Client, *Watchlist, *Alerts) {
	t.Helper()
	storage := localstore.NewMemoryStorage()
	tracker := session.NewTracker(nil, quiet)
	c := newTestClient(newTestClock())

	wl := effective.NewWatchlist(localstore.NewCollection(storage, types.WatchlistFamily, localstore.WithLogger(quiet)), nil, tracker, quiet)
	al := effective.NewAlerts(localstore.NewCollection(storage, types.AlertFamily, localstore.WithLogger(quiet)), nil, tracker, quiet)
	return c, NewWatchlist(c, wl), NewAlerts(c, al)
}

func invalidated(c *Client, key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return !ok || e.invalidated
}

func draft(coin string) types.AlertDraft {
	return types.AlertDraft{
		AlertName:      coin,
		CoinID:         coin,
		CoinName:       coin,
		CoinSymbol:     "X",
		AlertType:      types.AlertTypeVolume,
		Condition:      types.ConditionLessThan,
		ThresholdValue: "1000000",
		Frequency:      types.FrequencyOnce,
	}
}

func TestWatchlistMutationsInvalidateOwnFamily(t *testing.T) {
	c, wl, al := newLocalFamilies(t)
	ctx := context.Background()

	assert.Empty(t, wl.List(ctx))
	assert.Empty(t, al.List(ctx))

	_, err := wl.Add(ctx, "Bitcoin")
	require.NoError(t, err)
	assert.True(t, invalidated(c, "watchlist"))
	assert.False(t, invalidated(c, "alerts"), "unrelated family keeps its cache")

	assert.True(t, wl.Contains(ctx, "BITCOIN"))
	assert.Equal(t, []string{"bitcoin"}, wl.CoinIDs(ctx))
	require.False(t, invalidated(c, "watchlist"))

	_, err = wl.Add(ctx, "bitcoin")
	require.ErrorIs(t, err, types.ErrAlreadyExists)
	assert.False(t, invalidated(c, "watchlist"), "failed mutation keeps the cache")

	assert.False(t, wl.Remove(ctx, "dogecoin"))
	assert.False(t, invalidated(c, "watchlist"))

	assert.True(t, wl.Remove(ctx, "bitcoin"))
	assert.True(t, invalidated(c, "watchlist"))
	assert.Empty(t, wl.List(ctx))
}

func TestAlertMutationsInvalidateOwnFamily(t *testing.T) {
	c, wl, al := newLocalFamilies(t)
	ctx := context.Background()

	assert.Empty(t, wl.List(ctx))
	assert.Empty(t, al.ForCoin(ctx, "bitcoin"))

	a, err := al.Create(ctx, draft("bitcoin"))
	require.NoError(t, err)
	assert.True(t, invalidated(c, "alerts/coin/bitcoin"))
	assert.False(t, invalidated(c, "watchlist"))

	assert.Len(t, al.ForCoin(ctx, "Bitcoin"), 1)
	assert.Len(t, al.List(ctx), 1)

	_, err = al.Create(ctx, types.AlertDraft{})
	require.ErrorIs(t, err, types.ErrInvalidData)
	assert.False(t, invalidated(c, "alerts"))

	require.True(t, al.Toggle(ctx, a.ID))
	assert.True(t, invalidated(c, "alerts"))
	got, ok := al.Get(ctx, a.ID)
	require.True(t, ok)
	assert.False(t, got.IsActive)

	name := "renamed"
	require.True(t, al.Update(ctx, a.ID, types.AlertPatch{AlertName: &name}))
	got, _ = al.Get(ctx, a.ID)
	assert.Equal(t, "renamed", got.AlertName)

	assert.False(t, al.Toggle(ctx, "missing"))
	assert.False(t, al.Update(ctx, "missing", types.AlertPatch{AlertName: &name}))
	assert.False(t, invalidated(c, "alerts"))

	require.True(t, al.Delete(ctx, a.ID))
	assert.Empty(t, al.List(ctx))
	assert.Empty(t, al.ForCoin(ctx, "bitcoin"))
	assert.False(t, invalidated(c, "watchlist"))
}

func TestRefreshInvalidates(t *testing.T) {
	c, wl, al := newLocalFamilies(t)
	ctx := context.Background()

	wl.List(ctx)
	al.List(ctx)
	wl.Refresh()
	assert.True(t, invalidated(c, "watchlist"))
	assert.False(t, invalidated(c, "alerts"))
	al.Refresh()
	assert.True(t, invalidated(c, "alerts"))
}
