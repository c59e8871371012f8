package localstore

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/coinwatch/pkg/types"
)

var fixedNow = time.Date(2026, 4, 1, 9, 30, 0, 0, time.UTC)

func newWatchlist(t *testing.T, s Storage) *Collection[types.WatchlistItem, types.WatchlistDraft] {
	t.Helper()
	n := 0
	return NewCollection(s, types.WatchlistFamily,
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string { n++; return fmt.Sprintf("local_%d", n) }),
	)
}

func newAlerts(t *testing.T, s Storage) *Collection[types.Alert, types.AlertDraft] {
	t.Helper()
	n := 0
	return NewCollection(s, types.AlertFamily,
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string { n++; return fmt.Sprintf("local_a%d", n) }),
	)
}

func alertDraft(name string) types.AlertDraft {
	return types.AlertDraft{
		AlertName:      name,
		CoinID:         "bitcoin",
		CoinName:       "Bitcoin",
		CoinSymbol:     "btc",
		AlertType:      types.AlertTypePrice,
		Condition:      types.ConditionGreaterThan,
		ThresholdValue: "70000",
		Frequency:      types.FrequencyOnce,
	}
}

// failingStorage accepts reads from an inner engine but refuses writes.
type failingStorage struct {
	Storage
}

func (failingStorage) Set(string, []byte) error { return errors.New("quota exceeded") }

func TestReadMissingKeyIsEmpty(t *testing.T) {
	c := newWatchlist(t, NewMemoryStorage())
	got := c.Read()
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestReadCorruptValueIsEmpty(t *testing.T) {
	s := NewMemoryStorage()
	require.NoError(t, s.Set(types.WatchlistFamily.StorageKey, []byte("{not json")))
	c := newWatchlist(t, s)

	assert.Empty(t, c.Read())
}

func TestNilStorage(t *testing.T) {
	c := newWatchlist(t, nil)

	assert.Empty(t, c.Read())
	assert.ErrorIs(t, c.Write([]types.WatchlistItem{{ID: "local_1"}}), types.ErrStorageUnavailable)
	_, err := c.Add(types.WatchlistDraft{CoinID: "btc"})
	assert.ErrorIs(t, err, types.ErrStorageUnavailable)
	assert.False(t, c.Remove("btc"))
	c.Clear()
}

func TestWriteReadRoundTrip(t *testing.T) {
	for name, s := range engines(t) {
		t.Run(name, func(t *testing.T) {
			c := newAlerts(t, s)
			updated := fixedNow.Add(time.Hour)
			items := []types.Alert{
				types.AlertFamily.NewRecord(alertDraft("second"), "local_b", fixedNow),
				types.AlertFamily.NewRecord(alertDraft("first"), "local_a", fixedNow),
			}
			items[1].UpdatedAt = &updated
			items[1].IsActive = false

			require.NoError(t, c.Write(items))
			assert.Equal(t, items, c.Read())
		})
	}
}

func TestFailedWriteKeepsPreviousValue(t *testing.T) {
	inner := NewMemoryStorage()
	good := newWatchlist(t, inner)
	_, err := good.Add(types.WatchlistDraft{CoinID: "bitcoin"})
	require.NoError(t, err)

	broken := newWatchlist(t, failingStorage{inner})
	_, err = broken.Add(types.WatchlistDraft{CoinID: "ethereum"})
	assert.ErrorIs(t, err, types.ErrSerialization)
	assert.False(t, broken.Remove("bitcoin"))

	got := good.Read()
	require.Len(t, got, 1)
	assert.Equal(t, "bitcoin", got[0].CoinID)
}

func TestAddDuplicate(t *testing.T) {
	c := newWatchlist(t, NewMemoryStorage())

	first, err := c.Add(types.WatchlistDraft{CoinID: "bitcoin"})
	require.NoError(t, err)
	assert.Equal(t, "local_1", first.ID)
	assert.Equal(t, fixedNow, first.AddedAt)

	_, err = c.Add(types.WatchlistDraft{CoinID: "BITCOIN"})
	assert.ErrorIs(t, err, types.ErrAlreadyExists)
	assert.Len(t, c.Read(), 1)
}

func TestAddInvalidDraft(t *testing.T) {
	c := newAlerts(t, NewMemoryStorage())
	d := alertDraft("bad")
	d.ThresholdValue = "a lot"

	_, err := c.Add(d)
	assert.ErrorIs(t, err, types.ErrInvalidData)
	assert.Empty(t, c.Read())
}

func TestAlertsAllowSameCoinTwice(t *testing.T) {
	c := newAlerts(t, NewMemoryStorage())
	_, err := c.Add(alertDraft("one"))
	require.NoError(t, err)
	_, err = c.Add(alertDraft("two"))
	require.NoError(t, err)

	assert.Len(t, c.Read(), 2)
}

func TestCaseNormalization(t *testing.T) {
	c := newWatchlist(t, NewMemoryStorage())
	item, err := c.Add(types.WatchlistDraft{CoinID: "Bitcoin"})
	require.NoError(t, err)
	assert.Equal(t, "bitcoin", item.CoinID)

	assert.True(t, c.Remove("BITCOIN"))
}

func TestRemoveTwice(t *testing.T) {
	c := newWatchlist(t, NewMemoryStorage())
	for _, coin := range []string{"bitcoin", "ethereum"} {
		_, err := c.Add(types.WatchlistDraft{CoinID: coin})
		require.NoError(t, err)
	}

	assert.True(t, c.Remove("bitcoin"))
	after := c.Read()
	assert.False(t, c.Remove("bitcoin"))
	assert.Equal(t, after, c.Read())
	require.Len(t, after, 1)
	assert.Equal(t, "ethereum", after[0].CoinID)
}

func TestRemoveAlertByID(t *testing.T) {
	c := newAlerts(t, NewMemoryStorage())
	a, err := c.Add(alertDraft("one"))
	require.NoError(t, err)

	assert.False(t, c.Remove("bitcoin"), "alerts are removed by id, not coin")
	assert.True(t, c.Remove(a.ID))
	assert.Empty(t, c.Read())
}

func TestNoDuplicateCoinsUnderRandomOps(t *testing.T) {
	c := newWatchlist(t, NewMemoryStorage())
	coins := []string{"bitcoin", "Bitcoin", "ETHEREUM", "ethereum", "solana", "doge"}
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 500; i++ {
		coin := coins[rng.Intn(len(coins))]
		if rng.Intn(3) == 0 {
			c.Remove(coin)
		} else {
			_, err := c.Add(types.WatchlistDraft{CoinID: coin})
			if err != nil {
				require.ErrorIs(t, err, types.ErrAlreadyExists)
			}
		}

		seen := make(map[string]bool)
		for _, item := range c.Read() {
			require.False(t, seen[item.CoinID], "duplicate %s after op %d", item.CoinID, i)
			seen[item.CoinID] = true
		}
	}
}

func TestUpdate(t *testing.T) {
	c := newAlerts(t, NewMemoryStorage())
	a, err := c.Add(alertDraft("one"))
	require.NoError(t, err)

	assert.True(t, c.Update(a.ID, types.Patch{"isActive": false, "thresholdValue": "65000"}))
	got, ok := c.Get(a.ID)
	require.True(t, ok)
	assert.False(t, got.IsActive)
	assert.Equal(t, "65000", got.ThresholdValue)
	assert.Equal(t, a.CreatedAt, got.CreatedAt)
	require.NotNil(t, got.UpdatedAt)

	assert.False(t, c.Update("local_missing", types.Patch{"isActive": true}))
	assert.False(t, c.Update(a.ID, types.Patch{"id": "hijack"}))
	assert.False(t, c.Update(a.ID, types.Patch{"frequency": "hourly"}))
}

func TestUpdateRefusesDuplicateCoin(t *testing.T) {
	c := newWatchlist(t, NewMemoryStorage())
	btc, err := c.Add(types.WatchlistDraft{CoinID: "bitcoin"})
	require.NoError(t, err)
	_, err = c.Add(types.WatchlistDraft{CoinID: "ethereum"})
	require.NoError(t, err)

	assert.False(t, c.Update(btc.ID, types.Patch{"coinId": "Ethereum"}))
	assert.True(t, c.Update(btc.ID, types.Patch{"coinId": "Solana"}))

	got, ok := c.Get(btc.ID)
	require.True(t, ok)
	assert.Equal(t, "solana", got.CoinID)
}

func TestClear(t *testing.T) {
	for name, s := range engines(t) {
		t.Run(name, func(t *testing.T) {
			c := newWatchlist(t, s)
			_, err := c.Add(types.WatchlistDraft{CoinID: "bitcoin"})
			require.NoError(t, err)

			c.Clear()
			assert.Empty(t, c.Read())
			_, ok, err := s.Get(types.WatchlistFamily.StorageKey)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}
