package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergePatch(t *testing.T) {
	created := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	a := Alert{ID: "local_1", AlertName: "old", IsActive: true, CreatedAt: created, ThresholdValue: "1"}

	got, err := MergePatch(a, Patch{"alertName": "new", "isActive": false})
	require.NoError(t, err)
	assert.Equal(t, "new", got.AlertName)
	assert.False(t, got.IsActive)
	assert.Equal(t, "local_1", got.ID)
	assert.True(t, created.Equal(got.CreatedAt))
	assert.Equal(t, "1", got.ThresholdValue)
}

func TestMergePatchRejectsMistypedValue(t *testing.T) {
	_, err := MergePatch(Alert{ID: "x"}, Patch{"isActive": "nope"})
	assert.ErrorIs(t, err, ErrInvalidPatch)
}

func TestMergePatchIgnoresUnknownFields(t *testing.T) {
	w := WatchlistItem{ID: "local_1", CoinID: "btc"}
	got, err := MergePatch(w, Patch{"color": "red"})
	require.NoError(t, err)
	assert.Equal(t, w.CoinID, got.CoinID)
}
