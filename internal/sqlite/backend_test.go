package sqlite

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mesh-intelligence/coinwatch/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestBackend attaches a backend in a temp dir with a stepping clock and
// sequential ids.
func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	b := NewBackend()
	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	b.SetClock(func() time.Time {
		now = now.Add(time.Second)
		return now
	})
	n := 0
	b.newID = func() string {
		n++
		return fmt.Sprintf("00000000-0000-4000-8000-%012d", n)
	}
	require.NoError(t, b.Attach(t.TempDir()))
	t.Cleanup(func() { _ = b.Detach() })
	return b
}

func TestBackendAttachDetach(t *testing.T) {
	dir := t.TempDir()
	b := NewBackend()

	require.ErrorIs(t, b.Attach(""), types.ErrDataDirRequired)
	require.NoError(t, b.Attach(dir))
	assert.FileExists(t, filepath.Join(dir, RemoteDBName))
	require.ErrorIs(t, b.Attach(dir), ErrAlreadyAttached)

	require.NoError(t, b.Detach())
	require.NoError(t, b.Detach())

	_, err := b.Watchlist().List("u1")
	require.ErrorIs(t, err, ErrDetached)
}

func TestBackendKeepsDataAcrossAttach(t *testing.T) {
	dir := t.TempDir()

	b := NewBackend()
	require.NoError(t, b.Attach(dir))
	_, err := b.Watchlist().Add("u1", types.WatchlistDraft{CoinID: "bitcoin"})
	require.NoError(t, err)
	require.NoError(t, b.Detach())

	b2 := NewBackend()
	require.NoError(t, b2.Attach(dir))
	defer b2.Detach()
	items, err := b2.Watchlist().List("u1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "bitcoin", items[0].CoinID)

	_, err = os.Stat(filepath.Join(dir, RemoteDBName))
	require.NoError(t, err)
}

func TestTokens(t *testing.T) {
	b := newTestBackend(t)
	tokens := b.Tokens()

	_, err := tokens.UserFor("nope")
	require.ErrorIs(t, err, types.ErrUnauthorized)
	_, err = tokens.UserFor("")
	require.ErrorIs(t, err, types.ErrUnauthorized)

	tok, err := tokens.Issue("u1", "secret")
	require.NoError(t, err)
	assert.Equal(t, "secret", tok)

	user, err := tokens.UserFor("secret")
	require.NoError(t, err)
	assert.Equal(t, "u1", user)

	generated, err := tokens.Issue("u2", "")
	require.NoError(t, err)
	assert.NotEmpty(t, generated)
	user, err = tokens.UserFor(generated)
	require.NoError(t, err)
	assert.Equal(t, "u2", user)

	require.NoError(t, tokens.Revoke("secret"))
	_, err = tokens.UserFor("secret")
	require.ErrorIs(t, err, types.ErrUnauthorized)

	_, err = tokens.Issue("", "x")
	require.ErrorIs(t, err, types.ErrUnauthorized)
}
