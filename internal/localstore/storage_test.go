package localstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/coinwatch/pkg/types"
)

// engines returns one instance of every storage engine, each rooted in its
// own temp dir.
func engines(t *testing.T) map[string]Storage {
	t.Helper()
	sqliteStorage, err := OpenSQLiteStorage(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { sqliteStorage.Close() })

	return map[string]Storage{
		"memory": NewMemoryStorage(),
		"file":   NewFileStorage(filepath.Join(t.TempDir(), "nested")),
		"sqlite": sqliteStorage,
	}
}

func TestStorageEngines(t *testing.T) {
	for name, s := range engines(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := s.Get("coinwatch.watchlist")
			require.NoError(t, err)
			assert.False(t, ok, "absent key")

			require.NoError(t, s.Set("coinwatch.watchlist", []byte(`[{"coinId":"btc"}]`)))
			got, ok, err := s.Get("coinwatch.watchlist")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.JSONEq(t, `[{"coinId":"btc"}]`, string(got))

			require.NoError(t, s.Set("coinwatch.watchlist", []byte(`[]`)))
			got, _, err = s.Get("coinwatch.watchlist")
			require.NoError(t, err)
			assert.Equal(t, "[]", string(got))

			require.NoError(t, s.Delete("coinwatch.watchlist"))
			_, ok, err = s.Get("coinwatch.watchlist")
			require.NoError(t, err)
			assert.False(t, ok)

			assert.NoError(t, s.Delete("never-set"), "deleting an absent key")
		})
	}
}

func TestFileStorageLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStorage(dir)
	require.NoError(t, s.Set("coinwatch.alerts", []byte(`[]`)))
	require.NoError(t, s.Set("coinwatch.alerts", []byte(`[{}]`)))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "coinwatch.alerts.json", entries[0].Name())
}

func TestFileStorageKeysStayInsideDir(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStorage(dir)
	require.NoError(t, s.Set("../escape", []byte(`1`)))

	_, err := os.Stat(filepath.Join(filepath.Dir(dir), "escape.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestMemoryStorageCopiesValues(t *testing.T) {
	s := NewMemoryStorage()
	v := []byte("abc")
	require.NoError(t, s.Set("k", v))
	v[0] = 'z'

	got, _, err := s.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		cfg     types.Config
		want    any
		wantErr error
	}{
		{name: "memory", cfg: types.Config{LocalBackend: types.LocalBackendMemory}, want: &MemoryStorage{}},
		{name: "file", cfg: types.Config{LocalBackend: types.LocalBackendFile, DataDir: t.TempDir()}, want: &FileStorage{}},
		{name: "sqlite", cfg: types.Config{LocalBackend: types.LocalBackendSQLite, DataDir: t.TempDir()}, want: &SQLiteStorage{}},
		{name: "empty", cfg: types.Config{}, wantErr: types.ErrBackendEmpty},
		{name: "unknown", cfg: types.Config{LocalBackend: "cookies"}, wantErr: types.ErrBackendUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(tt.cfg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			defer s.Close()
			assert.IsType(t, tt.want, s)
		})
	}
}
