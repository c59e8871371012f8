// Package localstore implements the local store: one JSON array per entity
// family, persisted under a fixed key in an origin-local storage engine.
// Reads never fail; a missing, unreadable or corrupt key reads as empty.
package localstore

import (
	"fmt"
	"sync"

	"github.com/mesh-intelligence/coinwatch/pkg/types"
)

// Storage is a key/value engine standing in for browser origin storage.
// Values are opaque bytes; the collection layer owns the JSON encoding.
type Storage interface {
	// Get returns the value under key. ok is false when the key is absent.
	Get(key string) (value []byte, ok bool, err error)
	// Set replaces the value under key. A failed Set leaves the previous
	// value in place.
	Set(key string, value []byte) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error
	Close() error
}

// Open returns the storage engine selected by cfg.LocalBackend.
func Open(cfg types.Config) (Storage, error) {
	switch cfg.LocalBackend {
	case types.LocalBackendMemory:
		return NewMemoryStorage(), nil
	case types.LocalBackendFile:
		return NewFileStorage(cfg.DataDir), nil
	case types.LocalBackendSQLite:
		return OpenSQLiteStorage(cfg.DataDir)
	case "":
		return nil, types.ErrBackendEmpty
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrBackendUnknown, cfg.LocalBackend)
	}
}

// MemoryStorage keeps values in a map. Safe for concurrent use.
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string][]byte)}
}

func (m *MemoryStorage) Get(key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, true, nil
}

func (m *MemoryStorage) Set(key string, value []byte) error {
	cp := make([]byte, len(value))
	copy(cp, value)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = cp
	return nil
}

func (m *MemoryStorage) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *MemoryStorage) Close() error { return nil }
