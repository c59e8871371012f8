// Package sqlite implements the server-side store behind the coinwatch API:
// per-user watchlist and alert tables plus the bearer tokens that identify
// users. It is the authoritative copy the remote client talks to.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/coinwatch/pkg/types"
)

// RemoteDBName is the database file the backend creates in its data dir.
const RemoteDBName = "remote.db"

// Backend lifecycle errors.
var (
	ErrAlreadyAttached = errors.New("backend already attached")
	ErrDetached        = errors.New("backend is detached")
)

// timeLayout is how timestamps are stored.
const timeLayout = time.RFC3339Nano

// Backend owns the SQLite connection and the table accessors.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	db       *sql.DB

	now   func() time.Time
	newID func() string

	tokens    *TokensTable
	watchlist *WatchlistTable
	alerts    *AlertsTable
}

// NewBackend creates a detached backend. Call Attach to open the database.
func NewBackend() *Backend {
	b := &Backend{
		now:   func() time.Time { return time.Now().UTC() },
		newID: types.NewServerID,
	}
	b.tokens = &TokensTable{backend: b}
	b.watchlist = &WatchlistTable{backend: b}
	b.alerts = &AlertsTable{backend: b}
	return b
}

// SetClock overrides the timestamp source. Call before Attach.
func (b *Backend) SetClock(now func() time.Time) {
	b.now = now
}

// Attach creates dataDir if needed, opens remote.db in it and applies the
// schema. Existing data is kept.
func (b *Backend) Attach(dataDir string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return ErrAlreadyAttached
	}
	if dataDir == "" {
		return types.ErrDataDirRequired
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dataDir, RemoteDBName))
	if err != nil {
		return fmt.Errorf("opening %s: %w", RemoteDBName, err)
	}

	stmts := append(append(append([]string{}, pragmas...), schemaDDL...), indexDDL...)
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return fmt.Errorf("applying schema: %w", err)
		}
	}

	b.db = db
	b.attached = true
	return nil
}

// Detach closes the database. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	b.attached = false
	return err
}

// Tokens returns the token table accessor.
func (b *Backend) Tokens() *TokensTable { return b.tokens }

// Watchlist returns the watchlist table accessor.
func (b *Backend) Watchlist() *WatchlistTable { return b.watchlist }

// Alerts returns the alerts table accessor.
func (b *Backend) Alerts() *AlertsTable { return b.alerts }

// conn returns the open database under a read lock, which the caller must
// release.
func (b *Backend) conn() (*sql.DB, func(), error) {
	b.mu.RLock()
	if !b.attached {
		b.mu.RUnlock()
		return nil, nil, ErrDetached
	}
	return b.db, b.mu.RUnlock, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: timestamp %q", types.ErrSerialization, s)
	}
	return t, nil
}

// requireUser rejects an empty owner before any query runs.
func requireUser(userID string) error {
	if userID == "" {
		return types.ErrUnauthorized
	}
	return nil
}
