package localstore

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// LocalDBName is the database file SQLiteStorage creates in the data dir.
const LocalDBName = "local.db"

const createLocalStorage = `CREATE TABLE IF NOT EXISTS local_storage (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`

// SQLiteStorage keeps values in a single key/value table. Each Set is one
// upsert statement, so it is atomic.
type SQLiteStorage struct {
	db *sql.DB
}

// OpenSQLiteStorage opens (creating if needed) local.db under dataDir.
func OpenSQLiteStorage(dataDir string) (*SQLiteStorage, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	db, err := sql.Open("sqlite", filepath.Join(dataDir, LocalDBName))
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", LocalDBName, err)
	}
	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
		createLocalStorage,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("initializing %s: %w", LocalDBName, err)
		}
	}
	return &SQLiteStorage{db: db}, nil
}

func (s *SQLiteStorage) Get(key string) ([]byte, bool, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM local_storage WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading %s: %w", key, err)
	}
	return []byte(value), true, nil
}

func (s *SQLiteStorage) Set(key string, value []byte) error {
	_, err := s.db.Exec(`
		INSERT INTO local_storage (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		key, string(value), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStorage) Delete(key string) error {
	if _, err := s.db.Exec("DELETE FROM local_storage WHERE key = ?", key); err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
