package session

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Load reads a persisted session. A missing or corrupt file means no
// session, not an error.
func Load(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil || s.Token == "" {
		return nil, nil
	}
	return &s, nil
}

// Save writes s atomically with owner-only permissions.
func Save(path string, s Session) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// Remove deletes the persisted session. Removing a missing file succeeds.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
