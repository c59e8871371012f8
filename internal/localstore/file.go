package localstore

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStorage keeps each key in its own <key>.json file under dir. Writes
// use the temp-file, fsync, rename pattern, so a reader sees either the old
// value or the complete new one.
type FileStorage struct {
	dir string
}

// NewFileStorage returns a FileStorage rooted at dir. The directory is
// created on first write.
func NewFileStorage(dir string) *FileStorage {
	return &FileStorage{dir: dir}
}

var keyReplacer = strings.NewReplacer("/", "_", "\\", "_", "..", "_")

func (f *FileStorage) path(key string) string {
	return filepath.Join(f.dir, keyReplacer.Replace(key)+".json")
}

func (f *FileStorage) Get(key string) ([]byte, bool, error) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reading %s: %w", key, err)
	}
	return data, true, nil
}

func (f *FileStorage) Set(key string, value []byte) error {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}
	return writeAtomic(f.path(key), value)
}

func (f *FileStorage) Delete(key string) error {
	if err := os.Remove(f.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing %s: %w", key, err)
	}
	return nil
}

func (f *FileStorage) Close() error { return nil }

// writeAtomic replaces path with data via a temp file in the same directory.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".store-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	w := bufio.NewWriter(tmp)
	if _, err := w.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing value: %w", err)
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("flushing buffer: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
