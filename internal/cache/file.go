package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore writes one JSON file per document hash under a directory.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) path(hash string) string {
	return filepath.Join(f.dir, filepath.Base(hash)+".json")
}

func (f *FileStore) Get(_ context.Context, hash string) (Entry, error) {
	data, err := os.ReadFile(f.path(hash))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cache file: %w", err)
	}
	return decodeEntry(data)
}

// Put replaces the file atomically through a temp file and rename.
func (f *FileStore) Put(_ context.Context, hash string, e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	tmp, err := os.CreateTemp(f.dir, ".entry-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path(hash)); err != nil {
		return fmt.Errorf("rename cache file: %w", err)
	}
	return nil
}

func (f *FileStore) Close() error { return nil }
