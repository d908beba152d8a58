package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// JSONStore keeps one JSON snapshot file. Save writes a uniquely named temp
// file next to the target, syncs it and renames it into place, so readers
// only ever see a complete snapshot.
type JSONStore struct {
	mu   sync.Mutex
	dir  string
	path string
}

// NewJSONStore creates dataDir if needed and returns a store for dataDir/filename.
func NewJSONStore(dataDir, filename string) (*JSONStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("json store: %w", err)
	}
	return &JSONStore{dir: dataDir, path: filepath.Join(dataDir, filename)}, nil
}

func (s *JSONStore) Path() string { return s.path }

// Load decodes the snapshot into data and reports whether one was found.
func (s *JSONStore) Load(data any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("json store: open %s: %w", s.path, err)
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(data); err != nil {
		return true, fmt.Errorf("json store: decode %s: %w", s.path, err)
	}
	return true, nil
}

// Save replaces the snapshot with data.
func (s *JSONStore) Save(data any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("json store: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("json store: encode: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("json store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("json store: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("json store: %w", err)
	}
	committed = true
	return nil
}
