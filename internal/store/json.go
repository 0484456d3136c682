package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/elonfeng/rentradar/pkg/listing"
)

// JSONStore keeps the collection in a single indented JSON file.
type JSONStore struct {
	mu   sync.Mutex
	path string
}

// NewJSONStore returns a store backed by the file at path. The file is
// created on first save.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// Path returns the backing file path.
func (s *JSONStore) Path() string {
	return s.path
}

// Load reads the collection. A missing or empty file is an empty collection.
func (s *JSONStore) Load(_ context.Context) ([]listing.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []listing.Listing{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read listings %s: %w", s.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []listing.Listing{}, nil
	}

	var listings []listing.Listing
	if err := json.Unmarshal(data, &listings); err != nil {
		return nil, fmt.Errorf("parse listings %s: %w", s.path, err)
	}
	if listings == nil {
		listings = []listing.Listing{}
	}
	return listings, nil
}

// Save rewrites the file through a temp file and rename so a crash never
// leaves a half-written collection behind.
func (s *JSONStore) Save(_ context.Context, listings []listing.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if listings == nil {
		listings = []listing.Listing{}
	}
	data, err := json.MarshalIndent(listings, "", "    ")
	if err != nil {
		return fmt.Errorf("encode listings: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".listings-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write listings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

func (s *JSONStore) Close() error {
	return nil
}
