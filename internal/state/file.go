package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/alfredjeanlab/kpatap/internal/model"
)

// FileStore keeps bookmarks in a single JSON document on disk. It is the
// default store for runs without a database.
type FileStore struct {
	path string

	mu        sync.Mutex
	bookmarks map[string]int64
}

// NewFileStore loads (or initializes) the state file at path.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path, bookmarks: map[string]int64{}}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading state file: %w", err)
	}
	if err := json.Unmarshal(data, &s.bookmarks); err != nil {
		return nil, fmt.Errorf("parsing state file %s: %w", path, err)
	}
	return s, nil
}

func (s *FileStore) Bookmark(ctx context.Context, stream string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.bookmarks[stream]
	return v, ok, nil
}

func (s *FileStore) SetBookmark(ctx context.Context, b model.Bookmark) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookmarks[b.Stream] = b.Value
	return s.save()
}

// save writes the full document via a temp file and rename, so a crashed run
// never leaves a truncated state file behind.
func (s *FileStore) save() error {
	data, err := json.MarshalIndent(s.bookmarks, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("creating temp state file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing temp state file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing state file: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }
