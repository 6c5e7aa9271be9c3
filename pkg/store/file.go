package store

import (
	"context"
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/chazu/cassette/pkg/component"
	"github.com/chazu/cassette/pkg/errors"
)

// FileStore keeps one JSON file per record in a directory.
type FileStore struct {
	mu  sync.RWMutex
	dir string
}

// NewFile creates a file store rooted at dir, creating it if needed.
func NewFile(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "store: empty directory")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "store: create dir")
	}
	return &FileStore{dir: dir}, nil
}

// Path returns the store directory.
func (s *FileStore) Path() string { return s.dir }

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, url.PathEscape(id)+".json")
}

func (s *FileStore) Put(ctx context.Context, rec component.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "store: marshal %s", rec.ID)
	}
	tmp := s.path(rec.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "store: write %s", rec.ID)
	}
	if err := os.Rename(tmp, s.path(rec.ID)); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "store: write %s", rec.ID)
	}
	return nil
}

func (s *FileStore) Get(ctx context.Context, id string) (component.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read(s.path(id), id)
}

func (s *FileStore) read(path, id string) (component.Record, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return component.Record{}, NotFound(id)
	}
	if err != nil {
		return component.Record{}, errors.Wrap(errors.ErrCodeInternal, err, "store: read %s", id)
	}
	var rec component.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return component.Record{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "store: parse %s", path)
	}
	return rec, nil
}

func (s *FileStore) List(ctx context.Context, f Filter) ([]component.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "store: read dir")
	}
	var out []component.Record
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := s.read(filepath.Join(s.dir, entry.Name()), entry.Name())
		if err != nil {
			return nil, err
		}
		if f.Match(rec) {
			out = append(out, rec)
		}
	}
	SortRecords(out)
	return out, nil
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path(id)); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(errors.ErrCodeInternal, err, "store: remove %s", id)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }

var _ Store = (*FileStore)(nil)
