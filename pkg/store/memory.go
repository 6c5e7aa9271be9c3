package store

import (
	"context"
	"sync"

	"github.com/chazu/cassette/pkg/component"
)

// MemoryStore keeps records in a map.
type MemoryStore struct {
	mu   sync.RWMutex
	recs map[string]component.Record
}

// NewMemory creates an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{recs: make(map[string]component.Record)}
}

func (s *MemoryStore) Put(ctx context.Context, rec component.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.Data = append([]byte(nil), rec.Data...)
	s.recs[rec.ID] = rec
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (component.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.recs[id]
	if !ok {
		return component.Record{}, NotFound(id)
	}
	return rec, nil
}

func (s *MemoryStore) List(ctx context.Context, f Filter) ([]component.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []component.Record
	for _, rec := range s.recs {
		if f.Match(rec) {
			out = append(out, rec)
		}
	}
	SortRecords(out)
	return out, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.recs, id)
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.recs)
}

var _ Store = (*MemoryStore)(nil)
