// Package store persists component records keyed by component identifier.
//
// The generator never reaches for a global registry: every stage that
// reads or writes components is handed a Store. Backends:
//   - memory: in-process map, for tests and one-shot CLI runs
//   - file: one JSON file per component in a directory
//   - redisstore: Redis, for sharing results between server instances
//   - mongostore: MongoDB, for long-lived result archives
//
// Usage:
//
//	st := store.NewMemory()
//	if err := store.Save(ctx, st, beam, runID); err != nil {
//	    return err
//	}
//	beam, err := store.Load[*component.Beam](ctx, st, "north_B0a")
package store

import (
	"context"
	"sort"

	"github.com/chazu/cassette/pkg/component"
	"github.com/chazu/cassette/pkg/errors"
)

// Store is the interface for component storage backends.
type Store interface {
	// Put inserts or replaces a record.
	Put(ctx context.Context, rec component.Record) error
	// Get returns the record with the given id, or a NOT_FOUND error.
	Get(ctx context.Context, id string) (component.Record, error)
	// List returns the records matching f, sorted by id.
	List(ctx context.Context, f Filter) ([]component.Record, error)
	// Delete removes a record. Deleting a missing record is not an error.
	Delete(ctx context.Context, id string) error
	Close() error
}

// Filter selects records. Empty fields match everything.
type Filter struct {
	Kind  component.Kind
	Panel string
	RunID string
}

// Match reports whether rec passes the filter.
func (f Filter) Match(rec component.Record) bool {
	if f.Kind != "" && rec.Kind != f.Kind {
		return false
	}
	if f.Panel != "" && rec.Panel != f.Panel {
		return false
	}
	if f.RunID != "" && rec.RunID != f.RunID {
		return false
	}
	return true
}

// NotFound returns the error backends report for a missing id.
func NotFound(id string) error {
	return errors.New(errors.ErrCodeNotFound, "component %q not found", id)
}

// Save encodes c and stores it.
func Save(ctx context.Context, s Store, c component.Component, runID string) error {
	rec, err := component.NewRecord(c, runID)
	if err != nil {
		return err
	}
	return s.Put(ctx, rec)
}

// Load fetches and decodes a component of the expected type.
func Load[T component.Component](ctx context.Context, s Store, id string) (T, error) {
	var zero T
	rec, err := s.Get(ctx, id)
	if err != nil {
		return zero, err
	}
	return component.As[T](rec)
}

// SortRecords orders records by id.
func SortRecords(recs []component.Record) {
	sort.Slice(recs, func(i, j int) bool { return recs[i].ID < recs[j].ID })
}
