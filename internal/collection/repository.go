// Package collection implements the three saved-item collections (links,
// notes and tasks) on top of the shared key-value store. Each collection is
// an array under one key, newest first.
//
// Every mutation is a read-modify-write of the whole array, run as one
// storage.Store.Update so a concurrent writer on the same file cannot slip in
// between the read and the write.
package collection

import (
	"context"
	"fmt"
	"time"

	"github.com/runnerr0/prodhelper/internal/storage"
)

// Repository stores records of type T under a single store key.
type Repository[T Record[T]] struct {
	store storage.Store
	key   string
	now   func() time.Time
}

// New creates a repository for the collection stored under key.
func New[T Record[T]](store storage.Store, key string) *Repository[T] {
	return &Repository[T]{store: store, key: key, now: time.Now}
}

// Links returns the savedLinks repository.
func Links(store storage.Store) *Repository[Link] {
	return New[Link](store, storage.KeySavedLinks)
}

// Notes returns the savedNotes repository.
func Notes(store storage.Store) *Repository[Note] {
	return New[Note](store, storage.KeySavedNotes)
}

// Tasks returns the tasks repository.
func Tasks(store storage.Store) *Repository[Task] {
	return New[Task](store, storage.KeyTasks)
}

// WithClock overrides the time source.
func (r *Repository[T]) WithClock(now func() time.Time) *Repository[T] {
	r.now = now
	return r
}

// Key returns the store key backing the collection.
func (r *Repository[T]) Key() string {
	return r.key
}

// List returns every record, newest first. An absent key yields an empty slice.
func (r *Repository[T]) List(ctx context.Context) ([]T, error) {
	vals, err := r.store.Get(ctx, r.key)
	if err != nil {
		return nil, err
	}
	return decodeList[T](vals, r.key)
}

// Count returns the number of records.
func (r *Repository[T]) Count(ctx context.Context) (int, error) {
	items, err := r.List(ctx)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// Add assigns an id, stamps the timestamp when missing and prepends the
// record. The collection and the id sequence are written together.
func (r *Repository[T]) Add(ctx context.Context, rec T) (T, error) {
	var stored T
	err := r.store.Update(ctx, []string{r.key, storage.KeyIDSequence}, func(vals storage.Values) (map[string]any, error) {
		items, err := decodeList[T](vals, r.key)
		if err != nil {
			return nil, err
		}
		var seq int64
		if _, err := vals.Decode(storage.KeyIDSequence, &seq); err != nil {
			return nil, err
		}

		now := r.now()
		stored = rec.Stamped(NextID(now, seq, ids(items)), now)

		updated := make([]T, 0, len(items)+1)
		updated = append(updated, stored)
		updated = append(updated, items...)
		return map[string]any{
			r.key:                 updated,
			storage.KeyIDSequence: stored.RecordID(),
		}, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return stored, nil
}

// RemoveByID filters the record out. Removing an absent id is a no-op.
func (r *Repository[T]) RemoveByID(ctx context.Context, id int64) error {
	return r.mutate(ctx, func(items []T) ([]T, bool, error) {
		kept := make([]T, 0, len(items))
		for _, it := range items {
			if it.RecordID() != id {
				kept = append(kept, it)
			}
		}
		return kept, len(kept) != len(items), nil
	})
}

// UpdateByID applies transform to the matching record only. An absent id
// leaves the collection unchanged. The record id cannot be changed.
func (r *Repository[T]) UpdateByID(ctx context.Context, id int64, transform func(T) T) error {
	return r.mutate(ctx, func(items []T) ([]T, bool, error) {
		found := false
		for i, it := range items {
			if it.RecordID() == id {
				next := transform(it)
				if next.RecordID() != id {
					return nil, false, fmt.Errorf("update %s/%d: transform changed record id", r.key, id)
				}
				items[i] = next
				found = true
			}
		}
		return items, found, nil
	})
}

// mutate rewrites the collection in one store transaction. fn reports
// whether anything changed; nothing is written when it did not.
func (r *Repository[T]) mutate(ctx context.Context, fn func([]T) ([]T, bool, error)) error {
	return r.store.Update(ctx, []string{r.key}, func(vals storage.Values) (map[string]any, error) {
		items, err := decodeList[T](vals, r.key)
		if err != nil {
			return nil, err
		}
		next, changed, err := fn(items)
		if err != nil || !changed {
			return nil, err
		}
		return map[string]any{r.key: next}, nil
	})
}

// Replace overwrites the whole collection. Used by import and reset.
func (r *Repository[T]) Replace(ctx context.Context, items []T) error {
	if items == nil {
		items = []T{}
	}
	return r.store.Set(ctx, map[string]any{r.key: items})
}

func decodeList[T any](vals storage.Values, key string) ([]T, error) {
	var items []T
	if _, err := vals.Decode(key, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func ids[T Record[T]](items []T) []int64 {
	out := make([]int64, len(items))
	for i, it := range items {
		out[i] = it.RecordID()
	}
	return out
}
