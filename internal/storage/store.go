package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Store is the persistent key-value mapping shared by every component.
type Store interface {
	Get(ctx context.Context, keys ...string) (Values, error)
	Set(ctx context.Context, items map[string]any) error
	// Update reads keys and writes whatever fn returns in one immediate
	// transaction. An error from fn aborts the write and is returned as is.
	Update(ctx context.Context, keys []string, fn func(Values) (map[string]any, error)) error
	// Reset replaces the whole store with items in one transaction.
	Reset(ctx context.Context, items map[string]any) error
	Clear(ctx context.Context) error
	Watch(ctx context.Context) <-chan ChangeSet
	Close() error
}

// SQLiteStore implements Store on a single SQLite table of JSON values.
type SQLiteStore struct {
	db *sql.DB

	mu       sync.Mutex
	watchers map[int]*watcher
	nextID   int
	closed   bool
}

// NewSQLiteStore creates a SQLiteStore from an already-opened and migrated database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, watchers: make(map[int]*watcher)}
}

// DB exposes the underlying handle for status reporting.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Get returns the values stored under keys. With no keys, every key is returned.
// Missing keys are simply absent from the result.
func (s *SQLiteStore) Get(ctx context.Context, keys ...string) (Values, error) {
	vals, err := selectValues(ctx, s.db, keys)
	if err != nil {
		return nil, unavailable("get", err)
	}
	return vals, nil
}

// Set merges items into the store at the top level inside one transaction.
// Keys not named in items are left untouched.
func (s *SQLiteStore) Set(ctx context.Context, items map[string]any) error {
	if len(items) == 0 {
		return nil
	}
	encoded, err := encodeItems("set", items)
	if err != nil {
		return err
	}
	return s.inTx(ctx, "set", func(tx *sql.Tx) (ChangeSet, error) {
		changes, err := writeItems(ctx, tx, encoded)
		if err != nil {
			return nil, unavailable("set", err)
		}
		return changes, nil
	})
}

// Update implements read-modify-write without a window between the read
// and the write. Transactions begin IMMEDIATE (see Open), so a concurrent
// writer in another process waits for the busy timeout instead of
// interleaving.
func (s *SQLiteStore) Update(ctx context.Context, keys []string, fn func(Values) (map[string]any, error)) error {
	return s.inTx(ctx, "update", func(tx *sql.Tx) (ChangeSet, error) {
		vals, err := selectValues(ctx, tx, keys)
		if err != nil {
			return nil, unavailable("update", err)
		}
		items, err := fn(vals)
		if err != nil {
			return nil, err
		}
		if len(items) == 0 {
			return nil, nil
		}
		encoded, err := encodeItems("update", items)
		if err != nil {
			return nil, err
		}
		changes, err := writeItems(ctx, tx, encoded)
		if err != nil {
			return nil, unavailable("update", err)
		}
		return changes, nil
	})
}

// Reset erases every key and writes items. Either both happen or neither.
func (s *SQLiteStore) Reset(ctx context.Context, items map[string]any) error {
	encoded, err := encodeItems("reset", items)
	if err != nil {
		return err
	}
	return s.inTx(ctx, "reset", func(tx *sql.Tx) (ChangeSet, error) {
		changes, err := deleteAll(ctx, tx)
		if err != nil {
			return nil, unavailable("reset", err)
		}
		written, err := writeItems(ctx, tx, encoded)
		if err != nil {
			return nil, unavailable("reset", err)
		}
		for k, ch := range written {
			ch.Old = changes[k].Old
			changes[k] = ch
		}
		return changes, nil
	})
}

// Clear erases every key. Irreversible.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	return s.inTx(ctx, "clear", func(tx *sql.Tx) (ChangeSet, error) {
		changes, err := deleteAll(ctx, tx)
		if err != nil {
			return nil, unavailable("clear", err)
		}
		return changes, nil
	})
}

// inTx runs fn in a transaction and notifies watchers after commit.
func (s *SQLiteStore) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) (ChangeSet, error)) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable(op, err)
	}
	defer tx.Rollback() //nolint:errcheck

	changes, err := fn(tx)
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return unavailable(op, err)
	}

	if len(changes) > 0 {
		s.notify(changes)
	}
	return nil
}

func selectValues(ctx context.Context, q querier, keys []string) (Values, error) {
	query := "SELECT key, value FROM kv"
	args := make([]any, 0, len(keys))
	if len(keys) > 0 {
		query += " WHERE key IN (?" + strings.Repeat(", ?", len(keys)-1) + ")"
		for _, k := range keys {
			args = append(args, k)
		}
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(Values, len(keys))
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		out[key] = json.RawMessage(value)
	}
	return out, rows.Err()
}

func encodeItems(op string, items map[string]any) (map[string]json.RawMessage, error) {
	encoded := make(map[string]json.RawMessage, len(items))
	for k, v := range items {
		if k == "" {
			return nil, fmt.Errorf("%s: empty key", op)
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", k, err)
		}
		encoded[k] = raw
	}
	return encoded, nil
}

func writeItems(ctx context.Context, tx *sql.Tx, encoded map[string]json.RawMessage) (ChangeSet, error) {
	changes := make(ChangeSet, len(encoded))
	now := time.Now().UTC().Format(time.RFC3339Nano)
	for k, raw := range encoded {
		var old sql.NullString
		err := tx.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", k).Scan(&old)
		if err != nil && err != sql.ErrNoRows {
			return nil, err
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
		`, k, string(raw), now); err != nil {
			return nil, err
		}

		ch := Change{New: raw}
		if old.Valid {
			ch.Old = json.RawMessage(old.String)
		}
		changes[k] = ch
	}
	return changes, nil
}

// deleteAll removes every row and reports each one as a removal.
func deleteAll(ctx context.Context, tx *sql.Tx) (ChangeSet, error) {
	rows, err := tx.QueryContext(ctx, "SELECT key, value FROM kv")
	if err != nil {
		return nil, err
	}
	changes := make(ChangeSet)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			rows.Close()
			return nil, err
		}
		changes[key] = Change{Old: json.RawMessage(value)}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM kv"); err != nil {
		return nil, err
	}
	return changes, nil
}

// LastModified returns the most recent write time, or the zero time on an empty store.
func (s *SQLiteStore) LastModified(ctx context.Context) (time.Time, error) {
	var ts sql.NullString
	if err := s.db.QueryRowContext(ctx, "SELECT MAX(updated_at) FROM kv").Scan(&ts); err != nil {
		return time.Time{}, unavailable("last modified", err)
	}
	if !ts.Valid || ts.String == "" {
		return time.Time{}, nil
	}
	return parseTimestamp(ts.String)
}

// Watch subscribes to change notifications. Each subscriber receives every
// change set in commit order; the channel is closed once ctx is done.
func (s *SQLiteStore) Watch(ctx context.Context) <-chan ChangeSet {
	w := newWatcher()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(w.out)
		return w.out
	}
	id := s.nextID
	s.nextID++
	s.watchers[id] = w
	s.mu.Unlock()

	go func() {
		w.pump(ctx)
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}()
	return w.out
}

func (s *SQLiteStore) notify(changes ChangeSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.watchers {
		w.push(changes)
	}
}

// Close stops all watchers. The underlying *sql.DB is NOT closed; that is
// the caller's responsibility.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id, w := range s.watchers {
		w.stop()
		delete(s.watchers, id)
	}
	return nil
}

// parseTimestamp tries several common SQLite timestamp formats.
func parseTimestamp(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse timestamp: %s", s)
}
