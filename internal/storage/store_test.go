package storage

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestStore creates a migrated store in a temporary directory.
func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, db, err := Open(context.Background(), Options{
		Driver:      DriverCGO,
		Path:        filepath.Join(t.TempDir(), "test.db"),
		JournalMode: "wal",
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
		db.Close()
	})
	return store
}

func TestGet_MissingKeysAreAbsent(t *testing.T) {
	store := openTestStore(t)

	vals, err := store.Get(context.Background(), KeySavedLinks, KeyTasks)
	require.NoError(t, err)
	assert.Empty(t, vals)
	assert.False(t, vals.Has(KeySavedLinks))

	var links []int
	found, err := vals.Decode(KeySavedLinks, &links)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSet_MergesAtTopLevel(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, map[string]any{
		KeySavedLinks: []string{"a"},
		KeySavedNotes: []string{"n"},
	}))
	require.NoError(t, store.Set(ctx, map[string]any{KeySavedLinks: []string{"b", "a"}}))

	vals, err := store.Get(ctx, KeySavedLinks, KeySavedNotes)
	require.NoError(t, err)

	var links, notes []string
	_, err = vals.Decode(KeySavedLinks, &links)
	require.NoError(t, err)
	_, err = vals.Decode(KeySavedNotes, &notes)
	require.NoError(t, err)

	assert.Equal(t, []string{"b", "a"}, links)
	assert.Equal(t, []string{"n"}, notes, "writing savedLinks must not disturb savedNotes")
}

func TestGet_NoKeysReturnsEverything(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, map[string]any{KeyVersion: "1.0.0", KeyInstallTime: 42}))

	vals, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Len(t, vals, 2)
	assert.JSONEq(t, `"1.0.0"`, string(vals[KeyVersion]))
}

func TestValues_NullIsAbsent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, map[string]any{KeyTasks: nil}))

	vals, err := store.Get(ctx, KeyTasks)
	require.NoError(t, err)
	assert.False(t, vals.Has(KeyTasks))
}

func TestClear_RemovesAllKeys(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, map[string]any{KeyVersion: "1", KeyTasks: []int{}}))
	require.NoError(t, store.Clear(ctx))

	vals, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, vals)
}

func TestUpdate_WritesWhatFnReturns(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, map[string]any{KeyTasks: []int{1}}))

	changes := store.Watch(ctx)
	err := store.Update(ctx, []string{KeyTasks}, func(vals Values) (map[string]any, error) {
		var tasks []int
		_, err := vals.Decode(KeyTasks, &tasks)
		require.NoError(t, err)
		return map[string]any{KeyTasks: append([]int{2}, tasks...)}, nil
	})
	require.NoError(t, err)

	cs := receive(t, changes)
	assert.JSONEq(t, `[1]`, string(cs[KeyTasks].Old))
	assert.JSONEq(t, `[2,1]`, string(cs[KeyTasks].New))
}

func TestUpdate_FnErrorAbortsWrite(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, map[string]any{KeyVersion: "1"}))

	boom := errors.New("boom")
	err := store.Update(ctx, []string{KeyVersion}, func(Values) (map[string]any, error) {
		return map[string]any{KeyVersion: "2"}, boom
	})
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrStoreUnavailable)

	vals, err := store.Get(ctx, KeyVersion)
	require.NoError(t, err)
	assert.JSONEq(t, `"1"`, string(vals[KeyVersion]))
}

// Two handles on one file stand in for two processes. Every increment must
// survive.
func TestUpdate_ConcurrentHandlesOnOneFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")
	ctx := context.Background()

	var stores []*SQLiteStore
	for range 2 {
		store, db, err := Open(ctx, Options{Driver: DriverCGO, Path: path, JournalMode: "wal"})
		require.NoError(t, err)
		t.Cleanup(func() {
			store.Close()
			db.Close()
		})
		stores = append(stores, store)
	}

	const perStore = 150
	var wg sync.WaitGroup
	errs := make(chan error, 2*perStore)
	for _, store := range stores {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perStore {
				errs <- store.Update(ctx, []string{KeyIDSequence}, func(vals Values) (map[string]any, error) {
					var n int
					if _, err := vals.Decode(KeyIDSequence, &n); err != nil {
						return nil, err
					}
					return map[string]any{KeyIDSequence: n + 1}, nil
				})
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	vals, err := stores[0].Get(ctx, KeyIDSequence)
	require.NoError(t, err)
	var n int
	_, err = vals.Decode(KeyIDSequence, &n)
	require.NoError(t, err)
	assert.Equal(t, 2*perStore, n)
}

func TestReset_ReplacesEverythingInOneChangeSet(t *testing.T) {
	store := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, store.Set(ctx, map[string]any{KeyTasks: []int{1}, KeyVersion: "1"}))

	changes := store.Watch(ctx)
	require.NoError(t, store.Reset(ctx, map[string]any{KeyTasks: []int{}}))

	cs := receive(t, changes)
	assert.JSONEq(t, `[1]`, string(cs[KeyTasks].Old))
	assert.JSONEq(t, `[]`, string(cs[KeyTasks].New))
	assert.JSONEq(t, `"1"`, string(cs[KeyVersion].Old))
	assert.Nil(t, cs[KeyVersion].New)

	vals, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Len(t, vals, 1)
}

func TestReset_BadItemKeepsExistingData(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, map[string]any{KeyTasks: []int{1}}))

	err := store.Reset(ctx, map[string]any{KeyVersion: "2", KeyTasks: make(chan int)})
	require.Error(t, err)

	vals, err := store.Get(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `[1]`, string(vals[KeyTasks]))
	assert.False(t, vals.Has(KeyVersion))
}

func TestSet_EmptyKeyRejected(t *testing.T) {
	store := openTestStore(t)
	err := store.Set(context.Background(), map[string]any{"": 1})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrStoreUnavailable)
}

func TestWatch_DeliversOldAndNewValues(t *testing.T) {
	store := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := store.Watch(ctx)

	require.NoError(t, store.Set(ctx, map[string]any{KeyVersion: "1"}))
	require.NoError(t, store.Set(ctx, map[string]any{KeyVersion: "2"}))

	first := receive(t, changes)
	assert.Nil(t, first[KeyVersion].Old)
	assert.JSONEq(t, `"1"`, string(first[KeyVersion].New))

	second := receive(t, changes)
	assert.JSONEq(t, `"1"`, string(second[KeyVersion].Old))
	assert.JSONEq(t, `"2"`, string(second[KeyVersion].New))
}

func TestWatch_ClearReportsRemovedKeys(t *testing.T) {
	store := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, store.Set(ctx, map[string]any{KeyTasks: []int{1}}))
	changes := store.Watch(ctx)
	require.NoError(t, store.Clear(ctx))

	cs := receive(t, changes)
	assert.True(t, cs.Touches(KeyTasks))
	assert.Nil(t, cs[KeyTasks].New)
	assert.JSONEq(t, `[1]`, string(cs[KeyTasks].Old))
}

func TestWatch_ClosesWhenContextEnds(t *testing.T) {
	store := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	changes := store.Watch(ctx)
	cancel()

	select {
	case _, ok := <-changes:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("watch channel not closed")
	}
}

func TestWatch_MultipleSubscribers(t *testing.T) {
	store := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := store.Watch(ctx)
	b := store.Watch(ctx)
	require.NoError(t, store.Set(ctx, map[string]any{KeySavedNotes: []int{}}))

	assert.True(t, receive(t, a).Touches(KeySavedNotes))
	assert.True(t, receive(t, b).Touches(KeySavedNotes))
}

func TestLastModified(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	ts, err := store.LastModified(ctx)
	require.NoError(t, err)
	assert.True(t, ts.IsZero())

	require.NoError(t, store.Set(ctx, map[string]any{KeyVersion: "1"}))
	ts, err = store.LastModified(ctx)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), ts, time.Minute)
}

func TestUnavailableError_IsStoreUnavailable(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.DB().Close())

	_, err := store.Get(context.Background(), KeyTasks)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	err = store.Set(context.Background(), map[string]any{KeyTasks: []int{}})
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestOpen_PureGoDriver(t *testing.T) {
	store, db, err := Open(context.Background(), Options{
		Driver: DriverPureGo,
		Path:   filepath.Join(t.TempDir(), "pure.db"),
	})
	require.NoError(t, err)
	defer db.Close()
	defer store.Close()

	require.NoError(t, store.Set(context.Background(), map[string]any{KeyVersion: "x"}))
	vals, err := store.Get(context.Background(), KeyVersion)
	require.NoError(t, err)
	var v string
	_, err = vals.Decode(KeyVersion, &v)
	require.NoError(t, err)
	assert.Equal(t, "x", v)
}

func TestOpen_SetsBusyTimeout(t *testing.T) {
	for _, driver := range []string{DriverCGO, DriverPureGo} {
		t.Run(driver, func(t *testing.T) {
			store, db, err := Open(context.Background(), Options{
				Driver:      driver,
				Path:        filepath.Join(t.TempDir(), "busy.db"),
				BusyTimeout: 1500 * time.Millisecond,
			})
			require.NoError(t, err)
			defer db.Close()
			defer store.Close()

			var ms int
			require.NoError(t, db.QueryRow("PRAGMA busy_timeout").Scan(&ms))
			assert.Equal(t, 1500, ms)
		})
	}

	store, db, err := Open(context.Background(), Options{Path: filepath.Join(t.TempDir(), "default.db")})
	require.NoError(t, err)
	defer db.Close()
	defer store.Close()
	var ms int
	require.NoError(t, db.QueryRow("PRAGMA busy_timeout").Scan(&ms))
	assert.Equal(t, int(DefaultBusyTimeout.Milliseconds()), ms)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, _, err := Open(context.Background(), Options{Driver: "postgres", Path: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown sqlite driver")
}

func receive(t *testing.T, ch <-chan ChangeSet) ChangeSet {
	t.Helper()
	select {
	case cs, ok := <-ch:
		require.True(t, ok, "watch channel closed early")
		return cs
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change notification")
		return nil
	}
}

func TestChangeSet_Keys(t *testing.T) {
	cs := ChangeSet{KeyTasks: {New: json.RawMessage(`[]`)}}
	assert.Equal(t, []string{KeyTasks}, cs.Keys())
}
