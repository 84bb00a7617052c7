package storage

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3" // cgo driver, registered as "sqlite3"
	_ "modernc.org/sqlite"          // pure go driver, registered as "sqlite"
)

// Supported database/sql driver names.
const (
	DriverCGO    = "sqlite3"
	DriverPureGo = "sqlite"
)

// DefaultBusyTimeout is how long a writer waits for another connection's
// write lock before giving up with "database is locked".
const DefaultBusyTimeout = 5 * time.Second

// Options selects and tunes the backing database.
type Options struct {
	Driver      string
	Path        string // file path, or ":memory:"
	JournalMode string
	BusyTimeout time.Duration // zero means DefaultBusyTimeout
}

// Open opens the database, applies migrations and returns a ready store
// together with the underlying *sql.DB, which the caller must close.
func Open(ctx context.Context, opts Options) (*SQLiteStore, *sql.DB, error) {
	driver := opts.Driver
	if driver == "" {
		driver = DriverCGO
	}
	if driver != DriverCGO && driver != DriverPureGo {
		return nil, nil, fmt.Errorf("unknown sqlite driver %q", driver)
	}
	if opts.Path == "" {
		return nil, nil, fmt.Errorf("database path required")
	}

	if opts.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	busy := opts.BusyTimeout
	if busy <= 0 {
		busy = DefaultBusyTimeout
	}

	db, err := sql.Open(driver, dataSourceName(driver, opts.Path, busy))
	if err != nil {
		return nil, nil, unavailable("open", err)
	}
	// One connection keeps ":memory:" databases coherent and serializes
	// writers at the connection level.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, unavailable("open", err)
	}

	runner := NewMigrationRunner(db, opts.JournalMode)
	if err := runner.Run(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}

	return NewSQLiteStore(db), db, nil
}

// dataSourceName appends connection parameters to path. Every transaction
// begins IMMEDIATE so read-modify-write cycles take the write lock up front,
// and both drivers get the same busy timeout.
func dataSourceName(driver, path string, busy time.Duration) string {
	q := url.Values{}
	q.Set("_txlock", "immediate")
	ms := strconv.FormatInt(busy.Milliseconds(), 10)
	if driver == DriverCGO {
		q.Set("_busy_timeout", ms)
	} else {
		q.Set("_pragma", "busy_timeout("+ms+")")
	}
	return path + "?" + q.Encode()
}
