package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrStoreLocked is returned when another process already runs a
// coordinator on the same database.
var ErrStoreLocked = errors.New("store is owned by another process")

// OwnerLock is an exclusive advisory lock on a file beside the database.
// The process holding it is the only one allowed to run a coordinator.
type OwnerLock struct {
	fl *flock.Flock
}

// LockPath returns the lock file guarding the database at dbPath.
func LockPath(dbPath string) string {
	return dbPath + ".lock"
}

// AcquireOwner takes the owner lock for dbPath without waiting. An
// in-memory database is private to its process and needs no lock.
func AcquireOwner(dbPath string) (*OwnerLock, error) {
	if dbPath == ":memory:" {
		return &OwnerLock{}, nil
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	fl := flock.New(LockPath(dbPath))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", fl.Path(), err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (%s)", ErrStoreLocked, fl.Path())
	}
	return &OwnerLock{fl: fl}, nil
}

// Release gives the lock up. Safe to call more than once.
func (l *OwnerLock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}
