package export

import (
	"context"
	"time"

	"github.com/gofrs/flock"
)

// FileLock guards an output path against concurrent writers.
type FileLock interface {
	// TryLockContext retries acquisition at the given interval until
	// the lock is held or the context is done.
	TryLockContext(ctx context.Context, retryInterval time.Duration) (bool, error)

	// Unlock releases the lock.
	Unlock() error
}

// FileLockFactory creates the lock for an output path. Tests substitute
// in-memory locks.
type FileLockFactory interface {
	New(path string) FileLock
}

// FlockFactory is the default factory, locking through gofrs/flock.
type FlockFactory struct{}

// New returns an advisory lock on path.
func (FlockFactory) New(path string) FileLock {
	return flock.New(path)
}
