package export

import (
	"context"
	"sync"
	"time"
)

// MockFileLock is an in-memory FileLock for tests.
type MockFileLock struct {
	mu        sync.Mutex
	held      bool
	lockError error

	LockAttempts   int
	UnlockAttempts int
}

// TryLockContext implements FileLock.TryLockContext
func (m *MockFileLock) TryLockContext(ctx context.Context, retryInterval time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LockAttempts++
	if m.lockError != nil {
		return false, m.lockError
	}
	if m.held {
		return false, nil
	}
	m.held = true
	return true, nil
}

// Unlock implements FileLock.Unlock
func (m *MockFileLock) Unlock() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.UnlockAttempts++
	m.held = false
	return nil
}

// IsLocked reports whether the lock is currently held.
func (m *MockFileLock) IsLocked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.held
}

// SetLockError makes subsequent lock attempts fail with err.
func (m *MockFileLock) SetLockError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lockError = err
}

// Hold marks the lock as already taken, so lock attempts report
// contention.
func (m *MockFileLock) Hold() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.held = true
}

// MockFileLockFactory creates MockFileLock instances, one per path.
type MockFileLockFactory struct {
	mu    sync.Mutex
	locks map[string]*MockFileLock

	// DefaultLockError is injected into every lock the factory creates.
	DefaultLockError error
}

// NewMockFileLockFactory creates a new mock factory
func NewMockFileLockFactory() *MockFileLockFactory {
	return &MockFileLockFactory{
		locks: make(map[string]*MockFileLock),
	}
}

// New implements FileLockFactory.New
func (f *MockFileLockFactory) New(path string) FileLock {
	f.mu.Lock()
	defer f.mu.Unlock()

	if lock, exists := f.locks[path]; exists {
		return lock
	}
	lock := &MockFileLock{lockError: f.DefaultLockError}
	f.locks[path] = lock
	return lock
}

// GetLock returns the mock lock created for a path, or nil.
func (f *MockFileLockFactory) GetLock(path string) *MockFileLock {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.locks[path]
}
