package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const (
	// DefaultLockWait bounds how long an invocation waits for another
	// process to finish building the same key before giving up with
	// ErrBusy.
	DefaultLockWait = 2 * time.Minute

	// lockRetry is the polling interval while waiting for the lock.
	lockRetry = 100 * time.Millisecond

	// locksDir is the subdirectory holding per-key lock files. Locks live
	// outside the entry directories so that purging an entry cannot unlink
	// a lock file another process holds; a flock binds to the inode, and a
	// fresh file at the same path would let a second builder through.
	locksDir = "locks"
)

// BuildLock serializes builders of one cache key across processes. The
// underlying flock is tied to the file handle, so the OS releases it when
// the holding process exits for any reason, including a crash mid-build.
type BuildLock struct {
	fl *flock.Flock
}

// AcquireBuildLock takes the exclusive build lock for a key, waiting up to
// wait for a competing holder. A zero wait uses DefaultLockWait. Returns
// ErrBusy if the lock could not be acquired within the bound, or when ctx
// is cancelled first.
func (s *Store) AcquireBuildLock(ctx context.Context, key string, wait time.Duration) (*BuildLock, error) {
	if wait <= 0 {
		wait = DefaultLockWait
	}

	dir := filepath.Join(s.root, locksDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory %s: %w", dir, err)
	}

	fl := flock.New(filepath.Join(dir, key+".lock"))

	lockCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	locked, err := fl.TryLockContext(lockCtx, lockRetry)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, ErrBusy
		}

		return nil, fmt.Errorf("failed to acquire build lock for %s: %w", key, err)
	}
	if !locked {
		return nil, ErrBusy
	}

	return &BuildLock{fl: fl}, nil
}

// Release drops the lock. Safe to call on every exit path; the OS would
// release it anyway when the process exits.
func (l *BuildLock) Release() error {
	return l.fl.Unlock()
}
