// Package runlock keeps two processes from scanning the same folder at once.
package runlock

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrLocked reports that another process holds the lock for the root.
var ErrLocked = errors.New("another scan of this folder is running")

// Lock is a held per-root lock. Release it when the scan ends.
type Lock struct {
	path string
	root string
	lock *flock.Flock
}

// PathFor returns the lock file used for root under lockDir.
func PathFor(lockDir, root string) string {
	sum := sha1.Sum([]byte(filepath.Clean(root)))
	return filepath.Join(lockDir, hex.EncodeToString(sum[:])+".lock")
}

// Acquire takes a non-blocking exclusive lock for root. It fails fast with
// ErrLocked when the lock is already held.
func Acquire(lockDir, root string) (*Lock, error) {
	if err := os.MkdirAll(lockDir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	path := PathFor(lockDir, root)
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, root)
	}
	return &Lock{path: path, root: root, lock: fl}, nil
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	return l.path
}

// Release drops the lock. Safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}
