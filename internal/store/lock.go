package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"
)

const (
	dirPerms  = 0o750
	filePerms = 0o600
)

// LockTimeout bounds how long a writer waits for the store lock.
const LockTimeout = 2 * time.Second

var errLockTimeout = errors.New("lock timeout")

type fileLock struct {
	path string
	file *os.File
}

// release removes the lock file while still holding the lock, then unlocks.
func (l *fileLock) release() {
	if l.file == nil {
		return
	}

	_ = os.Remove(l.path)
	_ = unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	_ = l.file.Close()
	l.file = nil
}

// withLock runs fn while holding an exclusive flock on lockPath.
func withLock(lockPath string, timeout time.Duration, fn func() error) error {
	lock, err := acquireLock(lockPath, timeout)
	if err != nil {
		return fmt.Errorf("acquiring lock: %w", err)
	}
	defer lock.release()

	return fn()
}

// acquireLock polls for an exclusive lock. After flock succeeds the inode at
// lockPath is compared with the opened file; a mismatch means another holder
// removed and recreated the file, so the attempt is retried.
func acquireLock(lockPath string, timeout time.Duration) (*fileLock, error) {
	if err := os.MkdirAll(filepath.Dir(lockPath), dirPerms); err != nil {
		return nil, fmt.Errorf("creating lock dir: %w", err)
	}

	deadline := time.Now().Add(timeout)

	for {
		file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, filePerms)
		if err != nil {
			return nil, fmt.Errorf("open lock file: %w", err)
		}

		fd := int(file.Fd())

		var opened unix.Stat_t
		if err := unix.Fstat(fd, &opened); err != nil {
			_ = file.Close()

			return nil, fmt.Errorf("fstat lock file: %w", err)
		}

		err = unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			var current unix.Stat_t
			if statErr := unix.Stat(lockPath, &current); statErr == nil && current.Ino == opened.Ino {
				return &fileLock{path: lockPath, file: file}, nil
			}

			_ = unix.Flock(fd, unix.LOCK_UN)
			_ = file.Close()

			continue
		}

		_ = file.Close()

		if !errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("flock: %w", err)
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s", errLockTimeout, lockPath)
		}

		time.Sleep(10 * time.Millisecond)
	}
}
