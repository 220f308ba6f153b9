package diskv

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"syscall"
)

// lockFileName is the flock target under the base path. It is a dotfile so
// [DiskStore.Keys] never reports it as a key.
const lockFileName = ".diskv.lock"

const lockFilePerm = 0o600

// dirLock holds an exclusive flock(2) on the base path's lock file for the
// lifetime of a Diskv, so two processes never mutate the same store. flock
// is advisory: it only excludes other cooperating diskv instances, not
// arbitrary writers.
//
// In-process coordination is the Diskv mutex - goroutines in one process
// share this single flock.
//
// This implementation is Unix-only.
type dirLock struct {
	mu   sync.Mutex
	file *os.File
}

// acquireDirLock takes the flock non-blocking. A held lock means another
// live store instance owns the base path, which is a configuration problem
// rather than contention worth waiting out, so it fails fast with
// [ErrLocked] instead of polling.
func acquireDirLock(path string) (*dirLock, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, lockFilePerm) //nolint:gosec // path derives from Options.BasePath
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}

	err = flockRetryEINTR(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	if err != nil {
		_ = file.Close()

		if isWouldBlock(err) {
			return nil, ErrLocked
		}

		return nil, fmt.Errorf("flock: %w", err)
	}

	return &dirLock{file: file}, nil
}

// release unlocks and closes the lock file.
//
// release is idempotent - subsequent calls return nil. On Unix, closing the
// descriptor typically releases the flock even if the explicit unlock
// failed, so errors here are cleanup noise: worth returning, rarely worth
// acting on.
func (l *dirLock) release() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}

	fd := int(l.file.Fd())

	unlockErr := flockRetryEINTR(fd, syscall.LOCK_UN)
	closeErr := l.file.Close()
	l.file = nil

	if unlockErr != nil {
		unlockErr = fmt.Errorf("unlocking lock file: %w", unlockErr)
	}

	if closeErr != nil {
		closeErr = fmt.Errorf("closing lock file: %w", closeErr)
	}

	return errors.Join(unlockErr, closeErr)
}

func isWouldBlock(err error) bool {
	return errors.Is(err, syscall.EWOULDBLOCK) || errors.Is(err, syscall.EAGAIN)
}

// flockRetryEINTR wraps flock, retrying on EINTR.
//
// EINTR means the syscall was interrupted by a signal before it could
// complete - common on Unix (SIGWINCH, SIGCHLD, timers). The syscall didn't
// fail, it just needs to be retried. Retries are capped to avoid spinning
// under pathological signal storms; the cap should never be hit in practice.
func flockRetryEINTR(fd int, how int) error {
	const maxEINTRRetries = 10000

	var err error
	for range maxEINTRRetries {
		err = syscall.Flock(fd, how)
		if err == nil || !errors.Is(err, syscall.EINTR) {
			return err
		}
	}

	return err
}
