package recovery

import (
	"errors"
	"os"
	"time"
)

// staleAfter is how long a lock file's mtime can go un-renewed before
// another process is allowed to reclaim it.
const staleAfter = 10 * time.Minute

// heartbeatEvery is how often a held lock's mtime should be renewed while
// its segment is being processed.
const heartbeatEvery = 30 * time.Second

// ErrLockContended means a live lock file already exists for a segment; the
// caller should skip that segment this run.
var ErrLockContended = errors.New("recovery: segment lock contended")

// Lock is a sibling "<segment>.lock" file used to coordinate at most one
// recovering process per segment across process boundaries. It carries no
// payload: its mtime alone is the liveness heartbeat, and its mere existence
// is the lock.
type Lock struct {
	path string
	held time.Time
}

// AcquireLock tries to exclusively create segmentPath+".lock". If a lock
// file already exists and its mtime is recent, ErrLockContended is returned
// and the segment should be skipped this run. If it exists but is older
// than staleAfter, it is treated as abandoned by a crashed process: it is
// removed and creation is retried exactly once.
func AcquireLock(segmentPath string) (*Lock, error) {
	path := segmentPath + ".lock"

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err == nil {
		f.Close()
		return &Lock{path: path, held: time.Now()}, nil
	}
	if !os.IsExist(err) {
		return nil, err
	}

	info, statErr := os.Stat(path)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			// Raced with another reclaimer; treat as contended rather than
			// spin.
			return nil, ErrLockContended
		}
		return nil, statErr
	}

	if time.Since(info.ModTime()) < staleAfter {
		return nil, ErrLockContended
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	f, err = os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, ErrLockContended
	}
	f.Close()
	return &Lock{path: path, held: time.Now()}, nil
}

// HeartbeatDue reports whether enough time has passed since the lock was
// acquired or last renewed that it should be touched again.
func (l *Lock) HeartbeatDue() bool {
	return time.Since(l.held) >= heartbeatEvery
}

// Heartbeat renews the lock's mtime so other processes see it as live.
func (l *Lock) Heartbeat() error {
	now := time.Now()
	if err := os.Chtimes(l.path, now, now); err != nil {
		return err
	}
	l.held = now
	return nil
}

// Release removes the lock file, signaling the segment is no longer being
// processed by this process.
func (l *Lock) Release() error {
	err := os.Remove(l.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
