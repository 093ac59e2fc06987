package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/storyreel/storyreel/internal/storeerr"
)

// Lock is the exclusive session lock on a workspace. Only one process may
// mutate a workspace at a time; all mutations inside that process are
// funnelled through a single open project.
type Lock struct {
	flock *flock.Flock
}

// AcquireLock takes the workspace lock without blocking. If another process
// holds it, ErrWorkspaceBusy is returned.
func (w *Workspace) AcquireLock() (*Lock, error) {
	if err := w.RequireWritable("lock workspace"); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(w.StateDir(), 0o755); err != nil {
		return nil, storeerr.IO("lock workspace", w.StateDir(), err)
	}

	lockPath := filepath.Join(w.StateDir(), LockFileName)
	fl := flock.New(lockPath)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, storeerr.IO("lock workspace", lockPath, err)
	}
	if !locked {
		return nil, &storeerr.Error{
			Kind: storeerr.ErrWorkspaceBusy,
			Op:   "lock workspace",
			Msg:  fmt.Sprintf("%s is in use by another storyreel process", w.Root),
		}
	}
	return &Lock{flock: fl}, nil
}

// Release drops the lock. Safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.flock == nil {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release workspace lock: %w", err)
	}
	l.flock = nil
	return nil
}
