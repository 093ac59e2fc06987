// Package watch keeps the project index in step with edits made to the
// projects directory by other processes.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/storyreel/storyreel/internal/reconcile"
	"github.com/storyreel/storyreel/internal/storeerr"
	"github.com/storyreel/storyreel/internal/workspace"
)

// DefaultDebounce is the quiet period used when Options.Debounce is zero.
const DefaultDebounce = 250 * time.Millisecond

// EventOp represents the type of file system operation.
type EventOp int

const (
	// OpCreate indicates a project directory or record appeared.
	OpCreate EventOp = iota
	// OpModify indicates a record was rewritten in place.
	OpModify
	// OpDelete indicates a project directory or record disappeared.
	OpDelete
)

// String returns a human-readable representation of the operation.
func (op EventOp) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpModify:
		return "modify"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Change is one relevant file system event.
type Change struct {
	// Slug is the project directory the change belongs to.
	Slug string
	// Path is the absolute path that changed.
	Path string
	Op   EventOp
}

// Reconciler is the part of the project store the watcher drives.
type Reconciler interface {
	Reconcile(ctx context.Context) (*reconcile.Result, error)
}

// Options configures a Watcher.
type Options struct {
	Debounce time.Duration
	Logger   *zap.SugaredLogger

	// OnReconcile, if set, is called after every reconcile run with the
	// changes that triggered it. A run that finds the workspace busy is
	// retried once after another debounce period and only the retry is
	// reported.
	OnReconcile func(changes []Change, res *reconcile.Result, err error)
}

// Watcher watches the projects directory and reconciles after a burst of
// changes has settled.
type Watcher struct {
	fsw      *fsnotify.Watcher
	dir      string
	target   Reconciler
	debounce time.Duration
	logger   *zap.SugaredLogger
	onRun    func([]Change, *reconcile.Result, error)

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a watcher over projectsDir. It must be started with Start.
func New(projectsDir string, target Reconciler, opts Options) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	abs, err := filepath.Abs(projectsDir)
	if err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("failed to resolve %s: %w", projectsDir, err)
	}
	return &Watcher{
		fsw:      fsw,
		dir:      abs,
		target:   target,
		debounce: opts.Debounce,
		logger:   opts.Logger,
		onRun:    opts.OnReconcile,
	}, nil
}

// Start watches the projects directory and every project directory in it.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("watcher already running")
	}
	if err := w.fsw.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch projects directory %s: %w", w.dir, err)
	}
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", w.dir, err)
	}
	for _, e := range entries {
		if e.IsDir() && !hidden(e.Name()) {
			w.addProject(filepath.Join(w.dir, e.Name()))
		}
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.running = true
	w.wg.Add(1)
	go w.loop(ctx)
	return nil
}

// Stop stops watching and waits for a reconcile in flight to finish.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return w.fsw.Close()
	}
	w.running = false
	w.cancel()
	w.mu.Unlock()

	w.wg.Wait()
	if err := w.fsw.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

// IsRunning returns true if the watcher is currently running.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watcher) addProject(dir string) {
	if err := w.fsw.Add(dir); err != nil {
		w.logger.Warnw("cannot watch project directory", "dir", dir, "error", err)
	}
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	var pending []Change
	retried := false

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			change, ok := w.convertEvent(event)
			if !ok {
				continue
			}
			if change.Op == OpCreate && change.Path == filepath.Join(w.dir, change.Slug) {
				w.addProject(change.Path)
			}
			w.logger.Debugw("projects directory changed", "slug", change.Slug, "op", change.Op.String())
			pending = append(pending, change)
			timer.Reset(w.debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warnw("watcher error", "error", err)

		case <-timer.C:
			changes := pending
			pending = nil
			res, err := w.target.Reconcile(ctx)
			// A CLI command holding the lock usually finishes within one
			// debounce period, so try once more before giving up.
			if errors.Is(err, storeerr.ErrWorkspaceBusy) && !retried {
				w.logger.Infow("workspace busy, retrying reconcile", "changes", len(changes))
				retried = true
				pending = changes
				timer.Reset(w.debounce)
				continue
			}
			retried = false
			if err != nil {
				w.logger.Warnw("reconcile after change failed", "changes", len(changes), "error", err)
			} else {
				w.logger.Infow("reconciled after change", "changes", len(changes), "projects", len(res.Index.Projects))
			}
			if w.onRun != nil {
				w.onRun(changes, res, err)
			}
		}
	}
}

// convertEvent keeps project directory events and project record events,
// and drops temp files, asset churn and chmod.
func (w *Watcher) convertEvent(event fsnotify.Event) (Change, bool) {
	path, err := filepath.Abs(event.Name)
	if err != nil {
		return Change{}, false
	}
	rel, err := filepath.Rel(w.dir, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return Change{}, false
	}
	parts := strings.Split(rel, string(filepath.Separator))
	if hidden(parts[0]) {
		return Change{}, false
	}
	switch {
	case len(parts) == 1:
	case len(parts) == 2 && parts[1] == workspace.ProjectFileName:
	default:
		return Change{}, false
	}

	var op EventOp
	switch {
	case event.Has(fsnotify.Create):
		op = OpCreate
	case event.Has(fsnotify.Write):
		op = OpModify
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		op = OpDelete
	default:
		return Change{}, false
	}
	return Change{Slug: parts[0], Path: path, Op: op}, true
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
