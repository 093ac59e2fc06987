package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storyreel/storyreel/internal/reconcile"
	"github.com/storyreel/storyreel/internal/schema"
	"github.com/storyreel/storyreel/internal/storeerr"
)

type countingReconciler struct {
	mu    sync.Mutex
	calls int
}

func (c *countingReconciler) Reconcile(ctx context.Context) (*reconcile.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return &reconcile.Result{Index: schema.NewIndex()}, nil
}

// busyReconciler reports a held workspace lock for the first busy calls.
type busyReconciler struct {
	countingReconciler
	busy int
}

func (b *busyReconciler) Reconcile(ctx context.Context) (*reconcile.Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	if b.calls <= b.busy {
		return nil, &storeerr.Error{Kind: storeerr.ErrWorkspaceBusy, Op: "reconcile", Msg: "workspace is locked by another process"}
	}
	return &reconcile.Result{Index: schema.NewIndex()}, nil
}

func startWatcher(t *testing.T, dir string, target Reconciler) <-chan []Change {
	t.Helper()
	runs := make(chan []Change, 10)
	w, err := New(dir, target, Options{
		Debounce: 50 * time.Millisecond,
		OnReconcile: func(changes []Change, _ *reconcile.Result, _ error) {
			runs <- changes
		},
	})
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	require.True(t, w.IsRunning())
	t.Cleanup(func() {
		require.NoError(t, w.Stop())
		assert.False(t, w.IsRunning())
	})
	return runs
}

func waitRun(t *testing.T, runs <-chan []Change) []Change {
	t.Helper()
	select {
	case changes := <-runs:
		return changes
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for reconcile")
		return nil
	}
}

func TestWatcherReconcilesOnNewProject(t *testing.T) {
	dir := t.TempDir()
	target := &countingReconciler{}
	runs := startWatcher(t, dir, target)

	require.NoError(t, os.Mkdir(filepath.Join(dir, "night-train"), 0o755))
	changes := waitRun(t, runs)

	require.NotEmpty(t, changes)
	assert.Equal(t, "night-train", changes[0].Slug)
	assert.Equal(t, OpCreate, changes[0].Op)
}

func TestWatcherFollowsRecordWritesInExistingProject(t *testing.T) {
	dir := t.TempDir()
	project := filepath.Join(dir, "alpha")
	require.NoError(t, os.Mkdir(project, 0o755))
	runs := startWatcher(t, dir, &countingReconciler{})

	require.NoError(t, os.WriteFile(filepath.Join(project, "project.json"), []byte("{}"), 0o644))
	changes := waitRun(t, runs)
	require.NotEmpty(t, changes)
	assert.Equal(t, "alpha", changes[0].Slug)
}

func TestWatcherDebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	target := &countingReconciler{}
	runs := startWatcher(t, dir, target)

	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, os.Mkdir(filepath.Join(dir, name), 0o755))
	}
	changes := waitRun(t, runs)
	assert.Len(t, changes, 3)

	select {
	case extra := <-runs:
		t.Fatalf("unexpected second reconcile with %v", extra)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestConvertEvent(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, &countingReconciler{}, Options{})
	require.NoError(t, err)
	defer w.Stop()

	tests := []struct {
		name  string
		path  string
		op    fsnotify.Op
		keep  bool
		want  EventOp
		wantS string
	}{
		{"project dir created", "alpha", fsnotify.Create, true, OpCreate, "alpha"},
		{"project dir removed", "alpha", fsnotify.Remove, true, OpDelete, "alpha"},
		{"record written", "alpha/project.json", fsnotify.Write, true, OpModify, "alpha"},
		{"record renamed away", "alpha/project.json", fsnotify.Rename, true, OpDelete, "alpha"},
		{"temp file", "alpha/.project.json.tmp-123", fsnotify.Create, false, 0, ""},
		{"image", "alpha/images/s1.png", fsnotify.Create, false, 0, ""},
		{"hidden dir", ".trash", fsnotify.Create, false, 0, ""},
		{"chmod", "alpha/project.json", fsnotify.Chmod, false, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := w.convertEvent(fsnotify.Event{Name: filepath.Join(dir, filepath.FromSlash(tt.path)), Op: tt.op})
			require.Equal(t, tt.keep, ok)
			if ok {
				assert.Equal(t, tt.want, c.Op)
				assert.Equal(t, tt.wantS, c.Slug)
			}
		})
	}

	_, ok := w.convertEvent(fsnotify.Event{Name: filepath.Dir(dir), Op: fsnotify.Create})
	assert.False(t, ok)
}

func TestStartTwice(t *testing.T) {
	w, err := New(t.TempDir(), &countingReconciler{}, Options{})
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()
	assert.Error(t, w.Start(context.Background()))
}

func TestWatcherRetriesOnceWhenWorkspaceBusy(t *testing.T) {
	dir := t.TempDir()
	target := &busyReconciler{busy: 1}

	type run struct {
		changes []Change
		err     error
	}
	runs := make(chan run, 10)
	w, err := New(dir, target, Options{
		Debounce: 50 * time.Millisecond,
		OnReconcile: func(changes []Change, _ *reconcile.Result, err error) {
			runs <- run{changes, err}
		},
	})
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(func() { require.NoError(t, w.Stop()) })

	require.NoError(t, os.Mkdir(filepath.Join(dir, "night-train"), 0o755))

	select {
	case r := <-runs:
		require.NoError(t, r.err)
		require.NotEmpty(t, r.changes)
		assert.Equal(t, "night-train", r.changes[0].Slug)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for reconcile")
	}

	target.mu.Lock()
	assert.Equal(t, 2, target.calls)
	target.mu.Unlock()
}

func TestWatcherReportsBusyAfterRetry(t *testing.T) {
	dir := t.TempDir()
	target := &busyReconciler{busy: 10}

	errs := make(chan error, 10)
	w, err := New(dir, target, Options{
		Debounce: 50 * time.Millisecond,
		OnReconcile: func(_ []Change, _ *reconcile.Result, err error) {
			errs <- err
		},
	})
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(func() { require.NoError(t, w.Stop()) })

	require.NoError(t, os.Mkdir(filepath.Join(dir, "night-train"), 0o755))

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, storeerr.ErrWorkspaceBusy)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for reconcile")
	}
	target.mu.Lock()
	assert.Equal(t, 2, target.calls)
	target.mu.Unlock()
}
