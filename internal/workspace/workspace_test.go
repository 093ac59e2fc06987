package workspace

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/storyreel/storyreel/internal/schema"
	"github.com/storyreel/storyreel/internal/storeerr"
)

func TestOpenAndInit(t *testing.T) {
	root := t.TempDir()

	ws, err := Open(root, AllowAll)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := ws.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	for _, dir := range []string{ws.ProjectsDir(), ws.StateDir()} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Errorf("expected directory %s to exist", dir)
		}
	}
	ix, err := schema.ReadIndexFile(ws.IndexPath())
	if err != nil {
		t.Fatalf("index not readable after Init: %v", err)
	}
	if len(ix.Projects) != 0 {
		t.Errorf("fresh index should be empty, got %d entries", len(ix.Projects))
	}

	if got, want := ws.ImagesDir("demo"), filepath.Join(ws.Root, "projects", "demo", "images"); got != want {
		t.Errorf("ImagesDir = %s, want %s", got, want)
	}
	if got, want := ws.ProjectFile("demo"), filepath.Join(ws.Root, "projects", "demo", "project.json"); got != want {
		t.Errorf("ProjectFile = %s, want %s", got, want)
	}
}

func TestInitKeepsExistingIndex(t *testing.T) {
	root := t.TempDir()
	ws, err := Open(root, AllowAll)
	if err != nil {
		t.Fatal(err)
	}

	ix := schema.NewIndex()
	ix.Upsert(schema.ProjectSummary{ID: "keep", Slug: "keep"})
	if err := schema.WriteIndexFile(ws.IndexPath(), ix); err != nil {
		t.Fatal(err)
	}
	if err := ws.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	got, err := schema.ReadIndexFile(ws.IndexPath())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := got.Find("keep"); !ok {
		t.Error("Init overwrote an existing index")
	}
}

func TestOpenDeniedCreatesNothing(t *testing.T) {
	root := t.TempDir()

	_, err := Open(root, DenyAll)
	if !errors.Is(err, storeerr.ErrPermissionDenied) {
		t.Fatalf("Open with DenyAll: got %v, want ErrPermissionDenied", err)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("denied open created %d entries", len(entries))
	}
}

func TestOpenMissingRoot(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "absent"), AllowAll)
	if !errors.Is(err, storeerr.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
	if _, err := Open("", AllowAll); !errors.Is(err, storeerr.ErrValidation) {
		t.Errorf("empty root: got %v, want ErrValidation", err)
	}
}

func TestDefaultGateOnWritableDir(t *testing.T) {
	ok, err := DefaultGate().EnsureWritable(t.TempDir())
	if err != nil {
		t.Fatalf("EnsureWritable failed: %v", err)
	}
	if !ok {
		t.Error("temp dir should be writable")
	}
}

func TestLockIsExclusive(t *testing.T) {
	ws, err := Open(t.TempDir(), AllowAll)
	if err != nil {
		t.Fatal(err)
	}

	first, err := ws.AcquireLock()
	if err != nil {
		t.Fatalf("first AcquireLock failed: %v", err)
	}

	if _, err := ws.AcquireLock(); !errors.Is(err, storeerr.ErrWorkspaceBusy) {
		t.Errorf("second AcquireLock: got %v, want ErrWorkspaceBusy", err)
	}

	if err := first.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if err := first.Release(); err != nil {
		t.Errorf("second Release should be a no-op, got %v", err)
	}

	again, err := ws.AcquireLock()
	if err != nil {
		t.Fatalf("AcquireLock after release failed: %v", err)
	}
	_ = again.Release()
}
