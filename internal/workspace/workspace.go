// Package workspace resolves the on-disk layout of a storyreel workspace and
// guards access to it.
//
// A workspace root contains the cached index, the projects directory and a
// hidden state directory:
//
//	<root>/
//	  index.json
//	  .storyreel/          catalog.db, lock, storyreel.log
//	  projects/<slug>/
//	    project.json
//	    images/
//	    attachments/
package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/storyreel/storyreel/internal/schema"
	"github.com/storyreel/storyreel/internal/storeerr"
)

const (
	IndexFileName      = "index.json"
	ProjectsDirName    = "projects"
	StateDirName       = ".storyreel"
	ProjectFileName    = "project.json"
	ImagesDirName      = "images"
	AttachmentsDirName = "attachments"
	CatalogFileName    = "catalog.db"
	LockFileName       = "lock"
	LogFileName        = "storyreel.log"
)

// Workspace is an opened workspace root.
type Workspace struct {
	Root string
	gate Gate
}

// Open resolves root and asks gate whether it is writable. When it is not,
// PermissionDenied is returned and nothing is created.
func Open(root string, gate Gate) (*Workspace, error) {
	if root == "" {
		return nil, storeerr.Validation("open workspace", "workspace root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace root %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, storeerr.NotFoundCause("open workspace", err, "workspace root %s", abs)
	}
	if !info.IsDir() {
		return nil, storeerr.Validation("open workspace", "%s is not a directory", abs)
	}
	if gate == nil {
		gate = DefaultGate()
	}

	ws := &Workspace{Root: abs, gate: gate}
	if err := ws.RequireWritable("open workspace"); err != nil {
		return nil, err
	}
	return ws, nil
}

// Init creates the projects directory, the state directory and an empty
// index when they are missing. Existing content is left alone.
func (w *Workspace) Init() error {
	if err := w.RequireWritable("init workspace"); err != nil {
		return err
	}
	for _, dir := range []string{w.ProjectsDir(), w.StateDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return storeerr.IO("init workspace", dir, err)
		}
	}
	if _, err := os.Stat(w.IndexPath()); os.IsNotExist(err) {
		if err := schema.WriteIndexFile(w.IndexPath(), schema.NewIndex()); err != nil {
			return err
		}
	}
	return nil
}

// RequireWritable consults the permission gate and returns PermissionDenied
// when the root is not writable.
func (w *Workspace) RequireWritable(op string) error {
	ok, err := w.gate.EnsureWritable(w.Root)
	if err != nil {
		return &storeerr.Error{Kind: storeerr.ErrPermissionDenied, Op: op, Msg: w.Root, Err: err}
	}
	if !ok {
		return storeerr.PermissionDenied(op, w.Root)
	}
	return nil
}

func (w *Workspace) IndexPath() string   { return filepath.Join(w.Root, IndexFileName) }
func (w *Workspace) ProjectsDir() string { return filepath.Join(w.Root, ProjectsDirName) }
func (w *Workspace) StateDir() string    { return filepath.Join(w.Root, StateDirName) }
func (w *Workspace) CatalogPath() string { return filepath.Join(w.StateDir(), CatalogFileName) }
func (w *Workspace) LogPath() string     { return filepath.Join(w.StateDir(), LogFileName) }

// ProjectDir returns the directory of the project stored under slug.
func (w *Workspace) ProjectDir(slug string) string {
	return filepath.Join(w.ProjectsDir(), slug)
}

// ProjectFile returns the path of the project record stored under slug.
func (w *Workspace) ProjectFile(slug string) string {
	return filepath.Join(w.ProjectDir(slug), ProjectFileName)
}

// ImagesDir returns the primary-image directory of the project under slug.
func (w *Workspace) ImagesDir(slug string) string {
	return filepath.Join(w.ProjectDir(slug), ImagesDirName)
}

// AttachmentsDir returns the attachment directory of the project under slug.
func (w *Workspace) AttachmentsDir(slug string) string {
	return filepath.Join(w.ProjectDir(slug), AttachmentsDirName)
}
