package main

import (
	"context"
	"errors"
	"os"

	"github.com/storyreel/storyreel/internal/assets"
	"github.com/storyreel/storyreel/internal/catalog"
	"github.com/storyreel/storyreel/internal/notify"
	"github.com/storyreel/storyreel/internal/project"
	"github.com/storyreel/storyreel/internal/schema"
	"github.com/storyreel/storyreel/internal/storeerr"
	"github.com/storyreel/storyreel/internal/workspace"
)

// app is everything one command needs: the workspace, its lock when the
// command mutates, the catalog and the store.
type app struct {
	ws      *workspace.Workspace
	store   *project.Store
	lock    *workspace.Lock
	catalog *catalog.DB
}

type openOptions struct {
	// mutating commands hold the workspace lock until Close.
	mutating bool
	// init creates the workspace layout when it is missing.
	init     bool
	notifier notify.Notifier
	previews *assets.PreviewCache
	root     string
}

func preferences() *workspace.Preferences {
	prefs, err := workspace.DefaultPreferences()
	if err != nil {
		logger.Debugw("preferences unavailable", "error", err)
		return nil
	}
	return prefs
}

// resolveRoot picks the workspace root: explicit value, flag/env/config,
// then the remembered root.
func resolveRoot(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if cfg.Root != "" {
		return cfg.Root, nil
	}
	if prefs := preferences(); prefs != nil {
		root, ok, err := prefs.Get(workspace.LastRootKey)
		if err != nil {
			logger.Warnw("cannot read preferences", "path", prefs.Path(), "error", err)
		}
		if ok && root != "" {
			return root, nil
		}
	}
	return "", storeerr.Validation("resolve workspace", "no workspace root; pass --root or run 'storyreel init <dir>'")
}

func rememberRoot(root string) {
	prefs := preferences()
	if prefs == nil {
		return
	}
	if err := prefs.Put(workspace.LastRootKey, root); err != nil {
		logger.Warnw("cannot remember workspace root", "path", prefs.Path(), "error", err)
	}
}

func openApp(ctx context.Context, opts openOptions) (*app, error) {
	root, err := resolveRoot(opts.root)
	if err != nil {
		return nil, err
	}
	if opts.init {
		if err := os.MkdirAll(root, 0o755); err != nil {
			return nil, storeerr.IO("init workspace", root, err)
		}
	}
	ws, err := workspace.Open(root, nil)
	if err != nil {
		return nil, err
	}
	if opts.init {
		if err := ws.Init(); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat(ws.ProjectsDir()); errors.Is(err, os.ErrNotExist) {
		return nil, storeerr.NotFound("open workspace", "%s is not a storyreel workspace; run 'storyreel init %s'", ws.Root, ws.Root)
	}

	if err := setupLogging(ws.LogPath()); err != nil {
		return nil, err
	}
	log := logger.With("root", ws.Root)

	a := &app{ws: ws}
	if opts.mutating {
		if a.lock, err = ws.AcquireLock(); err != nil {
			return nil, err
		}
	}

	var cat project.Catalog
	if cfg.CatalogEnabled {
		if db, err := openCatalog(ctx, ws.CatalogPath()); err != nil {
			log.Warnw("catalog unavailable, searching the index instead", "error", err)
		} else {
			a.catalog = db
			cat = db
		}
	}

	a.store = project.NewStore(ws, project.Options{
		Catalog:     cat,
		Notifier:    opts.notifier,
		Previews:    opts.previews,
		Logger:      logger.SugaredLogger,
		DeleteOrder: cfg.DeleteOrder,
	})
	if err := a.store.Load(ctx); err != nil {
		a.Close()
		return nil, err
	}
	rememberRoot(ws.Root)
	return a, nil
}

func openCatalog(ctx context.Context, path string) (*catalog.DB, error) {
	db, err := catalog.Open(path, logger.SugaredLogger)
	if err != nil {
		return nil, err
	}
	if err := db.InitSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Close releases the catalog and the lock.
func (a *app) Close() {
	if a.catalog != nil {
		if err := a.catalog.Close(); err != nil {
			logger.Warnw("closing catalog", "error", err)
		}
	}
	if err := a.lock.Release(); err != nil {
		logger.Warnw("releasing workspace lock", "error", err)
	}
}

// withSession opens the project ref, runs fn and saves when fn left
// unsaved changes.
func withSession(ctx context.Context, ref string, mutating bool, fn func(*app, *project.Session) error) error {
	a, err := openApp(ctx, openOptions{mutating: mutating})
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.store.Resolve(ref)
	if err != nil {
		return err
	}
	sess, err := a.store.Open(p.ID)
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := fn(a, sess); err != nil {
		// Asset operations may have changed files before failing; keep the
		// record in step with disk.
		if mutating && sess.Dirty() {
			if serr := sess.Save(ctx); serr != nil {
				logger.Warnw("saving after failed operation", "project", p.Slug, "error", serr)
			}
		}
		return err
	}
	if mutating && sess.Dirty() {
		return sess.Save(ctx)
	}
	return nil
}

func summaryLine(p schema.ProjectSummary) string {
	return p.ProjectName + " (" + p.Slug + ")"
}
