// Package project is the store of a storyreel workspace: it creates,
// lists, opens, saves, duplicates and deletes projects, and hands out
// Sessions for editing one project at a time.
//
// Each project record is authoritative. The index and the optional catalog
// are caches that are updated after the record and whose write failures
// are logged rather than returned, except where losing the cache update
// would make the store lie (see Delete).
package project

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storyreel/storyreel/internal/assets"
	"github.com/storyreel/storyreel/internal/catalog"
	"github.com/storyreel/storyreel/internal/config"
	"github.com/storyreel/storyreel/internal/notify"
	"github.com/storyreel/storyreel/internal/reconcile"
	"github.com/storyreel/storyreel/internal/schema"
	"github.com/storyreel/storyreel/internal/slug"
	"github.com/storyreel/storyreel/internal/storeerr"
	"github.com/storyreel/storyreel/internal/workspace"
)

// Catalog is the searchable mirror of the index.
type Catalog interface {
	reconcile.Mirror
	UpsertProject(ctx context.Context, p schema.ProjectSummary) error
	DeleteProject(ctx context.Context, id string) error
	Search(ctx context.Context, opts catalog.SearchOptions) ([]schema.ProjectSummary, error)
}

// Options configures a Store. Zero values get defaults.
type Options struct {
	Catalog     Catalog
	Notifier    notify.Notifier
	Logger      *zap.SugaredLogger
	Previews    *assets.PreviewCache
	DeleteOrder config.DeleteOrder
	Now         func() time.Time
	NewID       func() string
}

// Store manages the projects of one workspace.
type Store struct {
	ws          *workspace.Workspace
	reconciler  *reconcile.Reconciler
	catalog     Catalog
	notifier    notify.Notifier
	logger      *zap.SugaredLogger
	previews    *assets.PreviewCache
	deleteOrder config.DeleteOrder
	now         func() time.Time
	newID       func() string

	// removeAll deletes a project directory; tests inject failures here.
	removeAll func(string) error

	mu    sync.Mutex // guards index; the watcher reconciles concurrently
	index *schema.Index
}

// NewStore returns a store over ws with an empty index. Call Load before
// use.
func NewStore(ws *workspace.Workspace, opts Options) *Store {
	s := &Store{
		ws:          ws,
		catalog:     opts.Catalog,
		notifier:    opts.Notifier,
		logger:      opts.Logger,
		previews:    opts.Previews,
		deleteOrder: opts.DeleteOrder,
		now:         opts.Now,
		newID:       opts.NewID,
		removeAll:   os.RemoveAll,
		index:       schema.NewIndex(),
	}
	if s.notifier == nil {
		s.notifier = notify.Discard
	}
	if s.logger == nil {
		s.logger = zap.NewNop().Sugar()
	}
	s.logger = s.logger.Named("store")
	if s.previews == nil {
		s.previews = assets.NewPreviewCache()
	}
	if s.deleteOrder == "" {
		s.deleteOrder = config.DeleteIndexFirst
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}

	ropts := []reconcile.Option{
		reconcile.WithClock(s.now),
		reconcile.WithIDs(s.newID),
	}
	if s.catalog != nil {
		ropts = append(ropts, reconcile.WithMirror(s.catalog))
	}
	s.reconciler = reconcile.New(ws, s.logger, ropts...)
	return s
}

// Workspace returns the workspace the store manages.
func (s *Store) Workspace() *workspace.Workspace { return s.ws }

// Previews returns the preview cache shared by all sessions of the store.
func (s *Store) Previews() *assets.PreviewCache { return s.previews }

// Load reads the index. A missing or empty index is an empty list; a
// corrupt one is rebuilt by reconciling.
func (s *Store) Load(ctx context.Context) error {
	ix, err := schema.ReadIndexFile(s.ws.IndexPath())
	switch {
	case err == nil:
		s.mu.Lock()
		s.index = ix
		s.mu.Unlock()
		return nil
	case errors.Is(err, fs.ErrNotExist):
		s.mu.Lock()
		s.index = schema.NewIndex()
		s.mu.Unlock()
		return nil
	default:
		s.logger.Warnw("index unreadable, rebuilding", "path", s.ws.IndexPath(), "error", err)
		_, err := s.Reconcile(ctx)
		return err
	}
}

// List returns the current summaries, most recently updated first.
func (s *Store) List() []schema.ProjectSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]schema.ProjectSummary{}, s.index.Projects...)
}

// Resolve finds a project by id, or failing that by slug.
func (s *Store) Resolve(ref string) (schema.ProjectSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.index.Find(ref); ok {
		return p, nil
	}
	if p, ok := s.index.FindSlug(ref); ok {
		return p, nil
	}
	return schema.ProjectSummary{}, storeerr.NotFound("resolve project", "no project with id or slug %q", ref)
}

// Reconcile rebuilds the index from disk and swaps it in.
func (s *Store) Reconcile(ctx context.Context) (*reconcile.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ws.RequireWritable("reconcile"); err != nil {
		return nil, err
	}
	res, err := s.reconciler.Reconcile(ctx, s.index)
	if err != nil {
		return nil, err
	}
	s.index = res.Index
	s.publish(notify.Event{Type: notify.ProjectListChanged})
	return res, nil
}

// Create makes a new empty project named name.
func (s *Store) Create(ctx context.Context, name string) (schema.ProjectSummary, error) {
	const op = "create project"

	if err := s.ws.RequireWritable(op); err != nil {
		return schema.ProjectSummary{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return schema.ProjectSummary{}, storeerr.Validation(op, "project name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dirSlug, err := s.makeProjectDir(op, name)
	if err != nil {
		return schema.ProjectSummary{}, err
	}

	rec := schema.NewProjectRecord(s.newID(), name, s.now())
	if err := schema.WriteProjectFile(s.ws.ProjectFile(dirSlug), rec); err != nil {
		_ = os.RemoveAll(s.ws.ProjectDir(dirSlug))
		return schema.ProjectSummary{}, err
	}

	summary := rec.Summary(dirSlug)
	s.commitSummary(ctx, summary)
	s.logger.Infow("project created", "id", rec.ID, "slug", dirSlug)
	s.publish(notify.Event{Type: notify.ProjectListChanged, ProjectID: rec.ID})
	return summary, nil
}

// makeProjectDir picks a free slug for name and creates the project
// directory with its asset directories.
func (s *Store) makeProjectDir(op, name string) (string, error) {
	taken := s.index.Slugs()
	dirSlug := slug.Unique(slug.Make(name), func(c string) bool {
		if taken[c] {
			return true
		}
		_, err := os.Stat(s.ws.ProjectDir(c))
		return err == nil
	})
	for _, dir := range []string{s.ws.ImagesDir(dirSlug), s.ws.AttachmentsDir(dirSlug)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			_ = os.RemoveAll(s.ws.ProjectDir(dirSlug))
			return "", storeerr.IO(op, dir, err)
		}
	}
	return dirSlug, nil
}

// commitSummary upserts summary into the index and catalog. Both are
// caches of the record just written, so failures are only logged.
func (s *Store) commitSummary(ctx context.Context, summary schema.ProjectSummary) {
	s.index.Upsert(summary)
	s.index.SortByUpdated()
	if err := s.persistIndex(); err != nil {
		s.logger.Warnw("index not written", "error", err)
	}
	if s.catalog != nil {
		if err := s.catalog.UpsertProject(ctx, summary); err != nil {
			s.logger.Warnw("catalog not updated", "id", summary.ID, "error", err)
		}
	}
}

func (s *Store) persistIndex() error {
	return schema.WriteIndexFile(s.ws.IndexPath(), s.index)
}

// Open starts an editing session on the project with id.
func (s *Store) Open(id string) (*Session, error) {
	const op = "open project"

	s.mu.Lock()
	summary, ok := s.index.Find(id)
	s.mu.Unlock()
	if !ok {
		return nil, storeerr.NotFound(op, "project %s not found", id)
	}

	rec, _, err := schema.ReadProjectFile(s.ws.ProjectFile(summary.Slug))
	if err != nil {
		return nil, storeerr.NotFoundCause(op, err, "project %s is unreadable", id)
	}
	rec.Backfill()
	if rec.ID == "" {
		rec.ID = summary.ID
	}

	mgr := assets.NewManager(s.ws.ImagesDir(summary.Slug), s.ws.AttachmentsDir(summary.Slug), assets.Options{
		Previews: s.previews,
		Logger:   s.logger,
		Now:      s.now,
	})
	return newSession(s, summary.Slug, rec, mgr), nil
}

// Save writes the session's record and refreshes the caches. A failed
// record write is returned and the session stays dirty.
func (s *Store) Save(ctx context.Context, sess *Session) error {
	const op = "save project"

	if err := s.ws.RequireWritable(op); err != nil {
		return err
	}

	sess.flushLedger()
	// Stamp a copy so a failed write leaves the live record untouched.
	out := *sess.rec
	out.Touch(s.now())
	if err := schema.WriteProjectFile(s.ws.ProjectFile(sess.Slug), &out); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	sess.rec.UpdatedAt = out.UpdatedAt

	s.mu.Lock()
	s.commitSummary(ctx, sess.rec.Summary(sess.Slug))
	s.mu.Unlock()

	sess.dirty = false
	s.publish(notify.Event{Type: notify.ProjectChanged, ProjectID: sess.ID})
	s.publish(notify.Event{Type: notify.ProjectListChanged, ProjectID: sess.ID})
	return nil
}

// Duplicate copies the project with id, including its asset files, into a
// new project named newName. Assets that fail to copy are dropped from the
// copy and logged.
func (s *Store) Duplicate(ctx context.Context, id, newName string) (schema.ProjectSummary, error) {
	const op = "duplicate project"

	if err := s.ws.RequireWritable(op); err != nil {
		return schema.ProjectSummary{}, err
	}
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return schema.ProjectSummary{}, storeerr.Validation(op, "project name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	src, ok := s.index.Find(id)
	if !ok {
		return schema.ProjectSummary{}, storeerr.NotFound(op, "project %s not found", id)
	}
	srcRec, _, err := schema.ReadProjectFile(s.ws.ProjectFile(src.Slug))
	if err != nil {
		return schema.ProjectSummary{}, storeerr.NotFoundCause(op, err, "project %s is unreadable", id)
	}
	srcRec.Backfill()

	dirSlug, err := s.makeProjectDir(op, newName)
	if err != nil {
		return schema.ProjectSummary{}, err
	}

	now := s.now()
	rec := srcRec.Clone()
	rec.ID = s.newID()
	rec.ProjectName = newName
	rec.CreatedAt = now
	rec.UpdatedAt = now

	from := assets.NewManager(s.ws.ImagesDir(src.Slug), s.ws.AttachmentsDir(src.Slug), assets.Options{Logger: s.logger})
	to := assets.NewManager(s.ws.ImagesDir(dirSlug), s.ws.AttachmentsDir(dirSlug), assets.Options{Logger: s.logger, Now: s.now})
	for i := range rec.Prompts {
		rec.Prompts[i].ID = s.newID()
		if dropped := to.CopySceneAssets(from, srcRec.Prompts[i], &rec.Prompts[i]); len(dropped) > 0 {
			s.logger.Warnw("assets dropped from duplicate", "source", src.Slug, "scene", i, "files", dropped)
		}
	}

	if err := schema.WriteProjectFile(s.ws.ProjectFile(dirSlug), rec); err != nil {
		_ = os.RemoveAll(s.ws.ProjectDir(dirSlug))
		return schema.ProjectSummary{}, err
	}

	summary := rec.Summary(dirSlug)
	s.commitSummary(ctx, summary)
	s.logger.Infow("project duplicated", "source", src.Slug, "slug", dirSlug)
	s.publish(notify.Event{Type: notify.ProjectListChanged, ProjectID: rec.ID})
	return summary, nil
}

// Delete removes the project with id from the index and from disk, in the
// order chosen by the store's DeleteOrder.
func (s *Store) Delete(ctx context.Context, id string) error {
	const op = "delete project"

	if err := s.ws.RequireWritable(op); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.index.Find(id)
	if !ok {
		return storeerr.NotFound(op, "project %s not found", id)
	}
	dir := s.ws.ProjectDir(entry.Slug)

	switch s.deleteOrder {
	case config.DeleteDiskFirst:
		if err := s.removeAll(dir); err != nil {
			return storeerr.IO(op, dir, err)
		}
		s.index.Remove(id)
		if err := s.persistIndex(); err != nil {
			s.logger.Warnw("index not written after delete", "id", id, "error", err)
		}
	default:
		before := s.index.Clone()
		s.index.Remove(id)
		if err := s.persistIndex(); err != nil {
			s.index = before
			return err
		}
		if err := s.removeAll(dir); err != nil {
			s.logger.Warnw("project directory left on disk", "slug", entry.Slug, "error", err)
		}
	}

	if s.catalog != nil {
		if err := s.catalog.DeleteProject(ctx, id); err != nil {
			s.logger.Warnw("catalog not updated", "id", id, "error", err)
		}
	}
	s.logger.Infow("project deleted", "id", id, "slug", entry.Slug)
	s.publish(notify.Event{Type: notify.ProjectListChanged, ProjectID: id})
	return nil
}

// Search filters projects by a case- and accent-insensitive substring and a minimum
// update time. It asks the catalog when one is attached and falls back to
// the in-memory index.
func (s *Store) Search(ctx context.Context, query string, since time.Time) ([]schema.ProjectSummary, error) {
	if s.catalog != nil {
		res, err := s.catalog.Search(ctx, catalog.SearchOptions{Query: query, Since: since})
		if err == nil {
			return res, nil
		}
		s.logger.Warnw("catalog search failed, scanning index", "error", err)
	}

	q := slug.Fold(strings.TrimSpace(query))
	var out []schema.ProjectSummary
	for _, p := range s.List() {
		if !since.IsZero() && p.UpdatedAt.Before(since) {
			continue
		}
		if q != "" && !matches(p, q) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func matches(p schema.ProjectSummary, q string) bool {
	for _, field := range []string{p.ProjectName, p.Slug, p.Notes, p.VideoGenerator} {
		if strings.Contains(slug.Fold(field), q) {
			return true
		}
	}
	return false
}

func (s *Store) publish(e notify.Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = s.now()
	}
	s.notifier.Publish(e)
}
