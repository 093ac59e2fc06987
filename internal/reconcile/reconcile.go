package reconcile

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storyreel/storyreel/internal/schema"
	"github.com/storyreel/storyreel/internal/storeerr"
	"github.com/storyreel/storyreel/internal/workspace"
)

// Mirror receives the full summary list after each reconcile.
type Mirror interface {
	ReplaceAll(ctx context.Context, projects []schema.ProjectSummary) error
}

// Result describes one reconcile run.
type Result struct {
	Index    *schema.Index
	Repaired []string // slugs whose record had fields filled in
	Skipped  []string // slugs whose record could not be read
}

// Reconciler rebuilds the index of one workspace.
type Reconciler struct {
	ws     *workspace.Workspace
	logger *zap.SugaredLogger
	mirror Mirror
	now    func() time.Time
	newID  func() string
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithMirror attaches a mirror that is refreshed after every run.
func WithMirror(m Mirror) Option {
	return func(r *Reconciler) { r.mirror = m }
}

// WithClock overrides the time source used for missing timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// WithIDs overrides the generator used for duplicate-id repair.
func WithIDs(newID func() string) Option {
	return func(r *Reconciler) { r.newID = newID }
}

// New creates a Reconciler for ws. A nil logger discards output.
func New(ws *workspace.Workspace, logger *zap.SugaredLogger, opts ...Option) *Reconciler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	r := &Reconciler{
		ws:     ws,
		logger: logger.Named("reconcile"),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile scans the project directories and returns the rebuilt index,
// which has also been written to disk. previous supplies fallback values
// for repair and may be nil.
func (r *Reconciler) Reconcile(ctx context.Context, previous *schema.Index) (*Result, error) {
	const op = "reconcile"

	if previous == nil {
		previous = schema.NewIndex()
	}

	entries, err := os.ReadDir(r.ws.ProjectsDir())
	if err != nil && !os.IsNotExist(err) {
		return nil, storeerr.IO(op, r.ws.ProjectsDir(), err)
	}

	res := &Result{Index: schema.NewIndex()}
	seenIDs := make(map[string]string)

	// ReadDir returns entries sorted by name, so duplicate-id repair always
	// picks the lexically later slug.
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		slug := entry.Name()
		if !entry.IsDir() || strings.HasPrefix(slug, ".") {
			continue
		}

		rec, repaired, err := r.load(slug, previous)
		if err != nil {
			r.logger.Warnw("skipping unreadable project", "slug", slug, "error", err)
			res.Skipped = append(res.Skipped, slug)
			continue
		}

		if other, dup := seenIDs[rec.ID]; dup {
			fresh := r.newID()
			r.logger.Warnw("duplicate project id", "id", rec.ID, "slug", slug, "first", other, "newId", fresh)
			rec.ID = fresh
			repaired = true
		}
		seenIDs[rec.ID] = slug

		if repaired {
			res.Repaired = append(res.Repaired, slug)
			if err := schema.WriteProjectFile(r.ws.ProjectFile(slug), rec); err != nil {
				r.logger.Warnw("repaired record not written", "slug", slug, "error", err)
			} else {
				r.logger.Infow("repaired project record", "slug", slug)
			}
		}
		res.Index.Projects = append(res.Index.Projects, rec.Summary(slug))
	}

	res.Index.SortByUpdated()
	if err := schema.WriteIndexFile(r.ws.IndexPath(), res.Index); err != nil {
		return nil, err
	}

	if r.mirror != nil {
		if err := r.mirror.ReplaceAll(ctx, res.Index.Projects); err != nil {
			r.logger.Warnw("catalog mirror not refreshed", "error", err)
		}
	}

	r.logger.Debugw("reconciled",
		"listed", len(res.Index.Projects), "repaired", len(res.Repaired), "skipped", len(res.Skipped))
	return res, nil
}

// load reads one project record and fills any missing required fields.
func (r *Reconciler) load(slug string, previous *schema.Index) (*schema.ProjectRecord, bool, error) {
	rec, missing, err := schema.ReadProjectFile(r.ws.ProjectFile(slug))
	if err != nil {
		return nil, false, err
	}

	prev, hasPrev := previous.FindSlug(slug)
	now := r.now()
	repaired := false

	fill := func(key string) bool {
		for _, m := range missing {
			if m == key {
				return true
			}
		}
		return false
	}

	if fill(schema.KeyID) || rec.ID == "" {
		rec.ID = slug
		if hasPrev && prev.ID != "" {
			rec.ID = prev.ID
		}
		repaired = true
	}
	if fill(schema.KeyProjectName) || strings.TrimSpace(rec.ProjectName) == "" {
		rec.ProjectName = slug
		if hasPrev && prev.ProjectName != "" {
			rec.ProjectName = prev.ProjectName
		}
		repaired = true
	}
	if fill(schema.KeyCreatedAt) || rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
		if hasPrev && !prev.CreatedAt.IsZero() {
			rec.CreatedAt = prev.CreatedAt
		}
		repaired = true
	}
	if fill(schema.KeyUpdatedAt) || rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = now
		if hasPrev && !prev.UpdatedAt.IsZero() {
			rec.UpdatedAt = prev.UpdatedAt
		}
		repaired = true
	}
	if fill(schema.KeyVideoGenerator) {
		if hasPrev {
			rec.VideoGenerator = prev.VideoGenerator
		}
		repaired = true
	}
	if fill(schema.KeyNotes) {
		if hasPrev {
			rec.Notes = prev.Notes
		}
		repaired = true
	}
	if fill(schema.KeyPrompts) {
		repaired = true
	}
	rec.Backfill()

	sceneIDs := make(map[string]bool, len(rec.Prompts))
	for i := range rec.Prompts {
		if id := rec.Prompts[i].ID; id == "" || sceneIDs[id] {
			rec.Prompts[i].ID = r.newID()
			repaired = true
		}
		sceneIDs[rec.Prompts[i].ID] = true
	}

	if err := rec.Validate(); err != nil {
		return nil, false, err
	}
	return rec, repaired, nil
}
