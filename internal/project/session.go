package project

import (
	"context"
	"reflect"
	"strconv"
	"strings"

	"github.com/storyreel/storyreel/internal/assets"
	"github.com/storyreel/storyreel/internal/ledger"
	"github.com/storyreel/storyreel/internal/notify"
	"github.com/storyreel/storyreel/internal/scenes"
	"github.com/storyreel/storyreel/internal/schema"
	"github.com/storyreel/storyreel/internal/storeerr"
)

// Editable project fields for UpdateProject.
const (
	FieldProjectName    = "projectName"
	FieldVideoGenerator = "videoGenerator"
	FieldNotes          = "notes"
)

// Session is one open project. It owns the in-memory record and keeps the
// scene list, the asset files and the transition ledger consistent with
// each other. Changes stay in memory until Save.
type Session struct {
	ID   string
	Slug string

	store  *Store
	rec    *schema.ProjectRecord
	assets *assets.Manager
	ledger *ledger.Ledger
	scenes *scenes.Collection
	dirty  bool
}

func newSession(store *Store, slug string, rec *schema.ProjectRecord, mgr *assets.Manager) *Session {
	s := &Session{
		ID:     rec.ID,
		Slug:   slug,
		store:  store,
		rec:    rec,
		assets: mgr,
		ledger: ledger.New(rec.Transitions).WithClock(store.now),
	}
	s.scenes = scenes.New(rec, s.markDirty)
	// Records written by older tools can carry transitions past the last gap.
	if dropped := s.ledger.Cleanup(len(rec.Prompts)); dropped > 0 {
		store.logger.Warnw("dropped out-of-range transitions", "slug", slug, "count", dropped)
		s.dirty = true
	}
	return s
}

// Record returns the live record. Callers must not modify it directly.
func (s *Session) Record() *schema.ProjectRecord {
	s.flushLedger()
	return s.rec
}

// Dirty reports whether there are unsaved changes.
func (s *Session) Dirty() bool { return s.dirty }

// Assets returns the asset manager bound to this project.
func (s *Session) Assets() *assets.Manager { return s.assets }

func (s *Session) markDirty() {
	s.dirty = true
	s.rec.Touch(s.store.now())
}

func (s *Session) sceneChanged(sceneID, detail string) {
	s.store.publish(notify.Event{Type: notify.SceneChanged, ProjectID: s.ID, SceneID: sceneID, Detail: detail})
}

func (s *Session) flushLedger() {
	s.rec.Transitions = s.ledger.Entries()
}

// Save writes the record through the store.
func (s *Session) Save(ctx context.Context) error {
	return s.store.Save(ctx, s)
}

// Close revokes every preview handle issued for this project's scenes.
func (s *Session) Close() {
	s.assets.ReleasePreviews(s.rec.Prompts)
}

// UpdateProject sets one of the editable project fields. The slug never
// changes, even on rename.
func (s *Session) UpdateProject(field, value string) (bool, error) {
	const op = "update project"
	var dst *string
	switch field {
	case FieldProjectName:
		value = strings.TrimSpace(value)
		if value == "" {
			return false, storeerr.Validation(op, "project name is required")
		}
		dst = &s.rec.ProjectName
	case FieldVideoGenerator:
		dst = &s.rec.VideoGenerator
	case FieldNotes:
		dst = &s.rec.Notes
	default:
		return false, storeerr.Validation(op, "unknown field %q", field)
	}
	if *dst == value {
		return false, nil
	}
	*dst = value
	s.markDirty()
	return true, nil
}

// Scenes returns the scenes in order.
func (s *Session) Scenes() []schema.Scene { return s.scenes.All() }

// Scene returns the scene with id and its position.
func (s *Session) Scene(id string) (*schema.Scene, int, error) {
	return s.scenes.Get(id)
}

// SceneAt resolves a scene by id or by 1-based position, as typed on the
// command line.
func (s *Session) SceneAt(ref string) (*schema.Scene, int, error) {
	if sc, i, err := s.scenes.Get(ref); err == nil {
		return sc, i, nil
	}
	if n, err := strconv.Atoi(ref); err == nil {
		if sc, ok := s.scenes.At(n - 1); ok {
			return sc, n - 1, nil
		}
	}
	return nil, -1, storeerr.NotFound("scene", "scene %s not found", ref)
}

// AddScene appends an empty scene.
func (s *Session) AddScene() schema.Scene {
	sc := s.scenes.Append()
	s.sceneChanged(sc.ID, "added")
	return sc
}

// InsertScene inserts an empty scene at position at (clamped) and shifts
// the transitions after it.
func (s *Session) InsertScene(at int) (schema.Scene, int) {
	sc, pos := s.scenes.Insert(at)
	s.ledger.InsertScene(pos)
	s.sceneChanged(sc.ID, "inserted")
	return sc, pos
}

// DeleteScene deletes the scene's files, then the scene, then reindexes
// the transitions. If a file cannot be deleted the scene is kept.
func (s *Session) DeleteScene(id string) error {
	pos, err := s.scenes.Delete(id, func(sc *schema.Scene) error {
		return s.withScene(sc, s.assets.ReleaseScene)
	})
	if err != nil {
		return err
	}
	s.ledger.RemoveScene(pos)
	s.ledger.Cleanup(s.scenes.Len())
	s.sceneChanged(id, "deleted")
	return nil
}

// MoveScene shifts a scene by one position. It reports whether it moved.
func (s *Session) MoveScene(id string, delta int) (bool, error) {
	from, to, moved, err := s.scenes.Move(id, delta)
	if err != nil || !moved {
		return false, err
	}
	s.reindex(from, to)
	s.sceneChanged(id, "moved")
	return true, nil
}

// MoveSceneTo moves a scene to position target (clamped) and returns where
// it landed.
func (s *Session) MoveSceneTo(id string, target int) (int, error) {
	from, to, err := s.scenes.MoveTo(id, target)
	if err != nil {
		return -1, err
	}
	if from != to {
		s.reindex(from, to)
		s.sceneChanged(id, "moved")
	}
	return to, nil
}

// reindex moves the transition that sat after the moved scene. A note that
// lands on the last scene has no gap left and is dropped.
func (s *Session) reindex(from, to int) {
	s.ledger.Reindex(from, to)
	s.ledger.Cleanup(s.scenes.Len())
}

// UpdateScene sets text, translation or rating.
func (s *Session) UpdateScene(id, field, value string) (bool, error) {
	changed, err := s.scenes.Update(id, field, value)
	if changed {
		s.sceneChanged(id, field)
	}
	return changed, err
}

// withScene runs an asset operation and marks the session dirty when it
// changed the scene, whether or not it then failed.
func (s *Session) withScene(sc *schema.Scene, fn func(*schema.Scene) error) error {
	before := sc.Clone()
	err := fn(sc)
	if !reflect.DeepEqual(before, sc.Clone()) {
		s.markDirty()
	}
	return err
}

func (s *Session) assetOp(sceneID, detail string, fn func(*schema.Scene) error) error {
	sc, _, err := s.scenes.Get(sceneID)
	if err != nil {
		return err
	}
	if err := s.withScene(sc, fn); err != nil {
		return err
	}
	s.sceneChanged(sceneID, detail)
	return nil
}

// AssignImage replaces the scene's primary image.
func (s *Session) AssignImage(sceneID string, f assets.File) error {
	return s.assetOp(sceneID, "image", func(sc *schema.Scene) error {
		return s.assets.AssignImage(sc, f)
	})
}

// RemoveImage deletes the scene's primary image.
func (s *Session) RemoveImage(sceneID string) error {
	return s.assetOp(sceneID, "image", s.assets.RemoveImage)
}

// PreviewImage issues a preview handle for the scene's primary image.
func (s *Session) PreviewImage(sceneID string) (assets.Handle, error) {
	sc, _, err := s.scenes.Get(sceneID)
	if err != nil {
		return assets.Handle{}, err
	}
	return s.assets.PreviewImage(sc)
}

// AddAttachments stores files on the scene and returns how many were
// admitted.
func (s *Session) AddAttachments(sceneID string, files []assets.File) (int, error) {
	var n int
	err := s.assetOp(sceneID, "attachments", func(sc *schema.Scene) error {
		var err error
		n, err = s.assets.AddAttachments(sc, files)
		return err
	})
	return n, err
}

// DeleteAttachment removes one attachment.
func (s *Session) DeleteAttachment(sceneID, filename string) error {
	return s.assetOp(sceneID, "attachments", func(sc *schema.Scene) error {
		return s.assets.DeleteAttachment(sc, filename)
	})
}

// PreviewAttachment issues a preview handle for one attachment.
func (s *Session) PreviewAttachment(sceneID, filename string) (assets.Handle, error) {
	sc, _, err := s.scenes.Get(sceneID)
	if err != nil {
		return assets.Handle{}, err
	}
	return s.assets.PreviewAttachment(sc, filename)
}

// Transition returns the note on the gap after scene index.
func (s *Session) Transition(index int) (schema.Transition, bool) {
	return s.ledger.Get(index)
}

// Transitions returns every transition note in scene order.
func (s *Session) Transitions() []schema.Transition {
	return s.ledger.Entries()
}

// SetTransition sets or clears (empty description) the note on the gap
// after scene index. The gap must exist.
func (s *Session) SetTransition(index int, description string) (bool, error) {
	if index >= 0 && index > s.scenes.Len()-2 {
		return false, storeerr.Validation("set transition", "no gap after scene %d of %d", index+1, s.scenes.Len())
	}
	changed, err := s.ledger.Set(index, description)
	if err != nil || !changed {
		return false, err
	}
	s.markDirty()
	return true, nil
}
