package assets

import (
	"bufio"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/storyreel/storyreel/internal/record"
	"github.com/storyreel/storyreel/internal/schema"
	"github.com/storyreel/storyreel/internal/storeerr"
)

// MaxAttachments is the per-scene attachment ceiling.
const MaxAttachments = 8

// sniffLen is how much of a file is peeked for MIME detection.
const sniffLen = 3072

// Manager owns the physical files behind one project's scenes: the primary
// image in the images directory and attachments in the attachments
// directory. Scene fields are only changed after the disk side succeeded.
type Manager struct {
	imagesDir      string
	attachmentsDir string
	previews       *PreviewCache
	logger         *zap.SugaredLogger
	now            func() time.Time

	// removeFile is record.Remove; tests swap it to inject failures.
	removeFile func(string) error
}

// Options configures a Manager. Zero values are replaced with defaults.
type Options struct {
	Previews *PreviewCache
	Logger   *zap.SugaredLogger
	Now      func() time.Time
}

// NewManager binds a manager to a project's asset directories.
func NewManager(imagesDir, attachmentsDir string, opts Options) *Manager {
	m := &Manager{
		imagesDir:      imagesDir,
		attachmentsDir: attachmentsDir,
		previews:       opts.Previews,
		logger:         opts.Logger,
		now:            opts.Now,
		removeFile:     record.Remove,
	}
	if m.previews == nil {
		m.previews = NewPreviewCache()
	}
	if m.logger == nil {
		m.logger = zap.NewNop().Sugar()
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// SetRemoveFunc replaces the physical delete used by the manager.
func (m *Manager) SetRemoveFunc(fn func(string) error) {
	m.removeFile = fn
}

// Previews returns the cache handles are issued from.
func (m *Manager) Previews() *PreviewCache { return m.previews }

// ImagePath returns the absolute path of a scene's primary image.
func (m *Manager) ImagePath(scene *schema.Scene) string {
	if !scene.HasImage() {
		return ""
	}
	return filepath.Join(m.imagesDir, scene.ImagePath)
}

// AttachmentPath returns the absolute path of an attachment file.
func (m *Manager) AttachmentPath(filename string) string {
	return filepath.Join(m.attachmentsDir, filename)
}

// sniffed wraps an opened source so the head can be inspected before the
// body is streamed to disk.
type sniffed struct {
	body     io.Reader
	closer   io.Closer
	mimeType string
}

func openSniffed(f File) (*sniffed, error) {
	if f.Open == nil {
		return nil, errors.New("no content")
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	br := bufio.NewReaderSize(rc, sniffLen)
	head, err := br.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		rc.Close()
		return nil, err
	}
	mimeType := strings.TrimSpace(f.Type)
	if mimeType == "" {
		mimeType = mimetype.Detect(head).String()
	}
	return &sniffed{body: br, closer: rc, mimeType: mimeType}, nil
}

// AssignImage replaces the scene's primary image with f. The old file is
// deleted first; if that fails nothing changes.
func (m *Manager) AssignImage(scene *schema.Scene, f File) error {
	const op = "assign image"

	if c, ok := Classify(f.Name, f.Type); ok && c != CategoryImage {
		return storeerr.Validation(op, "%s is not an image", f.Name)
	}
	src, err := openSniffed(f)
	if err != nil {
		return storeerr.IO(op, f.Name, err)
	}
	defer src.closer.Close()

	if c, ok := Classify(f.Name, src.mimeType); !ok || c != CategoryImage {
		return storeerr.Validation(op, "%s is not an image (%s)", f.Name, src.mimeType)
	}

	if scene.HasImage() {
		if err := m.removeFile(m.ImagePath(scene)); err != nil {
			return storeerr.IO(op, m.ImagePath(scene), err)
		}
		// The old file is gone; keep the record consistent with disk if the
		// write below fails.
		scene.ClearImage()
	}
	m.previews.Release(ImageKey(scene.ID))

	name := imageName(scene.ID, extensionFor(f.Name, src.mimeType))
	if _, err := record.WriteFrom(filepath.Join(m.imagesDir, name), src.body); err != nil {
		return err
	}
	scene.ImagePath = name
	scene.ImageOriginalName = f.Name
	scene.ImageType = src.mimeType
	return nil
}

// RemoveImage deletes the primary image and clears the scene's image
// fields. A scene without an image is left alone.
func (m *Manager) RemoveImage(scene *schema.Scene) error {
	if !scene.HasImage() {
		return nil
	}
	path := m.ImagePath(scene)
	if err := m.removeFile(path); err != nil {
		return storeerr.IO("remove image", path, err)
	}
	scene.ClearImage()
	m.previews.Release(ImageKey(scene.ID))
	return nil
}

// PreviewImage issues a handle for the scene's primary image.
func (m *Manager) PreviewImage(scene *schema.Scene) (Handle, error) {
	const op = "preview image"
	if !scene.HasImage() {
		return Handle{}, storeerr.NotFound(op, "scene %s has no image", scene.ID)
	}
	path := m.ImagePath(scene)
	if _, err := os.Stat(path); err != nil {
		return Handle{}, storeerr.NotFoundCause(op, err, "image file for scene %s", scene.ID)
	}
	return m.previews.Acquire(ImageKey(scene.ID), path), nil
}

// AddAttachments stores files as attachments of scene and returns how many
// were admitted. Unsupported files reject the whole batch. When the scene
// is already full the call fails with ErrLimitReached; otherwise files
// beyond the ceiling are dropped.
func (m *Manager) AddAttachments(scene *schema.Scene, files []File) (int, error) {
	const op = "add attachments"

	for _, f := range files {
		if _, ok := Classify(f.Name, f.Type); !ok {
			return 0, storeerr.Validation(op, "unsupported attachment type: %s", f.Name)
		}
	}
	if len(scene.Attachments) >= MaxAttachments {
		return 0, storeerr.LimitReached(op, "scene already has %d attachments", MaxAttachments)
	}
	room := MaxAttachments - len(scene.Attachments)
	if len(files) > room {
		m.logger.Debugw("attachment batch truncated",
			"scene", scene.ID, "offered", len(files), "admitted", room)
		files = files[:room]
	}

	added := 0
	for _, f := range files {
		a, err := m.storeAttachment(scene, f)
		if err != nil {
			return added, err
		}
		scene.Attachments = append(scene.Attachments, a)
		added++
	}
	return added, nil
}

func (m *Manager) storeAttachment(scene *schema.Scene, f File) (schema.Attachment, error) {
	const op = "add attachments"

	src, err := openSniffed(f)
	if err != nil {
		return schema.Attachment{}, storeerr.IO(op, f.Name, err)
	}
	defer src.closer.Close()

	now := m.now()
	name := m.uniqueAttachmentName(scene, now.UnixMilli(), f.Name)
	n, err := record.WriteFrom(m.AttachmentPath(name), src.body)
	if err != nil {
		return schema.Attachment{}, err
	}
	return schema.Attachment{
		Filename:     name,
		OriginalName: f.Name,
		Type:         src.mimeType,
		Size:         n,
		AddedAt:      now,
	}, nil
}

// uniqueAttachmentName bumps the timestamp until the name is free both in
// the scene and on disk.
func (m *Manager) uniqueAttachmentName(scene *schema.Scene, millis int64, original string) string {
	for {
		name := attachmentName(scene.ID, millis, original)
		if _, _, taken := scene.Attachment(name); !taken && !record.Exists(m.AttachmentPath(name)) {
			return name
		}
		millis++
	}
}

// DeleteAttachment removes one attachment from disk and from the scene.
func (m *Manager) DeleteAttachment(scene *schema.Scene, filename string) error {
	const op = "delete attachment"
	_, i, ok := scene.Attachment(filename)
	if !ok {
		return storeerr.NotFound(op, "attachment %s not found", filename)
	}
	path := m.AttachmentPath(filename)
	if err := m.removeFile(path); err != nil {
		return storeerr.IO(op, path, err)
	}
	scene.Attachments = append(scene.Attachments[:i], scene.Attachments[i+1:]...)
	m.previews.Release(AttachmentKey(scene.ID, filename))
	return nil
}

// PreviewAttachment issues a handle for one attachment.
func (m *Manager) PreviewAttachment(scene *schema.Scene, filename string) (Handle, error) {
	const op = "preview attachment"
	if _, _, ok := scene.Attachment(filename); !ok {
		return Handle{}, storeerr.NotFound(op, "attachment %s not found", filename)
	}
	path := m.AttachmentPath(filename)
	if _, err := os.Stat(path); err != nil {
		return Handle{}, storeerr.NotFoundCause(op, err, "attachment file %s", filename)
	}
	return m.previews.Acquire(AttachmentKey(scene.ID, filename), path), nil
}

// ReleaseScene deletes every file owned by scene. It stops at the first
// failure; entries already deleted are removed from the scene.
func (m *Manager) ReleaseScene(scene *schema.Scene) error {
	if err := m.RemoveImage(scene); err != nil {
		return err
	}
	for len(scene.Attachments) > 0 {
		if err := m.DeleteAttachment(scene, scene.Attachments[0].Filename); err != nil {
			return err
		}
	}
	m.previews.ReleaseScene(scene.ID)
	return nil
}

// CopySceneAssets copies the files of src, owned by from, into m for dst.
// dst must already carry its own id and a clone of src's fields. Files that
// fail to copy are logged and unlinked from dst; their original names are
// returned.
func (m *Manager) CopySceneAssets(from *Manager, src schema.Scene, dst *schema.Scene) []string {
	var dropped []string

	if src.HasImage() {
		name := imageName(dst.ID, filepath.Ext(src.ImagePath))
		if _, err := record.CopyFile(from.ImagePath(&src), filepath.Join(m.imagesDir, name)); err != nil {
			m.logger.Warnw("image not copied", "scene", src.ID, "file", src.ImagePath, "error", err)
			dst.ClearImage()
			dropped = append(dropped, src.ImagePath)
		} else {
			dst.ImagePath = name
		}
	}

	dst.Attachments = make([]schema.Attachment, 0, len(src.Attachments))
	millis := m.now().UnixMilli()
	for _, a := range src.Attachments {
		name := m.uniqueAttachmentName(dst, millis, a.OriginalName)
		if _, err := record.CopyFile(from.AttachmentPath(a.Filename), m.AttachmentPath(name)); err != nil {
			m.logger.Warnw("attachment not copied", "scene", src.ID, "file", a.Filename, "error", err)
			dropped = append(dropped, a.Filename)
			continue
		}
		a.Filename = name
		dst.Attachments = append(dst.Attachments, a)
	}
	return dropped
}

// ReleasePreviews revokes every handle issued for the given scenes.
func (m *Manager) ReleasePreviews(scenes []schema.Scene) int {
	n := 0
	for _, s := range scenes {
		n += m.previews.ReleaseScene(s.ID)
	}
	return n
}
