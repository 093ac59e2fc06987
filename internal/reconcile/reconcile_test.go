package reconcile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storyreel/storyreel/internal/schema"
	"github.com/storyreel/storyreel/internal/workspace"
)

var fixedNow = time.Date(2025, 5, 4, 12, 0, 0, 0, time.UTC)

func newWorkspace(t *testing.T) *workspace.Workspace {
	t.Helper()
	ws, err := workspace.Open(t.TempDir(), workspace.AllowAll)
	require.NoError(t, err)
	require.NoError(t, ws.Init())
	return ws
}

func newReconciler(ws *workspace.Workspace, opts ...Option) *Reconciler {
	seq := 0
	opts = append([]Option{
		WithClock(func() time.Time { return fixedNow }),
		WithIDs(func() string { seq++; return fmt.Sprintf("fresh-%d", seq) }),
	}, opts...)
	return New(ws, nil, opts...)
}

func writeProject(t *testing.T, ws *workspace.Workspace, slug string, rec *schema.ProjectRecord) {
	t.Helper()
	require.NoError(t, schema.WriteProjectFile(ws.ProjectFile(slug), rec))
}

func writeRaw(t *testing.T, ws *workspace.Workspace, slug, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(ws.ProjectDir(slug), 0o755))
	require.NoError(t, os.WriteFile(ws.ProjectFile(slug), []byte(body), 0o644))
}

func TestReconcileListsReadableProjects(t *testing.T) {
	ws := newWorkspace(t)
	older := schema.NewProjectRecord("id-a", "Alpha", fixedNow.Add(-time.Hour))
	newer := schema.NewProjectRecord("id-b", "Beta", fixedNow)
	writeProject(t, ws, "alpha", older)
	writeProject(t, ws, "beta", newer)
	writeRaw(t, ws, "broken", "{not json")
	require.NoError(t, os.MkdirAll(filepath.Join(ws.ProjectsDir(), ".hidden"), 0o755))

	res, err := newReconciler(ws).Reconcile(context.Background(), nil)
	require.NoError(t, err)

	require.Len(t, res.Index.Projects, 2)
	assert.Equal(t, "beta", res.Index.Projects[0].Slug)
	assert.Equal(t, "alpha", res.Index.Projects[1].Slug)
	assert.Equal(t, []string{"broken"}, res.Skipped)
	assert.Empty(t, res.Repaired)

	// The broken directory is left untouched.
	body, err := os.ReadFile(ws.ProjectFile("broken"))
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(body))

	// The index on disk matches the result.
	onDisk, err := schema.ReadIndexFile(ws.IndexPath())
	require.NoError(t, err)
	assert.Equal(t, res.Index.Projects, onDisk.Projects)
}

func TestReconcileRemovesVanishedDirectories(t *testing.T) {
	ws := newWorkspace(t)
	writeProject(t, ws, "kept", schema.NewProjectRecord("id-k", "Kept", fixedNow))

	previous := schema.NewIndex()
	previous.Upsert(schema.ProjectSummary{ID: "id-gone", Slug: "gone", ProjectName: "Gone"})
	previous.Upsert(schema.ProjectSummary{ID: "id-k", Slug: "kept", ProjectName: "Kept"})

	res, err := newReconciler(ws).Reconcile(context.Background(), previous)
	require.NoError(t, err)
	require.Len(t, res.Index.Projects, 1)
	assert.Equal(t, "kept", res.Index.Projects[0].Slug)
}

func TestReconcileRepairsMissingFields(t *testing.T) {
	ws := newWorkspace(t)
	writeRaw(t, ws, "legacy", `{"prompts": [{"id": "s1", "text": "hi"}, {"text": "no id"}]}`)
	writeRaw(t, ws, "empty", "")

	created := fixedNow.Add(-48 * time.Hour)
	previous := schema.NewIndex()
	previous.Upsert(schema.ProjectSummary{
		ID: "id-legacy", Slug: "legacy", ProjectName: "Legacy Film",
		CreatedAt: created, UpdatedAt: created, Notes: "from index",
	})

	res, err := newReconciler(ws).Reconcile(context.Background(), previous)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"legacy", "empty"}, res.Repaired)

	legacy, _, err := schema.ReadProjectFile(ws.ProjectFile("legacy"))
	require.NoError(t, err)
	assert.Equal(t, "id-legacy", legacy.ID)
	assert.Equal(t, "Legacy Film", legacy.ProjectName)
	assert.True(t, legacy.CreatedAt.Equal(created))
	assert.Equal(t, "from index", legacy.Notes)
	require.Len(t, legacy.Prompts, 2)
	assert.Equal(t, "s1", legacy.Prompts[0].ID)
	assert.Equal(t, "fresh-1", legacy.Prompts[1].ID)
	assert.NotNil(t, legacy.Transitions)

	empty, missing, err := schema.ReadProjectFile(ws.ProjectFile("empty"))
	require.NoError(t, err)
	assert.Empty(t, missing)
	assert.Equal(t, "empty", empty.ID)
	assert.Equal(t, "empty", empty.ProjectName)
	assert.True(t, empty.CreatedAt.Equal(fixedNow))
}

func TestReconcileDuplicateIDs(t *testing.T) {
	ws := newWorkspace(t)
	writeProject(t, ws, "a-copy", schema.NewProjectRecord("same", "A", fixedNow))
	writeProject(t, ws, "b-copy", schema.NewProjectRecord("same", "B", fixedNow))

	res, err := newReconciler(ws).Reconcile(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"b-copy"}, res.Repaired)

	a, ok := res.Index.FindSlug("a-copy")
	require.True(t, ok)
	b, ok := res.Index.FindSlug("b-copy")
	require.True(t, ok)
	assert.Equal(t, "same", a.ID)
	assert.Equal(t, "fresh-1", b.ID)
}

func TestReconcileIsIdempotent(t *testing.T) {
	ws := newWorkspace(t)
	writeRaw(t, ws, "legacy", `{"projectName": "Old"}`)
	writeProject(t, ws, "fine", schema.NewProjectRecord("id-f", "Fine", fixedNow))

	r := newReconciler(ws)
	first, err := r.Reconcile(context.Background(), nil)
	require.NoError(t, err)
	second, err := r.Reconcile(context.Background(), first.Index)
	require.NoError(t, err)

	assert.Equal(t, first.Index, second.Index)
	assert.Empty(t, second.Repaired)
	assert.Empty(t, second.Skipped)
}

func TestReconcileMissingProjectsDir(t *testing.T) {
	ws, err := workspace.Open(t.TempDir(), workspace.AllowAll)
	require.NoError(t, err)

	res, err := newReconciler(ws).Reconcile(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Index.Projects)
}

type recordingMirror struct {
	got []schema.ProjectSummary
	err error
}

func (m *recordingMirror) ReplaceAll(_ context.Context, projects []schema.ProjectSummary) error {
	m.got = projects
	return m.err
}

func TestReconcileRefreshesMirror(t *testing.T) {
	ws := newWorkspace(t)
	writeProject(t, ws, "alpha", schema.NewProjectRecord("id-a", "Alpha", fixedNow))

	m := &recordingMirror{}
	_, err := newReconciler(ws, WithMirror(m)).Reconcile(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, m.got, 1)
	assert.Equal(t, "id-a", m.got[0].ID)

	// Mirror failures are tolerated.
	m.err = errors.New("catalog locked")
	_, err = newReconciler(ws, WithMirror(m)).Reconcile(context.Background(), nil)
	assert.NoError(t, err)
}

func TestReconcileCancelled(t *testing.T) {
	ws := newWorkspace(t)
	writeProject(t, ws, "alpha", schema.NewProjectRecord("id-a", "Alpha", fixedNow))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newReconciler(ws).Reconcile(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
