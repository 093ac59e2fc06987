package ledger

import (
	"testing"
	"time"

	"github.com/storyreel/storyreel/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixed = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

func newTestLedger(entries ...schema.Transition) *Ledger {
	return New(entries).WithClock(func() time.Time { return fixed })
}

func tr(index int, desc string) schema.Transition {
	return schema.Transition{SceneIndex: index, Description: desc, UpdatedAt: fixed}
}

func indices(l *Ledger) map[int]string {
	out := map[int]string{}
	for _, e := range l.Entries() {
		out[e.SceneIndex] = e.Description
	}
	return out
}

func TestNewDropsEmptyAndDuplicates(t *testing.T) {
	l := New([]schema.Transition{tr(2, "b"), tr(0, ""), tr(1, "a"), tr(2, "dup")})

	assert.Equal(t, map[int]string{1: "a", 2: "b"}, indices(l))
	assert.Equal(t, 1, l.Entries()[0].SceneIndex, "entries should be sorted")
}

func TestSetAndGet(t *testing.T) {
	l := newTestLedger()

	changed, err := l.Set(0, "  cut  ")
	require.NoError(t, err)
	assert.True(t, changed)

	got, ok := l.Get(0)
	require.True(t, ok)
	assert.Equal(t, "cut", got.Description)
	assert.Equal(t, fixed, got.UpdatedAt)

	changed, err = l.Set(0, "cut")
	require.NoError(t, err)
	assert.False(t, changed, "same description should be a no-op")

	changed, err = l.Set(0, "fade")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = l.Set(0, "")
	require.NoError(t, err)
	assert.True(t, changed)
	_, ok = l.Get(0)
	assert.False(t, ok, "empty description must delete the record")

	changed, err = l.Set(3, "   ")
	require.NoError(t, err)
	assert.False(t, changed, "deleting an absent entry changes nothing")
	assert.Equal(t, 0, l.Len())

	_, err = l.Set(-1, "x")
	assert.Error(t, err)
}

func TestReindex(t *testing.T) {
	tests := []struct {
		name     string
		entries  []schema.Transition
		from, to int
		want     map[int]string
	}{
		{
			name:    "move last scene to front",
			entries: []schema.Transition{tr(0, "cut")},
			from:    2, to: 0,
			want: map[int]string{1: "cut"},
		},
		{
			name:    "move first scene to back",
			entries: []schema.Transition{tr(0, "a"), tr(1, "b"), tr(2, "c")},
			from:    0, to: 3,
			want: map[int]string{3: "a", 0: "b", 1: "c"},
		},
		{
			name:    "move down by one",
			entries: []schema.Transition{tr(1, "x"), tr(2, "y")},
			from:    1, to: 2,
			want: map[int]string{2: "x", 1: "y"},
		},
		{
			name:    "entries outside the range are untouched",
			entries: []schema.Transition{tr(0, "keep"), tr(5, "far")},
			from:    3, to: 1,
			want: map[int]string{0: "keep", 5: "far"},
		},
		{
			name:    "no-op move",
			entries: []schema.Transition{tr(1, "x")},
			from:    1, to: 1,
			want: map[int]string{1: "x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLedger(tt.entries...)
			l.Reindex(tt.from, tt.to)
			assert.Equal(t, tt.want, indices(l))
		})
	}
}

func TestRemoveSceneThenCleanup(t *testing.T) {
	// five scenes, transitions after scenes 0, 2 and 3
	l := newTestLedger(tr(0, "a"), tr(2, "b"), tr(3, "c"))

	l.RemoveScene(2)
	dropped := l.Cleanup(4)

	assert.Equal(t, 0, dropped)
	assert.Equal(t, map[int]string{0: "a", 1: "b", 2: "c"}, indices(l))
	for _, e := range l.Entries() {
		assert.Less(t, e.SceneIndex, 4-1)
	}
}

func TestRemoveSceneCollisionKeepsUnshifted(t *testing.T) {
	l := newTestLedger(tr(0, "before"), tr(1, "after"))

	l.RemoveScene(1)

	assert.Equal(t, map[int]string{0: "before"}, indices(l))
}

func TestRemoveFirstSceneDropsLeadingTransition(t *testing.T) {
	l := newTestLedger(tr(0, "a"), tr(1, "b"))

	l.RemoveScene(0)
	l.Cleanup(2)

	assert.Equal(t, map[int]string{0: "b"}, indices(l))
}

func TestInsertScene(t *testing.T) {
	l := newTestLedger(tr(0, "a"), tr(2, "b"))

	l.InsertScene(1)

	assert.Equal(t, map[int]string{0: "a", 3: "b"}, indices(l))
}

func TestCleanup(t *testing.T) {
	l := newTestLedger(tr(0, "a"), tr(1, "b"), tr(2, "c"))

	assert.Equal(t, 2, l.Cleanup(2))
	assert.Equal(t, map[int]string{0: "a"}, indices(l))

	assert.Equal(t, 1, l.Cleanup(1), "a single scene has no gaps")
	assert.Equal(t, 0, l.Len())
	assert.NotNil(t, l.Entries())
}
