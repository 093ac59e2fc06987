package scenes

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storyreel/storyreel/internal/schema"
	"github.com/storyreel/storyreel/internal/storeerr"
)

func newCollection(t *testing.T, ids ...string) (*Collection, *int) {
	t.Helper()
	rec := &schema.ProjectRecord{}
	for _, id := range ids {
		rec.Prompts = append(rec.Prompts, schema.Scene{ID: id})
	}
	changes := 0
	c := New(rec, func() { changes++ })
	seq := 0
	c.newID = func() string {
		seq++
		return fmt.Sprintf("new%d", seq)
	}
	return c, &changes
}

func ids(c *Collection) []string {
	out := make([]string, 0, c.Len())
	for _, s := range c.All() {
		out = append(out, s.ID)
	}
	return out
}

func TestAppendAndInsert(t *testing.T) {
	c, changes := newCollection(t, "a", "b")

	s := c.Append()
	assert.Equal(t, "new1", s.ID)
	assert.NotNil(t, s.Attachments)

	_, at := c.Insert(1)
	assert.Equal(t, 1, at)
	_, at = c.Insert(-4)
	assert.Equal(t, 0, at)
	_, at = c.Insert(99)
	assert.Equal(t, 5, at)

	assert.Equal(t, []string{"new3", "a", "new2", "b", "new1", "new4"}, ids(c))
	assert.Equal(t, 4, *changes)
}

func TestDelete(t *testing.T) {
	c, changes := newCollection(t, "a", "b", "c")

	var released string
	pos, err := c.Delete("b", func(s *schema.Scene) error {
		released = s.ID
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, pos)
	assert.Equal(t, "b", released)
	assert.Equal(t, []string{"a", "c"}, ids(c))
	assert.Equal(t, 1, *changes)

	_, err = c.Delete("zzz", nil)
	assert.ErrorIs(t, err, storeerr.ErrNotFound)
}

func TestDeleteReleaseFailureKeepsScene(t *testing.T) {
	c, changes := newCollection(t, "a", "b")

	boom := errors.New("boom")
	_, err := c.Delete("a", func(*schema.Scene) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a", "b"}, ids(c))
	assert.Equal(t, 0, *changes)
}

func TestMove(t *testing.T) {
	c, changes := newCollection(t, "a", "b", "c")

	from, to, moved, err := c.Move("a", -1)
	require.NoError(t, err)
	assert.False(t, moved)
	assert.Equal(t, from, to)

	from, to, moved, err = c.Move("a", +1)
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, 0, from)
	assert.Equal(t, 1, to)
	assert.Equal(t, []string{"b", "a", "c"}, ids(c))

	_, _, moved, err = c.Move("c", +1)
	require.NoError(t, err)
	assert.False(t, moved)
	assert.Equal(t, 1, *changes)
}

func TestMoveTo(t *testing.T) {
	tests := []struct {
		id     string
		target int
		want   []string
		from   int
		to     int
	}{
		{"c", 0, []string{"c", "a", "b", "d"}, 2, 0},
		{"a", 3, []string{"b", "c", "d", "a"}, 0, 3},
		{"a", 42, []string{"b", "c", "d", "a"}, 0, 3},
		{"d", -1, []string{"d", "a", "b", "c"}, 3, 0},
		{"b", 1, []string{"a", "b", "c", "d"}, 1, 1},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s->%d", tt.id, tt.target), func(t *testing.T) {
			c, _ := newCollection(t, "a", "b", "c", "d")
			from, to, err := c.MoveTo(tt.id, tt.target)
			require.NoError(t, err)
			assert.Equal(t, tt.from, from)
			assert.Equal(t, tt.to, to)
			assert.Equal(t, tt.want, ids(c))
		})
	}
}

func TestMovesPreserveSceneSet(t *testing.T) {
	c, _ := newCollection(t, "a", "b", "c", "d", "e", "f")
	want := ids(c)
	sort.Strings(want)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		id := c.All()[rng.Intn(c.Len())].ID
		if rng.Intn(2) == 0 {
			_, _, _, err := c.Move(id, rng.Intn(3)-1)
			require.NoError(t, err)
		} else {
			_, _, err := c.MoveTo(id, rng.Intn(c.Len()+4)-2)
			require.NoError(t, err)
		}
		got := ids(c)
		sort.Strings(got)
		require.Equal(t, want, got, "after step %d", i)
	}
}

func TestUpdate(t *testing.T) {
	c, changes := newCollection(t, "a")

	changed, err := c.Update("a", FieldText, "Hello")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = c.Update("a", FieldText, "Hello")
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = c.Update("a", FieldTranslation, "Bonjour")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = c.Update("a", FieldRating, "4")
	require.NoError(t, err)
	assert.True(t, changed)
	s, _, _ := c.Get("a")
	require.NotNil(t, s.Rating)
	assert.Equal(t, 4, *s.Rating)

	changed, err = c.Update("a", FieldRating, "4")
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = c.Update("a", FieldRating, "none")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Nil(t, s.Rating)

	assert.Equal(t, 4, *changes)
}

func TestUpdateInvalid(t *testing.T) {
	c, changes := newCollection(t, "a")

	_, err := c.Update("a", "imagePath", "x")
	assert.ErrorIs(t, err, storeerr.ErrValidation)
	_, err = c.Update("a", FieldRating, "6")
	assert.ErrorIs(t, err, storeerr.ErrValidation)
	_, err = c.Update("a", FieldRating, "0")
	assert.ErrorIs(t, err, storeerr.ErrValidation)
	_, err = c.Update("missing", FieldText, "x")
	assert.ErrorIs(t, err, storeerr.ErrNotFound)

	bad := 9
	_, err = c.SetRating("a", &bad)
	assert.ErrorIs(t, err, storeerr.ErrValidation)
	assert.Equal(t, 0, *changes)
}
