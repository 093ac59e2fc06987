// Package scenes edits the ordered scene list of a project record.
//
// The collection only reorders and edits scenes. It never deletes asset
// files itself (Delete takes a release callback for that) and it never
// touches transitions; callers reindex the ledger from the positions each
// structural operation returns.
package scenes

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/storyreel/storyreel/internal/schema"
	"github.com/storyreel/storyreel/internal/storeerr"
)

// Field names accepted by Update.
const (
	FieldText        = "text"
	FieldTranslation = "translation"
	FieldRating      = "rating"
)

// Rating bounds.
const (
	MinRating = 1
	MaxRating = 5
)

// Collection wraps the prompts of one record.
type Collection struct {
	rec      *schema.ProjectRecord
	onChange func()
	newID    func() string
}

// New returns a collection over rec. onChange runs after every effective
// mutation; it may be nil.
func New(rec *schema.ProjectRecord, onChange func()) *Collection {
	if onChange == nil {
		onChange = func() {}
	}
	if rec.Prompts == nil {
		rec.Prompts = []schema.Scene{}
	}
	return &Collection{rec: rec, onChange: onChange, newID: uuid.NewString}
}

// Len returns the number of scenes.
func (c *Collection) Len() int { return len(c.rec.Prompts) }

// All returns the scenes in order. The slice is the record's own.
func (c *Collection) All() []schema.Scene { return c.rec.Prompts }

// Get returns the scene with id and its position.
func (c *Collection) Get(id string) (*schema.Scene, int, error) {
	i := c.rec.SceneIndex(id)
	if i < 0 {
		return nil, -1, storeerr.NotFound("scene", "scene %s not found", id)
	}
	return &c.rec.Prompts[i], i, nil
}

// At returns the scene at position i.
func (c *Collection) At(i int) (*schema.Scene, bool) {
	if i < 0 || i >= len(c.rec.Prompts) {
		return nil, false
	}
	return &c.rec.Prompts[i], true
}

func (c *Collection) blank() schema.Scene {
	return schema.Scene{ID: c.newID(), Attachments: []schema.Attachment{}}
}

// Append adds an empty scene at the end.
func (c *Collection) Append() schema.Scene {
	s := c.blank()
	c.rec.Prompts = append(c.rec.Prompts, s)
	c.onChange()
	return s
}

// Insert adds an empty scene at position at, clamped to the list bounds,
// and returns the scene and where it landed.
func (c *Collection) Insert(at int) (schema.Scene, int) {
	at = clamp(at, 0, len(c.rec.Prompts))
	s := c.blank()
	c.rec.Prompts = insertAt(c.rec.Prompts, at, s)
	c.onChange()
	return s, at
}

// Delete removes the scene with id after release succeeds and returns the
// position it held. If release fails the scene stays in place.
func (c *Collection) Delete(id string, release func(*schema.Scene) error) (int, error) {
	s, i, err := c.Get(id)
	if err != nil {
		return -1, err
	}
	if release != nil {
		if err := release(s); err != nil {
			return -1, err
		}
	}
	c.rec.Prompts = append(c.rec.Prompts[:i], c.rec.Prompts[i+1:]...)
	c.onChange()
	return i, nil
}

// Move shifts a scene one position up (delta < 0) or down (delta > 0).
// Moving past either end is a no-op and reports moved == false.
func (c *Collection) Move(id string, delta int) (from, to int, moved bool, err error) {
	_, from, err = c.Get(id)
	if err != nil {
		return -1, -1, false, err
	}
	switch {
	case delta < 0:
		to = from - 1
	case delta > 0:
		to = from + 1
	default:
		return from, from, false, nil
	}
	if to < 0 || to >= len(c.rec.Prompts) {
		return from, from, false, nil
	}
	p := c.rec.Prompts
	p[from], p[to] = p[to], p[from]
	c.onChange()
	return from, to, true, nil
}

// MoveTo removes the scene and reinserts it at target, clamped to
// [0, len(remaining)].
func (c *Collection) MoveTo(id string, target int) (from, to int, err error) {
	s, from, err := c.Get(id)
	if err != nil {
		return -1, -1, err
	}
	scene := *s
	rest := append(c.rec.Prompts[:from:from], c.rec.Prompts[from+1:]...)
	to = clamp(target, 0, len(rest))
	if to == from {
		return from, to, nil
	}
	c.rec.Prompts = insertAt(rest, to, scene)
	c.onChange()
	return from, to, nil
}

// Update sets one editable field. Setting the current value changes
// nothing and reports false.
func (c *Collection) Update(id, field, value string) (bool, error) {
	s, _, err := c.Get(id)
	if err != nil {
		return false, err
	}
	switch field {
	case FieldText:
		return c.setString(&s.Text, value), nil
	case FieldTranslation:
		return c.setString(&s.Translation, value), nil
	case FieldRating:
		r, err := ParseRating(value)
		if err != nil {
			return false, err
		}
		return c.setRating(s, r), nil
	default:
		return false, storeerr.Validation("update scene", "unknown field %q", field)
	}
}

// SetRating sets or clears (nil) a scene's rating.
func (c *Collection) SetRating(id string, rating *int) (bool, error) {
	s, _, err := c.Get(id)
	if err != nil {
		return false, err
	}
	if rating != nil && (*rating < MinRating || *rating > MaxRating) {
		return false, storeerr.Validation("update scene", "rating must be %d-%d, got %d", MinRating, MaxRating, *rating)
	}
	return c.setRating(s, rating), nil
}

func (c *Collection) setString(dst *string, value string) bool {
	if *dst == value {
		return false
	}
	*dst = value
	c.onChange()
	return true
}

func (c *Collection) setRating(s *schema.Scene, r *int) bool {
	switch {
	case s.Rating == nil && r == nil:
		return false
	case s.Rating != nil && r != nil && *s.Rating == *r:
		return false
	}
	if r != nil {
		v := *r
		r = &v
	}
	s.Rating = r
	c.onChange()
	return true
}

// ParseRating accepts 1-5, or "", "none" and "null" for no rating.
func ParseRating(value string) (*int, error) {
	v := strings.TrimSpace(strings.ToLower(value))
	switch v {
	case "", "none", "null":
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < MinRating || n > MaxRating {
		return nil, storeerr.Validation("update scene", "rating must be %d-%d or none, got %q", MinRating, MaxRating, value)
	}
	return &n, nil
}

func insertAt(s []schema.Scene, at int, v schema.Scene) []schema.Scene {
	s = append(s, schema.Scene{})
	copy(s[at+1:], s[at:])
	s[at] = v
	return s
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
