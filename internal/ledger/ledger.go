// Package ledger keeps the sparse, position-keyed transitions of a project.
//
// A transition at index i annotates the gap between scene i and scene i+1.
// Because entries are addressed by position, every structural change to the
// scene list must be mirrored here: Reindex after a move, RemoveScene after
// a delete, InsertScene after an insert, followed by Cleanup.
package ledger

import (
	"sort"
	"strings"
	"time"

	"github.com/storyreel/storyreel/internal/schema"
	"github.com/storyreel/storyreel/internal/storeerr"
)

// Ledger holds the transitions of one project, sorted by SceneIndex.
type Ledger struct {
	entries []schema.Transition
	now     func() time.Time
}

// New builds a ledger from persisted entries. Entries with an empty
// description are dropped; for duplicate indices the first one wins.
func New(entries []schema.Transition) *Ledger {
	l := &Ledger{now: time.Now}
	seen := make(map[int]bool, len(entries))
	for _, e := range entries {
		if strings.TrimSpace(e.Description) == "" || seen[e.SceneIndex] {
			continue
		}
		seen[e.SceneIndex] = true
		l.entries = append(l.entries, e)
	}
	l.sort()
	return l
}

// WithClock overrides the timestamp source.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

func (l *Ledger) sort() {
	sort.SliceStable(l.entries, func(i, j int) bool {
		return l.entries[i].SceneIndex < l.entries[j].SceneIndex
	})
}

func (l *Ledger) find(index int) int {
	for i, e := range l.entries {
		if e.SceneIndex == index {
			return i
		}
	}
	return -1
}

// Get returns the transition after the scene at index.
func (l *Ledger) Get(index int) (schema.Transition, bool) {
	if i := l.find(index); i >= 0 {
		return l.entries[i], true
	}
	return schema.Transition{}, false
}

// Set stores description at index. An empty description deletes the entry.
// It reports whether the ledger changed.
func (l *Ledger) Set(index int, description string) (bool, error) {
	if index < 0 {
		return false, storeerr.Validation("set transition", "scene index %d is negative", index)
	}
	description = strings.TrimSpace(description)
	i := l.find(index)

	if description == "" {
		if i < 0 {
			return false, nil
		}
		l.entries = append(l.entries[:i], l.entries[i+1:]...)
		return true, nil
	}

	if i >= 0 {
		if l.entries[i].Description == description {
			return false, nil
		}
		l.entries[i].Description = description
		l.entries[i].UpdatedAt = l.now()
		return true, nil
	}

	l.entries = append(l.entries, schema.Transition{
		SceneIndex:  index,
		Description: description,
		UpdatedAt:   l.now(),
	})
	l.sort()
	return true, nil
}

// Reindex follows a scene moved from position from to position to. The
// entry at from moves to to; entries between the two positions shift one
// step toward from, exactly as the scenes themselves do.
func (l *Ledger) Reindex(from, to int) {
	if from == to {
		return
	}
	for i := range l.entries {
		idx := l.entries[i].SceneIndex
		switch {
		case idx == from:
			l.entries[i].SceneIndex = to
		case from < to && idx > from && idx <= to:
			l.entries[i].SceneIndex = idx - 1
		case from > to && idx >= to && idx < from:
			l.entries[i].SceneIndex = idx + 1
		}
	}
	l.sort()
}

// RemoveScene follows the deletion of the scene at position p: entries at
// or after p shift down by one. When a shifted entry lands on an existing
// one, the existing entry is kept.
func (l *Ledger) RemoveScene(p int) {
	occupied := make(map[int]bool, len(l.entries))
	for _, e := range l.entries {
		if e.SceneIndex < p {
			occupied[e.SceneIndex] = true
		}
	}

	kept := l.entries[:0]
	for _, e := range l.entries {
		if e.SceneIndex >= p {
			e.SceneIndex--
			if occupied[e.SceneIndex] {
				continue
			}
			occupied[e.SceneIndex] = true
		}
		kept = append(kept, e)
	}
	l.entries = kept
	l.sort()
}

// InsertScene follows the insertion of a scene at position p: entries at or
// after p shift up by one.
func (l *Ledger) InsertScene(p int) {
	for i := range l.entries {
		if l.entries[i].SceneIndex >= p {
			l.entries[i].SceneIndex++
		}
	}
}

// Cleanup drops every entry whose index is outside [0, totalScenes-2] and
// returns how many were dropped.
func (l *Ledger) Cleanup(totalScenes int) int {
	kept := l.entries[:0]
	dropped := 0
	for _, e := range l.entries {
		if e.SceneIndex < 0 || e.SceneIndex > totalScenes-2 {
			dropped++
			continue
		}
		kept = append(kept, e)
	}
	l.entries = kept
	return dropped
}

// Len returns the number of recorded transitions.
func (l *Ledger) Len() int { return len(l.entries) }

// Entries returns a copy of the transitions sorted by index, never nil.
func (l *Ledger) Entries() []schema.Transition {
	return append([]schema.Transition{}, l.entries...)
}
