package schema

import (
	"sort"
	"time"

	"github.com/storyreel/storyreel/internal/record"
)

// IndexVersion is the current index file format version.
const IndexVersion = 1

// ProjectSummary is the cached projection of a project record.
type ProjectSummary struct {
	ID             string    `json:"id"`
	Slug           string    `json:"slug"`
	ProjectName    string    `json:"projectName"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	PromptCount    int       `json:"promptCount"`
	VideoGenerator string    `json:"videoGenerator"`
	Notes          string    `json:"notes"`
}

// Index is the cached list of projects stored at the workspace root.
type Index struct {
	Version  int              `json:"version"`
	Projects []ProjectSummary `json:"projects"`
}

// NewIndex returns an empty index at the current version.
func NewIndex() *Index {
	return &Index{Version: IndexVersion, Projects: []ProjectSummary{}}
}

// Find returns the entry with the given id.
func (ix *Index) Find(id string) (ProjectSummary, bool) {
	for _, p := range ix.Projects {
		if p.ID == id {
			return p, true
		}
	}
	return ProjectSummary{}, false
}

// FindSlug returns the entry whose directory is slug.
func (ix *Index) FindSlug(slug string) (ProjectSummary, bool) {
	for _, p := range ix.Projects {
		if p.Slug == slug {
			return p, true
		}
	}
	return ProjectSummary{}, false
}

// Upsert replaces the entry with the same id or appends a new one.
func (ix *Index) Upsert(s ProjectSummary) {
	for i := range ix.Projects {
		if ix.Projects[i].ID == s.ID {
			ix.Projects[i] = s
			return
		}
	}
	ix.Projects = append(ix.Projects, s)
}

// Remove drops the entry with the given id and returns it.
func (ix *Index) Remove(id string) (ProjectSummary, bool) {
	for i, p := range ix.Projects {
		if p.ID == id {
			ix.Projects = append(ix.Projects[:i], ix.Projects[i+1:]...)
			return p, true
		}
	}
	return ProjectSummary{}, false
}

// Slugs returns the set of directory names referenced by the index.
func (ix *Index) Slugs() map[string]bool {
	out := make(map[string]bool, len(ix.Projects))
	for _, p := range ix.Projects {
		out[p.Slug] = true
	}
	return out
}

// SortByUpdated orders entries by UpdatedAt descending, then by slug.
func (ix *Index) SortByUpdated() {
	sort.SliceStable(ix.Projects, func(i, j int) bool {
		a, b := ix.Projects[i], ix.Projects[j]
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		return a.Slug < b.Slug
	})
}

// Clone returns a copy that shares no slice storage with ix.
func (ix *Index) Clone() *Index {
	return &Index{
		Version:  ix.Version,
		Projects: append([]ProjectSummary{}, ix.Projects...),
	}
}

// ReadIndexFile reads the index at path. A zero-length file yields an
// empty index.
func ReadIndexFile(path string) (*Index, error) {
	ix := NewIndex()
	if err := record.ReadJSON(path, ix); err != nil {
		return nil, err
	}
	if ix.Version == 0 {
		ix.Version = IndexVersion
	}
	if ix.Projects == nil {
		ix.Projects = []ProjectSummary{}
	}
	return ix, nil
}

// WriteIndexFile writes the index to path.
func WriteIndexFile(path string, ix *Index) error {
	return record.WriteJSON(path, ix)
}
