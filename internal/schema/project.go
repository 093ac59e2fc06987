package schema

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/storyreel/storyreel/internal/record"
)

// Required keys of a project file. A record missing any of them is repaired
// by the reconciler.
const (
	KeyID             = "id"
	KeyProjectName    = "projectName"
	KeyCreatedAt      = "createdAt"
	KeyUpdatedAt      = "updatedAt"
	KeyVideoGenerator = "videoGenerator"
	KeyNotes          = "notes"
	KeyPrompts        = "prompts"
)

var requiredKeys = []string{
	KeyID, KeyProjectName, KeyCreatedAt, KeyUpdatedAt,
	KeyVideoGenerator, KeyNotes, KeyPrompts,
}

// ProjectRecord is the authoritative record of one project, stored as
// projects/<slug>/project.json.
type ProjectRecord struct {
	ID             string       `json:"id"`
	ProjectName    string       `json:"projectName"`
	VideoGenerator string       `json:"videoGenerator"`
	Notes          string       `json:"notes"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
	Prompts        []Scene      `json:"prompts"`
	Transitions    []Transition `json:"transitions"`
}

// NewProjectRecord returns an empty record stamped with now.
func NewProjectRecord(id, name string, now time.Time) *ProjectRecord {
	return &ProjectRecord{
		ID:          id,
		ProjectName: name,
		CreatedAt:   now,
		UpdatedAt:   now,
		Prompts:     []Scene{},
		Transitions: []Transition{},
	}
}

// Validate checks the fields every persisted record must carry.
func (p *ProjectRecord) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("id is required")
	}
	if p.ProjectName == "" {
		return fmt.Errorf("projectName is required")
	}
	if p.CreatedAt.IsZero() {
		return fmt.Errorf("createdAt is required")
	}
	if p.UpdatedAt.IsZero() {
		return fmt.Errorf("updatedAt is required")
	}
	seen := make(map[string]bool, len(p.Prompts))
	for i, s := range p.Prompts {
		if s.ID == "" {
			return fmt.Errorf("scene %d has no id", i)
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate scene id %s", s.ID)
		}
		seen[s.ID] = true
	}
	return nil
}

// Backfill fills fields that legacy records may lack. Absent ratings stay
// null; absent slices become empty.
func (p *ProjectRecord) Backfill() {
	if p.Prompts == nil {
		p.Prompts = []Scene{}
	}
	if p.Transitions == nil {
		p.Transitions = []Transition{}
	}
	for i := range p.Prompts {
		if p.Prompts[i].Attachments == nil {
			p.Prompts[i].Attachments = []Attachment{}
		}
	}
}

// Touch sets UpdatedAt to now.
func (p *ProjectRecord) Touch(now time.Time) {
	p.UpdatedAt = now
}

// SceneIndex returns the position of the scene with the given id, or -1.
func (p *ProjectRecord) SceneIndex(id string) int {
	for i := range p.Prompts {
		if p.Prompts[i].ID == id {
			return i
		}
	}
	return -1
}

// Scene returns a pointer into Prompts for the scene with the given id.
func (p *ProjectRecord) Scene(id string) (*Scene, bool) {
	i := p.SceneIndex(id)
	if i < 0 {
		return nil, false
	}
	return &p.Prompts[i], true
}

// Summary derives the index entry for this record.
func (p *ProjectRecord) Summary(slug string) ProjectSummary {
	return ProjectSummary{
		ID:             p.ID,
		Slug:           slug,
		ProjectName:    p.ProjectName,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
		PromptCount:    len(p.Prompts),
		VideoGenerator: p.VideoGenerator,
		Notes:          p.Notes,
	}
}

// Clone returns a deep copy of the record.
func (p *ProjectRecord) Clone() *ProjectRecord {
	out := *p
	out.Prompts = make([]Scene, len(p.Prompts))
	for i, s := range p.Prompts {
		out.Prompts[i] = s.Clone()
	}
	out.Transitions = append([]Transition{}, p.Transitions...)
	return &out
}

// ReadProjectFile reads a project record and reports which required keys
// were absent (or null) in the file. A zero-length file yields an empty
// record with every key missing.
func ReadProjectFile(path string) (*ProjectRecord, []string, error) {
	var raw map[string]json.RawMessage
	if err := record.ReadJSON(path, &raw); err != nil {
		return nil, nil, err
	}

	var missing []string
	for _, key := range requiredKeys {
		v, ok := raw[key]
		if !ok || string(v) == "null" {
			missing = append(missing, key)
		}
	}

	var p ProjectRecord
	if len(raw) > 0 {
		if err := record.ReadJSON(path, &p); err != nil {
			return nil, nil, err
		}
	}
	return &p, missing, nil
}

// WriteProjectFile validates and writes a project record to path.
func WriteProjectFile(path string, p *ProjectRecord) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("cannot write invalid project %s: %w", path, err)
	}
	return record.WriteJSON(path, p)
}
