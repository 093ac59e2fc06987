package schema

import "time"

// Scene is one ordered unit of a project: text plus optional media.
type Scene struct {
	ID                string       `json:"id"`
	Text              string       `json:"text"`
	Translation       string       `json:"translation"`
	ImagePath         string       `json:"imagePath"`
	ImageOriginalName string       `json:"imageOriginalName"`
	ImageType         string       `json:"imageType"`
	Rating            *int         `json:"rating"`
	Attachments       []Attachment `json:"attachments"`
}

// HasImage reports whether a primary image is linked to the scene.
func (s *Scene) HasImage() bool {
	return s.ImagePath != ""
}

// ClearImage unlinks the primary image fields. It does not touch the file.
func (s *Scene) ClearImage() {
	s.ImagePath = ""
	s.ImageOriginalName = ""
	s.ImageType = ""
}

// Attachment returns the attachment stored under filename.
func (s *Scene) Attachment(filename string) (Attachment, int, bool) {
	for i, a := range s.Attachments {
		if a.Filename == filename {
			return a, i, true
		}
	}
	return Attachment{}, -1, false
}

// Clone returns a deep copy of the scene.
func (s Scene) Clone() Scene {
	out := s
	if s.Rating != nil {
		r := *s.Rating
		out.Rating = &r
	}
	out.Attachments = append([]Attachment{}, s.Attachments...)
	return out
}

// Attachment is a secondary media file stored in the project's
// attachments directory.
type Attachment struct {
	Filename     string    `json:"filename"`
	OriginalName string    `json:"originalName"`
	Type         string    `json:"type"`
	Size         int64     `json:"size"`
	AddedAt      time.Time `json:"addedAt"`
}

// Transition annotates the gap between the scene at SceneIndex and the one
// after it.
type Transition struct {
	SceneIndex  int       `json:"sceneIndex"`
	Description string    `json:"description"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
