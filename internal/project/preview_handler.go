package project

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/storyreel/storyreel/internal/assets"
	"github.com/storyreel/storyreel/internal/storeerr"
)

// PreviewResponse is the body PreviewHandler answers with.
type PreviewResponse struct {
	Token    string    `json:"token"`
	URL      string    `json:"url"`
	IssuedAt time.Time `json:"issuedAt"`
}

// PreviewHandler issues preview handles from the store's cache:
//
//	GET ?project=<id|slug>&scene=<id>            scene image
//	GET ?project=<id|slug>&scene=<id>&file=<fn>  attachment
//
// The returned URL is relative to the server root and stays valid until
// the same file is previewed again or the cache is released. The session
// opened here is not closed, since closing would revoke the handle.
func (s *Store) PreviewHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const op = "preview"
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		q := r.URL.Query()
		ref, sceneID, file := q.Get("project"), q.Get("scene"), q.Get("file")
		if ref == "" || sceneID == "" {
			writePreviewError(w, storeerr.Validation(op, "project and scene are required"))
			return
		}

		p, err := s.Resolve(ref)
		if err != nil {
			writePreviewError(w, err)
			return
		}
		sess, err := s.Open(p.ID)
		if err != nil {
			writePreviewError(w, err)
			return
		}

		var h assets.Handle
		if file == "" {
			h, err = sess.PreviewImage(sceneID)
		} else {
			h, err = sess.PreviewAttachment(sceneID, file)
		}
		if err != nil {
			writePreviewError(w, err)
			return
		}
		s.logger.Debugw("preview issued", "project", p.Slug, "scene", sceneID, "file", file)

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		_ = json.NewEncoder(w).Encode(PreviewResponse{
			Token:    h.Token,
			URL:      "/preview/" + h.Token,
			IssuedAt: h.IssuedAt,
		})
	})
}

func writePreviewError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, storeerr.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, storeerr.ErrValidation):
		status = http.StatusBadRequest
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
