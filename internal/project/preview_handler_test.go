package project

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storyreel/storyreel/internal/assets"
	"github.com/storyreel/storyreel/internal/notify"
)

func previewServer(t *testing.T, f *fixture) *httptest.Server {
	t.Helper()
	server := notify.NewServer(notify.Config{Preview: f.store.Previews()})
	server.Handle("/api/preview", f.store.PreviewHandler())
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func issuePreview(t *testing.T, ts *httptest.Server, params url.Values) (int, PreviewResponse) {
	t.Helper()
	resp, err := http.Get(ts.URL + "/api/preview?" + params.Encode())
	require.NoError(t, err)
	defer resp.Body.Close()
	var out PreviewResponse
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out
}

func fetch(t *testing.T, ts *httptest.Server, path string) (int, []byte) {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func TestPreviewHandlerIssuesServableHandles(t *testing.T) {
	f := newFixture(t)
	sess := openNew(t, f, "Previews", 1)
	sceneID := sceneIDs(sess)[0]
	require.NoError(t, sess.AssignImage(sceneID, assets.FileFromBytes("a.png", "image/png", pngBytes)))
	_, err := sess.AddAttachments(sceneID, []assets.File{
		assets.FileFromBytes("notes.txt", "", []byte("shot list")),
	})
	require.NoError(t, err)
	require.NoError(t, sess.Save(context.Background()))
	attachment := sess.Record().Prompts[0].Attachments[0].Filename

	ts := previewServer(t, f)

	status, first := issuePreview(t, ts, url.Values{"project": {sess.Slug}, "scene": {sceneID}})
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, first.Token)
	assert.Equal(t, "/preview/"+first.Token, first.URL)

	status, body := fetch(t, ts, first.URL)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, pngBytes, body)

	// A second request for the same image revokes the first handle.
	status, second := issuePreview(t, ts, url.Values{"project": {sess.ID}, "scene": {sceneID}})
	require.Equal(t, http.StatusOK, status)
	assert.NotEqual(t, first.Token, second.Token)
	status, _ = fetch(t, ts, first.URL)
	assert.Equal(t, http.StatusNotFound, status)

	status, att := issuePreview(t, ts, url.Values{"project": {sess.Slug}, "scene": {sceneID}, "file": {attachment}})
	require.Equal(t, http.StatusOK, status)
	status, body = fetch(t, ts, att.URL)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "shot list", string(body))
}

func TestPreviewHandlerErrors(t *testing.T) {
	f := newFixture(t)
	sess := openNew(t, f, "Previews", 1)
	sceneID := sceneIDs(sess)[0]
	require.NoError(t, sess.Save(context.Background()))
	ts := previewServer(t, f)

	tests := []struct {
		name   string
		params url.Values
		want   int
	}{
		{"missing scene", url.Values{"project": {sess.Slug}}, http.StatusBadRequest},
		{"unknown project", url.Values{"project": {"nope"}, "scene": {sceneID}}, http.StatusNotFound},
		{"unknown scene", url.Values{"project": {sess.Slug}, "scene": {"nope"}}, http.StatusNotFound},
		{"scene without image", url.Values{"project": {sess.Slug}, "scene": {sceneID}}, http.StatusNotFound},
		{"unknown attachment", url.Values{"project": {sess.Slug}, "scene": {sceneID}, "file": {"x.txt"}}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := issuePreview(t, ts, tt.params)
			assert.Equal(t, tt.want, status)
		})
	}

	resp, err := http.Post(ts.URL+"/api/preview", "text/plain", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
