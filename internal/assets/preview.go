package assets

import (
	"net/http"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Key identifies a preview slot. Filename is empty for a scene's primary
// image and names the attachment otherwise.
type Key struct {
	SceneID  string
	Filename string
}

// ImageKey returns the slot of a scene's primary image.
func ImageKey(sceneID string) Key {
	return Key{SceneID: sceneID}
}

// AttachmentKey returns the slot of one attachment.
func AttachmentKey(sceneID, filename string) Key {
	return Key{SceneID: sceneID, Filename: filename}
}

// Handle is a transient, revocable reference to an asset file. Its token
// is what a display layer holds; once revoked the token no longer resolves.
type Handle struct {
	Token    string
	Path     string
	Key      Key
	IssuedAt time.Time
}

// PreviewCache tracks at most one live handle per key. Issuing a handle for
// a key always revokes the previous one first, so no handle is leaked.
//
// The cache is safe for concurrent use: the HTTP preview endpoint resolves
// tokens from server goroutines while the store issues and revokes them.
type PreviewCache struct {
	mu      sync.Mutex
	byKey   map[Key]Handle
	byToken map[string]Handle
	now     func() time.Time
}

// NewPreviewCache returns an empty cache.
func NewPreviewCache() *PreviewCache {
	return &PreviewCache{
		byKey:   make(map[Key]Handle),
		byToken: make(map[string]Handle),
		now:     time.Now,
	}
}

// Acquire revokes any live handle for key and issues a new one for path.
func (c *PreviewCache) Acquire(key Key, filePath string) Handle {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.revokeLocked(key)
	h := Handle{
		Token:    uuid.NewString(),
		Path:     filePath,
		Key:      key,
		IssuedAt: c.now(),
	}
	c.byKey[key] = h
	c.byToken[h.Token] = h
	return h
}

// Release revokes the handle for key. It reports whether one was live.
func (c *PreviewCache) Release(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.revokeLocked(key)
}

// ReleaseScene revokes every handle issued for a scene and returns how many
// were live.
func (c *PreviewCache) ReleaseScene(sceneID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for key := range c.byKey {
		if key.SceneID == sceneID && c.revokeLocked(key) {
			n++
		}
	}
	return n
}

// ReleaseAll revokes every live handle.
func (c *PreviewCache) ReleaseAll() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.byKey)
	c.byKey = make(map[Key]Handle)
	c.byToken = make(map[string]Handle)
	return n
}

func (c *PreviewCache) revokeLocked(key Key) bool {
	h, ok := c.byKey[key]
	if !ok {
		return false
	}
	delete(c.byKey, key)
	delete(c.byToken, h.Token)
	return true
}

// Resolve returns the live handle for token.
func (c *PreviewCache) Resolve(token string) (Handle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.byToken[token]
	return h, ok
}

// Current returns the live handle for key.
func (c *PreviewCache) Current(key Key) (Handle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.byKey[key]
	return h, ok
}

// Len returns the number of live handles.
func (c *PreviewCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byKey)
}

// ServeHTTP serves the file behind a live token. The token is the last path
// element, e.g. /preview/<token>. Revoked or unknown tokens get 404.
func (c *PreviewCache) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h, ok := c.Resolve(path.Base(r.URL.Path))
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	http.ServeFile(w, r, h.Path)
}
