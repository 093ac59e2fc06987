package assets

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Category is the broad media kind of an asset.
type Category string

const (
	CategoryImage Category = "image"
	CategoryVideo Category = "video"
	CategoryAudio Category = "audio"
	CategoryText  Category = "text"
)

var extensionCategories = map[string]Category{
	".png": CategoryImage, ".jpg": CategoryImage, ".jpeg": CategoryImage, ".gif": CategoryImage,
	".webp": CategoryImage, ".bmp": CategoryImage, ".svg": CategoryImage, ".avif": CategoryImage,
	".heic": CategoryImage, ".tif": CategoryImage, ".tiff": CategoryImage,

	".mp4": CategoryVideo, ".m4v": CategoryVideo, ".mov": CategoryVideo, ".webm": CategoryVideo,
	".mkv": CategoryVideo, ".avi": CategoryVideo, ".mpeg": CategoryVideo, ".mpg": CategoryVideo,

	".mp3": CategoryAudio, ".wav": CategoryAudio, ".ogg": CategoryAudio, ".oga": CategoryAudio,
	".m4a": CategoryAudio, ".flac": CategoryAudio, ".aac": CategoryAudio, ".opus": CategoryAudio,

	".txt": CategoryText,
}

// mediaType strips parameters from a MIME type: "text/plain; charset=utf-8"
// becomes "text/plain".
func mediaType(declared string) string {
	t, _, _ := strings.Cut(declared, ";")
	return strings.ToLower(strings.TrimSpace(t))
}

// categoryOfType maps a declared MIME type to a category.
func categoryOfType(declared string) (Category, bool) {
	t := mediaType(declared)
	switch {
	case strings.HasPrefix(t, "image/"):
		return CategoryImage, true
	case strings.HasPrefix(t, "video/"):
		return CategoryVideo, true
	case strings.HasPrefix(t, "audio/"):
		return CategoryAudio, true
	case t == "text/plain":
		return CategoryText, true
	}
	return "", false
}

// Classify returns the category of a file from its declared type or, failing
// that, its extension. Files that are neither image, video, audio nor plain
// text are not classifiable.
func Classify(name, declared string) (Category, bool) {
	if c, ok := categoryOfType(declared); ok {
		return c, true
	}
	c, ok := extensionCategories[strings.ToLower(filepath.Ext(name))]
	return c, ok
}

// extensionFor picks the extension for a stored image: the source name's
// extension when present, else the one registered for the MIME type.
func extensionFor(name, mimeType string) string {
	if ext := filepath.Ext(name); ext != "" {
		return ext
	}
	if m := mimetype.Lookup(mediaType(mimeType)); m != nil {
		return m.Extension()
	}
	return ""
}
