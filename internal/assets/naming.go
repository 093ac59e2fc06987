package assets

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

const maxOriginalNameLength = 100

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeName turns an original file name into something safe to embed in
// a generated filename.
func SanitizeName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	s := unsafeNameChars.ReplaceAllString(base, "_")
	s = strings.Trim(s, "._")
	if len(s) > maxOriginalNameLength {
		ext := filepath.Ext(s)
		if len(ext) > 10 {
			ext = ""
		}
		s = s[:maxOriginalNameLength-len(ext)] + ext
	}
	if s == "" {
		return "file"
	}
	return s
}

// attachmentName builds {sceneId}_{unixMillis}_{sanitizedName}.
func attachmentName(sceneID string, millis int64, original string) string {
	return sceneID + "_" + strconv.FormatInt(millis, 10) + "_" + SanitizeName(original)
}

// imageName builds {sceneId}{ext}.
func imageName(sceneID, ext string) string {
	return sceneID + strings.ToLower(ext)
}
