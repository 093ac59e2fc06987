package assets

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
)

// File is an incoming asset. Open is called at most once, only after the
// file has passed validation, and the returned reader is always closed.
type File struct {
	Name string
	Type string
	Open func() (io.ReadCloser, error)
}

// FileFromPath returns a File backed by a path on disk. The declared type is
// left empty so it is sniffed from the content.
func FileFromPath(path string) File {
	return File{
		Name: filepath.Base(path),
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}
}

// FileFromBytes returns a File backed by an in-memory buffer.
func FileFromBytes(name, declaredType string, data []byte) File {
	return File{
		Name: name,
		Type: declaredType,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}
