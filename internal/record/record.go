// Package record reads and writes single-file records with whole-file
// replace semantics.
//
// Writes go to a temporary file in the target's directory which is synced
// and renamed over the target, so after a crash either the old or the new
// content is observable. There is no transaction spanning several files:
// writing the index and writing a project record are two independent
// operations.
package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/storyreel/storyreel/internal/storeerr"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// WriteJSON replaces the contents of path with the indented JSON encoding of v.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return storeerr.IO("write record", path, fmt.Errorf("encode: %w", err))
	}
	data = append(data, '\n')
	return WriteBytes(path, data)
}

// WriteBytes replaces the contents of path with data, regardless of the
// previous content length.
func WriteBytes(path string, data []byte) error {
	_, err := WriteFrom(path, bytes.NewReader(data))
	return err
}

// WriteFrom streams r into path and returns the number of bytes written.
// The parent directory is created when missing.
func WriteFrom(path string, r io.Reader) (int64, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return 0, storeerr.IO("write record", path, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return 0, storeerr.IO("write record", path, err)
	}
	tmpPath := tmp.Name()

	// Anything past this point must remove the temp file on failure.
	fail := func(err error) (int64, error) {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return 0, storeerr.IO("write record", path, err)
	}

	n, err := io.Copy(tmp, r)
	if err != nil {
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return 0, storeerr.IO("write record", path, err)
	}
	if err := os.Chmod(tmpPath, filePerm); err != nil {
		_ = os.Remove(tmpPath)
		return 0, storeerr.IO("write record", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return 0, storeerr.IO("write record", path, err)
	}

	return n, nil
}

// ReadJSON decodes the record at path into v. A zero-length file is an
// empty record: v is left untouched and no error is returned.
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return storeerr.IO("read record", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return storeerr.IO("read record", path, fmt.Errorf("parse: %w", err))
	}
	return nil
}

// ReadBytes returns the raw contents of path.
func ReadBytes(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, storeerr.IO("read record", path, err)
	}
	return data, nil
}

// CopyFile copies src to dst byte for byte through WriteFrom.
func CopyFile(src, dst string) (int64, error) {
	// #nosec G304 - paths are built by the store from validated names
	in, err := os.Open(src)
	if err != nil {
		return 0, storeerr.IO("copy file", src, err)
	}
	defer in.Close()

	return WriteFrom(dst, in)
}

// Remove deletes path. A file that is already gone is not an error.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return storeerr.IO("remove file", path, err)
	}
	return nil
}

// Exists reports whether path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
