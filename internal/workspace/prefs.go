package workspace

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/storyreel/storyreel/internal/record"
)

// LastRootKey is the preference key that remembers the last opened root.
const LastRootKey = "last_root"

// Preferences is a small key-value store kept in a TOML file. It only holds
// opaque strings; callers treat every failure as non-fatal.
type Preferences struct {
	path string
}

// NewPreferences returns a store backed by path.
func NewPreferences(path string) *Preferences {
	return &Preferences{path: path}
}

// DefaultPreferences returns the per-user store under os.UserConfigDir.
func DefaultPreferences() (*Preferences, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to locate user config dir: %w", err)
	}
	return NewPreferences(filepath.Join(dir, "storyreel", "prefs.toml")), nil
}

// Path returns the backing file.
func (p *Preferences) Path() string { return p.path }

func (p *Preferences) load() (map[string]string, error) {
	values := map[string]string{}
	if _, err := toml.DecodeFile(p.path, &values); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return values, nil
		}
		return nil, fmt.Errorf("failed to read preferences %s: %w", p.path, err)
	}
	return values, nil
}

func (p *Preferences) save(values map[string]string) error {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(values); err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}
	return record.WriteBytes(p.path, buf.Bytes())
}

// Get returns the value stored under key.
func (p *Preferences) Get(key string) (string, bool, error) {
	values, err := p.load()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

// Put stores value under key.
func (p *Preferences) Put(key, value string) error {
	values, err := p.load()
	if err != nil {
		// A corrupt file is replaced rather than blocking the write.
		values = map[string]string{}
	}
	values[key] = value
	return p.save(values)
}

// Delete removes key. Deleting an absent key is not an error.
func (p *Preferences) Delete(key string) error {
	values, err := p.load()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return p.save(values)
}
