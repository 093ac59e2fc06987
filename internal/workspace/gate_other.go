//go:build !unix

package workspace

import (
	"errors"
	"io/fs"
	"os"
)

type probeGate struct{}

// DefaultGate checks write permission by creating and removing a probe file.
func DefaultGate() Gate {
	return probeGate{}
}

func (probeGate) EnsureWritable(root string) (bool, error) {
	f, err := os.CreateTemp(root, ".storyreel-probe-*")
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return false, nil
		}
		return false, err
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return true, nil
}
