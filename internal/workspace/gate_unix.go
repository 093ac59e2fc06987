//go:build unix

package workspace

import (
	"errors"

	"golang.org/x/sys/unix"
)

type accessGate struct{}

// DefaultGate checks write and search permission on the root with access(2).
func DefaultGate() Gate {
	return accessGate{}
}

func (accessGate) EnsureWritable(root string) (bool, error) {
	err := unix.Access(root, unix.W_OK|unix.X_OK)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, unix.EACCES) || errors.Is(err, unix.EROFS) || errors.Is(err, unix.EPERM) {
		return false, nil
	}
	return false, err
}
