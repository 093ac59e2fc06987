// Package storeerr defines the error taxonomy shared by the storyreel store.
//
// Every error produced by the store packages can be classified with errors.Is
// against one of the sentinel kinds below:
//
//	if errors.Is(err, storeerr.ErrNotFound) {
//	    // the referenced project, scene or file is absent
//	}
//
// The wrapped cause stays reachable too, so errors.Is(err, fs.ErrPermission)
// keeps working on an IO failure.
package storeerr

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is returned for bad user input (empty project name,
	// unsupported attachment type, unknown field). No state is mutated.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a referenced project, scene or asset
	// does not exist. No state is mutated.
	ErrNotFound = errors.New("not found")

	// ErrIO is returned when reading, writing or deleting a record or
	// asset file fails.
	ErrIO = errors.New("io failure")

	// ErrPermissionDenied is returned when the workspace root is not
	// writable. It blocks every mutating operation.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrLimitReached is returned when a scene already holds the maximum
	// number of attachments.
	ErrLimitReached = errors.New("limit reached")

	// ErrWorkspaceBusy is returned when another process holds the
	// workspace lock.
	ErrWorkspaceBusy = errors.New("workspace busy")
)

// Error carries the kind of failure, the operation that failed and the
// underlying cause.
type Error struct {
	Kind error
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.Error()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Validation builds an ErrValidation error.
func Validation(op, format string, args ...any) error {
	return &Error{Kind: ErrValidation, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// NotFound builds an ErrNotFound error.
func NotFound(op, format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// NotFoundCause builds an ErrNotFound error that keeps the cause, e.g. an
// unreadable record behind an id that is present in the index.
func NotFoundCause(op string, err error, format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Op: op, Msg: fmt.Sprintf(format, args...), Err: err}
}

// IO wraps a filesystem failure on path.
func IO(op, path string, err error) error {
	return &Error{Kind: ErrIO, Op: op, Msg: path, Err: err}
}

// PermissionDenied reports that root is not writable.
func PermissionDenied(op, root string) error {
	return &Error{Kind: ErrPermissionDenied, Op: op, Msg: fmt.Sprintf("workspace %s is not writable", root)}
}

// LimitReached reports that a per-scene ceiling was hit.
func LimitReached(op, format string, args ...any) error {
	return &Error{Kind: ErrLimitReached, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// IsUserError reports whether err is one of the user-input kinds (validation, not
// found, limit) as opposed to an environmental failure.
func IsUserError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrLimitReached)
}
