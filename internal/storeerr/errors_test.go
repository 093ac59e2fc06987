package storeerr

import (
	"errors"
	"io/fs"
	"strings"
	"testing"
)

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind error
		msg  string
	}{
		{"validation", Validation("create project", "name is required"), ErrValidation, "create project: name is required"},
		{"not found", NotFound("open project", "project %q", "p1"), ErrNotFound, `open project: project "p1"`},
		{"io", IO("save project", "/tmp/x/project.json", fs.ErrPermission), ErrIO, "save project: /tmp/x/project.json: permission denied"},
		{"permission", PermissionDenied("create project", "/ws"), ErrPermissionDenied, "workspace /ws is not writable"},
		{"limit", LimitReached("add attachments", "scene already has %d attachments", 8), ErrLimitReached, "8 attachments"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.kind) {
				t.Errorf("errors.Is(%v, %v) = false", tt.err, tt.kind)
			}
			if !strings.Contains(tt.err.Error(), tt.msg) {
				t.Errorf("Error() = %q, want it to contain %q", tt.err.Error(), tt.msg)
			}
		})
	}
}

func TestCauseIsReachable(t *testing.T) {
	err := IO("write record", "/x", fs.ErrPermission)
	if !errors.Is(err, fs.ErrPermission) {
		t.Error("expected wrapped cause to match fs.ErrPermission")
	}

	var se *Error
	if !errors.As(err, &se) {
		t.Fatal("expected *Error")
	}
	if se.Op != "write record" {
		t.Errorf("Op = %q, want %q", se.Op, "write record")
	}
}

func TestIsUserError(t *testing.T) {
	if !IsUserError(Validation("op", "bad")) {
		t.Error("validation should be a user error")
	}
	if IsUserError(IO("op", "/x", fs.ErrClosed)) {
		t.Error("io failure should not be a user error")
	}
	if IsUserError(nil) {
		t.Error("nil should not be a user error")
	}
}
