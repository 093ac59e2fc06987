package workspace

// Gate decides whether the workspace root may be written to. The store
// consults it before every write path; a false answer blocks the operation
// before any structure is created.
type Gate interface {
	EnsureWritable(root string) (bool, error)
}

// GateFunc adapts a function to the Gate interface.
type GateFunc func(root string) (bool, error)

// EnsureWritable implements Gate.
func (f GateFunc) EnsureWritable(root string) (bool, error) {
	return f(root)
}

// AllowAll is a Gate that always grants write access.
var AllowAll Gate = GateFunc(func(string) (bool, error) { return true, nil })

// DenyAll is a Gate that never grants write access.
var DenyAll Gate = GateFunc(func(string) (bool, error) { return false, nil })
