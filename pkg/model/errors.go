package model

import (
	"errors"
	"fmt"
)

// Construction errors
var (
	// ErrInvalidRootElement indicates the widget was built without an existing
	// root element to render into.
	ErrInvalidRootElement = errors.New("invalid root element")
)

// Tree errors
var (
	// ErrNotFound indicates that a referenced node id does not exist.
	ErrNotFound = errors.New("node not found")

	// ErrInvalidOperation indicates a structurally disallowed operation, such
	// as removing the root or moving a node under itself.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrCycle indicates that a reparent would make a node its own ancestor.
	// The tree model translates it into ErrInvalidOperation.
	ErrCycle = errors.New("move would create a cycle")
)

// TreeError wraps a tree error with the operation and node that caused it.
type TreeError struct {
	Op     string // "add", "remove", "move", ...
	ID     string // Node the operation was applied to
	Target string // Second node for two-node operations (move)
	Err    error  // One of the sentinel errors above
}

func (e *TreeError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("%s %s -> %s: %v", e.Op, e.ID, e.Target, e.Err)
	}
	if e.ID != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.ID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TreeError) Unwrap() error {
	return e.Err
}

// NotFound builds a TreeError wrapping ErrNotFound.
func NotFound(op, id string) error {
	return &TreeError{Op: op, ID: id, Err: ErrNotFound}
}

// InvalidOperation builds a TreeError wrapping ErrInvalidOperation with a reason.
func InvalidOperation(op, id, reason string) error {
	return &TreeError{Op: op, ID: id, Err: fmt.Errorf("%w: %s", ErrInvalidOperation, reason)}
}
