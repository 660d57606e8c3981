package flow

import (
	"errors"
	"fmt"
)

var (
	// ErrImpossible is returned by Extract when the requested partition is
	// over-constrained. The graph is left untouched.
	ErrImpossible = errors.New("impossible")

	// ErrInvariant marks a broken graph invariant: a defect in the calling
	// code or corrupted saved data.
	ErrInvariant = errors.New("invariant violation")

	ErrUnknownNode    = errors.New("unknown node")
	ErrNotComposite   = errors.New("node is not a composite")
	ErrNotHub         = errors.New("node is not a hub")
	ErrEmptySelection = errors.New("empty node selection")
)

// NoNode marks an InvariantError that is not about a single node. Saved
// graphs may use id 0, so the zero value cannot serve.
const NoNode NodeID = -1

// InvariantError describes a single invariant violation.
type InvariantError struct {
	Op   string // operation that detected it, e.g. "load", "remove-node"
	Node NodeID // NoNode when not node-specific
	Msg  string
}

func (e *InvariantError) Error() string {
	if e.Node == NoNode {
		return fmt.Sprintf("%s: %s: %s", e.Op, ErrInvariant, e.Msg)
	}
	return fmt.Sprintf("%s: %s: node %d: %s", e.Op, ErrInvariant, e.Node, e.Msg)
}

func (e *InvariantError) Unwrap() error { return ErrInvariant }

func violation(op string, id NodeID, format string, args ...any) *InvariantError {
	return &InvariantError{Op: op, Node: id, Msg: fmt.Sprintf(format, args...)}
}

// impossible wraps ErrImpossible with the reason the request cannot be met.
func impossible(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrImpossible, fmt.Sprintf(format, args...))
}
