//
// Copyright (c) 2026 Torbjörn Brenner
//
// All rights reserved.
//

package linkconfig

import "fmt"

// Kind classifies the errors the linkage engine and its collaborators
// can return. Every error kind is surfaced immediately; the core never
// retries or silently recovers.
type Kind int

// Error kinds.
const (
	// InvalidConfig signals a violated LinkConfig invariant: non-disjoint
	// exchange groups, a mismatched comparator or bit width within a
	// group, or an out-of-range threshold.
	InvalidConfig Kind = iota
	// PrecisionOverflow signals that an explicit precision setting
	// violates the machine bit-width budget.
	PrecisionOverflow
	// ShapeMismatch signals a missing field, a byte vector of the wrong
	// length for its bit width, or a database column whose length does
	// not equal nvals.
	ShapeMismatch
	// EmptyDatabase signals nvals == 0.
	EmptyDatabase
	// IllegalState signals an operation invoked in the wrong engine
	// state.
	IllegalState
	// BackendError signals a failure in the underlying MPC backend:
	// wiring, setup or execution.
	BackendError
)

func (k Kind) String() string {
	switch k {
	case InvalidConfig:
		return "InvalidConfig"
	case PrecisionOverflow:
		return "PrecisionOverflow"
	case ShapeMismatch:
		return "ShapeMismatch"
	case EmptyDatabase:
		return "EmptyDatabase"
	case IllegalState:
		return "IllegalState"
	case BackendError:
		return "BackendError"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is the typed error sum surfaced by the linkage engine and its
// collaborators. Callers match on Kind via errors.Is against the
// exported sentinels below.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same Kind, allowing
// callers to write errors.Is(err, linkconfig.ErrInvalidConfig).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// NewError constructs an *Error of the given kind for operation op,
// wrapping the underlying cause (which may be nil).
func NewError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Sentinel errors, one per Kind, for use with errors.Is.
var (
	ErrInvalidConfig     = &Error{Kind: InvalidConfig}
	ErrPrecisionOverflow = &Error{Kind: PrecisionOverflow}
	ErrShapeMismatch     = &Error{Kind: ShapeMismatch}
	ErrEmptyDatabase     = &Error{Kind: EmptyDatabase}
	ErrIllegalState      = &Error{Kind: IllegalState}
	ErrBackendError      = &Error{Kind: BackendError}
)
