package reactive

import (
	"errors"
	"fmt"
	"reflect"
)

// Code identifies the class of a store error.
// Codes line up with the catalogue in internal/errors.
type Code string

const (
	CodeMissingState   Code = "E101"
	CodeTypeMismatch   Code = "E102"
	CodeNotWritable    Code = "E103"
	CodeKindMismatch   Code = "E104"
	CodeUndoNotEnabled Code = "E105"
	CodeClosed         Code = "E106"
	CodeDepthExceeded  Code = "E107"
	CodeRebuildFailed  Code = "E108"
)

// Sentinel errors for errors.Is checks against *Error values.
var (
	// ErrMissingState matches any read, write or update against an identifier
	// that holds no value of the requested type. Type mismatches are part of
	// this class.
	ErrMissingState = errors.New("reactive: missing state")

	// ErrTypeMismatch matches accesses whose type differs from the stored one.
	ErrTypeMismatch = errors.New("reactive: type mismatch")

	// ErrNotWritable is returned when a caller writes to a computed cell.
	ErrNotWritable = errors.New("reactive: cell is not writable")

	// ErrKindMismatch is returned when an identifier is re-created as a
	// different kind of cell (an atom as a computed or the reverse).
	ErrKindMismatch = errors.New("reactive: cell kind mismatch")

	// ErrUndoNotEnabled is returned for undo operations on an atom created
	// without history, and when history is requested for an existing plain atom.
	ErrUndoNotEnabled = errors.New("reactive: undo not enabled for cell")

	// ErrClosed is returned by every operation on a closed store.
	ErrClosed = errors.New("reactive: store closed")

	// ErrDepthExceeded is returned when propagation goes deeper than the
	// limit set with WithMaxDepth. It almost always means a dependency cycle.
	ErrDepthExceeded = errors.New("reactive: propagation depth exceeded")

	// ErrRebuildFailed wraps an error returned by a computed's build function.
	ErrRebuildFailed = errors.New("reactive: rebuild failed")
)

var codeSentinels = map[Code]error{
	CodeMissingState:   ErrMissingState,
	CodeTypeMismatch:   ErrTypeMismatch,
	CodeNotWritable:    ErrNotWritable,
	CodeKindMismatch:   ErrKindMismatch,
	CodeUndoNotEnabled: ErrUndoNotEnabled,
	CodeClosed:         ErrClosed,
	CodeDepthExceeded:  ErrDepthExceeded,
	CodeRebuildFailed:  ErrRebuildFailed,
}

// Error describes a failed store operation.
type Error struct {
	// Op is the operation that failed (e.g. "set", "update", "track").
	Op string

	// ID is the cell identifier involved.
	ID string

	// Code is the error class.
	Code Code

	// Want and Got are set for type mismatches.
	Want reflect.Type
	Got  reflect.Type

	// Kind is the kind the cell was registered as, for kind errors.
	Kind Kind

	// Depth is the propagation depth reached, for depth errors.
	Depth int

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var detail string
	switch e.Code {
	case CodeMissingState:
		detail = "no value stored"
	case CodeTypeMismatch:
		detail = fmt.Sprintf("stored %s, requested %s", e.Got, e.Want)
	case CodeNotWritable:
		detail = "computed cells are read-only"
	case CodeKindMismatch:
		detail = fmt.Sprintf("already registered as %s", e.Kind)
	case CodeUndoNotEnabled:
		detail = "atom was created without undo history"
	case CodeClosed:
		detail = "store is closed"
	case CodeDepthExceeded:
		detail = fmt.Sprintf("propagation reached depth %d", e.Depth)
	case CodeRebuildFailed:
		detail = "build function failed"
	}

	msg := fmt.Sprintf("reactive: %s %q: %s: %s", e.Op, e.ID, e.Code, detail)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's code.
// ErrMissingState also matches type mismatches.
func (e *Error) Is(target error) bool {
	if target == ErrMissingState && e.Code == CodeTypeMismatch {
		return true
	}
	return codeSentinels[e.Code] == target
}

// CodeOf returns the code of the outermost *Error in err's chain.
func CodeOf(err error) (Code, bool) {
	var re *Error
	if errors.As(err, &re) {
		return re.Code, true
	}
	return "", false
}
