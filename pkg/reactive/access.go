package reactive

import (
	"reflect"

	"github.com/vango-dev/atomstore/internal/cells"
	"github.com/vango-dev/atomstore/internal/slots"
)

// Read returns the value of cell id as type T. Reading never registers a
// dependency; inside a build function use Track.
func Read[T any](s *Store, id string) (T, error) {
	k, err := s.resolve("read", id)
	if err != nil {
		var zero T
		return zero, err
	}
	return readKey[T](s, "read", k, id)
}

// Set replaces the value of atom id and rebuilds its dependents before
// returning. It never records undo history; use SetWithUndo for that.
func Set[T any](s *Store, id string, v T) error {
	k, err := s.writable("set", id, false)
	if err != nil {
		return err
	}
	return writeKey(s, "set", k, id, replaceWith(v), false)
}

// SetWithUndo is Set for an atom created with NewUndoAtom; the replaced
// value is recorded first.
func SetWithUndo[T any](s *Store, id string, v T) error {
	k, err := s.writable("set", id, true)
	if err != nil {
		return err
	}
	return writeKey(s, "set", k, id, replaceWith(v), true)
}

// Update mutates the value of atom id in place and rebuilds its dependents
// before returning. While fn runs the value is checked out of the store, so
// reading the same cell from fn fails with ErrMissingState.
func Update[T any](s *Store, id string, fn func(v *T)) error {
	k, err := s.writable("update", id, false)
	if err != nil {
		return err
	}
	return writeKey(s, "update", k, id, fn, false)
}

// UpdateWithUndo is Update for an atom created with NewUndoAtom. A deep copy
// of the current value is recorded before fn runs, so fn may edit maps and
// slices in place.
func UpdateWithUndo[T any](s *Store, id string, fn func(v *T)) error {
	k, err := s.writable("update", id, true)
	if err != nil {
		return err
	}
	return writeKey(s, "update", k, id, fn, true)
}

// ReadAny returns the value of cell id without a static type.
func ReadAny(s *Store, id string) (any, error) {
	k, err := s.resolve("read", id)
	if err != nil {
		return nil, err
	}
	v, ok := s.cells.Value(k)
	if !ok {
		return nil, &Error{Op: "read", ID: id, Code: CodeMissingState}
	}
	return v, nil
}

// SetAny writes v to atom id. v's dynamic type must be the cell's type.
// Undo-enabled atoms record history.
func SetAny(s *Store, id string, v any) error {
	k, err := s.writable("set", id, false)
	if err != nil {
		return err
	}
	ops, ok := s.untyped[k]
	if !ok || ops.set == nil {
		return &Error{Op: "set", ID: id, Code: CodeMissingState}
	}
	return ops.set(v)
}

// UndoAny is Undo for callers without a static type.
func UndoAny(s *Store, id string) (bool, error) {
	k, err := s.writable("undo", id, true)
	if err != nil {
		return false, err
	}
	ops := s.untyped[k]
	if ops.undo == nil {
		return false, &Error{Op: "undo", ID: id, Code: CodeUndoNotEnabled}
	}
	return ops.undo()
}

// writable resolves id for a write. withUndo requires an undo-enabled atom.
func (s *Store) writable(op, id string, withUndo bool) (slots.Key, error) {
	k, err := s.resolve(op, id)
	if err != nil {
		return k, err
	}
	switch kind := s.kinds[k]; {
	case kind == KindComputed:
		return k, &Error{Op: op, ID: id, Code: CodeNotWritable}
	case withUndo && kind != KindUndoAtom:
		return k, &Error{Op: op, ID: id, Code: CodeUndoNotEnabled}
	}
	return k, nil
}

func readKey[T any](s *Store, op string, k slots.Key, id string) (T, error) {
	v, err := cells.Clone[T](s.cells, k)
	if err != nil {
		return v, storageError(op, id, err)
	}
	return v, nil
}

func replaceWith[T any](v T) func(*T) {
	return func(p *T) {
		*p = v
	}
}

// writeKey checks the value under k out of storage, applies fn, stores the
// result and commits the write. With record, the prior value is pushed onto
// the undo history first.
func writeKey[T any](s *Store, op string, k slots.Key, id string, fn func(*T), record bool) error {
	cur, err := cells.Take[T](s.cells, k)
	if err != nil {
		return storageError(op, id, err)
	}

	var prev T
	keepPrev := record || s.skipUnchanged
	if keepPrev {
		prev = snapshot(cur)
	}
	fn(&cur)

	if record {
		recordHistory(s, k, prev)
	}
	cells.Set(s.cells, k, cur)

	s.logger.Debug("cell written", "id", id, "op", op)
	s.observer.Written(id, op)

	if s.skipUnchanged && defaultEquals(prev, cur) {
		return nil
	}
	return s.commit(k)
}

// typeName formats a cell's type for display.
func typeName(t reflect.Type) string {
	if t == nil {
		return ""
	}
	return t.String()
}
