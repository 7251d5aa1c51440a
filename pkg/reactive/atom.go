package reactive

import (
	"reflect"

	"github.com/vango-dev/atomstore/internal/cells"
	"github.com/vango-dev/atomstore/internal/slots"
)

// NewAtom registers a writable cell. init is called only when id is new;
// if id already holds an atom of type T, a handle to it is returned and its
// value is left untouched.
func NewAtom[T any](s *Store, id string, init func() T) (Atom[T], error) {
	reg, err := register[T](s, "atom", id, KindAtom)
	if err != nil {
		return Atom[T]{}, err
	}
	a := Atom[T]{store: s, key: reg.key, id: reg.id}
	if reg.existing {
		return a, nil
	}

	cells.Set(s.cells, reg.key, init())
	s.untyped[reg.key] = untypedOps{set: anySetter[T](s, reg.key, reg.id, false)}
	s.created(reg.key, KindAtom)
	return a, nil
}

// NewUndoAtom registers a writable cell that keeps a history of its prior
// values. The history is seeded with the initial value, so Undo never goes
// back further than it.
//
// History cannot be added later: NewUndoAtom on an identifier that already
// holds a plain atom returns an error matching ErrUndoNotEnabled.
func NewUndoAtom[T any](s *Store, id string, init func() T) (UndoAtom[T], error) {
	reg, err := register[T](s, "atom", id, KindUndoAtom)
	if err != nil {
		return UndoAtom[T]{}, err
	}
	a := UndoAtom[T]{Atom: Atom[T]{store: s, key: reg.key, id: reg.id}}
	if reg.existing {
		return a, nil
	}

	v := init()
	cells.Set(s.cells, reg.key, v)
	seedHistory(s, reg.key, v)
	s.untyped[reg.key] = untypedOps{
		set: anySetter[T](s, reg.key, reg.id, true),
		undo: func() (bool, error) {
			return undoKey[T](s, reg.key, reg.id)
		},
	}
	s.created(reg.key, KindUndoAtom)
	return a, nil
}

func anySetter[T any](s *Store, k slots.Key, id string, record bool) func(any) error {
	return func(v any) error {
		tv, ok := v.(T)
		if !ok {
			return &Error{Op: "set", ID: id, Code: CodeTypeMismatch, Want: reflect.TypeFor[T](), Got: reflect.TypeOf(v)}
		}
		return writeKey(s, "set", k, id, replaceWith(tv), record)
	}
}

// Atom is a handle to a writable cell.
type Atom[T any] struct {
	store *Store
	key   slots.Key
	id    string
}

// ID returns the cell identifier.
func (a Atom[T]) ID() string {
	return a.id
}

// Get returns the current value without registering a dependency.
func (a Atom[T]) Get() (T, error) {
	if err := checkHandle(a.store, "get", a.id, a.key); err != nil {
		var zero T
		return zero, err
	}
	return readKey[T](a.store, "get", a.key, a.id)
}

// Set replaces the value and rebuilds every dependent before returning.
func (a Atom[T]) Set(v T) error {
	if err := checkHandle(a.store, "set", a.id, a.key); err != nil {
		return err
	}
	return writeKey(a.store, "set", a.key, a.id, replaceWith(v), false)
}

// Update mutates the value in place and rebuilds every dependent before
// returning. The cell cannot be read while fn runs.
func (a Atom[T]) Update(fn func(v *T)) error {
	if err := checkHandle(a.store, "update", a.id, a.key); err != nil {
		return err
	}
	return writeKey(a.store, "update", a.key, a.id, fn, false)
}

// Track returns the current value and registers the computed being built by
// rc as a dependent.
func (a Atom[T]) Track(rc *Rebuild) (T, error) {
	return trackHandle[T](rc, a.store, a.key, a.id)
}

// UndoAtom is a handle to a writable cell with undo history. Set and Update
// record the replaced value before writing.
type UndoAtom[T any] struct {
	Atom[T]
}

// Set records the current value, replaces it and propagates.
func (a UndoAtom[T]) Set(v T) error {
	if err := checkHandle(a.store, "set", a.id, a.key); err != nil {
		return err
	}
	return writeKey(a.store, "set", a.key, a.id, replaceWith(v), true)
}

// Update records the current value, mutates it and propagates.
func (a UndoAtom[T]) Update(fn func(v *T)) error {
	if err := checkHandle(a.store, "update", a.id, a.key); err != nil {
		return err
	}
	return writeKey(a.store, "update", a.key, a.id, fn, true)
}

// Undo restores the most recently recorded value and propagates. It reports
// false, and changes nothing, when only the initial value is left.
func (a UndoAtom[T]) Undo() (bool, error) {
	if err := checkHandle(a.store, "undo", a.id, a.key); err != nil {
		return false, err
	}
	return undoKey[T](a.store, a.key, a.id)
}

// History returns a copy of the recorded values, oldest first. The first
// entry is the initial value.
func (a UndoAtom[T]) History() ([]T, error) {
	if err := checkHandle(a.store, "history", a.id, a.key); err != nil {
		return nil, err
	}
	return historyKey[T](a.store, a.key, a.id)
}
