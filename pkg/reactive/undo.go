package reactive

import (
	"reflect"

	"github.com/vango-dev/atomstore/internal/cells"
	"github.com/vango-dev/atomstore/internal/slots"
)

// The undo history of an atom is a []T kept in a storage parallel to the
// cell values, oldest first. It is seeded with the initial value and never
// shrinks below that one entry.

func seedHistory[T any](s *Store, k slots.Key, init T) {
	cells.Set(s.ledgers, k, []T{snapshot(init)})
}

// recordHistory pushes prev, the value about to be replaced.
func recordHistory[T any](s *Store, k slots.Key, prev T) {
	h, _ := cells.Take[[]T](s.ledgers, k)
	cells.Set(s.ledgers, k, append(h, prev))
}

// undoKey pops the newest recorded value and writes it back as current,
// propagating like any other write.
func undoKey[T any](s *Store, k slots.Key, id string) (bool, error) {
	if !cells.Exists[T](s.cells, k) {
		_, err := readKey[T](s, "undo", k, id)
		return false, err
	}
	h, err := cells.Take[[]T](s.ledgers, k)
	if err != nil {
		return false, &Error{Op: "undo", ID: id, Code: CodeUndoNotEnabled}
	}
	if len(h) <= 1 {
		cells.Set(s.ledgers, k, h)
		s.observer.Undone(id, false)
		return false, nil
	}

	prev := h[len(h)-1]
	var zero T
	h[len(h)-1] = zero
	cells.Set(s.ledgers, k, h[:len(h)-1])

	err = writeKey(s, "undo", k, id, replaceWith(prev), false)
	s.observer.Undone(id, true)
	return true, err
}

func historyKey[T any](s *Store, k slots.Key, id string) ([]T, error) {
	if !cells.Exists[T](s.cells, k) {
		_, err := readKey[T](s, "history", k, id)
		return nil, err
	}
	h, ok := peek[[]T](s.ledgers, k)
	if !ok {
		return nil, &Error{Op: "history", ID: id, Code: CodeUndoNotEnabled}
	}
	out := make([]T, len(h))
	copy(out, h)
	return out, nil
}

// Undo restores the most recently recorded value of atom id and propagates.
// It reports false, and changes nothing, when only the initial value is left.
// Atoms created without history return an error matching ErrUndoNotEnabled.
func Undo[T any](s *Store, id string) (bool, error) {
	k, err := s.writable("undo", id, true)
	if err != nil {
		return false, err
	}
	return undoKey[T](s, k, id)
}

// History returns a copy of atom id's recorded values, oldest first.
func History[T any](s *Store, id string) ([]T, error) {
	k, err := s.writable("history", id, true)
	if err != nil {
		return nil, err
	}
	return historyKey[T](s, k, id)
}

// UndoDepth returns how many times Undo can restore a value for atom id.
func (s *Store) UndoDepth(id string) (int, error) {
	k, err := s.writable("history", id, true)
	if err != nil {
		return 0, err
	}
	v, ok := s.ledgers.Value(k)
	if !ok {
		return 0, &Error{Op: "history", ID: id, Code: CodeUndoNotEnabled}
	}
	n := reflect.ValueOf(v).Len()
	if n == 0 {
		return 0, nil
	}
	return n - 1, nil
}
