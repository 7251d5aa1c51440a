package reactive

import (
	"github.com/vango-dev/atomstore/internal/cells"
	"github.com/vango-dev/atomstore/internal/slots"
)

// Rebuild is the context passed to a computed's build function.
// Reads made through it register the computed as a dependent of the cell
// read. A Rebuild is only valid for the duration of the call it was passed to.
type Rebuild struct {
	store *Store
	self  slots.Key
	id    string
	depth int
}

// ID returns the identifier of the computed being built.
func (rc *Rebuild) ID() string {
	return rc.id
}

// Depth returns the propagation depth of this build. The first build and
// builds triggered directly by a write run at depth 0 and 1 respectively.
func (rc *Rebuild) Depth() int {
	return rc.depth
}

// Store returns the store the computed belongs to.
func (rc *Rebuild) Store() *Store {
	return rc.store
}

// Track reads the cell id as type T and records the computed being built as
// one of its dependents.
func Track[T any](rc *Rebuild, id string) (T, error) {
	var zero T
	k, err := rc.store.resolve("track", id)
	if err != nil {
		return zero, err
	}
	return trackKey[T](rc, k, id)
}

// TrackAny is Track for callers that do not know the cell's type statically.
func TrackAny(rc *Rebuild, id string) (any, error) {
	s := rc.store
	k, err := s.resolve("track", id)
	if err != nil {
		return nil, err
	}
	v, ok := s.cells.Value(k)
	if !ok {
		return nil, &Error{Op: "track", ID: id, Code: CodeMissingState}
	}
	s.graph.AddDependency(k, rc.self)
	return v, nil
}

func trackKey[T any](rc *Rebuild, k slots.Key, id string) (T, error) {
	v, err := readKey[T](rc.store, "track", k, id)
	if err != nil {
		return v, err
	}
	if rc.store.graph.AddDependency(k, rc.self) {
		rc.store.logger.Debug("edge added", "source", id, "dependent", rc.id)
	}
	return v, nil
}

// NewComputed registers a derived cell whose value is produced by build.
//
// build runs once immediately; the cells it reads through its Rebuild become
// the computed's sources, and every later write to a source runs build again
// before the write returns. If id already holds a computed of type T, build
// is not run and a handle to the existing cell is returned.
//
// If the first build fails, nothing is registered and the error is returned
// wrapped with the computed's identifier.
func NewComputed[T any](s *Store, id string, build func(rc *Rebuild) (T, error)) (Computed[T], error) {
	reg, err := register[T](s, "computed", id, KindComputed)
	if err != nil {
		return Computed[T]{}, err
	}
	c := Computed[T]{store: s, key: reg.key, id: reg.id}
	if reg.existing {
		return c, nil
	}

	rc := &Rebuild{store: s, self: reg.key, id: reg.id, depth: s.depth}
	s.observer.RebuildStarted(reg.id, "", rc.depth)
	v, err := build(rc)
	s.observer.RebuildFinished(reg.id, rc.depth, err == nil, err)
	if err != nil {
		s.graph.ClearSources(reg.key)
		return Computed[T]{}, &Error{Op: "computed", ID: reg.id, Code: CodeRebuildFailed, Err: err}
	}

	cells.Set(s.cells, reg.key, v)
	s.registry.register(reg.key, func(rc *Rebuild) (bool, error) {
		v, err := build(rc)
		if err != nil {
			return false, err
		}
		return storeValue(s, rc.self, v), nil
	})
	s.created(reg.key, KindComputed)
	return c, nil
}

// storeValue stores a rebuilt value and reports whether it differs from the
// previous one. Without WithSkipUnchanged every store counts as a change.
func storeValue[T any](s *Store, k slots.Key, v T) bool {
	changed := true
	if s.skipUnchanged {
		if old, ok := peek[T](s.cells, k); ok && defaultEquals(old, v) {
			changed = false
		}
	}
	cells.Set(s.cells, k, v)
	return changed
}

// peek returns the value under k without removing it.
func peek[T any](st *cells.Storage, k slots.Key) (T, bool) {
	var zero T
	if !cells.Exists[T](st, k) {
		return zero, false
	}
	v, _ := st.Value(k)
	if v == nil {
		return zero, true
	}
	return v.(T), true
}

// Computed is a read-only handle to a derived cell.
type Computed[T any] struct {
	store *Store
	key   slots.Key
	id    string
}

// ID returns the cell identifier.
func (c Computed[T]) ID() string {
	return c.id
}

// Get returns the current value without registering a dependency.
func (c Computed[T]) Get() (T, error) {
	if err := checkHandle(c.store, "get", c.id, c.key); err != nil {
		var zero T
		return zero, err
	}
	return readKey[T](c.store, "get", c.key, c.id)
}

// Track returns the current value and registers the computed being built by
// rc as a dependent.
func (c Computed[T]) Track(rc *Rebuild) (T, error) {
	return trackHandle[T](rc, c.store, c.key, c.id)
}

// checkHandle validates a handle's store and cached key.
func checkHandle(s *Store, op, id string, k slots.Key) error {
	if s == nil {
		return &Error{Op: op, ID: id, Code: CodeMissingState}
	}
	return s.checkKey(op, id, k)
}

func trackHandle[T any](rc *Rebuild, s *Store, k slots.Key, id string) (T, error) {
	var zero T
	if err := checkHandle(s, "track", id, k); err != nil {
		return zero, err
	}
	if rc == nil || rc.store != s {
		return zero, &Error{Op: "track", ID: id, Code: CodeMissingState}
	}
	return trackKey[T](rc, k, id)
}
