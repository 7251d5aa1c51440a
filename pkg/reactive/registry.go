package reactive

import "github.com/vango-dev/atomstore/internal/slots"

// rebuildFunc re-derives a computed's value and stores it under the
// computed's own key. changed is false only when the store skips unchanged
// values and the new value equals the old one.
type rebuildFunc func(rc *Rebuild) (changed bool, err error)

// registry maps computed keys to their rebuild functions.
type registry struct {
	funcs map[slots.Key]rebuildFunc
}

func newRegistry() registry {
	return registry{funcs: make(map[slots.Key]rebuildFunc)}
}

func (r *registry) register(k slots.Key, fn rebuildFunc) {
	r.funcs[k] = fn
}

func (r *registry) lookup(k slots.Key) (rebuildFunc, bool) {
	fn, ok := r.funcs[k]
	return fn, ok
}

func (r *registry) clear() {
	r.funcs = make(map[slots.Key]rebuildFunc)
}

// job is a dependent to rebuild, with its function captured up front so the
// walk does not depend on registry state that build functions may change.
type job struct {
	key slots.Key
	fn  rebuildFunc
}

// dependentsOf returns the direct dependents of k that have a registered
// rebuild function. A computed whose first build is still running has no
// function yet and is skipped.
func (s *Store) dependentsOf(k slots.Key) []job {
	deps := s.graph.Dependents(k)
	if len(deps) == 0 {
		return nil
	}
	jobs := make([]job, 0, len(deps))
	for _, d := range deps {
		if fn, ok := s.registry.lookup(d); ok {
			jobs = append(jobs, job{key: d, fn: fn})
		}
	}
	return jobs
}
