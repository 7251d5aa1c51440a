package reactive

import (
	"github.com/vango-dev/atomstore/internal/slots"
)

// commit propagates a committed write to k, or queues it while a batch is open.
func (s *Store) commit(k slots.Key) error {
	if s.batchDepth > 0 {
		if !s.pendingSet[k] {
			s.pendingSet[k] = true
			s.pending = append(s.pending, k)
		}
		return nil
	}
	return s.propagateFrom(k)
}

// propagateFrom rebuilds everything downstream of k.
//
// Writes made by build functions start nested walks; they share the outer
// walk's rebuild count and overlay record, and continue from the depth of
// the build that made them.
func (s *Store) propagateFrom(k slots.Key) error {
	id := s.name(k)
	if s.propagating == 0 {
		s.last = propagationRecord{written: id}
	}
	s.propagating++
	start := s.rebuilds

	s.observer.PropagationStarted(id)
	err := s.propagate(k, s.depth)

	s.propagating--
	n := s.rebuilds - start
	s.observer.PropagationFinished(id, n, err)
	if err != nil {
		s.logger.Debug("propagation failed", "id", id, "rebuilds", n, "error", err)
	} else {
		s.logger.Debug("propagated", "id", id, "rebuilds", n)
	}
	return err
}

// propagate walks the dependents of src depth-first. Each dependent is
// rebuilt, then its own dependents are walked before the next sibling.
// A join node reachable along several paths is rebuilt once per path.
func (s *Store) propagate(src slots.Key, depth int) error {
	for _, j := range s.dependentsOf(src) {
		changed, err := s.rebuild(j, src, depth+1)
		if err != nil {
			return err
		}
		if !changed {
			continue
		}
		if err := s.propagate(j.key, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// rebuild runs one dependent's build function at the given depth.
func (s *Store) rebuild(j job, cause slots.Key, depth int) (bool, error) {
	id := s.name(j.key)
	if s.maxDepth > 0 && depth > s.maxDepth {
		return false, &Error{Op: "propagate", ID: id, Code: CodeDepthExceeded, Depth: depth}
	}
	var oldSources []slots.Key
	if s.edgePolicy == EdgesReplace {
		oldSources = s.graph.Sources(j.key)
		s.graph.ClearSources(j.key)
	}

	s.rebuilds++
	s.last.rebuilt = append(s.last.rebuilt, id)
	s.observer.RebuildStarted(id, s.name(cause), depth)

	prev := s.depth
	s.depth = depth
	changed, err := j.fn(&Rebuild{store: s, self: j.key, id: id, depth: depth})
	s.depth = prev

	s.observer.RebuildFinished(id, depth, changed, err)
	if err != nil {
		// A failed build keeps its old edges so the next write can retry it.
		for _, src := range oldSources {
			s.graph.AddDependency(src, j.key)
		}
		return false, &Error{Op: "rebuild", ID: id, Code: CodeRebuildFailed, Err: err}
	}
	return changed, nil
}
