package reactive

import "errors"

// Batch groups writes so their dependents rebuild once, after fn returns.
//
// Writes inside fn are committed immediately and can be read back, but their
// propagation is queued. When the outermost batch completes, each written
// atom is propagated once, in the order it was first written. Batches can be
// nested; only the outermost one flushes.
//
// If fn returns an error the queued propagation still runs; the result joins
// fn's error with the first propagation error.
//
// Example:
//
//	err := s.Batch(func() error {
//	    if err := first.Set("Ada"); err != nil {
//	        return err
//	    }
//	    return last.Set("Lovelace")
//	})
//	// fullName rebuilt once per written atom
func (s *Store) Batch(fn func() error) error {
	if s.closed {
		return &Error{Op: "batch", Code: CodeClosed}
	}

	s.batchDepth++
	err := func() error {
		defer func() { s.batchDepth-- }()
		return fn()
	}()

	if s.batchDepth > 0 || s.closed {
		return err
	}
	return errors.Join(err, s.flush())
}

// flush propagates queued writes and empties the queue.
func (s *Store) flush() error {
	pending := s.pending
	s.pending = nil
	clear(s.pendingSet)

	for _, k := range pending {
		if !s.slots.Valid(k) {
			continue
		}
		if err := s.propagateFrom(k); err != nil {
			return err
		}
	}
	return nil
}

// Batching reports whether a batch is open.
func (s *Store) Batching() bool {
	return s.batchDepth > 0
}
