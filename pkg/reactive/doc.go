// Package reactive provides the atom store engine.
//
// A Store holds named cells. Atoms are written by callers; computeds are
// derived by a build function and rebuilt whenever a cell they read changes.
// Everything is addressed by a caller-chosen identifier.
//
// # Core Types
//
// Atom[T] is a writable cell:
//
//	s := reactive.NewStore()
//	count, _ := reactive.NewAtom(s, "count", func() int { return 0 })
//	count.Update(func(n *int) { *n += 5 })
//	v, _ := count.Get() // 5
//
// Computed[T] is a derived cell. Its build function receives a *Rebuild;
// every read made through it records a dependency edge:
//
//	double, _ := reactive.NewComputed(s, "double", func(rc *reactive.Rebuild) (int, error) {
//	    n, err := count.Track(rc)
//	    return n * 2, err
//	})
//
// UndoAtom[T] is an atom that keeps its prior values:
//
//	name, _ := reactive.NewUndoAtom(s, "name", func() string { return "a" })
//	name.Set("b")
//	name.Undo() // back to "a"
//
// The same operations exist as functions keyed by identifier: Read, Set,
// Update, UpdateWithUndo and Undo.
//
// # Propagation
//
// A committed write rebuilds every direct dependent, then recurses from each
// of them, depth first, before the write returns. The walk is not
// topologically sorted: a computed reachable along two paths is rebuilt once
// per path. A dependency cycle recurses until the stack runs out unless
// WithMaxDepth bounds it.
//
// Edges are additive by default: a computed keeps every edge it ever
// registered. WithEdgePolicy(EdgesReplace) drops a computed's incoming edges
// before each rebuild so only its latest reads count.
//
// # Batching
//
// Writes inside Store.Batch are committed immediately but propagate once
// the outermost batch returns:
//
//	s.Batch(func() error {
//	    first.Set("John")
//	    last.Set("Doe")
//	    return nil
//	})
//
// # Thread Safety
//
// A Store is owned by one goroutine at a time and takes no locks. Build
// functions may read and write other cells of the same store while running.
package reactive
