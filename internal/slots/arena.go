package slots

// Key is an opaque handle into an Arena.
// The zero Key is never issued and is never valid.
type Key struct {
	index      uint32
	generation uint32
}

// IsZero reports whether k is the zero Key.
func (k Key) IsZero() bool {
	return k.generation == 0
}

// Index returns the slot index of the key.
// Secondary maps use it to address their own storage.
func (k Key) Index() int {
	return int(k.index)
}

// Generation returns the generation the key was issued with.
func (k Key) Generation() uint32 {
	return k.generation
}

// slot is a single arena entry.
// An odd generation means the slot is occupied.
type slot[V any] struct {
	generation uint32
	value      V
}

func (s *slot[V]) occupied() bool {
	return s.generation%2 == 1
}

// Arena is a generational slot arena.
// Removing a value bumps the slot's generation so keys issued before the
// removal no longer resolve, even after the index is reused.
type Arena[V any] struct {
	slots []slot[V]
	free  []uint32
	len   int
}

// Insert stores v and returns the key addressing it.
func (a *Arena[V]) Insert(v V) Key {
	a.len++

	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		s := &a.slots[idx]
		s.generation++
		s.value = v
		return Key{index: idx, generation: s.generation}
	}

	idx := uint32(len(a.slots))
	a.slots = append(a.slots, slot[V]{generation: 1, value: v})
	return Key{index: idx, generation: 1}
}

// Get returns the value addressed by k.
func (a *Arena[V]) Get(k Key) (V, bool) {
	if !a.Contains(k) {
		var zero V
		return zero, false
	}
	return a.slots[k.index].value, true
}

// Contains reports whether k addresses a live value.
func (a *Arena[V]) Contains(k Key) bool {
	if k.IsZero() || int(k.index) >= len(a.slots) {
		return false
	}
	s := &a.slots[k.index]
	return s.occupied() && s.generation == k.generation
}

// Remove deletes the value addressed by k and returns it.
func (a *Arena[V]) Remove(k Key) (V, bool) {
	var zero V
	if !a.Contains(k) {
		return zero, false
	}

	s := &a.slots[k.index]
	v := s.value
	s.value = zero
	s.generation++
	a.free = append(a.free, k.index)
	a.len--
	return v, true
}

// Len returns the number of live values.
func (a *Arena[V]) Len() int {
	return a.len
}
