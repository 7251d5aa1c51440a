package slots

import "golang.org/x/text/unicode/norm"

// Table assigns a stable Key to each string identifier and maps keys back to
// identifiers.
//
// Table is not safe for concurrent use. It belongs to exactly one store.
type Table struct {
	arena     Arena[string]
	byID      map[string]Key
	order     []Key
	normalize bool
}

// TableOption configures a Table.
type TableOption func(*Table)

// WithNFC normalizes identifiers to Unicode NFC before lookup, so composed and
// decomposed spellings of the same text share one slot.
func WithNFC() TableOption {
	return func(t *Table) {
		t.normalize = true
	}
}

// NewTable creates an empty table.
func NewTable(opts ...TableOption) *Table {
	t := &Table{byID: make(map[string]Key)}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Canonical returns the form of id used as the table's lookup key.
func (t *Table) Canonical(id string) string {
	if t.normalize {
		return norm.NFC.String(id)
	}
	return id
}

// Register returns the key for id, issuing a new one on first sight.
// The second result is true when the key was newly issued.
func (t *Table) Register(id string) (Key, bool) {
	id = t.Canonical(id)
	if k, ok := t.byID[id]; ok {
		return k, false
	}

	k := t.arena.Insert(id)
	t.byID[id] = k
	t.order = append(t.order, k)
	return k, true
}

// Resolve returns the key for id if it has been registered.
func (t *Table) Resolve(id string) (Key, bool) {
	k, ok := t.byID[t.Canonical(id)]
	return k, ok
}

// Name returns the identifier a key was issued for.
func (t *Table) Name(k Key) (string, bool) {
	return t.arena.Get(k)
}

// Valid reports whether k was issued by this table and is still live.
func (t *Table) Valid(k Key) bool {
	return t.arena.Contains(k)
}

// Len returns the number of registered identifiers.
func (t *Table) Len() int {
	return t.arena.Len()
}

// Keys returns all live keys in registration order.
func (t *Table) Keys() []Key {
	keys := make([]Key, len(t.order))
	copy(keys, t.order)
	return keys
}

// IDs returns all registered identifiers in registration order.
func (t *Table) IDs() []string {
	ids := make([]string, 0, len(t.order))
	for _, k := range t.order {
		if id, ok := t.arena.Get(k); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// Reset forgets every identifier. Keys issued before Reset stop resolving.
func (t *Table) Reset() {
	for _, k := range t.order {
		t.arena.Remove(k)
	}
	t.order = nil
	t.byID = make(map[string]Key)
}
