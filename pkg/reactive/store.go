package reactive

import (
	"errors"
	"log/slog"
	"reflect"

	"github.com/google/uuid"

	"github.com/vango-dev/atomstore/internal/cells"
	"github.com/vango-dev/atomstore/internal/graph"
	"github.com/vango-dev/atomstore/internal/slots"
)

// Kind is the kind of cell registered under an identifier.
type Kind uint8

const (
	KindAtom Kind = iota + 1
	KindUndoAtom
	KindComputed
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindAtom:
		return "atom"
	case KindUndoAtom:
		return "undo-atom"
	case KindComputed:
		return "computed"
	default:
		return "unknown"
	}
}

// IsAtom reports whether cells of this kind accept writes.
func (k Kind) IsAtom() bool {
	return k == KindAtom || k == KindUndoAtom
}

// untypedOps are type-erased accessors captured when an atom is created,
// for callers that only know a cell's identifier and reflect.Type.
type untypedOps struct {
	set  func(v any) error
	undo func() (bool, error)
}

// Store is a reactive cell store.
//
// A Store is not safe for concurrent use. Create one per owning goroutine
// with NewStore and release it with Close.
type Store struct {
	id string

	slots    *slots.Table
	cells    *cells.Storage
	ledgers  *cells.Storage
	graph    *graph.Graph
	registry registry
	kinds    map[slots.Key]Kind
	untyped  map[slots.Key]untypedOps

	logger        *slog.Logger
	observer      Observer
	edgePolicy    EdgePolicy
	maxDepth      int
	skipUnchanged bool

	// batchDepth tracks nested Batch calls.
	// When > 0, committed writes queue their propagation in pending.
	batchDepth int
	pending    []slots.Key
	pendingSet map[slots.Key]bool

	// propagating counts active propagation walks, so nested writes made by
	// build functions join the outer walk's bookkeeping.
	propagating int
	rebuilds    int
	last        propagationRecord

	// depth is the propagation depth of the build function currently
	// running, 0 outside rebuilds.
	depth int

	closed bool
}

// propagationRecord remembers the most recent outermost propagation.
type propagationRecord struct {
	written string
	rebuilt []string
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	var o storeOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.observer == nil {
		o.observer = NopObserver{}
	}

	var tableOpts []slots.TableOption
	if o.normalizeIDs {
		tableOpts = append(tableOpts, slots.WithNFC())
	}

	id := uuid.Must(uuid.NewV7()).String()
	return &Store{
		id:            id,
		slots:         slots.NewTable(tableOpts...),
		cells:         cells.New(),
		ledgers:       cells.New(),
		graph:         graph.New(),
		registry:      newRegistry(),
		kinds:         make(map[slots.Key]Kind),
		untyped:       make(map[slots.Key]untypedOps),
		logger:        o.logger.With("store", id),
		observer:      o.observer,
		edgePolicy:    o.edgePolicy,
		maxDepth:      o.maxDepth,
		skipUnchanged: o.skipUnchanged,
		pendingSet:    make(map[slots.Key]bool),
	}
}

// ID returns the store's unique instance identifier.
func (s *Store) ID() string {
	return s.id
}

// Close tears the store down. Every cell, edge and history entry is dropped
// and every handle becomes invalid. Operations on a closed store return an
// error matching ErrClosed. Close is idempotent.
func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	n := s.slots.Len()
	s.slots.Reset()
	s.cells.Clear()
	s.ledgers.Clear()
	s.graph.Clear()
	s.registry.clear()
	s.kinds = make(map[slots.Key]Kind)
	s.untyped = make(map[slots.Key]untypedOps)
	s.pending = nil
	s.pendingSet = make(map[slots.Key]bool)
	s.last = propagationRecord{}

	s.logger.Debug("store closed", "cells", n)
	return nil
}

// Closed reports whether Close has been called.
func (s *Store) Closed() bool {
	return s.closed
}

// name returns the identifier for a key. Keys handed to name always come
// from this store's table.
func (s *Store) name(k slots.Key) string {
	id, _ := s.slots.Name(k)
	return id
}

// resolve maps an identifier to its key for operation op.
func (s *Store) resolve(op, id string) (slots.Key, error) {
	if s.closed {
		return slots.Key{}, &Error{Op: op, ID: id, Code: CodeClosed}
	}
	k, ok := s.slots.Resolve(id)
	if !ok || s.kinds[k] == 0 {
		return slots.Key{}, &Error{Op: op, ID: id, Code: CodeMissingState}
	}
	return k, nil
}

// checkKey validates a key cached in a handle.
func (s *Store) checkKey(op, id string, k slots.Key) error {
	if s.closed || !s.slots.Valid(k) {
		return &Error{Op: op, ID: id, Code: CodeClosed}
	}
	return nil
}

// storageError converts a cells error into a store error.
func storageError(op, id string, err error) error {
	var mm *cells.MismatchError
	if errors.As(err, &mm) {
		return &Error{Op: op, ID: id, Code: CodeTypeMismatch, Want: mm.Want, Got: mm.Got}
	}
	return &Error{Op: op, ID: id, Code: CodeMissingState}
}

// registration is the outcome of claiming an identifier for a new cell.
type registration struct {
	key      slots.Key
	id       string
	existing bool
}

// register claims id for a cell of kind want and value type T.
// When the identifier already holds a compatible cell, existing is true and
// the caller must not initialize it again.
func register[T any](s *Store, op, id string, want Kind) (registration, error) {
	if s.closed {
		return registration{}, &Error{Op: op, ID: id, Code: CodeClosed}
	}

	k, _ := s.slots.Register(id)
	reg := registration{key: k, id: s.name(k)}

	have := s.kinds[k]
	if have == 0 {
		return reg, nil
	}

	switch {
	case want == KindComputed && have != KindComputed,
		want != KindComputed && have == KindComputed:
		return reg, &Error{Op: op, ID: reg.id, Code: CodeKindMismatch, Kind: have}
	case want == KindUndoAtom && have == KindAtom:
		return reg, &Error{Op: op, ID: reg.id, Code: CodeUndoNotEnabled}
	}

	if !cells.Exists[T](s.cells, k) {
		if got := s.cells.TypeOf(k); got != nil {
			return reg, &Error{Op: op, ID: reg.id, Code: CodeTypeMismatch, Want: reflect.TypeFor[T](), Got: got}
		}
		return reg, &Error{Op: op, ID: reg.id, Code: CodeMissingState}
	}

	reg.existing = true
	return reg, nil
}

// created finishes registering a new cell.
func (s *Store) created(k slots.Key, kind Kind) {
	s.kinds[k] = kind
	id := s.name(k)
	s.logger.Debug("cell created", "id", id, "kind", kind.String())
	s.observer.CellCreated(id, kind)
}

// Kind returns the kind of the cell registered under id.
func (s *Store) Kind(id string) (Kind, bool) {
	if s.closed {
		return 0, false
	}
	k, ok := s.slots.Resolve(id)
	if !ok {
		return 0, false
	}
	kind := s.kinds[k]
	return kind, kind != 0
}

// TypeOf returns the value type of the cell registered under id.
func (s *Store) TypeOf(id string) (reflect.Type, bool) {
	k, err := s.resolve("type", id)
	if err != nil {
		return nil, false
	}
	typ := s.cells.TypeOf(k)
	return typ, typ != nil
}

// IDs returns every cell identifier in creation order.
func (s *Store) IDs() []string {
	var ids []string
	for _, k := range s.slots.Keys() {
		if s.kinds[k] != 0 {
			ids = append(ids, s.name(k))
		}
	}
	return ids
}

// Len returns the number of cells.
func (s *Store) Len() int {
	return len(s.kinds)
}
