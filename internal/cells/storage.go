package cells

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/vango-dev/atomstore/internal/slots"
)

var (
	// ErrMissing is returned when no value is stored under a key.
	ErrMissing = errors.New("cells: no value stored")

	// ErrTypeMismatch is returned when the stored value has a different
	// concrete type than the one requested.
	ErrTypeMismatch = errors.New("cells: stored type differs")
)

// MismatchError describes a typed access against a value of another type.
type MismatchError struct {
	Want reflect.Type
	Got  reflect.Type
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("cells: want %s, stored %s", e.Want, e.Got)
}

func (e *MismatchError) Unwrap() error {
	return ErrTypeMismatch
}

// Cloner is implemented by values that need a deep copy when read out of
// storage. Clone uses it instead of a plain assignment.
type Cloner[T any] interface {
	Clone() T
}

// box pins the static type a value was stored with, so an interface-typed
// store and a concrete-typed read never match by accident.
type box[T any] struct {
	v T
}

func (b box[T]) unbox() any {
	return b.v
}

type unboxer interface {
	unbox() any
}

type entry struct {
	generation uint32
	typ        reflect.Type
	value      any
}

func (e *entry) present() bool {
	return e.typ != nil
}

// Storage is a type-erased map from slot key to a single value of any type.
// Exactly one value lives under a key at a time. Reads are checked against the
// type the value was stored with.
type Storage struct {
	entries []entry
	len     int
}

// New creates empty storage.
func New() *Storage {
	return &Storage{}
}

func (s *Storage) lookup(k slots.Key) *entry {
	if k.IsZero() || k.Index() >= len(s.entries) {
		return nil
	}
	e := &s.entries[k.Index()]
	if !e.present() || e.generation != k.Generation() {
		return nil
	}
	return e
}

func (s *Storage) put(k slots.Key, typ reflect.Type, value any) {
	idx := k.Index()
	if idx >= len(s.entries) {
		grown := make([]entry, idx+1, max(idx+1, 2*len(s.entries)))
		copy(grown, s.entries)
		s.entries = grown
	}
	e := &s.entries[idx]
	if !e.present() {
		s.len++
	}
	*e = entry{generation: k.Generation(), typ: typ, value: value}
}

// Set stores v under k, replacing any previous value whatever its type.
func Set[T any](s *Storage, k slots.Key, v T) {
	s.put(k, reflect.TypeFor[T](), box[T]{v: v})
}

// Exists reports whether a value of type T is stored under k.
func Exists[T any](s *Storage, k slots.Key) bool {
	e := s.lookup(k)
	if e == nil {
		return false
	}
	_, ok := e.value.(box[T])
	return ok
}

// Take removes and returns the T stored under k.
// A value of another type is left in place and ErrTypeMismatch is returned.
func Take[T any](s *Storage, k slots.Key) (T, error) {
	var zero T
	e := s.lookup(k)
	if e == nil {
		return zero, ErrMissing
	}
	b, ok := e.value.(box[T])
	if !ok {
		return zero, &MismatchError{Want: reflect.TypeFor[T](), Got: e.typ}
	}
	*e = entry{}
	s.len--
	return b.v, nil
}

// Clone returns a copy of the T stored under k without keeping it checked out.
// The value is taken and restored; values implementing Cloner are deep
// copied through Clone.
func Clone[T any](s *Storage, k slots.Key) (T, error) {
	v, err := Take[T](s, k)
	if err != nil {
		return v, err
	}
	Set(s, k, v)

	if c, ok := any(v).(Cloner[T]); ok {
		return c.Clone(), nil
	}
	return v, nil
}

// Has reports whether any value is stored under k.
func (s *Storage) Has(k slots.Key) bool {
	return s.lookup(k) != nil
}

// TypeOf returns the type of the value stored under k, or nil.
func (s *Storage) TypeOf(k slots.Key) reflect.Type {
	if e := s.lookup(k); e != nil {
		return e.typ
	}
	return nil
}

// Value returns the stored value as an untyped any.
// It is meant for introspection and encoding, not for typed reads.
func (s *Storage) Value(k slots.Key) (any, bool) {
	e := s.lookup(k)
	if e == nil {
		return nil, false
	}
	return e.value.(unboxer).unbox(), true
}

// Remove deletes whatever is stored under k.
func (s *Storage) Remove(k slots.Key) bool {
	e := s.lookup(k)
	if e == nil {
		return false
	}
	*e = entry{}
	s.len--
	return true
}

// Len returns the number of stored values.
func (s *Storage) Len() int {
	return s.len
}

// Clear drops every stored value.
func (s *Storage) Clear() {
	s.entries = nil
	s.len = 0
}
