package cells

import (
	"errors"
	"testing"

	"github.com/vango-dev/atomstore/internal/slots"
)

type list struct {
	items []int
}

func (l list) Clone() list {
	cp := make([]int, len(l.items))
	copy(cp, l.items)
	return list{items: cp}
}

func newKeys(n int) []slots.Key {
	tbl := slots.NewTable()
	keys := make([]slots.Key, n)
	for i := range keys {
		keys[i], _ = tbl.Register(string(rune('a' + i)))
	}
	return keys
}

func TestSetAndExists(t *testing.T) {
	s := New()
	k := newKeys(1)[0]

	if Exists[int](s, k) {
		t.Error("nothing stored yet")
	}

	Set(s, k, 42)

	if !Exists[int](s, k) {
		t.Error("int should exist")
	}
	if Exists[string](s, k) {
		t.Error("string must not match an int cell")
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}

func TestTakeRemoves(t *testing.T) {
	s := New()
	k := newKeys(1)[0]
	Set(s, k, "hello")

	v, err := Take[string](s, k)
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	if v != "hello" {
		t.Errorf("got %q", v)
	}
	if s.Has(k) {
		t.Error("value should be checked out after Take")
	}

	_, err = Take[string](s, k)
	if !errors.Is(err, ErrMissing) {
		t.Errorf("second Take err = %v, want ErrMissing", err)
	}
}

func TestTakeWrongTypeLeavesValue(t *testing.T) {
	s := New()
	k := newKeys(1)[0]
	Set(s, k, 3)

	_, err := Take[string](s, k)
	if !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("err = %v, want ErrTypeMismatch", err)
	}
	var mm *MismatchError
	if !errors.As(err, &mm) {
		t.Fatal("expected *MismatchError")
	}
	if mm.Want.String() != "string" || mm.Got.String() != "int" {
		t.Errorf("mismatch = %s/%s", mm.Want, mm.Got)
	}
	if !Exists[int](s, k) {
		t.Error("original value must survive a failed Take")
	}
}

func TestSetOverwritesAcrossTypes(t *testing.T) {
	s := New()
	k := newKeys(1)[0]
	Set(s, k, 1)
	Set(s, k, "one")

	if Exists[int](s, k) {
		t.Error("int should have been replaced")
	}
	if s.TypeOf(k).String() != "string" {
		t.Errorf("TypeOf = %s", s.TypeOf(k))
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}

func TestInterfaceTypeIsExact(t *testing.T) {
	s := New()
	k := newKeys(1)[0]
	Set[any](s, k, 5)

	if Exists[int](s, k) {
		t.Error("a value stored as any must not read back as int")
	}
	v, err := Clone[any](s, k)
	if err != nil || v != 5 {
		t.Errorf("Clone[any] = %v, %v", v, err)
	}
}

func TestCloneRestores(t *testing.T) {
	s := New()
	k := newKeys(1)[0]
	Set(s, k, list{items: []int{1, 2}})

	got, err := Clone[list](s, k)
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}
	got.items[0] = 99

	again, err := Clone[list](s, k)
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}
	if again.items[0] != 1 {
		t.Errorf("Cloner copy leaked a mutation: %v", again.items)
	}
	if !s.Has(k) {
		t.Error("Clone must restore the value")
	}
}

func TestValueAndRemove(t *testing.T) {
	s := New()
	keys := newKeys(2)
	Set(s, keys[0], 2.5)

	v, ok := s.Value(keys[0])
	if !ok || v.(float64) != 2.5 {
		t.Errorf("Value = %v, %v", v, ok)
	}
	if _, ok := s.Value(keys[1]); ok {
		t.Error("Value for empty key should fail")
	}
	if !s.Remove(keys[0]) {
		t.Error("Remove should report success")
	}
	if s.Remove(keys[0]) {
		t.Error("second Remove should fail")
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d", s.Len())
	}
}

func TestStaleKeyRejected(t *testing.T) {
	tbl := slots.NewTable()
	s := New()
	old, _ := tbl.Register("x")
	Set(s, old, 1)

	tbl.Reset()
	fresh, _ := tbl.Register("x")

	if Exists[int](s, fresh) {
		t.Error("fresh key must not see the stale generation's value")
	}
	if _, err := Clone[int](s, fresh); !errors.Is(err, ErrMissing) {
		t.Errorf("err = %v, want ErrMissing", err)
	}
}
