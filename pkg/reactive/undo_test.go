package reactive

import (
	"errors"
	"reflect"
	"slices"
	"testing"
)

func TestUndoLaw(t *testing.T) {
	s := newTestStore(t)
	name, err := NewUndoAtom(s, "name", func() string { return "v0" })
	if err != nil {
		t.Fatal(err)
	}

	if err := name.Set("v1"); err != nil {
		t.Fatal(err)
	}
	if err := name.Set("v2"); err != nil {
		t.Fatal(err)
	}

	steps := []struct {
		want     string
		restored bool
	}{
		{"v1", true},
		{"v0", true},
		{"v0", false},
	}
	for i, step := range steps {
		restored, err := name.Undo()
		if err != nil {
			t.Fatalf("undo %d: %v", i+1, err)
		}
		if restored != step.restored {
			t.Errorf("undo %d restored = %v, want %v", i+1, restored, step.restored)
		}
		if v, _ := name.Get(); v != step.want {
			t.Errorf("after undo %d: %q, want %q", i+1, v, step.want)
		}
	}
}

func TestUndoByIDPropagates(t *testing.T) {
	s := newTestStore(t)
	if _, err := NewUndoAtom(s, "n", func() int { return 1 }); err != nil {
		t.Fatal(err)
	}
	sq, err := NewComputed(s, "sq", func(rc *Rebuild) (int, error) {
		n, err := Track[int](rc, "n")
		return n * n, err
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := UpdateWithUndo(s, "n", func(n *int) { *n = 3 }); err != nil {
		t.Fatal(err)
	}
	if err := SetWithUndo(s, "n", 4); err != nil {
		t.Fatal(err)
	}
	if v, _ := sq.Get(); v != 16 {
		t.Fatalf("sq = %d, want 16", v)
	}

	hist, err := History[int](s, "n")
	if err != nil {
		t.Fatal(err)
	}
	if want := []int{1, 1, 3}; !slices.Equal(hist, want) {
		t.Errorf("History = %v, want %v", hist, want)
	}
	if d, _ := s.UndoDepth("n"); d != 2 {
		t.Errorf("UndoDepth = %d, want 2", d)
	}

	if ok, err := Undo[int](s, "n"); err != nil || !ok {
		t.Fatalf("Undo = %v, %v", ok, err)
	}
	if v, _ := sq.Get(); v != 9 {
		t.Errorf("sq after undo = %d, want 9", v)
	}
}

func TestPlainWritesSkipHistory(t *testing.T) {
	s := newTestStore(t)
	if _, err := NewUndoAtom(s, "n", func() int { return 1 }); err != nil {
		t.Fatal(err)
	}

	if err := Set(s, "n", 2); err != nil {
		t.Fatal(err)
	}
	if err := Update(s, "n", func(n *int) { *n++ }); err != nil {
		t.Fatal(err)
	}
	if d, _ := s.UndoDepth("n"); d != 0 {
		t.Errorf("UndoDepth = %d, want 0", d)
	}
	if ok, _ := Undo[int](s, "n"); ok {
		t.Error("Undo restored a value no write recorded")
	}
	if v, _ := Read[int](s, "n"); v != 3 {
		t.Errorf("n = %d, want 3", v)
	}
}

type tags []string

func (t tags) Clone() tags {
	return slices.Clone(t)
}

func TestUpdateWithUndoCopiesCloners(t *testing.T) {
	s := newTestStore(t)
	list, err := NewUndoAtom(s, "tags", func() tags { return tags{"a"} })
	if err != nil {
		t.Fatal(err)
	}

	if err := list.Update(func(v *tags) { (*v)[0] = "b" }); err != nil {
		t.Fatal(err)
	}
	if _, err := list.Undo(); err != nil {
		t.Fatal(err)
	}
	if v, _ := list.Get(); v[0] != "a" {
		t.Errorf("after undo tags = %v, want [a]", v)
	}
}

func TestUpdateWithUndoCopiesMaps(t *testing.T) {
	s := newTestStore(t)
	counts, err := NewUndoAtom(s, "counts", func() map[string]int { return map[string]int{"x": 1} })
	if err != nil {
		t.Fatal(err)
	}

	if err := counts.Update(func(v *map[string]int) { (*v)["x"] = 2 }); err != nil {
		t.Fatal(err)
	}
	if err := counts.Update(func(v *map[string]int) { (*v)["x"] = 3 }); err != nil {
		t.Fatal(err)
	}

	for _, want := range []int{2, 1} {
		if _, err := counts.Undo(); err != nil {
			t.Fatal(err)
		}
		if v, _ := counts.Get(); v["x"] != want {
			t.Errorf("after undo x = %d, want %d", v["x"], want)
		}
	}

	// The restored baseline must not alias the history entry.
	if err := counts.Update(func(v *map[string]int) { (*v)["x"] = 9 }); err != nil {
		t.Fatal(err)
	}
	h, err := counts.History()
	if err != nil {
		t.Fatal(err)
	}
	if h[0]["x"] != 1 {
		t.Errorf("baseline x = %d, want 1", h[0]["x"])
	}
}

func TestSnapshotIsDeep(t *testing.T) {
	type inner struct{ N []int }
	type withPrivate struct{ n []int }

	orig := map[string]inner{"a": {N: []int{1}}}
	cp := snapshot(orig)
	cp["a"].N[0] = 5
	if orig["a"].N[0] != 1 {
		t.Errorf("snapshot shares nested slice: %v", orig)
	}

	tests := []struct {
		name string
		typ  any
		want bool
	}{
		{"int", 0, false},
		{"string", "", false},
		{"slice", []int{}, true},
		{"pointer", new(int), true},
		{"array of ints", [2]int{}, false},
		{"array of slices", [2][]int{}, true},
		{"exported struct", inner{}, true},
		{"unexported struct", withPrivate{}, false},
	}
	for _, tt := range tests {
		if got := needsDeepCopy(reflect.TypeOf(tt.typ)); got != tt.want {
			t.Errorf("needsDeepCopy(%s) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestUndoTypeChecked(t *testing.T) {
	s := newTestStore(t)
	if _, err := NewUndoAtom(s, "n", func() int { return 1 }); err != nil {
		t.Fatal(err)
	}
	if _, err := Undo[string](s, "n"); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("Undo[string]: %v, want ErrTypeMismatch", err)
	}
	if _, err := History[string](s, "n"); !errors.Is(err, ErrMissingState) {
		t.Errorf("History[string]: %v, want ErrMissingState", err)
	}
}

func TestUndoHandleOverExistingCell(t *testing.T) {
	s := newTestStore(t)
	first, err := NewUndoAtom(s, "n", func() int { return 1 })
	if err != nil {
		t.Fatal(err)
	}
	if err := first.Set(2); err != nil {
		t.Fatal(err)
	}

	// A plain handle to an undo atom writes without recording.
	plain, err := NewAtom(s, "n", func() int { return 0 })
	if err != nil {
		t.Fatal(err)
	}
	if err := plain.Set(3); err != nil {
		t.Fatal(err)
	}

	second, err := NewUndoAtom(s, "n", func() int { return 0 })
	if err != nil {
		t.Fatal(err)
	}
	hist, _ := second.History()
	if want := []int{1, 1}; !slices.Equal(hist, want) {
		t.Errorf("History = %v, want %v", hist, want)
	}
}
