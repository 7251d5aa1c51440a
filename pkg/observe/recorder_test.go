package observe

import (
	"testing"

	"github.com/vango-dev/atomstore/pkg/reactive"
)

func TestRecorderTrace(t *testing.T) {
	var forwarded []EventType
	rec := NewRecorder(func(e Event) { forwarded = append(forwarded, e.Type) })
	s := quietStore(rec)
	defer s.Close()

	count, err := reactive.NewAtom(s, "count", func() int { return 0 })
	if err != nil {
		t.Fatal(err)
	}
	_, err = reactive.NewComputed(s, "double", func(rc *reactive.Rebuild) (int, error) {
		n, err := count.Track(rc)
		return n * 2, err
	})
	if err != nil {
		t.Fatal(err)
	}
	rec.Reset()
	forwarded = nil

	if err := count.Update(func(n *int) { *n += 5 }); err != nil {
		t.Fatal(err)
	}

	want := "written count op=update\n" +
		"propagate count\n" +
		"  rebuild double cause=count\n" +
		"  rebuilt double changed=true\n" +
		"propagated count rebuilds=1\n"
	if got := rec.Trace(); got != want {
		t.Errorf("Trace() =\n%s\nwant\n%s", got, want)
	}
	if rec.Len() != 5 {
		t.Errorf("Len() = %d, want 5", rec.Len())
	}
	if len(forwarded) != 5 || forwarded[0] != EventWritten {
		t.Errorf("sink saw %v", forwarded)
	}
}

func TestEventString(t *testing.T) {
	tests := []struct {
		e    Event
		want string
	}{
		{Event{Type: EventCreated, ID: "a", Kind: "atom"}, "created a kind=atom"},
		{Event{Type: EventUndone, ID: "a", Restored: false}, "undone a restored=false"},
		{Event{Type: EventRebuild, ID: "c", Depth: 0}, "rebuild c"},
		{Event{Type: EventRebuilt, ID: "c", Depth: 2, Err: "boom"}, `    rebuilt c changed=false err="boom"`},
	}
	for _, tt := range tests {
		if got := tt.e.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestSinkKeepsNothing(t *testing.T) {
	var got []string
	s := quietStore(Sink(func(e Event) { got = append(got, e.String()) }))
	defer s.Close()

	if _, err := reactive.NewUndoAtom(s, "n", func() int { return 1 }); err != nil {
		t.Fatal(err)
	}
	if _, err := reactive.UndoAny(s, "n"); err != nil {
		t.Fatal(err)
	}

	want := []string{"created n kind=undo-atom", "undone n restored=false"}
	if len(got) != len(want) {
		t.Fatalf("events = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %q, want %q", i, got[i], want[i])
		}
	}
}
