package observe

import (
	"fmt"
	"strings"
	"sync"

	"github.com/vango-dev/atomstore/pkg/reactive"
)

// EventType names a store lifecycle event.
type EventType string

const (
	EventCreated    EventType = "created"
	EventWritten    EventType = "written"
	EventPropagate  EventType = "propagate"
	EventRebuild    EventType = "rebuild"
	EventRebuilt    EventType = "rebuilt"
	EventPropagated EventType = "propagated"
	EventUndone     EventType = "undone"
)

// Event is one observed store event.
type Event struct {
	Type     EventType `json:"type"`
	ID       string    `json:"id"`
	Kind     string    `json:"kind,omitempty"`
	Op       string    `json:"op,omitempty"`
	Cause    string    `json:"cause,omitempty"`
	Depth    int       `json:"depth,omitempty"`
	Rebuilds int       `json:"rebuilds,omitempty"`
	Changed  bool      `json:"changed,omitempty"`
	Restored bool      `json:"restored,omitempty"`
	Err      string    `json:"err,omitempty"`
}

// String renders the event on one line, indented by depth.
func (e Event) String() string {
	var b strings.Builder
	b.WriteString(strings.Repeat("  ", e.Depth))
	fmt.Fprintf(&b, "%s %s", e.Type, e.ID)

	switch e.Type {
	case EventCreated:
		fmt.Fprintf(&b, " kind=%s", e.Kind)
	case EventWritten:
		fmt.Fprintf(&b, " op=%s", e.Op)
	case EventRebuild:
		if e.Cause != "" {
			fmt.Fprintf(&b, " cause=%s", e.Cause)
		}
	case EventRebuilt:
		fmt.Fprintf(&b, " changed=%t", e.Changed)
	case EventPropagated:
		fmt.Fprintf(&b, " rebuilds=%d", e.Rebuilds)
	case EventUndone:
		fmt.Fprintf(&b, " restored=%t", e.Restored)
	}
	if e.Err != "" {
		fmt.Fprintf(&b, " err=%q", e.Err)
	}
	return b.String()
}

// Sink is a reactive.Observer that turns each hook call into an Event and
// passes it to the function. It keeps nothing.
type Sink func(Event)

var (
	_ reactive.Observer = Sink(nil)
	_ reactive.Observer = (*Recorder)(nil)
)

// Recorder is a reactive.Observer that keeps every event in order and
// forwards each one to its sinks.
type Recorder struct {
	Sink

	mu     sync.Mutex
	events []Event
	sinks  []func(Event)
}

// NewRecorder creates a recorder. Sinks are called synchronously, in order,
// on the store's goroutine.
func NewRecorder(sinks ...func(Event)) *Recorder {
	r := &Recorder{sinks: sinks}
	r.Sink = r.record
	return r
}

func (r *Recorder) record(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	sinks := r.sinks
	r.mu.Unlock()

	for _, sink := range sinks {
		sink(e)
	}
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Len returns the number of recorded events.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// Reset drops the recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

// Trace renders the recorded events one per line.
func (r *Recorder) Trace() string {
	var b strings.Builder
	for _, e := range r.Events() {
		b.WriteString(e.String())
		b.WriteByte('\n')
	}
	return b.String()
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (f Sink) CellCreated(id string, kind reactive.Kind) {
	f(Event{Type: EventCreated, ID: id, Kind: kind.String()})
}

func (f Sink) Written(id, op string) {
	f(Event{Type: EventWritten, ID: id, Op: op})
}

func (f Sink) PropagationStarted(id string) {
	f(Event{Type: EventPropagate, ID: id})
}

func (f Sink) RebuildStarted(id, cause string, depth int) {
	f(Event{Type: EventRebuild, ID: id, Cause: cause, Depth: depth})
}

func (f Sink) RebuildFinished(id string, depth int, changed bool, err error) {
	f(Event{Type: EventRebuilt, ID: id, Depth: depth, Changed: changed, Err: errString(err)})
}

func (f Sink) PropagationFinished(id string, rebuilds int, err error) {
	f(Event{Type: EventPropagated, ID: id, Rebuilds: rebuilds, Err: errString(err)})
}

func (f Sink) Undone(id string, restored bool) {
	f(Event{Type: EventUndone, ID: id, Restored: restored})
}
