package scenario

import (
	"fmt"
	"strings"

	"github.com/vango-dev/atomstore/internal/errors"
	"github.com/vango-dev/atomstore/pkg/observe"
	"github.com/vango-dev/atomstore/pkg/reactive"
)

// Session is a store built from a scenario. Every store event is recorded.
type Session struct {
	Scenario *Scenario
	Store    *reactive.Store
	Recorder *observe.Recorder

	prog *program
}

// Open creates a store from opts plus the scenario's own store settings and
// declares every cell. obs, if non-nil, receives events after the recorder.
func Open(sc *Scenario, obs reactive.Observer, opts ...reactive.Option) (*Session, error) {
	prog, err := sc.compile()
	if err != nil {
		return nil, err
	}
	own, err := sc.Store.options()
	if err != nil {
		return nil, sc.diag("E121", Position{}, "store: "+err.Error())
	}

	rec := observe.NewRecorder()
	all := make([]reactive.Option, 0, len(opts)+len(own)+1)
	all = append(all, opts...)
	all = append(all, own...)
	all = append(all, reactive.WithObserver(reactive.Observers(rec, obs)))

	sess := &Session{
		Scenario: sc,
		Store:    reactive.NewStore(all...),
		Recorder: rec,
		prog:     prog,
	}

	for _, a := range prog.atoms {
		if err := a.cell.Type.createAtom(sess.Store, a.cell.ID, a.init, a.cell.Undo); err != nil {
			sess.Close()
			return nil, sess.fail(err, a.cell.Pos)
		}
	}
	for _, d := range prog.derived {
		if err := d.result.createComputed(sess.Store, d.decl.ID, d.decl.Inputs, d.eval); err != nil {
			sess.Close()
			return nil, sess.fail(err, d.decl.Pos)
		}
	}
	return sess, nil
}

// Close releases the store.
func (s *Session) Close() {
	s.Store.Close()
}

// fail converts err to a located diagnostic.
func (s *Session) fail(err error, pos Position) *errors.Diagnostic {
	return s.Scenario.locate(errors.FromError(err, "E160"), pos)
}

// RunSteps runs every step in order and stops at the first failure.
func (s *Session) RunSteps() error {
	return s.runSteps(s.Scenario.Steps)
}

func (s *Session) runSteps(steps []Step) error {
	for i := range steps {
		if err := s.runStep(&steps[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) runStep(st *Step) error {
	err := s.apply(st)
	if st.Fails == "" {
		return err
	}

	if err == nil {
		return s.Scenario.diag("E125", st.Pos, fmt.Sprintf("step succeeded, want failure with %s", st.Fails))
	}
	d := errors.FromError(err, "E160")
	if d.Code != st.Fails {
		return s.Scenario.diag("E125", st.Pos, fmt.Sprintf("step failed with %s, want %s", d.Code, st.Fails)).Wrap(err)
	}
	return nil
}

func (s *Session) apply(st *Step) error {
	switch {
	case st.Set != nil:
		for _, id := range sortedIDs(st.Set) {
			if err := reactive.SetAny(s.Store, id, st.Set[id]); err != nil {
				return s.fail(err, st.Pos)
			}
		}
	case st.Add != nil:
		for _, id := range sortedIDs(st.Add) {
			if err := s.add(id, st.Add[id]); err != nil {
				return s.fail(err, st.Pos)
			}
		}
	case st.Undo != "":
		if _, err := reactive.UndoAny(s.Store, st.Undo); err != nil {
			return s.fail(err, st.Pos)
		}
	case st.Expect != nil:
		return s.expect(st)
	case st.Batch != nil:
		if err := s.Store.Batch(func() error { return s.runSteps(st.Batch) }); err != nil {
			return s.fail(err, st.Pos)
		}
	}
	return nil
}

func (s *Session) add(id string, delta any) error {
	cur, err := reactive.ReadAny(s.Store, id)
	if err != nil {
		return err
	}
	switch c := cur.(type) {
	case int:
		return reactive.SetAny(s.Store, id, c+delta.(int))
	case float64:
		return reactive.SetAny(s.Store, id, c+delta.(float64))
	}
	return fmt.Errorf("add to non-numeric cell %q", id)
}

func (s *Session) expect(st *Step) error {
	for _, id := range sortedIDs(st.Expect) {
		got, err := reactive.ReadAny(s.Store, id)
		if err != nil {
			return s.fail(err, st.Pos)
		}
		want := st.Expect[id]
		if !equalValues(got, want) {
			return s.Scenario.diag("E125", st.Pos,
				fmt.Sprintf("cell %q = %s, want %s", id, formatValue(got), formatValue(want)))
		}
	}
	return nil
}

// Values returns every cell's current value.
func (s *Session) Values() map[string]any {
	out := make(map[string]any)
	for _, id := range s.Store.IDs() {
		if v, err := reactive.ReadAny(s.Store, id); err == nil {
			out[id] = v
		}
	}
	return out
}

// Result is the outcome of running a scenario.
type Result struct {
	Name   string
	Events []observe.Event
	Trace  string
	Order  []string
	Values map[string]any
	Graph  string
}

// Result snapshots the session.
func (s *Session) Result() *Result {
	return &Result{
		Name:   s.Scenario.Name,
		Events: s.Recorder.Events(),
		Trace:  s.Recorder.Trace(),
		Order:  s.Store.IDs(),
		Values: s.Values(),
		Graph:  s.Store.Mermaid(false),
	}
}

// Report renders the trace and final values as stable text.
func (r *Result) Report() string {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario: %s\n", r.Name)
	b.WriteString("--- trace\n")
	b.WriteString(r.Trace)
	b.WriteString("--- values\n")
	for _, id := range r.Order {
		fmt.Fprintf(&b, "%s = %s\n", id, formatValue(r.Values[id]))
	}
	return b.String()
}

// Run opens the scenario, runs its steps and closes the store. The result
// is returned even when a step fails, covering the steps that ran.
func Run(sc *Scenario, opts ...reactive.Option) (*Result, error) {
	sess, err := Open(sc, nil, opts...)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	runErr := sess.RunSteps()
	return sess.Result(), runErr
}

// RunFile loads and runs a scenario file.
func RunFile(path string, opts ...reactive.Option) (*Result, error) {
	sc, err := Load(path)
	if err != nil {
		return nil, err
	}
	return Run(sc, opts...)
}
