package scenario

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// program is a validated scenario, ready to run.
type program struct {
	types   map[string]ValueType
	atoms   []atomPlan
	derived []derivedPlan
}

type atomPlan struct {
	cell Cell
	init any
}

type derivedPlan struct {
	decl   Derived
	result ValueType
	eval   evalFunc
}

var codePattern = regexp.MustCompile(`^E\d{3}$`)

// compile validates the scenario and resolves cell types.
func (sc *Scenario) compile() (*program, error) {
	if strings.TrimSpace(sc.Name) == "" {
		return nil, sc.diag("E121", Position{}, "name is required")
	}
	if len(sc.Cells) == 0 {
		return nil, sc.diag("E121", Position{}, "at least one cell is required")
	}

	p := &program{types: make(map[string]ValueType)}
	declare := func(id string, pos Position, t ValueType) error {
		if id == "" {
			return sc.diag("E121", pos, "cell id is required")
		}
		if _, dup := p.types[id]; dup {
			return sc.diag("E121", pos, fmt.Sprintf("cell %q is declared twice", id))
		}
		p.types[id] = t
		return nil
	}

	for _, c := range sc.Cells {
		if !c.Type.Valid() {
			return nil, sc.diag("E122", c.Pos, fmt.Sprintf("cell %q has type %q", c.ID, c.Type))
		}
		init, err := c.Type.Coerce(c.Init)
		if err != nil {
			return nil, sc.diag("E121", c.Pos, fmt.Sprintf("cell %q init: %v", c.ID, err))
		}
		if err := declare(c.ID, c.Pos, c.Type); err != nil {
			return nil, err
		}
		p.atoms = append(p.atoms, atomPlan{cell: c, init: init})
	}

	for _, d := range sc.Computed {
		compiler, ok := ops[d.Op]
		if !ok {
			return nil, sc.diag("E123", d.Pos, fmt.Sprintf("computed %q uses operation %q", d.ID, d.Op))
		}
		in := make([]ValueType, len(d.Inputs))
		for i, id := range d.Inputs {
			t, ok := p.types[id]
			if !ok {
				return nil, sc.diag("E121", d.Pos, fmt.Sprintf("computed %q reads %q, which is not declared before it", d.ID, id))
			}
			in[i] = t
		}
		result, eval, err := compiler(in, d.Params)
		if err != nil {
			return nil, sc.diag("E124", d.Pos, fmt.Sprintf("computed %q: %v", d.ID, err))
		}
		if err := declare(d.ID, d.Pos, result); err != nil {
			return nil, err
		}
		p.derived = append(p.derived, derivedPlan{decl: d, result: result, eval: eval})
	}

	if err := sc.checkSteps(p, sc.Steps); err != nil {
		return nil, err
	}
	return p, nil
}

func (sc *Scenario) checkSteps(p *program, steps []Step) error {
	for i := range steps {
		st := &steps[i]

		actions := 0
		for _, set := range []bool{st.Set != nil, st.Add != nil, st.Undo != "", st.Expect != nil, st.Batch != nil} {
			if set {
				actions++
			}
		}
		if actions != 1 {
			return sc.diag("E126", st.Pos, fmt.Sprintf("step sets %d actions", actions))
		}
		if st.Fails != "" && !codePattern.MatchString(st.Fails) {
			return sc.diag("E126", st.Pos, fmt.Sprintf("fails: %q is not an error code", st.Fails))
		}

		switch {
		case st.Set != nil:
			if err := sc.checkValues(p, st, st.Set, false); err != nil {
				return err
			}
		case st.Add != nil:
			if err := sc.checkValues(p, st, st.Add, true); err != nil {
				return err
			}
		case st.Undo != "":
			if _, ok := p.types[st.Undo]; !ok {
				return sc.diag("E121", st.Pos, fmt.Sprintf("undo of unknown cell %q", st.Undo))
			}
		case st.Expect != nil:
			if err := sc.checkValues(p, st, st.Expect, false); err != nil {
				return err
			}
		case st.Batch != nil:
			if err := sc.checkSteps(p, st.Batch); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkValues coerces a step's values to their cells' types in place.
func (sc *Scenario) checkValues(p *program, st *Step, values map[string]any, numeric bool) error {
	for _, id := range sortedIDs(values) {
		t, ok := p.types[id]
		if !ok {
			return sc.diag("E121", st.Pos, fmt.Sprintf("unknown cell %q", id))
		}
		if numeric && !t.Numeric() {
			return sc.diag("E121", st.Pos, fmt.Sprintf("add to %s cell %q", t, id))
		}
		v, err := t.Coerce(values[id])
		if err != nil {
			return sc.diag("E121", st.Pos, fmt.Sprintf("cell %q: %v", id, err))
		}
		values[id] = v
	}
	return nil
}

func sortedIDs(m map[string]any) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
