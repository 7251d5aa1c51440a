package scenario

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/atomstore/internal/errors"
	"github.com/vango-dev/atomstore/pkg/reactive"
)

// Scenario is a scripted store session: the cells to create and the steps
// to run against them.
type Scenario struct {
	// Name identifies the scenario in reports and golden files.
	Name string `yaml:"name"`

	// Description explains what the scenario shows.
	Description string `yaml:"description,omitempty"`

	// Store overrides store options for this scenario.
	Store StoreSettings `yaml:"store,omitempty"`

	// Cells are the atoms, created in order.
	Cells []Cell `yaml:"cells"`

	// Computed are the derived cells, created in order after the atoms.
	// A computed may only read cells declared before it.
	Computed []Derived `yaml:"computed,omitempty"`

	// Steps run in order once every cell exists.
	Steps []Step `yaml:"steps"`

	// path is the file the scenario was loaded from, for error locations.
	path string
}

// StoreSettings are per-scenario store options. Unset fields keep whatever
// the caller configured.
type StoreSettings struct {
	EdgePolicy    string `yaml:"edgePolicy,omitempty"`
	MaxDepth      *int   `yaml:"maxDepth,omitempty"`
	SkipUnchanged bool   `yaml:"skipUnchanged,omitempty"`
	NormalizeIDs  bool   `yaml:"normalizeIDs,omitempty"`
}

// Position is a line and column in the scenario file.
type Position struct {
	Line   int
	Column int
}

// Cell declares an atom.
type Cell struct {
	ID   string    `yaml:"id"`
	Type ValueType `yaml:"type"`
	Init any       `yaml:"init,omitempty"`
	Undo bool      `yaml:"undo,omitempty"`

	Pos Position `yaml:"-"`
}

// Derived declares a computed built from an operation over other cells.
type Derived struct {
	ID     string         `yaml:"id"`
	Op     string         `yaml:"op"`
	Inputs []string       `yaml:"inputs"`
	Params map[string]any `yaml:"params,omitempty"`

	Pos Position `yaml:"-"`
}

// Step is one action. Exactly one of Set, Add, Undo, Expect and Batch is set.
type Step struct {
	// Set writes each listed atom, in identifier order.
	Set map[string]any `yaml:"set,omitempty"`

	// Add adds to each listed numeric atom, in identifier order.
	Add map[string]any `yaml:"add,omitempty"`

	// Undo restores the previous value of an undo-enabled atom.
	Undo string `yaml:"undo,omitempty"`

	// Expect checks cell values.
	Expect map[string]any `yaml:"expect,omitempty"`

	// Batch runs nested steps inside Store.Batch.
	Batch []Step `yaml:"batch,omitempty"`

	// Fails makes the step pass only if it fails with this error code.
	Fails string `yaml:"fails,omitempty"`

	Pos Position `yaml:"-"`
}

// fieldError reports a malformed mapping in the scenario file.
type fieldError struct {
	Pos Position
	Msg string
}

func (e *fieldError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Pos.Line, e.Msg)
}

func nodePos(n *yaml.Node) Position {
	return Position{Line: n.Line, Column: n.Column}
}

// checkKeys rejects mapping keys outside allowed. Decoding through
// yaml.Node does not inherit the decoder's KnownFields setting.
func checkKeys(n *yaml.Node, what string, allowed ...string) error {
	if n.Kind != yaml.MappingNode {
		return &fieldError{Pos: nodePos(n), Msg: what + " must be a mapping"}
	}
	for i := 0; i < len(n.Content); i += 2 {
		key := n.Content[i]
		if !slices.Contains(allowed, key.Value) {
			return &fieldError{Pos: nodePos(key), Msg: fmt.Sprintf("unknown %s field %q", what, key.Value)}
		}
	}
	return nil
}

func (c *Cell) UnmarshalYAML(n *yaml.Node) error {
	if err := checkKeys(n, "cell", "id", "type", "init", "undo"); err != nil {
		return err
	}
	type plain Cell
	if err := n.Decode((*plain)(c)); err != nil {
		return err
	}
	c.Pos = nodePos(n)
	return nil
}

func (d *Derived) UnmarshalYAML(n *yaml.Node) error {
	if err := checkKeys(n, "computed", "id", "op", "inputs", "params"); err != nil {
		return err
	}
	type plain Derived
	if err := n.Decode((*plain)(d)); err != nil {
		return err
	}
	d.Pos = nodePos(n)
	return nil
}

func (s *Step) UnmarshalYAML(n *yaml.Node) error {
	if err := checkKeys(n, "step", "set", "add", "undo", "expect", "batch", "fails"); err != nil {
		return err
	}
	type plain Step
	if err := n.Decode((*plain)(s)); err != nil {
		return err
	}
	s.Pos = nodePos(n)
	return nil
}

// Load reads, parses and validates a scenario file. Errors are
// *errors.Diagnostic values pointing into the file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("E120").Wrap(err)
	}
	return parse(data, path)
}

// Parse parses and validates a scenario held in memory.
func Parse(data []byte) (*Scenario, error) {
	return parse(data, "")
}

func parse(data []byte, path string) (*Scenario, error) {
	var sc Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		var fe *fieldError
		if stderrors.As(err, &fe) {
			sc.path = path
			return nil, sc.diag("E121", fe.Pos, fe.Msg)
		}
		d := errors.New("E120").WithDetail("Failed to parse scenario: " + err.Error())
		if path != "" {
			d.Location = &errors.Location{File: path}
		}
		return nil, d
	}
	sc.path = path

	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Path returns the file the scenario was loaded from.
func (sc *Scenario) Path() string {
	return sc.path
}

// Validate checks the scenario without running it.
func (sc *Scenario) Validate() error {
	_, err := sc.compile()
	return err
}

// diag builds a diagnostic located at pos when the scenario came from a file.
func (sc *Scenario) diag(code string, pos Position, detail string) *errors.Diagnostic {
	d := errors.New(code)
	if detail != "" {
		d.WithDetail(detail)
	}
	return sc.locate(d, pos)
}

func (sc *Scenario) locate(d *errors.Diagnostic, pos Position) *errors.Diagnostic {
	if d.Location == nil && sc.path != "" && pos.Line > 0 {
		d.WithLocation(sc.path, pos.Line, pos.Column)
	}
	return d
}

// options converts the store section to reactive options.
func (s StoreSettings) options() ([]reactive.Option, error) {
	var opts []reactive.Option
	if s.EdgePolicy != "" {
		p, err := reactive.ParseEdgePolicy(s.EdgePolicy)
		if err != nil {
			return nil, err
		}
		opts = append(opts, reactive.WithEdgePolicy(p))
	}
	if s.MaxDepth != nil {
		if *s.MaxDepth < 0 {
			return nil, fmt.Errorf("maxDepth must not be negative")
		}
		opts = append(opts, reactive.WithMaxDepth(*s.MaxDepth))
	}
	if s.SkipUnchanged {
		opts = append(opts, reactive.WithSkipUnchanged())
	}
	if s.NormalizeIDs {
		opts = append(opts, reactive.WithNormalizedIDs())
	}
	return opts, nil
}
