package scenario

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/atomstore/internal/errors"
	"github.com/vango-dev/atomstore/pkg/observe"
	"github.com/vango-dev/atomstore/pkg/reactive"
)

func diagnostic(t *testing.T, err error) *errors.Diagnostic {
	t.Helper()
	var d *errors.Diagnostic
	require.True(t, stderrors.As(err, &d), "error %v is not a Diagnostic", err)
	return d
}

func TestLoadCounter(t *testing.T) {
	sc, err := Load(filepath.Join("testdata", "counter.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "counter", sc.Name)
	require.Len(t, sc.Cells, 1)
	assert.Equal(t, Int, sc.Cells[0].Type)
	assert.Equal(t, 4, sc.Cells[0].Pos.Line)
	require.Len(t, sc.Computed, 1)
	assert.Equal(t, "scale", sc.Computed[0].Op)
	require.Len(t, sc.Steps, 3)
	assert.Equal(t, 15, sc.Steps[1].Pos.Line)
}

func TestRunCounterValues(t *testing.T) {
	res, err := RunFile(filepath.Join("testdata", "counter.yaml"))
	require.NoError(t, err)

	assert.Equal(t, []string{"count", "double"}, res.Order)
	assert.Equal(t, 6, res.Values["count"])
	assert.Equal(t, 12, res.Values["double"])
	assert.Contains(t, res.Graph, "count --> double")
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		wantCode string
		wantText string
	}{
		{
			name:     "malformed",
			yaml:     "name: [",
			wantCode: "E120",
		},
		{
			name:     "unknown top-level field",
			yaml:     "name: x\ncels: []\n",
			wantCode: "E120",
		},
		{
			name:     "missing name",
			yaml:     "cells:\n  - {id: a, type: int}\n",
			wantCode: "E121",
			wantText: "name is required",
		},
		{
			name:     "unknown cell field",
			yaml:     "name: x\ncells:\n  - {id: a, type: int, intial: 3}\n",
			wantCode: "E121",
			wantText: `unknown cell field "intial"`,
		},
		{
			name:     "unknown type",
			yaml:     "name: x\ncells:\n  - {id: a, type: decimal}\n",
			wantCode: "E122",
			wantText: "decimal",
		},
		{
			name:     "duplicate cell",
			yaml:     "name: x\ncells:\n  - {id: a, type: int}\n  - {id: a, type: bool}\n",
			wantCode: "E121",
			wantText: "declared twice",
		},
		{
			name:     "bad init",
			yaml:     "name: x\ncells:\n  - {id: a, type: int, init: 1.5}\n",
			wantCode: "E121",
			wantText: "1.5 is not a valid int",
		},
		{
			name:     "unknown op",
			yaml:     "name: x\ncells:\n  - {id: a, type: int}\ncomputed:\n  - {id: b, op: sqrt, inputs: [a]}\n",
			wantCode: "E123",
			wantText: "sqrt",
		},
		{
			name:     "forward reference",
			yaml:     "name: x\ncells:\n  - {id: a, type: int}\ncomputed:\n  - {id: b, op: sum, inputs: [a, c]}\n  - {id: c, op: sum, inputs: [a]}\n",
			wantCode: "E121",
			wantText: "not declared before it",
		},
		{
			name:     "missing param",
			yaml:     "name: x\ncells:\n  - {id: a, type: int}\ncomputed:\n  - {id: b, op: scale, inputs: [a]}\n",
			wantCode: "E124",
			wantText: "factor",
		},
		{
			name:     "unknown param",
			yaml:     "name: x\ncells:\n  - {id: a, type: int}\ncomputed:\n  - {id: b, op: sum, inputs: [a], params: {round: true}}\n",
			wantCode: "E124",
			wantText: "round",
		},
		{
			name:     "wrong input type",
			yaml:     "name: x\ncells:\n  - {id: a, type: string}\ncomputed:\n  - {id: b, op: negate, inputs: [a]}\n",
			wantCode: "E124",
			wantText: "input 1 is string",
		},
		{
			name:     "two actions in one step",
			yaml:     "name: x\ncells:\n  - {id: a, type: int}\nsteps:\n  - {set: {a: 1}, undo: a}\n",
			wantCode: "E126",
			wantText: "2 actions",
		},
		{
			name:     "bad fails code",
			yaml:     "name: x\ncells:\n  - {id: a, type: int}\nsteps:\n  - {set: {a: 1}, fails: boom}\n",
			wantCode: "E126",
		},
		{
			name:     "unknown cell in step",
			yaml:     "name: x\ncells:\n  - {id: a, type: int}\nsteps:\n  - batch:\n      - set: {z: 1}\n",
			wantCode: "E121",
			wantText: `unknown cell "z"`,
		},
		{
			name:     "add to string",
			yaml:     "name: x\ncells:\n  - {id: a, type: string}\nsteps:\n  - add: {a: 1}\n",
			wantCode: "E121",
			wantText: "add to string",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			d := diagnostic(t, err)
			assert.Equal(t, tt.wantCode, d.Code)
			if tt.wantText != "" {
				assert.Contains(t, d.Detail, tt.wantText)
			}
		})
	}
}

func TestErrorsCarryFileLocation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	content := "name: bad\n" +
		"cells:\n" +
		"  - id: a\n" +
		"    type: int\n" +
		"steps:\n" +
		"  - set: {a: 2}\n" +
		"  - expect: {a: 3}\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	res, err := RunFile(path)
	d := diagnostic(t, err)
	assert.Equal(t, "E125", d.Code)
	assert.Equal(t, `cell "a" = 2, want 3`, d.Detail)
	require.NotNil(t, d.Location)
	assert.Equal(t, path, d.Location.File)
	assert.Equal(t, 7, d.Location.Line)
	assert.Contains(t, d.Context, "  - expect: {a: 3}")

	// The steps that ran are still reported.
	require.NotNil(t, res)
	assert.Equal(t, 2, res.Values["a"])
}

func TestFailsExpectations(t *testing.T) {
	base := "name: x\ncells:\n  - {id: a, type: int}\ncomputed:\n  - {id: b, op: negate, inputs: [a]}\nsteps:\n"

	tests := []struct {
		name     string
		step     string
		wantErr  bool
		wantText string
	}{
		{"expected failure", "  - {set: {b: 1}, fails: E103}\n", false, ""},
		{"wrong code", "  - {set: {b: 1}, fails: E105}\n", true, "failed with E103, want E105"},
		{"unexpected success", "  - {set: {a: 1}, fails: E103}\n", true, "step succeeded"},
		{"undo without history", "  - {undo: a, fails: E105}\n", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, err := Parse([]byte(base + tt.step))
			require.NoError(t, err)
			_, err = Run(sc)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			d := diagnostic(t, err)
			assert.Equal(t, "E125", d.Code)
			assert.Contains(t, d.Detail, tt.wantText)
		})
	}
}

func TestOperations(t *testing.T) {
	sc, err := Parse([]byte(`
name: ops
cells:
  - {id: i, type: int, init: 3}
  - {id: j, type: int, init: -4}
  - {id: f, type: float, init: 0.5}
  - {id: s, type: string, init: "héllo"}
  - {id: on, type: bool, init: true}
computed:
  - {id: sum, op: sum, inputs: [i, j]}
  - {id: fsum, op: sum, inputs: [i, f]}
  - {id: product, op: product, inputs: [i, j]}
  - {id: min, op: min, inputs: [i, j]}
  - {id: max, op: max, inputs: [i, f]}
  - {id: half, op: scale, inputs: [i], params: {factor: 0.5}}
  - {id: div, op: div, inputs: [i, f]}
  - {id: neg, op: negate, inputs: [j]}
  - {id: off, op: not, inputs: [on]}
  - {id: len, op: len, inputs: [s]}
  - {id: joined, op: concat, inputs: [s, i, on], params: {sep: "/"}}
  - {id: text, op: format, inputs: [s, i], params: {template: "%s x%d"}}
steps:
  - expect:
      sum: -1
      fsum: 3.5
      product: -12
      min: -4
      max: 3
      half: 1.5
      div: 6
      neg: 4
      off: false
      len: 5
      joined: héllo/3/true
      text: héllo x3
  - add: {i: 1, f: 0.25}
  - expect: {sum: 0, fsum: 4.75, max: 4, half: 2}
`))
	require.NoError(t, err)

	res, err := Run(sc)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Values["i"])
	assert.Equal(t, 0.75, res.Values["f"])
}

func TestOpNames(t *testing.T) {
	assert.Equal(t, []string{
		"concat", "div", "format", "len", "max", "min", "negate", "not", "product", "scale", "sum",
	}, OpNames())
}

func TestStoreSettings(t *testing.T) {
	sc, err := Parse([]byte(`
name: skip
store:
  skipUnchanged: true
cells:
  - {id: n, type: int, init: 3}
computed:
  - {id: sign, op: min, inputs: [n, n]}
steps:
  - set: {n: 3}
`))
	require.NoError(t, err)

	res, err := Run(sc)
	require.NoError(t, err)

	// The unchanged write is recorded but does not propagate.
	last := res.Events[len(res.Events)-1]
	assert.Equal(t, observe.EventWritten, last.Type)
	assert.Equal(t, "n", last.ID)
}

func TestOpenWithObserver(t *testing.T) {
	sc, err := Load(filepath.Join("testdata", "counter.yaml"))
	require.NoError(t, err)

	extra := observe.NewRecorder()
	sess, err := Open(sc, extra, reactive.WithMaxDepth(4))
	require.NoError(t, err)
	defer sess.Close()

	require.NoError(t, sess.RunSteps())
	assert.Equal(t, sess.Recorder.Len(), extra.Len())
	assert.True(t, strings.HasPrefix(sess.Recorder.Trace(), "created count kind=atom\n"))
}

func TestStepsRunAgainstClosedStore(t *testing.T) {
	sc, err := Load(filepath.Join("testdata", "counter.yaml"))
	require.NoError(t, err)

	sess, err := Open(sc, nil)
	require.NoError(t, err)
	sess.Close()

	d := diagnostic(t, sess.RunSteps())
	assert.Equal(t, "E106", d.Code)
	assert.True(t, stderrors.Is(d, reactive.ErrClosed))
}
