package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/atomstore/internal/errors"
)

const counterScenario = `name: counter
cells:
  - id: count
    type: int
    init: 5
computed:
  - id: double
    op: scale
    inputs: [count]
    params:
      factor: 2
steps:
  - set: {count: 6}
  - expect: {double: 12}
`

const counterReport = `scenario: counter
--- trace
created count kind=atom
rebuild double
rebuilt double changed=true
created double kind=computed
written count op=set
propagate count
  rebuild double cause=count
  rebuilt double changed=true
propagated count rebuilds=1
--- values
count = 6
double = 12
`

// setup writes the counter scenario and an empty config directory.
func setup(t *testing.T, content string) (scenarioPath, configDir string) {
	t.Helper()
	dir := t.TempDir()
	scenarioPath = filepath.Join(dir, "counter.yaml")
	require.NoError(t, os.WriteFile(scenarioPath, []byte(content), 0o644))
	return scenarioPath, dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func diagCode(t *testing.T, err error) string {
	t.Helper()
	var d *errors.Diagnostic
	require.ErrorAs(t, err, &d)
	return d.Code
}

func TestRunPrintsReport(t *testing.T) {
	path, dir := setup(t, counterScenario)

	out, err := execute(t, "--config", dir, "run", path)
	require.NoError(t, err)
	assert.Equal(t, counterReport, out)
}

func TestRunJSON(t *testing.T) {
	path, dir := setup(t, counterScenario)

	out, err := execute(t, "--config", dir, "run", "--json", path)
	require.NoError(t, err)

	var res jsonResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "counter", res.Name)
	assert.Equal(t, map[string]any{"count": float64(6), "double": float64(12)}, res.Values)
	assert.Len(t, res.Events, 9)
	assert.Nil(t, res.Error)
}

func TestRunFailingStepKeepsTrace(t *testing.T) {
	bad := counterScenario[:len(counterScenario)-len("  - expect: {double: 12}\n")] +
		"  - expect: {double: 13}\n"
	path, dir := setup(t, bad)

	out, err := execute(t, "--config", dir, "run", path)
	require.Error(t, err)
	assert.Equal(t, "E125", diagCode(t, err))
	assert.Contains(t, out, "--- values\ncount = 6\ndouble = 12\n")
}

func TestRunSpans(t *testing.T) {
	path, dir := setup(t, counterScenario)

	out, err := execute(t, "--config", dir, "run", "--spans", path)
	require.NoError(t, err)
	assert.Contains(t, out, "--- spans\natomstore.rebuild double\natomstore.propagate\n  atomstore.rebuild double\n")
}

func TestRunMissingScenario(t *testing.T) {
	_, dir := setup(t, counterScenario)

	_, err := execute(t, "--config", dir, "run", filepath.Join(dir, "nope.yaml"))
	assert.Equal(t, "E120", diagCode(t, err))
}

func TestInvalidLogLevel(t *testing.T) {
	path, dir := setup(t, counterScenario)

	_, err := execute(t, "--config", dir, "--log-level", "loud", "run", path)
	assert.Equal(t, "E141", diagCode(t, err))
}

func TestConfigFileAppliesStoreSettings(t *testing.T) {
	path, dir := setup(t, counterScenario)
	cfgPath := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("store:\n  edgePolicy: bogus\n"), 0o644))

	_, err := execute(t, "--config", cfgPath, "run", path)
	assert.Equal(t, "E141", diagCode(t, err))
}

func TestGraph(t *testing.T) {
	path, dir := setup(t, counterScenario)

	out, err := execute(t, "--config", dir, "graph", path)
	require.NoError(t, err)
	assert.Contains(t, out, "graph TD\n")
	assert.Contains(t, out, "count --> double")
}

func TestOps(t *testing.T) {
	out, err := execute(t, "ops")
	require.NoError(t, err)
	assert.Contains(t, out, "div\n")
	assert.Contains(t, out, "sum\n")
}

func TestVersionShort(t *testing.T) {
	out, err := execute(t, "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", out)
}

func TestInit(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, "init", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "atomstore.yaml")
	assert.FileExists(t, filepath.Join(dir, "atomstore.yaml"))

	_, err = execute(t, "init", dir)
	assert.Equal(t, "E160", diagCode(t, err))

	_, err = execute(t, "init", "--force", dir)
	assert.NoError(t, err)
}

func serveWith(ctx context.Context, t *testing.T, addr string) (string, error) {
	t.Helper()
	path, dir := setup(t, counterScenario)
	flags := &globalFlags{config: dir}

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	err := serve(ctx, cmd, flags, path, addr, false)
	return out.String(), err
}

func TestServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := serveWith(ctx, t, "127.0.0.1:0")
	require.NoError(t, err)
	assert.Contains(t, out, "Serving counter on http://127.0.0.1:")
	assert.Contains(t, out, "Shutting down...")
}

func TestServeBadAddress(t *testing.T) {
	_, err := serveWith(context.Background(), t, "bad:addr:x")
	assert.Equal(t, "E161", diagCode(t, err))
}
