package graph

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/vango-dev/atomstore/internal/slots"
)

func keys(names ...string) (*slots.Table, []slots.Key) {
	tbl := slots.NewTable()
	out := make([]slots.Key, len(names))
	for i, n := range names {
		out[i], _ = tbl.Register(n)
	}
	return tbl, out
}

func TestAddDependencyDeduplicates(t *testing.T) {
	_, k := keys("a", "b")
	g := New()

	if !g.AddDependency(k[0], k[1]) {
		t.Error("first edge should be new")
	}
	if g.AddDependency(k[0], k[1]) {
		t.Error("duplicate edge should be rejected")
	}
	if g.Len() != 1 {
		t.Errorf("Len = %d, want 1", g.Len())
	}
	if deps := g.Dependents(k[0]); len(deps) != 1 || deps[0] != k[1] {
		t.Errorf("Dependents = %v", deps)
	}
}

func TestDependentsOrderAndCopy(t *testing.T) {
	_, k := keys("src", "x", "y", "z")
	g := New()
	g.AddDependency(k[0], k[2])
	g.AddDependency(k[0], k[1])
	g.AddDependency(k[0], k[3])

	deps := g.Dependents(k[0])
	want := []slots.Key{k[2], k[1], k[3]}
	for i := range want {
		if deps[i] != want[i] {
			t.Fatalf("Dependents[%d] = %v, want %v", i, deps[i], want[i])
		}
	}

	deps[0] = k[0]
	if g.Dependents(k[0])[0] != k[2] {
		t.Error("Dependents must return a copy")
	}
	if g.Dependents(k[3]) != nil {
		t.Error("leaf should have no dependents")
	}
}

func TestClearSources(t *testing.T) {
	_, k := keys("a", "b", "c", "d")
	g := New()
	g.AddDependency(k[0], k[2])
	g.AddDependency(k[0], k[3])
	g.AddDependency(k[1], k[2])

	if n := g.ClearSources(k[2]); n != 2 {
		t.Errorf("ClearSources removed %d, want 2", n)
	}
	if g.Len() != 1 {
		t.Errorf("Len = %d, want 1", g.Len())
	}
	if deps := g.Dependents(k[0]); len(deps) != 1 || deps[0] != k[3] {
		t.Errorf("Dependents(a) = %v, want [d]", deps)
	}
	if deps := g.Dependents(k[1]); len(deps) != 0 {
		t.Errorf("Dependents(b) = %v, want none", deps)
	}
	if srcs := g.Sources(k[2]); srcs != nil {
		t.Errorf("Sources(c) = %v, want none", srcs)
	}

	// Re-adding after a clear works and keeps counts right.
	g.AddDependency(k[1], k[2])
	if g.Len() != 2 {
		t.Errorf("Len = %d, want 2", g.Len())
	}
}

func TestEdgesGroupedBySource(t *testing.T) {
	_, k := keys("a", "b", "c")
	g := New()
	g.AddDependency(k[1], k[2])
	g.AddDependency(k[0], k[1])
	g.AddDependency(k[0], k[2])

	edges := g.Edges()
	want := []Edge{{k[1], k[2]}, {k[0], k[1]}, {k[0], k[2]}}
	if len(edges) != len(want) {
		t.Fatalf("got %d edges, want %d", len(edges), len(want))
	}
	for i := range want {
		if edges[i] != want[i] {
			t.Errorf("edge %d = %v, want %v", i, edges[i], want[i])
		}
	}

	g.Clear()
	if g.Len() != 0 || len(g.Edges()) != 0 {
		t.Error("Clear should drop every edge")
	}
}

func TestMermaidGolden(t *testing.T) {
	gold := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	tests := []struct {
		name    string
		nodes   []Node
		edges   []NamedEdge
		overlay *Overlay
	}{
		{
			name: "diamond",
			nodes: []Node{
				{ID: "a", Kind: NodeAtom},
				{ID: "b", Kind: NodeComputed},
				{ID: "c", Kind: NodeComputed},
				{ID: "d", Kind: NodeComputed},
			},
			edges: []NamedEdge{
				{From: "a", To: "b"},
				{From: "a", To: "c"},
				{From: "b", To: "d"},
				{From: "c", To: "d"},
			},
		},
		{
			name: "overlay",
			nodes: []Node{
				{ID: "user.name", Kind: NodeUndoAtom},
				{ID: "greeting", Kind: NodeComputed},
			},
			edges: []NamedEdge{{From: "user.name", To: "greeting"}},
			overlay: &Overlay{
				Written: "user.name",
				Rebuilt: []string{"greeting", "greeting"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gold.Assert(t, tt.name, []byte(Mermaid(tt.nodes, tt.edges, tt.overlay)))
		})
	}
}

func TestSanitizeID(t *testing.T) {
	tests := map[string]string{
		"count":       "count",
		"user.name":   "user_name",
		"a-b/c\\d":    "a_b_c_d",
		"cart[0]":     "cart_0_",
		"total_price": "total_price",
	}
	for in, want := range tests {
		if got := sanitizeID(in); got != want {
			t.Errorf("sanitizeID(%q) = %q, want %q", in, got, want)
		}
	}
}
