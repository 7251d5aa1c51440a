package graph

import (
	"github.com/vango-dev/atomstore/internal/slots"
)

// Edge records that Dependent must be rebuilt when Source changes.
type Edge struct {
	Source    slots.Key
	Dependent slots.Key
}

// Graph is the adjacency structure between cells.
// For every source it keeps the ordered list of dependents that read it, and
// the reverse list so a dependent's incoming edges can be dropped.
//
// Edges are deduplicated: adding an existing edge is a no-op.
type Graph struct {
	dependents map[slots.Key][]slots.Key
	sources    map[slots.Key][]slots.Key

	// order lists sources by first edge, for deterministic iteration.
	order []slots.Key
	edges int
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		dependents: make(map[slots.Key][]slots.Key),
		sources:    make(map[slots.Key][]slots.Key),
	}
}

// AddDependency records source -> dependent.
// Returns false if the edge was already present.
func (g *Graph) AddDependency(source, dependent slots.Key) bool {
	deps, seen := g.dependents[source]
	for _, d := range deps {
		if d == dependent {
			return false
		}
	}
	if !seen {
		g.order = append(g.order, source)
	}

	g.dependents[source] = append(deps, dependent)
	g.sources[dependent] = append(g.sources[dependent], source)
	g.edges++
	return true
}

// Dependents returns the direct dependents of source in the order their
// edges were first added. The slice is a copy; the graph may change while
// the caller walks it.
func (g *Graph) Dependents(source slots.Key) []slots.Key {
	deps := g.dependents[source]
	if len(deps) == 0 {
		return nil
	}
	out := make([]slots.Key, len(deps))
	copy(out, deps)
	return out
}

// Sources returns the cells dependent currently reads, as a copy.
func (g *Graph) Sources(dependent slots.Key) []slots.Key {
	srcs := g.sources[dependent]
	if len(srcs) == 0 {
		return nil
	}
	out := make([]slots.Key, len(srcs))
	copy(out, srcs)
	return out
}

// ClearSources removes every edge pointing at dependent.
// Returns the number of edges removed.
func (g *Graph) ClearSources(dependent slots.Key) int {
	srcs := g.sources[dependent]
	for _, src := range srcs {
		deps := g.dependents[src]
		for i, d := range deps {
			if d == dependent {
				// Keep order: later dependents stay behind earlier ones.
				g.dependents[src] = append(deps[:i:i], deps[i+1:]...)
				break
			}
		}
	}
	delete(g.sources, dependent)
	g.edges -= len(srcs)
	return len(srcs)
}

// Edges returns every edge, grouped by source in first-seen order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, g.edges)
	for _, src := range g.order {
		for _, dep := range g.dependents[src] {
			out = append(out, Edge{Source: src, Dependent: dep})
		}
	}
	return out
}

// Len returns the number of edges.
func (g *Graph) Len() int {
	return g.edges
}

// Clear removes all edges.
func (g *Graph) Clear() {
	g.dependents = make(map[slots.Key][]slots.Key)
	g.sources = make(map[slots.Key][]slots.Key)
	g.order = nil
	g.edges = 0
}
