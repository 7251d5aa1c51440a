package reactive

import (
	"github.com/vango-dev/atomstore/internal/graph"
	"github.com/vango-dev/atomstore/internal/slots"
)

// Edge is a dependency from a source cell to a computed that reads it.
type Edge struct {
	Source    string `json:"source"`
	Dependent string `json:"dependent"`
}

// CellInfo describes one cell for inspection.
type CellInfo struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Type      string `json:"type"`
	Value     any    `json:"value"`
	UndoDepth int    `json:"undoDepth,omitempty"`
}

// Propagation describes the most recent write that was propagated.
type Propagation struct {
	Written string
	Rebuilt []string
}

// Dependents returns the computeds that read id, in the order they were
// registered.
func (s *Store) Dependents(id string) ([]string, error) {
	k, err := s.resolve("dependents", id)
	if err != nil {
		return nil, err
	}
	return s.names(s.graph.Dependents(k)), nil
}

// Sources returns the cells computed id has read.
func (s *Store) Sources(id string) ([]string, error) {
	k, err := s.resolve("sources", id)
	if err != nil {
		return nil, err
	}
	return s.names(s.graph.Sources(k)), nil
}

// Edges returns every dependency edge, grouped by source.
func (s *Store) Edges() []Edge {
	if s.closed {
		return nil
	}
	edges := s.graph.Edges()
	out := make([]Edge, 0, len(edges))
	for _, e := range edges {
		out = append(out, Edge{Source: s.name(e.Source), Dependent: s.name(e.Dependent)})
	}
	return out
}

// LastPropagation returns the most recent outermost propagation.
// ok is false if nothing has been propagated yet.
func (s *Store) LastPropagation() (p Propagation, ok bool) {
	if s.last.written == "" {
		return Propagation{}, false
	}
	rebuilt := make([]string, len(s.last.rebuilt))
	copy(rebuilt, s.last.rebuilt)
	return Propagation{Written: s.last.written, Rebuilt: rebuilt}, true
}

// Mermaid renders the dependency graph as a Mermaid flowchart.
// With highlight, the cells touched by the last propagation are styled.
func (s *Store) Mermaid(highlight bool) string {
	var nodes []graph.Node
	for _, k := range s.slots.Keys() {
		var nk graph.NodeKind
		switch s.kinds[k] {
		case KindAtom:
			nk = graph.NodeAtom
		case KindUndoAtom:
			nk = graph.NodeUndoAtom
		case KindComputed:
			nk = graph.NodeComputed
		default:
			continue
		}
		nodes = append(nodes, graph.Node{ID: s.name(k), Kind: nk})
	}

	var edges []graph.NamedEdge
	for _, e := range s.Edges() {
		edges = append(edges, graph.NamedEdge{From: e.Source, To: e.Dependent})
	}

	var overlay *graph.Overlay
	if p, ok := s.LastPropagation(); highlight && ok {
		overlay = &graph.Overlay{Written: p.Written, Rebuilt: p.Rebuilt}
	}
	return graph.Mermaid(nodes, edges, overlay)
}

// Cells describes every cell in creation order.
func (s *Store) Cells() []CellInfo {
	var out []CellInfo
	for _, k := range s.slots.Keys() {
		if s.kinds[k] == 0 {
			continue
		}
		out = append(out, s.cellInfo(k))
	}
	return out
}

// Cell describes the cell registered under id.
func (s *Store) Cell(id string) (CellInfo, error) {
	k, err := s.resolve("inspect", id)
	if err != nil {
		return CellInfo{}, err
	}
	return s.cellInfo(k), nil
}

func (s *Store) cellInfo(k slots.Key) CellInfo {
	kind := s.kinds[k]
	v, _ := s.cells.Value(k)
	info := CellInfo{
		ID:    s.name(k),
		Kind:  kind.String(),
		Type:  typeName(s.cells.TypeOf(k)),
		Value: v,
	}
	if kind == KindUndoAtom {
		info.UndoDepth, _ = s.UndoDepth(info.ID)
	}
	return info
}

func (s *Store) names(keys []slots.Key) []string {
	if len(keys) == 0 {
		return nil
	}
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = s.name(k)
	}
	return out
}
