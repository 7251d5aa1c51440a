package graph

import (
	"fmt"
	"strings"
)

// NodeKind selects the shape a node is drawn with.
type NodeKind int

const (
	NodeAtom NodeKind = iota
	NodeUndoAtom
	NodeComputed
)

// Node is a named cell to draw.
type Node struct {
	ID   string
	Kind NodeKind
}

// NamedEdge is an edge between two cell identifiers.
type NamedEdge struct {
	From string
	To   string
}

// Overlay marks nodes touched by the most recent propagation.
type Overlay struct {
	Written string
	Rebuilt []string
}

// Mermaid produces a Mermaid flowchart for the given cells and edges.
// Shapes:
//   - Atom: (["Stadium"])
//   - Atom with undo: [("Cylinder")]
//   - Computed: [["Subroutine"]]
func Mermaid(nodes []Node, edges []NamedEdge, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, n := range nodes {
		opener, closer := "([", "])"
		switch n.Kind {
		case NodeUndoAtom:
			opener, closer = "[(", ")]"
		case NodeComputed:
			opener, closer = "[[", "]]"
		}
		label := strings.ReplaceAll(n.ID, "\"", "'")
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", sanitizeID(n.ID), opener, label, closer)
	}

	for _, e := range edges {
		fmt.Fprintf(&sb, "    %s --> %s\n", sanitizeID(e.From), sanitizeID(e.To))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Propagation\n")
		sb.WriteString("    classDef written fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		sb.WriteString("    classDef rebuilt fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")

		if overlay.Written != "" {
			fmt.Fprintf(&sb, "    class %s written;\n", sanitizeID(overlay.Written))
		}
		seen := make(map[string]bool, len(overlay.Rebuilt))
		for _, id := range overlay.Rebuilt {
			safe := sanitizeID(id)
			if safe == "" || seen[safe] {
				continue
			}
			seen[safe] = true
			fmt.Fprintf(&sb, "    class %s rebuilt;\n", safe)
		}
	}

	return sb.String()
}

// sanitizeID maps an identifier onto the characters Mermaid accepts in node IDs.
func sanitizeID(id string) string {
	var b strings.Builder
	b.Grow(len(id))
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
