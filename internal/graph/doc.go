// Package graph records which computed cells read which other cells.
//
// An edge source -> dependent means the dependent read the source during a
// rebuild and must be rebuilt when the source changes. The graph also renders
// itself as a Mermaid flowchart for the CLI and the inspector.
package graph
