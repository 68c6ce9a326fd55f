package frontend

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/cindexd/cindex/internal/ids"
)

func clampU16(v uint32) uint16 {
	if v > 0xFFFF {
		return 0xFFFF
	}
	return uint16(v)
}

// PositionOf converts a tree-sitter point (0-based) into a 1-based
// ids.Position.
func PositionOf(p tree_sitter.Point) ids.Position {
	return ids.Position{Line: clampU16(uint32(p.Row) + 1), Column: clampU16(uint32(p.Column) + 1)}
}

// RangeOf converts a tree-sitter node's span into an ids.Range.
func RangeOf(n *tree_sitter.Node) ids.Range {
	if n == nil {
		return ids.Range{}
	}
	return ids.Range{Start: PositionOf(n.StartPosition()), End: PositionOf(n.EndPosition())}
}
