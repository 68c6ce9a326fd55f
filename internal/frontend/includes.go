package frontend

import (
	"path/filepath"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/cindexd/cindex/internal/indexfile"
)

// scanIncludes walks every preproc_include node in the tree (nested
// ones included) and records
// each include's source line (spec.md §3: Includes "each with source
// line and resolved path"). Resolution is best-effort: relative to the
// including file's directory, since full include-path search requires
// the compilation database / build-system integration spec.md scopes
// out (§1 Non-goals).
func scanIncludes(root *tree_sitter.Node, source []byte, path string) []indexfile.Include {
	var out []indexfile.Include
	dir := filepath.Dir(path)
	Walk(root, func(n *tree_sitter.Node) bool {
		if n.Kind() != "preproc_include" {
			return true
		}
		var header string
		for i := uint(0); i < n.ChildCount(); i++ {
			c := n.Child(i)
			switch c.Kind() {
			case "string_literal", "system_lib_string":
				header = strings.Trim(NodeText(c, source), "\"<>")
			}
		}
		if header == "" {
			return true
		}
		line, _, _, _ := NodeRange(n)
		out = append(out, indexfile.Include{
			Line:         int(line),
			ResolvedPath: filepath.ToSlash(filepath.Join(dir, header)),
		})
		return true
	})
	return out
}

// scanErrors surfaces tree-sitter ERROR nodes as diagnostics. A real
// Clang front end reports many more diagnostic kinds; this front end
// only reports what tree-sitter itself can detect (syntax errors).
func scanErrors(root *tree_sitter.Node, source []byte) []indexfile.Diagnostic {
	var out []indexfile.Diagnostic
	Walk(root, func(n *tree_sitter.Node) bool {
		if !n.IsError() && !n.IsMissing() {
			return true
		}
		out = append(out, indexfile.Diagnostic{
			Range:    RangeOf(n),
			Severity: indexfile.SeverityError,
			Message:  "syntax error near " + shortText(NodeText(n, source)),
		})
		return false
	})
	return out
}

func shortText(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 40 {
		s = s[:40] + "..."
	}
	return s
}
