// cindex-ast-debug dumps the tree-sitter AST for one source file,
// adapted from the teacher's ast_debug tool (which exercised several
// scripting-language grammars against inline snippets) to instead
// drive the indexer's own front end against a real file on disk.
package main

import (
	"fmt"
	"os"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/cindexd/cindex/internal/frontend"
)

func printAST(node *tree_sitter.Node, source []byte, indent int) {
	if node == nil {
		return
	}
	prefix := ""
	for i := 0; i < indent; i++ {
		prefix += "  "
	}
	parentKind := "nil"
	if node.Parent() != nil {
		parentKind = node.Parent().Kind()
	}
	text := string(source[node.StartByte():node.EndByte()])
	if len(text) > 60 {
		text = text[:60] + "..."
	}
	fmt.Printf("%s%s (parent=%s) %q\n", prefix, node.Kind(), parentKind, text)
	for i := uint(0); i < node.ChildCount(); i++ {
		printAST(node.Child(i), source, indent+1)
	}
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: cindex-ast-debug <path>")
		os.Exit(2)
	}
	path := os.Args[1]

	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}

	fe := frontend.NewTreeSitterFrontend()
	tu, err := fe.Parse(path, nil, source)
	if err != nil {
		fmt.Fprintln(os.Stderr, "parse:", err)
		os.Exit(1)
	}
	defer tu.Close()

	fmt.Printf("=== %s (%v) ===\n", path, tu.Language)
	printAST(tu.Tree.RootNode(), source, 0)

	if len(tu.Includes) > 0 {
		fmt.Println("\n=== includes ===")
		for _, inc := range tu.Includes {
			fmt.Printf("line %d -> %s\n", inc.Line, inc.ResolvedPath)
		}
	}
	if len(tu.Diagnostics) > 0 {
		fmt.Println("\n=== diagnostics ===")
		for _, d := range tu.Diagnostics {
			fmt.Printf("%s: %s\n", d.Range, d.Message)
		}
	}
}
