// Package frontend is the parse front end spec.md §2 keeps external to
// the core ("the core does not itself parse C++ — it consumes events
// from an external C/C++ parsing front end"). This package is that
// external collaborator's concrete default: it parses C, C++, and
// Objective-C translation units with the pack's tree-sitter grammars
// and hands the Indexer a syntax tree plus the two pieces of front-end
// output spec.md names explicitly (includes, diagnostics) — it
// performs no symbol resolution of its own. The Indexer walks the
// go-tree-sitter tree it receives here directly.
//
// Grounded on the teacher's internal/parser package (pooled
// *sync.Pool-backed parsers per language, Walk/NodeText helpers) and
// internal/lang's C/CPP LanguageSpec node-kind tables, specialized down
// to the three C-family grammars spec.md's scope calls for.
package frontend

import (
	"fmt"
	"strings"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_c "github.com/tree-sitter/tree-sitter-c/bindings/go"
	tree_sitter_cpp "github.com/tree-sitter/tree-sitter-cpp/bindings/go"
	tree_sitter_objc "github.com/tree-sitter-grammars/tree-sitter-objc/bindings/go"

	"github.com/cindexd/cindex/internal/indexfile"
)

// Language identifies which of the three grammars a path maps to.
type Language = indexfile.Language

var (
	languagesOnce sync.Once
	languages     map[Language]*tree_sitter.Language
	parserPools   map[Language]*sync.Pool
)

func initLanguages() {
	languagesOnce.Do(func() {
		languages = map[Language]*tree_sitter.Language{
			indexfile.LangC:    tree_sitter.NewLanguage(tree_sitter_c.Language()),
			indexfile.LangCpp:  tree_sitter.NewLanguage(tree_sitter_cpp.Language()),
			indexfile.LangObjC: tree_sitter.NewLanguage(tree_sitter_objc.Language()),
		}
		parserPools = make(map[Language]*sync.Pool, len(languages))
		for l, tsLang := range languages {
			tsLang := tsLang
			parserPools[l] = &sync.Pool{
				New: func() any {
					p := tree_sitter.NewParser()
					if err := p.SetLanguage(tsLang); err != nil {
						panic(fmt.Sprintf("frontend: set language: %v", err))
					}
					return p
				},
			}
		}
	})
}

// LanguageForPath maps a file extension to a Language, per spec.md §3's
// closed {C, Cpp, ObjC, Unknown} set.
func LanguageForPath(path string) Language {
	switch {
	case strings.HasSuffix(path, ".c"):
		return indexfile.LangC
	case strings.HasSuffix(path, ".m"), strings.HasSuffix(path, ".mm"):
		return indexfile.LangObjC
	case strings.HasSuffix(path, ".cpp"), strings.HasSuffix(path, ".cc"),
		strings.HasSuffix(path, ".cxx"), strings.HasSuffix(path, ".hpp"),
		strings.HasSuffix(path, ".hh"), strings.HasSuffix(path, ".hxx"),
		strings.HasSuffix(path, ".h"):
		return indexfile.LangCpp
	default:
		return indexfile.LangUnknown
	}
}

// TranslationUnit is the parsed form of one file: its syntax tree, its
// raw source (needed for spelling/hover slicing), the language it was
// parsed as, and the two front-end outputs spec.md calls out as crossing
// the boundary directly (includes, diagnostics) rather than through the
// declaration/reference callback stream.
type TranslationUnit struct {
	Path        string
	Source      []byte
	Language    Language
	Tree        *tree_sitter.Tree
	Includes    []indexfile.Include
	Diagnostics []indexfile.Diagnostic
}

// Close releases the underlying tree-sitter tree.
func (tu *TranslationUnit) Close() {
	if tu.Tree != nil {
		tu.Tree.Close()
	}
}

// Frontend parses (path, args, unsaved buffer) into a TranslationUnit.
// args is accepted for interface parity with a real Clang front end
// (compiler flags affect macro expansion and include resolution there);
// the tree-sitter grammars used here are syntax-only and ignore it.
type Frontend interface {
	Parse(path string, args []string, source []byte) (*TranslationUnit, error)
}

// TreeSitterFrontend is the default Frontend, backed by go-tree-sitter.
type TreeSitterFrontend struct{}

// NewTreeSitterFrontend returns the default tree-sitter-backed front end.
func NewTreeSitterFrontend() *TreeSitterFrontend {
	return &TreeSitterFrontend{}
}

func (TreeSitterFrontend) Parse(path string, args []string, source []byte) (*TranslationUnit, error) {
	initLanguages()

	lang := LanguageForPath(path)
	pool, ok := parserPools[lang]
	if !ok {
		return nil, fmt.Errorf("frontend: unsupported file %q", path)
	}

	p, _ := pool.Get().(*tree_sitter.Parser)
	if p == nil {
		return nil, fmt.Errorf("frontend: failed to acquire parser for %q", path)
	}
	tree := p.Parse(source, nil)
	pool.Put(p)
	if tree == nil {
		return nil, fmt.Errorf("frontend: parse failed for %q", path)
	}

	tu := &TranslationUnit{
		Path:     path,
		Source:   source,
		Language: lang,
		Tree:     tree,
	}
	tu.Includes = scanIncludes(tree.RootNode(), source, path)
	tu.Diagnostics = scanErrors(tree.RootNode(), source)
	return tu, nil
}

// WalkFunc is called for each node during depth-first AST traversal.
// Return false to skip the node's children.
type WalkFunc func(node *tree_sitter.Node) bool

// Walk traverses the AST depth-first, exactly as the teacher's
// parser.Walk does.
func Walk(node *tree_sitter.Node, fn WalkFunc) {
	if node == nil {
		return
	}
	if !fn(node) {
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		if child := node.Child(i); child != nil {
			Walk(child, fn)
		}
	}
}

// NodeText returns the source slice spanned by node.
func NodeText(node *tree_sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	return string(source[node.StartByte():node.EndByte()])
}

// NodeRange returns a tree-sitter node's start and end as 1-based
// line/column numbers, matching spec.md's Position convention.
func NodeRange(node *tree_sitter.Node) (startLine, startCol, endLine, endCol uint32) {
	start := node.StartPosition()
	end := node.EndPosition()
	return uint32(start.Row) + 1, uint32(start.Column) + 1, uint32(end.Row) + 1, uint32(end.Column) + 1
}
