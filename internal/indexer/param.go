// Package indexer converts the front end's callback stream into one
// IndexFile per translation unit (spec.md §4.3). This is the largest
// single component per spec.md's size budget (~45% of the core).
package indexer

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/cindexd/cindex/internal/fileconsumer"
	"github.com/cindexd/cindex/internal/frontend"
	"github.com/cindexd/cindex/internal/ids"
	"github.com/cindexd/cindex/internal/indexfile"
	"github.com/cindexd/cindex/internal/usr"
)

// ctorInfo is one constructor's parameter-type description, recorded
// in the ConstructorCache so the "make" heuristic (spec.md §4.3) can
// score candidate constructors by parameter-list similarity.
type ctorInfo struct {
	FuncUSR    usr.USR
	ParamTypes []string
}

// constructorCache maps a declaring type's USR to its known
// constructors, populated as constructor declarations are indexed.
// Spec.md §4.3: "Constructor declarations are additionally recorded in
// a per-parse ConstructorCache keyed by declaring type USR."
type constructorCache map[usr.USR][]ctorInfo

func (c constructorCache) add(typeUSR usr.USR, funcUSR usr.USR, paramTypes []string) {
	c[typeUSR] = append(c[typeUSR], ctorInfo{FuncUSR: funcUSR, ParamTypes: paramTypes})
}

// IndexParam is the explicit, per-parse indexing context threaded
// through every callback — spec.md §9 calls out "Indexer state as
// static mutable context" as a pattern requiring re-architecture; this
// struct is that re-architecture: seen files, USR caches, the
// constructor cache, and the translation unit handle all live here
// instead of in package-level globals.
type IndexParam struct {
	TU   *frontend.TranslationUnit
	File *indexfile.IndexFile

	ns    *namespaceHelper
	ctors constructorCache

	// lambdaSeen tracks unresolved lambda parameters promoted to a
	// definition on first reference (spec.md §4.3 "References").
	lambdaSeen map[usr.USR]bool

	consumer *fileconsumer.Consumer
	// newlyOwnedHeaders accumulates header paths this TU newly claimed
	// ownership of via consumer, for the caller to enqueue as follow-up
	// IndexRequests.
	newlyOwnedHeaders []string
}

func newIndexParam(tu *frontend.TranslationUnit, consumer *fileconsumer.Consumer) *IndexParam {
	lang := indexfile.LangUnknown
	switch tu.Language {
	case indexfile.LangC:
		lang = indexfile.LangC
	case indexfile.LangCpp:
		lang = indexfile.LangCpp
	case indexfile.LangObjC:
		lang = indexfile.LangObjC
	}
	return &IndexParam{
		TU:         tu,
		File:       indexfile.New(tu.Path, lang),
		ns:         newNamespaceHelper(),
		ctors:      make(constructorCache),
		lambdaSeen: make(map[usr.USR]bool),
		consumer:   consumer,
	}
}

// root returns the AST root node being indexed.
func (p *IndexParam) root() *tree_sitter.Node {
	return p.TU.Tree.RootNode()
}

func (p *IndexParam) text(n *tree_sitter.Node) string {
	return frontend.NodeText(n, p.TU.Source)
}

// loc builds an ids.Location in this file for n's span.
func (p *IndexParam) loc(n *tree_sitter.Node) ids.Location {
	return ids.Location{File: p.File.SelfFileID(), Range: frontend.RangeOf(n)}
}

// locRange builds an ids.Location in this file for an already-computed
// range, for call sites that have a node-derived range but no node
// handy anymore (e.g. a declarator field extracted during shape
// analysis).
func (p *IndexParam) locRange(r ids.Range) ids.Location {
	return ids.Location{File: p.File.SelfFileID(), Range: r}
}

// typeUSR and funcUSR are the canonical USR-spelling functions every
// type/function lookup and declaration in this package goes through,
// so a reference and its declaration always compute the same key.
func typeUSR(qualifiedName string) usr.USR {
	return usr.USR("c:@" + qualifiedName)
}

func funcUSR(qualifiedName string, paramTypes []string) usr.USR {
	return usr.USR("f:@" + qualifiedName + "#" + strings.Join(paramTypes, ","))
}

func varUSR(qualifiedName string) usr.USR {
	return usr.USR("v:@" + qualifiedName)
}

func macroUSR(name string) usr.USR {
	return usr.USR("m:@" + name)
}
