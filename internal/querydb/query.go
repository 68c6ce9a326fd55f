package querydb

import (
	"sort"
	"strings"

	"github.com/cindexd/cindex/internal/ids"
)

// Stats is a diagnostic snapshot of the database's current size, used
// by the $cindex/stats LSP extension.
type Stats struct {
	Files int
	Types int
	Funcs int
	Vars  int
}

// StatsSnapshot returns the current entity counts under a shared lock.
func (db *Database) StatsSnapshot() Stats {
	files, types, funcs, vars := db.Counts()
	return Stats{Files: files, Types: types, Funcs: funcs, Vars: vars}
}

// SymbolMatch is one scored FuzzyMatchSymbols result.
type SymbolMatch struct {
	Ref     SymbolRef
	Name    string
	Score   int
	File    ids.QueryFileId
	HasFile bool
}

// FuzzyMatchSymbols scores every known symbol's detailed name against
// query using a subsequence match (every character of query must
// appear in order in the candidate, not necessarily contiguously) and
// returns the limit highest-scoring matches, best first. No
// third-party fuzzy-matching library appears anywhere in the pack, so
// this is a deliberately small, self-contained scorer rather than a
// dependency with no grounding (see the design ledger).
func (db *Database) FuzzyMatchSymbols(query string, limit int) []SymbolMatch {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if query == "" {
		return nil
	}
	lowerQuery := strings.ToLower(query)

	matches := make([]SymbolMatch, 0, limit)
	for i, name := range db.detailedNames {
		score, ok := subsequenceScore(lowerQuery, strings.ToLower(name))
		if !ok {
			continue
		}
		m := SymbolMatch{Ref: db.symbols[i], Name: name, Score: score}
		switch m.Ref.Kind {
		case SymbolType:
			if t := db.types[m.Ref.TypeID]; t.HasDefFile {
				m.File, m.HasFile = t.DefFile, true
			}
		case SymbolFunc:
			if fn := db.funcs[m.Ref.FuncID]; fn.HasDefFile {
				m.File, m.HasFile = fn.DefFile, true
			}
		case SymbolVar:
			if v := db.vars[m.Ref.VarID]; v.HasDefFile {
				m.File, m.HasFile = v.DefFile, true
			}
		}
		matches = append(matches, m)
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return len(matches[i].Name) < len(matches[j].Name)
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// subsequenceScore reports whether query is a subsequence of candidate
// and, if so, a score rewarding contiguous runs and an early match
// start (a prefix match scores highest).
func subsequenceScore(query, candidate string) (int, bool) {
	score := 0
	qi := 0
	run := 0
	for ci := 0; ci < len(candidate) && qi < len(query); ci++ {
		if candidate[ci] == query[qi] {
			run++
			score += run
			if ci == qi {
				score++
			}
			qi++
		} else {
			run = 0
		}
	}
	if qi != len(query) {
		return 0, false
	}
	return score, true
}

// CallTreeNode is one node of a CallTree result: the function itself
// plus the call sites that reach it, each with its own nested callers
// (or callees, depending on direction).
type CallTreeNode struct {
	FuncID ids.QueryFuncId
	Ref    FuncRef
	Children []CallTreeNode
}

// CallTree builds a bounded-depth tree of callers (direction
// CallTreeCallers) or callees (CallTreeCallees) rooted at fn, matching
// the hierarchical $cindex/callTree request. depth bounds recursion;
// a function already on the current path is not revisited, breaking
// cycles from mutual/indirect recursion.
type CallTreeDirection int

const (
	CallTreeCallers CallTreeDirection = iota
	CallTreeCallees
)

func (db *Database) CallTree(fn ids.QueryFuncId, dir CallTreeDirection, depth int) []CallTreeNode {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.callTree(fn, dir, depth, map[ids.QueryFuncId]bool{fn: true})
}

func (db *Database) callTree(fn ids.QueryFuncId, dir CallTreeDirection, depth int, onPath map[ids.QueryFuncId]bool) []CallTreeNode {
	if depth <= 0 {
		return nil
	}
	f := db.funcs[fn]
	refs := f.Callers
	if dir == CallTreeCallees {
		refs = f.Callees
	}

	nodes := make([]CallTreeNode, 0, len(refs))
	for _, ref := range refs {
		if !ref.HasCaller {
			continue
		}
		caller := ref.CallerID
		if onPath[caller] {
			nodes = append(nodes, CallTreeNode{FuncID: caller, Ref: ref})
			continue
		}
		onPath[caller] = true
		children := db.callTree(caller, dir, depth-1, onPath)
		delete(onPath, caller)
		nodes = append(nodes, CallTreeNode{FuncID: caller, Ref: ref, Children: children})
	}
	return nodes
}

// TypeHierarchyNode is one node of a TypeHierarchy result.
type TypeHierarchyNode struct {
	TypeID   ids.QueryTypeId
	Children []TypeHierarchyNode
}

// TypeHierarchyDirection selects whether the tree walks up through
// base classes (parents) or down through derived classes.
type TypeHierarchyDirection int

const (
	TypeHierarchyParents TypeHierarchyDirection = iota
	TypeHierarchyDerived
)

// TypeHierarchy builds a bounded-depth type inheritance tree rooted at
// t, for the $cindex/typeHierarchy request (a supplemented feature:
// the distilled spec names parents/derived as relations but the
// original exposes them through exactly this kind of recursive query).
func (db *Database) TypeHierarchy(t ids.QueryTypeId, dir TypeHierarchyDirection, depth int) []TypeHierarchyNode {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.typeHierarchy(t, dir, depth, map[ids.QueryTypeId]bool{t: true})
}

func (db *Database) typeHierarchy(t ids.QueryTypeId, dir TypeHierarchyDirection, depth int, onPath map[ids.QueryTypeId]bool) []TypeHierarchyNode {
	if depth <= 0 {
		return nil
	}
	qt := db.types[t]
	related := qt.Parents
	if dir == TypeHierarchyDerived {
		related = qt.Derived
	}

	nodes := make([]TypeHierarchyNode, 0, len(related))
	for _, id := range related {
		if onPath[id] {
			nodes = append(nodes, TypeHierarchyNode{TypeID: id})
			continue
		}
		onPath[id] = true
		children := db.typeHierarchy(id, dir, depth-1, onPath)
		delete(onPath, id)
		nodes = append(nodes, TypeHierarchyNode{TypeID: id, Children: children})
	}
	return nodes
}
