package querydb

import (
	"github.com/cindexd/cindex/internal/ids"
	"github.com/cindexd/cindex/internal/indexfile"
)

// TypeSnapshot carries a type's def-adjacent scalar fields as they
// stand in the current IndexFile; Apply overwrites the database's copy
// wholesale, the same "def replaced: overwrite in place, keeping the
// global id" rule spec.md §4.4 gives the apply worker.
type TypeSnapshot struct {
	Def        *indexfile.Def
	AliasOf    ids.QueryTypeId
	HasAliasOf bool
}

// FuncSnapshot is the func counterpart of TypeSnapshot.
type FuncSnapshot struct {
	Def              *indexfile.Def
	Declarations     []indexfile.Declaration
	IsOperator       bool
	DeclaringType    ids.QueryTypeId
	HasDeclaringType bool
}

// VarSnapshot is the var counterpart of TypeSnapshot.
type VarSnapshot struct {
	Def              *indexfile.Def
	Declaration      ids.Range
	HasDeclaration   bool
	VariableType     ids.QueryTypeId
	HasVariableType  bool
	DeclaringType    ids.QueryTypeId
	HasDeclaringType bool
	IsLocal          bool
	IsMacro          bool
}

// IndexUpdate is the structured delta the merge stage computes between
// a file's previous and current IndexFile, for the apply worker to
// apply atomically (spec.md §4.4's merge-worker contract). Def-adjacent
// scalar fields are always taken from the current snapshot (a def
// replace is unconditional); list-valued relations that spec.md calls
// out for incremental add/remove (uses, callers, callees, parents,
// derived, virtual override base/derived) are diffed against the
// previous snapshot so Apply only has to add or remove the difference.
type IndexUpdate struct {
	FileID ids.QueryFileId

	Types map[ids.QueryTypeId]TypeSnapshot
	Funcs map[ids.QueryFuncId]FuncSnapshot
	Vars  map[ids.QueryVarId]VarSnapshot

	TypeUsesAdded, TypeUsesRemoved map[ids.QueryTypeId][]Location
	VarUsesAdded, VarUsesRemoved   map[ids.QueryVarId][]Location

	CallersAdded, CallersRemoved map[ids.QueryFuncId][]FuncRef
	CalleesAdded, CalleesRemoved map[ids.QueryFuncId][]FuncRef

	ParentsAdded, ParentsRemoved map[ids.QueryTypeId][]ids.QueryTypeId
	DerivedAdded, DerivedRemoved map[ids.QueryTypeId][]ids.QueryTypeId

	FuncBaseAdded, FuncBaseRemoved       map[ids.QueryFuncId][]ids.QueryFuncId
	FuncDerivedAdded, FuncDerivedRemoved map[ids.QueryFuncId][]ids.QueryFuncId
}

func newIndexUpdate(fileID ids.QueryFileId) *IndexUpdate {
	return &IndexUpdate{
		FileID:             fileID,
		Types:              make(map[ids.QueryTypeId]TypeSnapshot),
		Funcs:              make(map[ids.QueryFuncId]FuncSnapshot),
		Vars:               make(map[ids.QueryVarId]VarSnapshot),
		TypeUsesAdded:      make(map[ids.QueryTypeId][]Location),
		TypeUsesRemoved:    make(map[ids.QueryTypeId][]Location),
		VarUsesAdded:       make(map[ids.QueryVarId][]Location),
		VarUsesRemoved:     make(map[ids.QueryVarId][]Location),
		CallersAdded:       make(map[ids.QueryFuncId][]FuncRef),
		CallersRemoved:     make(map[ids.QueryFuncId][]FuncRef),
		CalleesAdded:       make(map[ids.QueryFuncId][]FuncRef),
		CalleesRemoved:     make(map[ids.QueryFuncId][]FuncRef),
		ParentsAdded:       make(map[ids.QueryTypeId][]ids.QueryTypeId),
		ParentsRemoved:     make(map[ids.QueryTypeId][]ids.QueryTypeId),
		DerivedAdded:       make(map[ids.QueryTypeId][]ids.QueryTypeId),
		DerivedRemoved:     make(map[ids.QueryTypeId][]ids.QueryTypeId),
		FuncBaseAdded:      make(map[ids.QueryFuncId][]ids.QueryFuncId),
		FuncBaseRemoved:    make(map[ids.QueryFuncId][]ids.QueryFuncId),
		FuncDerivedAdded:   make(map[ids.QueryFuncId][]ids.QueryFuncId),
		FuncDerivedRemoved: make(map[ids.QueryFuncId][]ids.QueryFuncId),
	}
}

// diff reports, for two snapshots of a comparable-element slice, which
// elements are present in curr but not prev (added) and present in prev
// but not curr (removed), treating both as multisets so run-compressed
// duplicate call sites are not lost. Order is not preserved; Apply only
// needs this to drive its unique-add/exact-remove operations.
func diff[T comparable](prev, curr []T) (added, removed []T) {
	prevCount := make(map[T]int, len(prev))
	for _, v := range prev {
		prevCount[v]++
	}
	currCount := make(map[T]int, len(curr))
	for _, v := range curr {
		currCount[v]++
	}
	for v, n := range currCount {
		if extra := n - prevCount[v]; extra > 0 {
			for i := 0; i < extra; i++ {
				added = append(added, v)
			}
		}
	}
	for v, n := range prevCount {
		if extra := n - currCount[v]; extra > 0 {
			for i := 0; i < extra; i++ {
				removed = append(removed, v)
			}
		}
	}
	return added, removed
}
