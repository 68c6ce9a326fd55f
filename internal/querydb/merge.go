package querydb

import (
	"github.com/cindexd/cindex/internal/ids"
	"github.com/cindexd/cindex/internal/indexfile"
)

// Merge computes the structured delta between a file's previous
// IndexFile (nil if there was none: the first time this file is indexed)
// and its current IndexFile, each under its own IdMap (spec.md §4.4's
// merge-worker contract). It touches neither the database's lock nor
// the USR tables: both IdMaps are already fully built, and the diff is
// pure computation over the two IndexFiles.
func Merge(prev *indexfile.IndexFile, prevMap *IdMap, curr *indexfile.IndexFile, currMap *IdMap) *IndexUpdate {
	u := newIndexUpdate(currMap.Files[curr.SelfFileID()])

	prevTypes := indexByGlobalType(prev, prevMap)
	prevFuncs := indexByGlobalFunc(prev, prevMap)
	prevVars := indexByGlobalVar(prev, prevMap)

	for _, t := range curr.Types {
		gid, ok := currMap.Types[t.LocalID]
		if !ok {
			continue
		}
		snap := TypeSnapshot{Def: &t.Def}
		if t.HasAliasOf {
			if aliasGid, ok := currMap.Types[t.AliasOf]; ok {
				snap.AliasOf, snap.HasAliasOf = aliasGid, true
			}
		}
		u.Types[gid] = snap

		currUses := translateLocations(currMap, t.Uses)
		prevUses := translateLocationsFrom(prevTypes, prevMap, gid)
		u.TypeUsesAdded[gid], u.TypeUsesRemoved[gid] = diff(prevUses, currUses)

		currParents := translateTypeIds(currMap, t.Parents)
		prevParents := translateTypeIdsFrom(prevTypes, prevMap, gid, func(it *indexfile.IndexType) []ids.TypeId { return it.Parents })
		u.ParentsAdded[gid], u.ParentsRemoved[gid] = diff(prevParents, currParents)

		currDerived := translateTypeIds(currMap, t.Derived)
		prevDerived := translateTypeIdsFrom(prevTypes, prevMap, gid, func(it *indexfile.IndexType) []ids.TypeId { return it.Derived })
		u.DerivedAdded[gid], u.DerivedRemoved[gid] = diff(prevDerived, currDerived)
	}

	for _, fn := range curr.Funcs {
		gid, ok := currMap.Funcs[fn.LocalID]
		if !ok {
			continue
		}
		snap := FuncSnapshot{Def: &fn.Def, Declarations: fn.Declarations, IsOperator: fn.IsOperator}
		if fn.HasDeclaringType {
			if typeGid, ok := currMap.Types[fn.DeclaringType]; ok {
				snap.DeclaringType, snap.HasDeclaringType = typeGid, true
			}
		}
		u.Funcs[gid] = snap

		currCallers := translateFuncRefs(currMap, fn.Callers)
		prevCallers := translateFuncRefsFrom(prevFuncs, prevMap, gid, func(f *indexfile.IndexFunc) []indexfile.FuncRef { return f.Callers })
		u.CallersAdded[gid], u.CallersRemoved[gid] = diff(prevCallers, currCallers)

		currCallees := translateFuncRefs(currMap, fn.Callees)
		prevCallees := translateFuncRefsFrom(prevFuncs, prevMap, gid, func(f *indexfile.IndexFunc) []indexfile.FuncRef { return f.Callees })
		u.CalleesAdded[gid], u.CalleesRemoved[gid] = diff(prevCallees, currCallees)

		currBase := translateFuncIds(currMap, fn.Base)
		prevBase := translateFuncIdsFrom(prevFuncs, prevMap, gid, func(f *indexfile.IndexFunc) []ids.FuncId { return f.Base })
		u.FuncBaseAdded[gid], u.FuncBaseRemoved[gid] = diff(prevBase, currBase)

		currFnDerived := translateFuncIds(currMap, fn.Derived)
		prevFnDerived := translateFuncIdsFrom(prevFuncs, prevMap, gid, func(f *indexfile.IndexFunc) []ids.FuncId { return f.Derived })
		u.FuncDerivedAdded[gid], u.FuncDerivedRemoved[gid] = diff(prevFnDerived, currFnDerived)
	}

	for _, v := range curr.Vars {
		gid, ok := currMap.Vars[v.LocalID]
		if !ok {
			continue
		}
		snap := VarSnapshot{
			Def:            &v.Def,
			Declaration:    v.Declaration,
			HasDeclaration: v.HasDeclaration,
			IsLocal:        v.IsLocal,
			IsMacro:        v.IsMacro,
		}
		if v.HasVariableType {
			if typeGid, ok := currMap.Types[v.VariableType]; ok {
				snap.VariableType, snap.HasVariableType = typeGid, true
			}
		}
		if v.HasDeclaringType {
			if typeGid, ok := currMap.Types[v.DeclaringType]; ok {
				snap.DeclaringType, snap.HasDeclaringType = typeGid, true
			}
		}
		u.Vars[gid] = snap

		currUses := translateLocations(currMap, v.Uses)
		prevUses := translateLocationsFromVar(prevVars, prevMap, gid)
		u.VarUsesAdded[gid], u.VarUsesRemoved[gid] = diff(prevUses, currUses)
	}

	return u
}

func indexByGlobalType(f *indexfile.IndexFile, m *IdMap) map[ids.QueryTypeId]*indexfile.IndexType {
	out := make(map[ids.QueryTypeId]*indexfile.IndexType)
	if f == nil {
		return out
	}
	for _, t := range f.Types {
		if gid, ok := m.Types[t.LocalID]; ok {
			out[gid] = t
		}
	}
	return out
}

func indexByGlobalFunc(f *indexfile.IndexFile, m *IdMap) map[ids.QueryFuncId]*indexfile.IndexFunc {
	out := make(map[ids.QueryFuncId]*indexfile.IndexFunc)
	if f == nil {
		return out
	}
	for _, fn := range f.Funcs {
		if gid, ok := m.Funcs[fn.LocalID]; ok {
			out[gid] = fn
		}
	}
	return out
}

func indexByGlobalVar(f *indexfile.IndexFile, m *IdMap) map[ids.QueryVarId]*indexfile.IndexVar {
	out := make(map[ids.QueryVarId]*indexfile.IndexVar)
	if f == nil {
		return out
	}
	for _, v := range f.Vars {
		if gid, ok := m.Vars[v.LocalID]; ok {
			out[gid] = v
		}
	}
	return out
}

func translateLocations(m *IdMap, locs []ids.Location) []Location {
	out := make([]Location, 0, len(locs))
	for _, l := range locs {
		if g, ok := m.translateLocation(l); ok {
			out = append(out, g)
		}
	}
	return out
}

func translateLocationsFrom(byGid map[ids.QueryTypeId]*indexfile.IndexType, m *IdMap, gid ids.QueryTypeId) []Location {
	t, ok := byGid[gid]
	if !ok {
		return nil
	}
	return translateLocations(m, t.Uses)
}

func translateLocationsFromVar(byGid map[ids.QueryVarId]*indexfile.IndexVar, m *IdMap, gid ids.QueryVarId) []Location {
	v, ok := byGid[gid]
	if !ok {
		return nil
	}
	return translateLocations(m, v.Uses)
}

func translateTypeIds(m *IdMap, localIds []ids.TypeId) []ids.QueryTypeId {
	out := make([]ids.QueryTypeId, 0, len(localIds))
	for _, id := range localIds {
		if g, ok := m.Types[id]; ok {
			out = append(out, g)
		}
	}
	return out
}

func translateTypeIdsFrom(byGid map[ids.QueryTypeId]*indexfile.IndexType, m *IdMap, gid ids.QueryTypeId, field func(*indexfile.IndexType) []ids.TypeId) []ids.QueryTypeId {
	t, ok := byGid[gid]
	if !ok {
		return nil
	}
	return translateTypeIds(m, field(t))
}

func translateFuncIds(m *IdMap, localIds []ids.FuncId) []ids.QueryFuncId {
	out := make([]ids.QueryFuncId, 0, len(localIds))
	for _, id := range localIds {
		if g, ok := m.Funcs[id]; ok {
			out = append(out, g)
		}
	}
	return out
}

func translateFuncIdsFrom(byGid map[ids.QueryFuncId]*indexfile.IndexFunc, m *IdMap, gid ids.QueryFuncId, field func(*indexfile.IndexFunc) []ids.FuncId) []ids.QueryFuncId {
	fn, ok := byGid[gid]
	if !ok {
		return nil
	}
	return translateFuncIds(m, field(fn))
}

func translateFuncRefs(m *IdMap, refs []indexfile.FuncRef) []FuncRef {
	out := make([]FuncRef, 0, len(refs))
	for _, r := range refs {
		if g, ok := m.translateFuncRef(r); ok {
			out = append(out, g)
		}
	}
	return out
}

func translateFuncRefsFrom(byGid map[ids.QueryFuncId]*indexfile.IndexFunc, m *IdMap, gid ids.QueryFuncId, field func(*indexfile.IndexFunc) []indexfile.FuncRef) []FuncRef {
	fn, ok := byGid[gid]
	if !ok {
		return nil
	}
	return translateFuncRefs(m, field(fn))
}
