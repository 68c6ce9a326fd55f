package querydb

import (
	"sort"

	"github.com/cindexd/cindex/internal/ids"
)

// Apply commits an IndexUpdate atomically under the database's
// exclusive lock (spec.md §5: "the apply worker acquires an exclusive
// lock for the duration of one file's delta"). Def-adjacent fields are
// overwritten wholesale; list-valued relations are patched by the
// Added/Removed diff pairs merge computed. Type/func/var membership in
// a type's Funcs/Vars/Instances lists is not tracked by a separate
// delta: it falls out organically here as a side effect of applying
// DeclaringType/VariableType, the same way the per-file indexer
// derives it while walking one translation unit.
func (db *Database) Apply(u *IndexUpdate) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for id, snap := range u.Types {
		t := db.types[id]
		t.Def = snap.Def
		t.DefFile, t.HasDefFile = u.FileID, true
		t.AliasOf, t.HasAliasOf = snap.AliasOf, snap.HasAliasOf
	}
	for id, snap := range u.Funcs {
		fn := db.funcs[id]
		fn.Def = snap.Def
		fn.DefFile, fn.HasDefFile = u.FileID, true
		fn.Declarations = snap.Declarations
		fn.IsOperator = snap.IsOperator
		db.reassignFuncDeclaringType(fn, snap.DeclaringType, snap.HasDeclaringType)
	}
	for id, snap := range u.Vars {
		v := db.vars[id]
		v.Def = snap.Def
		v.DefFile, v.HasDefFile = u.FileID, true
		v.Declaration, v.HasDeclaration = snap.Declaration, snap.HasDeclaration
		v.IsLocal, v.IsMacro = snap.IsLocal, snap.IsMacro
		db.reassignVarType(v, snap.VariableType, snap.HasVariableType)
		db.reassignVarDeclaringType(v, snap.DeclaringType, snap.HasDeclaringType)
	}

	for id, added := range u.TypeUsesAdded {
		t := db.types[id]
		for _, loc := range added {
			addUniqueLocation(&t.Uses, loc)
		}
	}
	for id, removed := range u.TypeUsesRemoved {
		t := db.types[id]
		for _, loc := range removed {
			removeOneLocation(&t.Uses, loc)
		}
	}
	for id, added := range u.VarUsesAdded {
		v := db.vars[id]
		for _, loc := range added {
			addUniqueLocation(&v.Uses, loc)
		}
	}
	for id, removed := range u.VarUsesRemoved {
		v := db.vars[id]
		for _, loc := range removed {
			removeOneLocation(&v.Uses, loc)
		}
	}

	for id, added := range u.CallersAdded {
		fn := db.funcs[id]
		for _, ref := range added {
			fn.Callers = append(fn.Callers, ref)
		}
	}
	for id, removed := range u.CallersRemoved {
		fn := db.funcs[id]
		for _, ref := range removed {
			removeOneFuncRef(&fn.Callers, ref)
		}
	}
	for id, added := range u.CalleesAdded {
		fn := db.funcs[id]
		for _, ref := range added {
			fn.Callees = append(fn.Callees, ref)
		}
	}
	for id, removed := range u.CalleesRemoved {
		fn := db.funcs[id]
		for _, ref := range removed {
			removeOneFuncRef(&fn.Callees, ref)
		}
	}

	for id, added := range u.ParentsAdded {
		t := db.types[id]
		for _, p := range added {
			addUniqueTypeID(&t.Parents, p)
		}
	}
	for id, removed := range u.ParentsRemoved {
		t := db.types[id]
		for _, p := range removed {
			removeOneTypeID(&t.Parents, p)
		}
	}
	for id, added := range u.DerivedAdded {
		t := db.types[id]
		for _, d := range added {
			addUniqueTypeID(&t.Derived, d)
		}
	}
	for id, removed := range u.DerivedRemoved {
		t := db.types[id]
		for _, d := range removed {
			removeOneTypeID(&t.Derived, d)
		}
	}

	for id, added := range u.FuncBaseAdded {
		fn := db.funcs[id]
		for _, b := range added {
			addUniqueFuncID(&fn.Base, b)
		}
	}
	for id, removed := range u.FuncBaseRemoved {
		fn := db.funcs[id]
		for _, b := range removed {
			removeOneFuncID(&fn.Base, b)
		}
	}
	for id, added := range u.FuncDerivedAdded {
		fn := db.funcs[id]
		for _, d := range added {
			addUniqueFuncID(&fn.Derived, d)
		}
	}
	for id, removed := range u.FuncDerivedRemoved {
		fn := db.funcs[id]
		for _, d := range removed {
			removeOneFuncID(&fn.Derived, d)
		}
	}

	db.rebuildFileSymbols(u.FileID)
	db.rebuildFlatIndexes()
	return nil
}

// reassignFuncDeclaringType moves fn's membership out of its old
// declaring type's Funcs list (if any) and into the new one, keeping
// QueryType.Funcs in sync with QueryFunc.DeclaringType without a
// separate delta map.
func (db *Database) reassignFuncDeclaringType(fn *QueryFunc, newType ids.QueryTypeId, hasNewType bool) {
	if fn.HasDeclaringType {
		removeOneFuncID(&db.types[fn.DeclaringType].Funcs, fn.ID)
	}
	fn.DeclaringType, fn.HasDeclaringType = newType, hasNewType
	if hasNewType {
		addUniqueFuncID(&db.types[newType].Funcs, fn.ID)
	}
}

func (db *Database) reassignVarDeclaringType(v *QueryVar, newType ids.QueryTypeId, hasNewType bool) {
	if v.HasDeclaringType {
		removeOneVarID(&db.types[v.DeclaringType].Vars, v.ID)
	}
	v.DeclaringType, v.HasDeclaringType = newType, hasNewType
	if hasNewType {
		addUniqueVarID(&db.types[newType].Vars, v.ID)
	}
}

// reassignVarType is the Instances counterpart: a variable whose
// VariableType is T is an instance of T, mirroring how the per-file
// indexer appends to IndexType.Instances when it records a variable's
// type.
func (db *Database) reassignVarType(v *QueryVar, newType ids.QueryTypeId, hasNewType bool) {
	if v.HasVariableType {
		removeOneVarID(&db.types[v.VariableType].Instances, v.ID)
	}
	v.VariableType, v.HasVariableType = newType, hasNewType
	if hasNewType {
		addUniqueVarID(&db.types[newType].Instances, v.ID)
	}
}

func addUniqueLocation(locs *[]Location, loc Location) {
	for _, l := range *locs {
		if l == loc {
			return
		}
	}
	*locs = append(*locs, loc)
}

func removeOneLocation(locs *[]Location, loc Location) {
	for i, l := range *locs {
		if l == loc {
			*locs = append((*locs)[:i], (*locs)[i+1:]...)
			return
		}
	}
}

func removeOneFuncRef(refs *[]FuncRef, ref FuncRef) {
	for i, r := range *refs {
		if r.Equal(ref) {
			*refs = append((*refs)[:i], (*refs)[i+1:]...)
			return
		}
	}
}

func addUniqueTypeID(list *[]ids.QueryTypeId, id ids.QueryTypeId) {
	for _, v := range *list {
		if v == id {
			return
		}
	}
	*list = append(*list, id)
}

func removeOneTypeID(list *[]ids.QueryTypeId, id ids.QueryTypeId) {
	for i, v := range *list {
		if v == id {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return
		}
	}
}

func addUniqueFuncID(list *[]ids.QueryFuncId, id ids.QueryFuncId) {
	for _, v := range *list {
		if v == id {
			return
		}
	}
	*list = append(*list, id)
}

func removeOneFuncID(list *[]ids.QueryFuncId, id ids.QueryFuncId) {
	for i, v := range *list {
		if v == id {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return
		}
	}
}

func addUniqueVarID(list *[]ids.QueryVarId, id ids.QueryVarId) {
	for _, v := range *list {
		if v == id {
			return
		}
	}
	*list = append(*list, id)
}

func removeOneVarID(list *[]ids.QueryVarId, id ids.QueryVarId) {
	for i, v := range *list {
		if v == id {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return
		}
	}
}

// rebuildFileSymbols recomputes one file's AllSymbols list, sorted by
// definition span, from every entity currently claiming that file as
// its DefFile (spec.md §3's "per-file all_symbols sorted by span").
func (db *Database) rebuildFileSymbols(fileID ids.QueryFileId) {
	f := db.files[fileID]
	f.AllSymbols = f.AllSymbols[:0]
	for _, t := range db.types {
		if t.HasDefFile && t.DefFile == fileID {
			f.AllSymbols = append(f.AllSymbols, SymbolRef{Kind: SymbolType, TypeID: t.ID})
		}
	}
	for _, fn := range db.funcs {
		if fn.HasDefFile && fn.DefFile == fileID {
			f.AllSymbols = append(f.AllSymbols, SymbolRef{Kind: SymbolFunc, FuncID: fn.ID})
		}
	}
	for _, v := range db.vars {
		if v.HasDefFile && v.DefFile == fileID {
			f.AllSymbols = append(f.AllSymbols, SymbolRef{Kind: SymbolVar, VarID: v.ID})
		}
	}
	sort.Slice(f.AllSymbols, func(i, j int) bool {
		return db.symbolSpellingStart(f.AllSymbols[i]).Less(db.symbolSpellingStart(f.AllSymbols[j]))
	})
}

func (db *Database) symbolSpellingStart(s SymbolRef) ids.Position {
	switch s.Kind {
	case SymbolType:
		return db.types[s.TypeID].Def.DefinitionSpelling.Start
	case SymbolFunc:
		return db.funcs[s.FuncID].Def.DefinitionSpelling.Start
	default:
		return db.vars[s.VarID].Def.DefinitionSpelling.Start
	}
}

// rebuildFlatIndexes recomputes the process-wide symbols/detailedNames
// arrays from scratch. Rebuilding instead of incrementally patching
// trades a little CPU for correctness-by-construction: these two
// arrays only back FuzzyMatchSymbols, not a latency-critical path, and
// a full rebuild can never drift out of sync with the entity tables.
func (db *Database) rebuildFlatIndexes() {
	n := len(db.types) + len(db.funcs) + len(db.vars)
	db.symbols = make([]SymbolRef, 0, n)
	db.detailedNames = make([]string, 0, n)
	for _, t := range db.types {
		db.symbols = append(db.symbols, SymbolRef{Kind: SymbolType, TypeID: t.ID})
		db.detailedNames = append(db.detailedNames, t.Def.DetailedName)
	}
	for _, fn := range db.funcs {
		db.symbols = append(db.symbols, SymbolRef{Kind: SymbolFunc, FuncID: fn.ID})
		db.detailedNames = append(db.detailedNames, fn.Def.DetailedName)
	}
	for _, v := range db.vars {
		db.symbols = append(db.symbols, SymbolRef{Kind: SymbolVar, VarID: v.ID})
		db.detailedNames = append(db.detailedNames, v.Def.DetailedName)
	}
}
