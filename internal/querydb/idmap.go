package querydb

import (
	"github.com/cindexd/cindex/internal/ids"
	"github.com/cindexd/cindex/internal/indexfile"
	"github.com/cindexd/cindex/internal/usr"
)

// IdMap translates one IndexFile's local ids into the Database's global
// ids. It is built once per merge and discarded once the merge's
// IndexUpdate has been produced (spec.md §3: "lives only long enough to
// translate ids while building the delta, and dies with the OnIndexed
// record").
type IdMap struct {
	Types map[ids.TypeId]ids.QueryTypeId
	Funcs map[ids.FuncId]ids.QueryFuncId
	Vars  map[ids.VarId]ids.QueryVarId
	Files map[ids.FileId]ids.QueryFileId
}

// BuildIdMap walks every local id in f and resolves it to a global id,
// allocating a fresh slot in db on first sight of a USR or path. Hits
// against the database's USR tables never take the database's own
// lock; only first-time allocations do (spec.md §5).
func BuildIdMap(db *Database, f *indexfile.IndexFile) *IdMap {
	m := &IdMap{
		Types: make(map[ids.TypeId]ids.QueryTypeId, len(f.Types)),
		Funcs: make(map[ids.FuncId]ids.QueryFuncId, len(f.Funcs)),
		Vars:  make(map[ids.VarId]ids.QueryVarId, len(f.Vars)),
		Files: make(map[ids.FileId]ids.QueryFileId, len(f.Files)),
	}

	for _, t := range f.Types {
		m.Types[t.LocalID] = db.LookupOrAllocateType(usr.Hash(t.USR))
	}
	for _, fn := range f.Funcs {
		m.Funcs[fn.LocalID] = db.LookupOrAllocateFunc(usr.Hash(fn.USR))
	}
	for _, v := range f.Vars {
		m.Vars[v.LocalID] = db.LookupOrAllocateVar(usr.Hash(v.USR))
	}
	for i, path := range f.Files {
		m.Files[ids.FileId(i)] = db.LookupOrAllocateFile(path)
	}
	return m
}

// translateLocation maps a local Location to a global one. It reports
// false if the local FileId has no entry in the map, which should never
// happen for a well-formed IndexFile (every Files[] entry is mapped by
// BuildIdMap) but is checked rather than assumed.
func (m *IdMap) translateLocation(loc ids.Location) (Location, bool) {
	f, ok := m.Files[loc.File]
	if !ok {
		return Location{}, false
	}
	return Location{File: f, Range: loc.Range}, true
}

func (m *IdMap) translateFuncRef(ref indexfile.FuncRef) (FuncRef, bool) {
	loc, ok := m.translateLocation(ref.Loc)
	if !ok {
		return FuncRef{}, false
	}
	out := FuncRef{Loc: loc, IsImplicit: ref.IsImplicit, HasCaller: ref.HasCaller}
	if ref.HasCaller {
		caller, ok := m.Funcs[ref.CallerID]
		if !ok {
			return FuncRef{}, false
		}
		out.CallerID = caller
	}
	return out, true
}
