// Package querydb is the single-writer, many-reader, process-wide
// structure that holds every merged entity from every indexed file plus
// the lookup indexes LSP requests are answered from (spec.md §3's
// "Query database (global)").
//
// Grounded on the teacher's store package for the shape of a locked,
// slot-oriented data store (store.Store wraps one *sql.DB behind a
// mutex-free single-writer discipline enforced by WithTransaction); here
// the "transaction" is the apply worker's exclusive lock instead of a
// SQL transaction, since the entities themselves live in memory, not in
// SQLite (store's schema is reused verbatim for internal/diskcache
// instead, where persistence is actually wanted).
package querydb

import (
	"sync"

	"github.com/cindexd/cindex/internal/ids"
	"github.com/cindexd/cindex/internal/indexfile"
	"github.com/cindexd/cindex/internal/usr"
)

// Location mirrors ids.Location but with a global QueryFileId: once an
// IndexFile's local ids have gone through an IdMap, every reference it
// carries points at query-database slots, not at another IndexFile's
// local tables.
type Location struct {
	File  ids.QueryFileId
	Range ids.Range
}

// FuncRef mirrors indexfile.FuncRef with global ids.
type FuncRef struct {
	CallerID   ids.QueryFuncId
	HasCaller  bool
	Loc        Location
	IsImplicit bool
}

// Equal compares FuncRefs for the exact-match rules run-compression and
// removal-by-exact-match both rely on.
func (f FuncRef) Equal(o FuncRef) bool {
	return f.CallerID == o.CallerID && f.HasCaller == o.HasCaller &&
		f.Loc == o.Loc && f.IsImplicit == o.IsImplicit
}

// QueryType is the global counterpart of indexfile.IndexType.
type QueryType struct {
	ID ids.QueryTypeId

	Def        *indexfile.Def
	DefFile    ids.QueryFileId
	HasDefFile bool

	AliasOf    ids.QueryTypeId
	HasAliasOf bool
	Parents    []ids.QueryTypeId
	Derived    []ids.QueryTypeId
	Types      []ids.QueryTypeId
	Funcs      []ids.QueryFuncId
	Vars       []ids.QueryVarId
	Instances  []ids.QueryVarId
	Uses       []Location
}

// QueryFunc is the global counterpart of indexfile.IndexFunc.
type QueryFunc struct {
	ID ids.QueryFuncId

	Def        *indexfile.Def
	DefFile    ids.QueryFileId
	HasDefFile bool

	Declarations []indexfile.Declaration

	Base    []ids.QueryFuncId
	Derived []ids.QueryFuncId

	DeclaringType    ids.QueryTypeId
	HasDeclaringType bool

	Callers []FuncRef
	Callees []FuncRef

	IsOperator bool
}

// QueryVar is the global counterpart of indexfile.IndexVar.
type QueryVar struct {
	ID ids.QueryVarId

	Def        *indexfile.Def
	DefFile    ids.QueryFileId
	HasDefFile bool

	Declaration    ids.Range
	HasDeclaration bool

	VariableType    ids.QueryTypeId
	HasVariableType bool

	DeclaringType    ids.QueryTypeId
	HasDeclaringType bool

	IsLocal bool
	IsMacro bool

	Uses []Location
}

// SymbolKind tags which of the three entity tables a SymbolRef points
// into.
type SymbolKind int

const (
	SymbolType SymbolKind = iota
	SymbolFunc
	SymbolVar
)

// SymbolRef is one entry of the flat, kind-tagged symbol listing
// (spec.md §3's "symbols[]").
type SymbolRef struct {
	Kind   SymbolKind
	TypeID ids.QueryTypeId
	FuncID ids.QueryFuncId
	VarID  ids.QueryVarId
}

// QueryFile is a slot in the global file table: a path plus every
// symbol currently defined in it, sorted by definition span so a point
// query (line, column) can binary-search it (spec.md §3's "Per-file
// all_symbols sorted by span").
type QueryFile struct {
	ID         ids.QueryFileId
	Path       string
	AllSymbols []SymbolRef
}

// Database is the process-wide query database. Reads take a shared
// lock; the apply worker (see Apply) takes the exclusive lock (spec.md
// §5: "readers must acquire a shared lock; the apply worker acquires an
// exclusive lock").
type Database struct {
	mu sync.RWMutex

	usrTables *usr.Tables

	files []*QueryFile
	types []*QueryType
	funcs []*QueryFunc
	vars  []*QueryVar

	symbols       []SymbolRef
	detailedNames []string
}

// New returns an empty Database.
func New() *Database {
	return &Database{usrTables: usr.New()}
}

// pathHash reuses the USR hash function for file paths: spec.md only
// requires a 64-bit key, not a specific hash family, and introducing a
// second hash function for paths alone would buy nothing.
func pathHash(path string) uint64 { return usr.Hash(usr.USR(path)) }

// AllocateType hands out a new, empty type slot and registers h in the
// USR table. It is the only operation that needs the database's
// exclusive lock while building an IdMap: USR lookups on a hit never
// touch this lock at all (spec.md §5).
func (db *Database) AllocateType(h uint64) ids.QueryTypeId {
	db.mu.Lock()
	defer db.mu.Unlock()
	id := ids.QueryTypeId(len(db.types))
	db.types = append(db.types, &QueryType{ID: id})
	db.usrTables.InsertType(h, id)
	return id
}

func (db *Database) AllocateFunc(h uint64) ids.QueryFuncId {
	db.mu.Lock()
	defer db.mu.Unlock()
	id := ids.QueryFuncId(len(db.funcs))
	db.funcs = append(db.funcs, &QueryFunc{ID: id})
	db.usrTables.InsertFunc(h, id)
	return id
}

func (db *Database) AllocateVar(h uint64) ids.QueryVarId {
	db.mu.Lock()
	defer db.mu.Unlock()
	id := ids.QueryVarId(len(db.vars))
	db.vars = append(db.vars, &QueryVar{ID: id})
	db.usrTables.InsertVar(h, id)
	return id
}

func (db *Database) AllocateFile(path string) ids.QueryFileId {
	h := pathHash(path)
	db.mu.Lock()
	defer db.mu.Unlock()
	id := ids.QueryFileId(len(db.files))
	db.files = append(db.files, &QueryFile{ID: id, Path: path})
	db.usrTables.InsertFile(h, id)
	return id
}

// LookupOrAllocateType returns the global id for USR hash h, allocating
// a fresh slot on first sight. This is what an id-map worker calls for
// every local type it sees.
func (db *Database) LookupOrAllocateType(h uint64) ids.QueryTypeId {
	if id, ok := db.usrTables.LookupType(h); ok {
		return id
	}
	return db.AllocateType(h)
}

func (db *Database) LookupOrAllocateFunc(h uint64) ids.QueryFuncId {
	if id, ok := db.usrTables.LookupFunc(h); ok {
		return id
	}
	return db.AllocateFunc(h)
}

func (db *Database) LookupOrAllocateVar(h uint64) ids.QueryVarId {
	if id, ok := db.usrTables.LookupVar(h); ok {
		return id
	}
	return db.AllocateVar(h)
}

func (db *Database) LookupOrAllocateFile(path string) ids.QueryFileId {
	if id, ok := db.usrTables.LookupFile(pathHash(path)); ok {
		return id
	}
	return db.AllocateFile(path)
}

// Type/Func/Var/File return the current snapshot for a global id. The
// returned pointer must not be mutated by callers outside Apply; reads
// should treat it as immutable for the duration of the shared lock.
func (db *Database) Type(id ids.QueryTypeId) *QueryType {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.types[id]
}

func (db *Database) Func(id ids.QueryFuncId) *QueryFunc {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.funcs[id]
}

func (db *Database) Var(id ids.QueryVarId) *QueryVar {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.vars[id]
}

func (db *Database) File(id ids.QueryFileId) *QueryFile {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.files[id]
}

// Counts returns the current slot counts for the three entity tables
// plus the file table, for diagnostics and StatsSnapshot().
func (db *Database) Counts() (files, types, funcs, vars int) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.files), len(db.types), len(db.funcs), len(db.vars)
}
