// Package indexfile defines IndexFile, the self-contained per-
// translation-unit symbol graph emitted by the Indexer (spec.md §3,
// §4.3). An IndexFile is born once in a parse worker, never mutated
// after emission, and consumed exactly once by the merge stage (or
// written to / read from the on-disk cache, immutably).
package indexfile

import (
	"github.com/cindexd/cindex/internal/ids"
	"github.com/cindexd/cindex/internal/usr"
)

// Include records one #include directive: the line it appears on in
// the including file, and the resolved path of the included file.
type Include struct {
	Line         int    `json:"line"`
	ResolvedPath string `json:"resolved_path"`
}

// Diagnostic is a single front-end diagnostic.
type Diagnostic struct {
	Range    ids.Range `json:"range"`
	Severity Severity  `json:"severity"`
	Message  string    `json:"message"`
}

// Declaration is one non-defining declaration of a function.
type Declaration struct {
	Spelling       ids.Range `json:"spelling"`
	Extent         ids.Range `json:"extent"`
	Content        string    `json:"content"`
	ParamSpellings []ids.Range `json:"param_spellings"`
}

// FuncRef records one call-site occurrence: an optional caller id (a
// function, if the call site is itself inside an indexed function),
// the call's source range, and whether the call was implicit (e.g. an
// implicit constructor/destructor/conversion invocation).
type FuncRef struct {
	CallerID   ids.FuncId `json:"caller_id"`
	HasCaller  bool       `json:"has_caller"`
	Loc        ids.Location `json:"loc"`
	IsImplicit bool       `json:"is_implicit"`
}

// Equal compares FuncRefs for the exact-match dedup spec.md's run-
// compression and unique-add rules require.
func (f FuncRef) Equal(o FuncRef) bool {
	return f.CallerID == o.CallerID && f.HasCaller == o.HasCaller &&
		f.Loc == o.Loc && f.IsImplicit == o.IsImplicit
}

// Def is the shared "definition" shape carried by types, funcs, and
// vars: short/detailed name, hover text, doc comment, kind, and the
// definition's spelling/extent ranges.
type Def struct {
	ShortName          string      `json:"short_name"`
	DetailedName        string      `json:"detailed_name"`
	Hover               string      `json:"hover"`
	Comments            string      `json:"comments"`
	Kind                SymbolKind  `json:"kind"`
	DefinitionSpelling  ids.Range   `json:"definition_spelling"`
	DefinitionExtent    ids.Range   `json:"definition_extent"`
	HasDefinition       bool        `json:"has_definition"`
}

// IndexType is one type/class/struct/union/enum/typealias entity.
type IndexType struct {
	LocalID ids.TypeId `json:"local_id"`
	USR     usr.USR    `json:"usr"`
	Def     Def        `json:"def"`

	AliasOf    ids.TypeId   `json:"alias_of"`
	HasAliasOf bool         `json:"has_alias_of"`
	Parents    []ids.TypeId `json:"parents"`
	Derived    []ids.TypeId `json:"derived"`
	Types      []ids.TypeId `json:"types"`
	Funcs      []ids.FuncId `json:"funcs"`
	Vars       []ids.VarId  `json:"vars"`
	Instances  []ids.VarId  `json:"instances"`
	Uses       []ids.Location `json:"uses"`
}

// IndexFunc is one function/method/constructor/destructor/conversion
// function entity.
type IndexFunc struct {
	LocalID ids.FuncId `json:"local_id"`
	USR     usr.USR    `json:"usr"`
	Def     Def        `json:"def"`

	Declarations []Declaration `json:"declarations"`

	Base     []ids.FuncId `json:"base"`
	Derived  []ids.FuncId `json:"derived"`

	DeclaringType    ids.TypeId `json:"declaring_type"`
	HasDeclaringType bool       `json:"has_declaring_type"`

	Callers []FuncRef `json:"callers"`
	Callees []FuncRef `json:"callees"`

	IsOperator bool `json:"is_operator"`
}

// IndexVar is one variable/field/enum-constant/macro entity.
type IndexVar struct {
	LocalID ids.VarId `json:"local_id"`
	USR     usr.USR   `json:"usr"`
	Def     Def       `json:"def"`

	Declaration    ids.Range `json:"declaration"`
	HasDeclaration bool      `json:"has_declaration"`

	VariableType    ids.TypeId `json:"variable_type"`
	HasVariableType bool       `json:"has_variable_type"`

	DeclaringType    ids.TypeId `json:"declaring_type"`
	HasDeclaringType bool       `json:"has_declaring_type"`

	IsLocal bool `json:"is_local"`
	IsMacro bool `json:"is_macro"`

	Uses []ids.Location `json:"uses"`
}

// IdCache is the bi-directional usr↔local_id table for all three kinds,
// persisted alongside the IndexFile so a later merge pass can rebuild
// an IdMap without re-walking every entity.
type IdCache struct {
	TypeUSRToID map[usr.USR]ids.TypeId `json:"type_usr_to_id"`
	FuncUSRToID map[usr.USR]ids.FuncId `json:"func_usr_to_id"`
	VarUSRToID  map[usr.USR]ids.VarId  `json:"var_usr_to_id"`

	TypeIDToUSR map[ids.TypeId]usr.USR `json:"type_id_to_usr"`
	FuncIDToUSR map[ids.FuncId]usr.USR `json:"func_id_to_usr"`
	VarIDToUSR  map[ids.VarId]usr.USR  `json:"var_id_to_usr"`
}

// NewIdCache returns an empty, fully initialized IdCache.
func NewIdCache() *IdCache {
	return &IdCache{
		TypeUSRToID: make(map[usr.USR]ids.TypeId),
		FuncUSRToID: make(map[usr.USR]ids.FuncId),
		VarUSRToID:  make(map[usr.USR]ids.VarId),
		TypeIDToUSR: make(map[ids.TypeId]usr.USR),
		FuncIDToUSR: make(map[ids.FuncId]usr.USR),
		VarIDToUSR:  make(map[ids.VarId]usr.USR),
	}
}

// IndexFile is the self-contained symbol graph for one translation
// unit or owned header (spec.md §3).
type IndexFile struct {
	Path                 string       `json:"path"`
	ImportFile           string       `json:"import_file"`
	Args                 []string     `json:"args"`
	Language             Language     `json:"language"`
	LastModificationTime int64        `json:"last_modification_time"`
	Dependencies         []string     `json:"dependencies"`
	Includes             []Include    `json:"includes"`
	SkippedByPreprocessor []ids.Range `json:"skipped_by_preprocessor"`
	Diagnostics          []Diagnostic `json:"diagnostics"`

	// Types/Funcs/Vars hold pointers, not values: FindOrCreate* hands
	// callers a pointer they go on mutating across later FindOrCreate*
	// calls on the same file, and a value slice's backing array can
	// relocate on append, stranding any pointer taken before the grow.
	Types []*IndexType `json:"types"`
	Funcs []*IndexFunc `json:"funcs"`
	Vars  []*IndexVar  `json:"vars"`

	// Files is this IndexFile's local file table: FileId 0 is always
	// the primary translation unit path itself; indices 1+ are other
	// paths a location can point into (e.g. a macro use inside a header
	// textually included during this same parse).
	Files []string `json:"files"`

	IdCache *IdCache `json:"id_cache"`
}

// New returns an empty IndexFile for path, ready for the indexer to
// populate. FileId 0 is reserved for path itself.
func New(path string, lang Language) *IndexFile {
	return &IndexFile{
		Path:     path,
		Language: lang,
		Files:    []string{path},
		IdCache:  NewIdCache(),
	}
}

// FileID returns the local FileId for path, allocating a new slot on
// first sight.
func (f *IndexFile) FileID(path string) ids.FileId {
	for i, p := range f.Files {
		if p == path {
			return ids.FileId(i)
		}
	}
	id := ids.FileId(len(f.Files))
	f.Files = append(f.Files, path)
	return id
}

// SelfFileID is the FileId of this IndexFile's own primary path.
func (f *IndexFile) SelfFileID() ids.FileId { return 0 }

// FindOrCreateType returns the existing IndexType for u, or appends a
// new one and returns it, per spec.md §4.3's "allocate or reuse"
// entity-handling rule.
func (f *IndexFile) FindOrCreateType(u usr.USR) *IndexType {
	if id, ok := f.IdCache.TypeUSRToID[u]; ok {
		return f.Types[id]
	}
	id := ids.TypeId(len(f.Types))
	f.Types = append(f.Types, &IndexType{LocalID: id, USR: u})
	f.IdCache.TypeUSRToID[u] = id
	f.IdCache.TypeIDToUSR[id] = u
	return f.Types[id]
}

func (f *IndexFile) FindOrCreateFunc(u usr.USR) *IndexFunc {
	if id, ok := f.IdCache.FuncUSRToID[u]; ok {
		return f.Funcs[id]
	}
	id := ids.FuncId(len(f.Funcs))
	f.Funcs = append(f.Funcs, &IndexFunc{LocalID: id, USR: u})
	f.IdCache.FuncUSRToID[u] = id
	f.IdCache.FuncIDToUSR[id] = u
	return f.Funcs[id]
}

func (f *IndexFile) FindOrCreateVar(u usr.USR) *IndexVar {
	if id, ok := f.IdCache.VarUSRToID[u]; ok {
		return f.Vars[id]
	}
	id := ids.VarId(len(f.Vars))
	f.Vars = append(f.Vars, &IndexVar{LocalID: id, USR: u})
	f.IdCache.VarUSRToID[u] = id
	f.IdCache.VarIDToUSR[id] = u
	return f.Vars[id]
}

// Type/Func/Var return pointers to an already-allocated entity by
// local id, for the merge and apply stages which resolve ids rather
// than re-deriving them from a USR.
func (f *IndexFile) Type(id ids.TypeId) *IndexType { return f.Types[id] }
func (f *IndexFile) Func(id ids.FuncId) *IndexFunc { return f.Funcs[id] }
func (f *IndexFile) Var(id ids.VarId) *IndexVar    { return f.Vars[id] }

// AddUniqueLocation appends loc to *locs if it is not already present,
// per spec.md's "uses[]: unique-add (preserves order, drops exact
// duplicates)" merge rule.
func AddUniqueLocation(locs *[]ids.Location, loc ids.Location) {
	for _, l := range *locs {
		if l == loc {
			return
		}
	}
	*locs = append(*locs, loc)
}

// AddFuncRefRunCompressed appends ref to *refs unless it exactly
// matches the current last entry, per spec.md's "callers/callees:
// run-compressed (consecutive duplicates coalesced)" rule — this is a
// multiset, not a set, so non-consecutive duplicates are kept.
func AddFuncRefRunCompressed(refs *[]FuncRef, ref FuncRef) {
	if n := len(*refs); n > 0 && (*refs)[n-1].Equal(ref) {
		return
	}
	*refs = append(*refs, ref)
}

// AddUniqueType/Func/Var append an id to a relation list (parents,
// derived, types, funcs, vars, instances) if not already present.
func AddUniqueType(list *[]ids.TypeId, id ids.TypeId) {
	for _, v := range *list {
		if v == id {
			return
		}
	}
	*list = append(*list, id)
}

func AddUniqueFunc(list *[]ids.FuncId, id ids.FuncId) {
	for _, v := range *list {
		if v == id {
			return
		}
	}
	*list = append(*list, id)
}

func AddUniqueVar(list *[]ids.VarId, id ids.VarId) {
	for _, v := range *list {
		if v == id {
			return
		}
	}
	*list = append(*list, id)
}
