// Package ids defines the identifier and positional types shared by the
// indexer and the query database: local ids (stable only within one
// IndexFile), global ids (stable for the process lifetime), and source
// positions/ranges/locations.
package ids

import "fmt"

// Local ids index into a per-IndexFile table. They are distinct named
// types so a local id can never be passed where a global id is expected
// without going through an IdMap.
type (
	TypeId int32
	FuncId int32
	VarId  int32
	FileId int32
)

// Global ids index into the query database's slot-allocated vectors.
type (
	QueryTypeId int32
	QueryFuncId int32
	QueryVarId  int32
	QueryFileId int32
)

const (
	InvalidTypeId  TypeId  = -1
	InvalidFuncId  FuncId  = -1
	InvalidVarId   VarId   = -1
	InvalidFileId  FileId  = -1
	InvalidQueryTypeId QueryTypeId = -1
	InvalidQueryFuncId QueryFuncId = -1
	InvalidQueryVarId  QueryVarId  = -1
	InvalidQueryFileId QueryFileId = -1
)

// Position is a 1-based line/column in a source file.
type Position struct {
	Line   uint16 `json:"line"`
	Column uint16 `json:"column"`
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Less orders positions by line then column.
func (p Position) Less(o Position) bool {
	if p.Line != o.Line {
		return p.Line < o.Line
	}
	return p.Column < o.Column
}

// Range is a half-open span between two positions.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

func (r Range) String() string {
	return fmt.Sprintf("%s-%s", r.Start, r.End)
}

// Contains reports whether p falls within r, inclusive of both ends.
func (r Range) Contains(p Position) bool {
	return !p.Less(r.Start) && !r.End.Less(p)
}

// Overlaps reports whether r and o share any position.
func (r Range) Overlaps(o Range) bool {
	return !r.End.Less(o.Start) && !o.End.Less(r.Start)
}

// Location pairs a range with the local FileId it was found in. Spec.md
// §3 requires that every uses[] range record its originating file, so
// Location.File always names an entry of the IndexFile's file table;
// FileId 0 is the IndexFile's own path.
type Location struct {
	File  FileId `json:"file"`
	Range Range  `json:"range"`
}

func (l Location) String() string {
	return fmt.Sprintf("%d@%s", l.File, l.Range)
}
