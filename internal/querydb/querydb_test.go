package querydb

import (
	"testing"

	"github.com/cindexd/cindex/internal/ids"
	"github.com/cindexd/cindex/internal/indexfile"
	"github.com/cindexd/cindex/internal/usr"
)

func span(line uint16) ids.Range {
	return ids.Range{Start: ids.Position{Line: line, Column: 1}, End: ids.Position{Line: line, Column: 10}}
}

func newFileWithWidget(name string) *indexfile.IndexFile {
	f := indexfile.New(name, indexfile.LangCpp)
	widget := f.FindOrCreateType(usr.USR("c:@S@Widget"))
	widget.Def.ShortName = "Widget"
	widget.Def.DetailedName = "Widget"
	widget.Def.DefinitionSpelling = span(1)
	widget.Def.HasDefinition = true

	ctor := f.FindOrCreateFunc(usr.USR("c:@S@Widget@F@Widget#"))
	ctor.Def.ShortName = "Widget"
	ctor.Def.DetailedName = "Widget::Widget()"
	ctor.Def.DefinitionSpelling = span(2)
	ctor.Def.HasDefinition = true
	ctor.DeclaringType, ctor.HasDeclaringType = widget.LocalID, true

	field := f.FindOrCreateVar(usr.USR("c:@S@Widget@FI@count"))
	field.Def.ShortName = "count"
	field.Def.DetailedName = "int Widget::count"
	field.Def.DefinitionSpelling = span(3)
	field.Def.HasDefinition = true
	field.DeclaringType, field.HasDeclaringType = widget.LocalID, true
	field.VariableType, field.HasVariableType = widget.LocalID, true

	indexfile.AddUniqueFunc(&widget.Funcs, ctor.LocalID)
	indexfile.AddUniqueVar(&widget.Vars, field.LocalID)
	indexfile.AddUniqueVar(&widget.Instances, field.LocalID)

	return f
}

func TestBuildIdMapAllocatesStableIds(t *testing.T) {
	db := New()
	f := newFileWithWidget("widget.h")
	m1 := BuildIdMap(db, f)
	m2 := BuildIdMap(db, f)

	for localID, gid := range m1.Types {
		if m2.Types[localID] != gid {
			t.Errorf("type %v: first map gave %v, second gave %v", localID, gid, m2.Types[localID])
		}
	}
	if files, _, funcs, vars := db.Counts(); files != 1 || funcs != 1 {
		t.Errorf("unexpected counts: files=%d funcs=%d vars=%d", files, funcs, vars)
	}
}

func TestMergeAndApplyFirstImport(t *testing.T) {
	db := New()
	f := newFileWithWidget("widget.h")
	m := BuildIdMap(db, f)

	update := Merge(nil, nil, f, m)
	if err := db.Apply(update); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	widgetGid := m.Types[f.Types[0].LocalID]
	qt := db.Type(widgetGid)
	if qt.Def.ShortName != "Widget" {
		t.Fatalf("got short name %q", qt.Def.ShortName)
	}
	if len(qt.Funcs) != 1 {
		t.Fatalf("expected Widget to have 1 member func via organic membership, got %d", len(qt.Funcs))
	}
	if len(qt.Vars) != 1 || len(qt.Instances) != 1 {
		t.Fatalf("expected Widget to have 1 member var and 1 instance, got vars=%d instances=%d", len(qt.Vars), len(qt.Instances))
	}

	qf := db.File(m.Files[0])
	if len(qf.AllSymbols) != 3 {
		t.Fatalf("expected 3 symbols in file, got %d", len(qf.AllSymbols))
	}
}

func TestMergeDropsStaleUse(t *testing.T) {
	db := New()

	prev := newFileWithWidget("widget.h")
	widgetLocalPrev := prev.Types[0].LocalID
	indexfile.AddUniqueLocation(&prev.Types[0].Uses, ids.Location{File: 0, Range: span(10)})
	prevMap := BuildIdMap(db, prev)
	db.Apply(Merge(nil, nil, prev, prevMap))

	curr := newFileWithWidget("widget.h")
	_ = widgetLocalPrev
	currMap := BuildIdMap(db, curr)
	update := Merge(prev, prevMap, curr, currMap)
	if err := db.Apply(update); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	widgetGid := currMap.Types[curr.Types[0].LocalID]
	qt := db.Type(widgetGid)
	if len(qt.Uses) != 0 {
		t.Errorf("expected the stale use to be removed, got %v", qt.Uses)
	}
}

func TestFuzzyMatchSymbolsRanksPrefixHigher(t *testing.T) {
	db := New()
	f := newFileWithWidget("widget.h")
	m := BuildIdMap(db, f)
	db.Apply(Merge(nil, nil, f, m))

	matches := db.FuzzyMatchSymbols("Widget", 10)
	if len(matches) == 0 {
		t.Fatal("expected at least one match")
	}
	if matches[0].Name != "Widget" {
		t.Errorf("expected the class itself to rank first, got %q", matches[0].Name)
	}
}

func TestCallTreeFindsDirectCaller(t *testing.T) {
	db := New()
	f := indexfile.New("a.cpp", indexfile.LangCpp)
	caller := f.FindOrCreateFunc(usr.USR("c:@F@caller#"))
	callee := f.FindOrCreateFunc(usr.USR("c:@F@callee#"))
	indexfile.AddFuncRefRunCompressed(&callee.Callers, indexfile.FuncRef{
		CallerID: caller.LocalID, HasCaller: true, Loc: ids.Location{File: 0, Range: span(5)},
	})
	indexfile.AddFuncRefRunCompressed(&caller.Callees, indexfile.FuncRef{
		CallerID: callee.LocalID, HasCaller: true, Loc: ids.Location{File: 0, Range: span(5)},
	})

	m := BuildIdMap(db, f)
	db.Apply(Merge(nil, nil, f, m))

	calleeGid := m.Funcs[callee.LocalID]
	callerGid := m.Funcs[caller.LocalID]

	tree := db.CallTree(calleeGid, CallTreeCallers, 2)
	if len(tree) != 1 || tree[0].FuncID != callerGid {
		t.Fatalf("expected caller %v in call tree, got %+v", callerGid, tree)
	}
}

func TestTypeHierarchyWalksParents(t *testing.T) {
	db := New()
	f := indexfile.New("a.h", indexfile.LangCpp)
	base := f.FindOrCreateType(usr.USR("c:@S@Base"))
	derived := f.FindOrCreateType(usr.USR("c:@S@Derived"))
	indexfile.AddUniqueType(&derived.Parents, base.LocalID)
	indexfile.AddUniqueType(&base.Derived, derived.LocalID)

	m := BuildIdMap(db, f)
	db.Apply(Merge(nil, nil, f, m))

	baseGid := m.Types[base.LocalID]
	derivedGid := m.Types[derived.LocalID]

	tree := db.TypeHierarchy(derivedGid, TypeHierarchyParents, 2)
	if len(tree) != 1 || tree[0].TypeID != baseGid {
		t.Fatalf("expected base %v in parent hierarchy, got %+v", baseGid, tree)
	}
}
