package indexer

import (
	"testing"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/cindexd/cindex/internal/fileconsumer"
	"github.com/cindexd/cindex/internal/frontend"
	"github.com/cindexd/cindex/internal/indexfile"
)

func mustIndex(t *testing.T, path string, source string) *indexfile.IndexFile {
	t.Helper()
	fe := frontend.NewTreeSitterFrontend()
	tu, err := fe.Parse(path, nil, []byte(source))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	defer tu.Close()

	f, _, err := Index(tu, fileconsumer.New())
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	return f
}

func findType(f *indexfile.IndexFile, shortName string) *indexfile.IndexType {
	for _, it := range f.Types {
		if it.Def.ShortName == shortName {
			return it
		}
	}
	return nil
}

func findFunc(f *indexfile.IndexFile, shortName string) *indexfile.IndexFunc {
	for _, fn := range f.Funcs {
		if fn.Def.ShortName == shortName {
			return fn
		}
	}
	return nil
}

func findVar(f *indexfile.IndexFile, shortName string) *indexfile.IndexVar {
	for _, v := range f.Vars {
		if v.Def.ShortName == shortName {
			return v
		}
	}
	return nil
}

func TestIndexClassWithFieldsAndMethods(t *testing.T) {
	f := mustIndex(t, "widget.cpp", `
class Widget {
 public:
  Widget();
  int Value();

 private:
  int value_;
};
`)
	widget := findType(f, "Widget")
	if widget == nil {
		t.Fatal("Widget type not indexed")
	}
	if widget.Def.Kind != indexfile.Class {
		t.Errorf("Widget.Kind = %v, want Class", widget.Def.Kind)
	}

	ctor := findFunc(f, "Widget")
	if ctor == nil || ctor.Def.Kind != indexfile.Constructor {
		t.Errorf("expected a Constructor named Widget, got %v", ctor)
	}
	if ctor != nil && (!ctor.HasDeclaringType || ctor.DeclaringType != widget.LocalID) {
		t.Errorf("constructor declaring_type not linked to Widget")
	}

	value := findFunc(f, "Value")
	if value == nil || value.Def.Kind != indexfile.InstanceMethod {
		t.Errorf("expected InstanceMethod named Value, got %v", value)
	}

	field := findVar(f, "value_")
	if field == nil || field.Def.Kind != indexfile.Field {
		t.Errorf("expected Field named value_, got %v", field)
	}
	if field != nil && (!field.HasDeclaringType || field.DeclaringType != widget.LocalID) {
		t.Errorf("field declaring_type not linked to Widget")
	}
}

func TestIndexBaseClassSymmetry(t *testing.T) {
	f := mustIndex(t, "shapes.cpp", `
class Shape {};
class Circle : public Shape {};
`)
	shape := findType(f, "Shape")
	circle := findType(f, "Circle")
	if shape == nil || circle == nil {
		t.Fatal("Shape or Circle not indexed")
	}
	if len(circle.Parents) != 1 || circle.Parents[0] != shape.LocalID {
		t.Errorf("Circle.Parents = %v, want [%v]", circle.Parents, shape.LocalID)
	}
	if len(shape.Derived) != 1 || shape.Derived[0] != circle.LocalID {
		t.Errorf("Shape.Derived = %v, want [%v]", shape.Derived, circle.LocalID)
	}
}

func TestIndexFunctionCallRecordsCallersAndCallees(t *testing.T) {
	f := mustIndex(t, "calls.cpp", `
void Helper() {}

void Caller() {
  Helper();
  Helper();
}
`)
	helper := findFunc(f, "Helper")
	caller := findFunc(f, "Caller")
	if helper == nil || caller == nil {
		t.Fatal("Helper or Caller not indexed")
	}
	// The two call sites have distinct source locations, so run
	// compression (which only coalesces exact-match consecutive
	// entries) does not collapse them within a single parse.
	if len(helper.Callers) != 2 {
		t.Errorf("Helper.Callers length = %d, want 2", len(helper.Callers))
	}
	if len(caller.Callees) != 2 {
		t.Errorf("Caller.Callees length = %d, want 2", len(caller.Callees))
	}
	for _, ref := range caller.Callees {
		if !ref.HasCaller || ref.CallerID != caller.LocalID {
			t.Errorf("Callees entry missing caller link: %+v", ref)
		}
	}
}

func TestIndexEnum(t *testing.T) {
	f := mustIndex(t, "color.cpp", `
enum Color { Red, Green, Blue };
`)
	color := findType(f, "Color")
	if color == nil || color.Def.Kind != indexfile.Enum {
		t.Fatalf("expected Enum named Color, got %v", color)
	}
	red := findVar(f, "Red")
	if red == nil || red.Def.Kind != indexfile.EnumConstant {
		t.Errorf("expected EnumConstant named Red, got %v", red)
	}
	if red != nil && (!red.HasDeclaringType || red.DeclaringType != color.LocalID) {
		t.Errorf("Red.DeclaringType not linked to Color")
	}
}

func TestIndexMacro(t *testing.T) {
	f := mustIndex(t, "consts.c", `
#define MAX_SIZE 128

int buf[MAX_SIZE];
`)
	m := findVar(f, "MAX_SIZE")
	if m == nil || m.Def.Kind != indexfile.Macro || !m.IsMacro {
		t.Fatalf("expected Macro named MAX_SIZE, got %v", m)
	}
	if len(m.Uses) == 0 {
		t.Error("expected MAX_SIZE's use inside buf's array size to be recorded")
	}
}

func TestIsImplicitCallChecksCallSiteTokens(t *testing.T) {
	fe := frontend.NewTreeSitterFrontend()
	tu, err := fe.Parse("calls.cpp", nil, []byte("void Helper() { Helper(); }"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	defer tu.Close()

	p := newIndexParam(tu, nil)
	var call *tree_sitter.Node
	frontend.Walk(tu.Tree.RootNode(), func(n *tree_sitter.Node) bool {
		if n.Kind() == "call_expression" {
			call = n
		}
		return true
	})
	if call == nil {
		t.Fatal("call_expression not found")
	}

	written := &indexfile.IndexFunc{}
	written.Def.ShortName = "Helper"
	written.Def.Kind = indexfile.Constructor
	if p.isImplicitCall(call, written) {
		t.Error("a call spelling the callee's own name should not be implicit")
	}

	synthesized := &indexfile.IndexFunc{}
	synthesized.Def.ShortName = "SomethingElseEntirely"
	synthesized.Def.Kind = indexfile.Constructor
	if !p.isImplicitCall(call, synthesized) {
		t.Error("a call whose text omits the callee's short name should be implicit")
	}

	ordinary := &indexfile.IndexFunc{}
	ordinary.Def.ShortName = "SomethingElseEntirely"
	ordinary.Def.Kind = indexfile.Function
	if p.isImplicitCall(call, ordinary) {
		t.Error("an ordinary function call is never implicit regardless of call-site text")
	}
}

func TestBareObjectDeclarationCallsDefaultConstructor(t *testing.T) {
	f := mustIndex(t, "widget.cpp", `
class Widget {
 public:
  Widget() {}
};

void Caller() {
  Widget foo;
}
`)
	ctor := findFunc(f, "Widget")
	caller := findFunc(f, "Caller")
	if ctor == nil || caller == nil {
		t.Fatal("Widget's constructor or Caller not indexed")
	}
	if len(ctor.Callers) != 1 {
		t.Fatalf("Widget's constructor Callers length = %d, want 1", len(ctor.Callers))
	}
	ref := ctor.Callers[0]
	if !ref.IsImplicit {
		t.Error("a bare object declaration's constructor call should be marked implicit")
	}
	if !ref.HasCaller || ref.CallerID != caller.LocalID {
		t.Error("constructor caller entry not linked to the enclosing function")
	}
}

func TestOutOfLineMethodMergesWithDeclaration(t *testing.T) {
	f := mustIndex(t, "foo.cpp", `
class Foo {
 public:
  void foo() const;
};

void Foo::foo() const {}
`)
	var matches []*indexfile.IndexFunc
	for _, fn := range f.Funcs {
		if fn.Def.ShortName == "foo" {
			matches = append(matches, fn)
		}
	}
	if len(matches) != 1 {
		t.Fatalf("got %d IndexFuncs named foo, want 1 (declaration and out-of-line definition should merge)", len(matches))
	}
	fn := matches[0]
	if len(fn.Declarations) != 1 {
		t.Errorf("Declarations length = %d, want 1", len(fn.Declarations))
	}
	if !fn.Def.HasDefinition {
		t.Error("expected the out-of-line body to set a definition on the merged func")
	}

	foo := findType(f, "Foo")
	if foo == nil {
		t.Fatal("Foo type not indexed")
	}
	if len(foo.Uses) == 0 {
		t.Error("expected Foo.Uses to include the out-of-line definition's qualifier-name location")
	}
}

func TestDeclarationParamSpellings(t *testing.T) {
	f := mustIndex(t, "decl.cpp", `
void Named(int x);
void Unnamed(int);
`)
	named := findFunc(f, "Named")
	if named == nil || len(named.Declarations) != 1 {
		t.Fatalf("Named not indexed with one declaration: %v", named)
	}
	if len(named.Declarations[0].ParamSpellings) != 1 {
		t.Fatalf("Named's ParamSpellings length = %d, want 1", len(named.Declarations[0].ParamSpellings))
	}
	namedSpelling := named.Declarations[0].ParamSpellings[0]
	if namedSpelling.Start == namedSpelling.End {
		t.Error("a named parameter's spelling range should span its identifier, not be zero-length")
	}

	unnamed := findFunc(f, "Unnamed")
	if unnamed == nil || len(unnamed.Declarations) != 1 {
		t.Fatalf("Unnamed not indexed with one declaration: %v", unnamed)
	}
	if len(unnamed.Declarations[0].ParamSpellings) != 1 {
		t.Fatalf("Unnamed's ParamSpellings length = %d, want 1", len(unnamed.Declarations[0].ParamSpellings))
	}
	unnamedSpelling := unnamed.Declarations[0].ParamSpellings[0]
	if unnamedSpelling.Start != unnamedSpelling.End {
		t.Error("an unnamed parameter's spelling range should shrink to length 0")
	}
}

func TestDetailedNameIncludesReturnType(t *testing.T) {
	f := mustIndex(t, "ret.cpp", `
int Value(int x);
`)
	value := findFunc(f, "Value")
	if value == nil {
		t.Fatal("Value not indexed")
	}
	want := "int Value(int)"
	if value.Def.DetailedName != want {
		t.Errorf("DetailedName = %q, want %q", value.Def.DetailedName, want)
	}
}

func TestMacroHover(t *testing.T) {
	f := mustIndex(t, "consts.c", `
#define MAX_SIZE 128
`)
	m := findVar(f, "MAX_SIZE")
	if m == nil {
		t.Fatal("MAX_SIZE not indexed")
	}
	want := "#define MAX_SIZE 128"
	if m.Def.Hover != want {
		t.Errorf("Hover = %q, want %q", m.Def.Hover, want)
	}
}

func TestTypedefHover(t *testing.T) {
	f := mustIndex(t, "alias.cpp", `
typedef int MyInt;
`)
	alias := findType(f, "MyInt")
	if alias == nil {
		t.Fatal("MyInt not indexed")
	}
	if alias.Def.Hover == "" {
		t.Error("expected a short typedef to get a synthesized hover")
	}
}

func TestVirtualOverrideLinking(t *testing.T) {
	f := mustIndex(t, "shapes.cpp", `
class Shape {
 public:
  void Draw();
};
class Circle : public Shape {
 public:
  void Draw();
};
`)
	shapeDraw := findFunc(f, "Draw")
	var circleDraw *indexfile.IndexFunc
	for _, fn := range f.Funcs {
		if fn.Def.ShortName == "Draw" && fn.LocalID != shapeDraw.LocalID {
			circleDraw = fn
		}
	}
	if shapeDraw == nil || circleDraw == nil {
		t.Fatal("expected two distinct Draw methods")
	}
	if len(circleDraw.Base) != 1 || circleDraw.Base[0] != shapeDraw.LocalID {
		t.Errorf("Circle::Draw.Base = %v, want [%v]", circleDraw.Base, shapeDraw.LocalID)
	}
	if len(shapeDraw.Derived) != 1 || shapeDraw.Derived[0] != circleDraw.LocalID {
		t.Errorf("Shape::Draw.Derived = %v, want [%v]", shapeDraw.Derived, circleDraw.LocalID)
	}
}

func TestBestConstructorPrefersArityThenLongestCommonPrefix(t *testing.T) {
	p := &IndexParam{ctors: make(constructorCache)}
	declTypeUSR := typeUSR("Widget")
	oneArg := funcUSR("Widget::Widget", []string{"int"})
	twoArgMismatch := funcUSR("Widget::Widget", []string{"int", "double"})
	twoArgMatch := funcUSR("Widget::Widget", []string{"int", "Widget"})
	p.ctors[declTypeUSR] = []ctorInfo{
		{FuncUSR: oneArg, ParamTypes: []string{"int"}},
		{FuncUSR: twoArgMismatch, ParamTypes: []string{"int", "double"}},
		{FuncUSR: twoArgMatch, ParamTypes: []string{"int", "Widge"}},
	}
	got, ok := p.bestConstructor(declTypeUSR, []string{"int", "Widget"})
	if !ok {
		t.Fatal("expected a best constructor match")
	}
	if got != twoArgMatch {
		t.Errorf("bestConstructor = %q, want %q (same arity plus longer common prefix should win)", got, twoArgMatch)
	}
}

func TestNamespaceQualification(t *testing.T) {
	f := mustIndex(t, "ns.cpp", `
namespace outer {
namespace inner {
class Widget {};
}
}
`)
	w := findType(f, "Widget")
	if w == nil {
		t.Fatal("Widget not indexed")
	}
	want := "outer::inner::Widget"
	if w.Def.DetailedName != want {
		t.Errorf("DetailedName = %q, want %q", w.Def.DetailedName, want)
	}
}
