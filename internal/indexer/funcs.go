package indexer

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/cindexd/cindex/internal/frontend"
	"github.com/cindexd/cindex/internal/ids"
	"github.com/cindexd/cindex/internal/indexfile"
)

// funcShape describes what handleFunction needs to know about a
// function_definition/declaration node after declarator unwrapping.
// Name is always the function's own base name, never scope-qualified:
// an out-of-line method definition's "Foo::" qualifier is split off
// into Scope so ShortName and constructor-name comparisons both work
// off the same bare name regardless of whether the declarator came
// from inside the class body or from an out-of-line definition.
type funcShape struct {
	Name       string
	NameRange  ids.Range
	ReturnType string
	ParamTypes []string
	// ParamRanges holds one spelling range per parameter, matching
	// ParamTypes by index: a named parameter's own identifier range, or
	// a zero-length range at the parameter's end for an unnamed one.
	ParamRanges []ids.Range

	HasScope  bool
	ScopeText string
	ScopeRange ids.Range

	IsOperator    bool
	IsConstructor bool
	IsDestructor  bool
	IsConversion  bool
}

// handleFunction indexes a function_definition or prototype
// declaration, per spec.md §4.3's function/method rules 1-7: one
// IndexFunc per USR, shared by a prototype and its definition,
// declaring_type set inside a class/struct body, constructor detection
// recorded into the ConstructorCache, and method-overload base/derived
// linking left to linkOverrides after both passes.
func (p *IndexParam) handleFunction(n *tree_sitter.Node, shape funcShape, enclosing *indexfile.IndexType, hasBody bool) *indexfile.IndexFunc {
	if shape.Name == "" {
		return nil
	}
	qualified := p.ns.qualify(shape.Name)
	if shape.HasScope {
		qualified = p.ns.qualify(shape.ScopeText) + "::" + shape.Name
	}
	f := p.File.FindOrCreateFunc(funcUSR(qualified, shape.ParamTypes))
	f.Def.ShortName = shape.Name
	f.Def.DetailedName = detailedSignature(shape.ReturnType, qualified, shape.ParamTypes)
	f.IsOperator = shape.IsOperator

	switch {
	case shape.IsConstructor:
		f.Def.Kind = indexfile.Constructor
	case shape.IsDestructor:
		f.Def.Kind = indexfile.Destructor
	case shape.IsConversion:
		f.Def.Kind = indexfile.ConversionFunction
	case enclosing != nil:
		f.Def.Kind = indexfile.InstanceMethod
	default:
		f.Def.Kind = indexfile.Function
	}

	declRange := shape.NameRange
	if hasBody {
		f.Def.DefinitionSpelling = declRange
		f.Def.DefinitionExtent = frontend.RangeOf(n)
		f.Def.HasDefinition = true
	} else {
		f.Declarations = append(f.Declarations, indexfile.Declaration{
			Spelling:       declRange,
			Extent:         frontend.RangeOf(n),
			Content:        p.text(n),
			ParamSpellings: shape.ParamRanges,
		})
	}

	if enclosing != nil {
		f.DeclaringType = enclosing.LocalID
		f.HasDeclaringType = true
		indexfile.AddUniqueFunc(&enclosing.Funcs, f.LocalID)
	}

	// A constructor/destructor name range is itself a use of its
	// declaring type (spec.md §4.3 function rule 5).
	if enclosing != nil && (shape.IsConstructor || shape.IsDestructor) {
		indexfile.AddUniqueLocation(&enclosing.Uses, p.locRange(declRange))
	}

	// An out-of-line definition's scope qualifier ("Foo" in
	// "Foo::foo") is a use of the qualified type, even though this
	// declaration itself has no enclosing type (spec.md §8 S1).
	if shape.HasScope {
		owner := p.File.FindOrCreateType(typeUSR(p.ns.qualify(shape.ScopeText)))
		indexfile.AddUniqueLocation(&owner.Uses, p.locRange(shape.ScopeRange))
	}

	if shape.IsConstructor && enclosing != nil {
		p.ctors.add(enclosing.USR, f.USR, shape.ParamTypes)
	}
	return f
}

// detailedSignature builds the fully qualified signature spec.md §4.3
// function rule 4 calls for: return type, qualified name, parameter
// types. Constructors/destructors/conversion functions have no return
// type node to capture, so returnType is simply omitted for them.
func detailedSignature(returnType, qualified string, paramTypes []string) string {
	sig := qualified + "(" + strings.Join(paramTypes, ", ") + ")"
	if returnType == "" {
		return sig
	}
	return returnType + " " + sig
}

// handleMacroFunctionLike treats a preproc_function_def the same as a
// macro object-like definition (spec.md's macro pass makes no kind
// distinction between object-like and function-like macros).
func (p *IndexParam) handleMacroFunctionLike(n *tree_sitter.Node, name string) {
	p.handleMacro(n, name)
}

// funcShapeFromDeclarator unwraps a function_declarator to recover the
// callee name and parameter type spellings, recognizing destructor_name
// and operator_name declarators for the constructor/destructor/operator
// rules, and qualified_identifier declarators (out-of-line method
// definitions) by splitting them into a scope prefix and a base name
// rather than treating the whole "Foo::foo" spelling as the name.
func (p *IndexParam) funcShapeFromDeclarator(fnDecl *tree_sitter.Node, enclosingName string) funcShape {
	var shape funcShape
	declarator := fnDecl.ChildByFieldName("declarator")
	if declarator == nil {
		declarator = fnDecl
	}
	switch declarator.Kind() {
	case "destructor_name":
		shape.IsDestructor = true
		shape.Name = "~" + enclosingName
		shape.NameRange = frontend.RangeOf(declarator)
		// Skip the leading "~" token (child 0) when it parses as its
		// own node, per spec.md §4.3 function rule 5.
		if declarator.ChildCount() > 1 {
			shape.NameRange = frontend.RangeOf(declarator.Child(declarator.ChildCount() - 1))
		}
	case "operator_name":
		shape.IsOperator = true
		shape.Name = p.text(declarator)
		shape.NameRange = frontend.RangeOf(declarator)
	case "qualified_identifier":
		nameNode := declarator.ChildByFieldName("name")
		scopeNode := declarator.ChildByFieldName("scope")
		if nameNode != nil {
			shape.Name = p.text(nameNode)
			shape.NameRange = frontend.RangeOf(nameNode)
		} else {
			shape.Name = p.text(declarator)
			shape.NameRange = frontend.RangeOf(declarator)
		}
		if scopeNode != nil {
			shape.HasScope = true
			shape.ScopeText = p.text(scopeNode)
			shape.ScopeRange = frontend.RangeOf(scopeNode)
		}
		if owner := lastScopeSegment(shape.ScopeText); owner != "" && owner == shape.Name {
			shape.IsConstructor = true
		}
	case "field_identifier", "identifier":
		shape.Name = p.text(declarator)
		shape.NameRange = frontend.RangeOf(declarator)
		if shape.Name == enclosingName {
			shape.IsConstructor = true
		}
	default:
		shape.Name = p.text(declarator)
		shape.NameRange = frontend.RangeOf(declarator)
	}

	if params := fnDecl.ChildByFieldName("parameters"); params != nil {
		for i := uint(0); i < params.ChildCount(); i++ {
			pd := params.Child(i)
			if pd.Kind() != "parameter_declaration" {
				continue
			}
			if t := pd.ChildByFieldName("type"); t != nil {
				shape.ParamTypes = append(shape.ParamTypes, p.text(t))
			}
			shape.ParamRanges = append(shape.ParamRanges, paramSpellingRange(pd))
		}
	}
	return shape
}

// lastScopeSegment returns the last "::"-separated component of a
// scope spelling ("Outer::Foo" -> "Foo"), used to recognize an
// out-of-line constructor definition ("Foo::Foo() {}") whose
// enclosing-type name has to come from its own qualifier rather than
// from an enclosing IndexType, since out-of-line definitions are
// walked with no enclosing type at all.
func lastScopeSegment(scope string) string {
	if i := strings.LastIndex(scope, "::"); i >= 0 {
		return scope[i+len("::"):]
	}
	return scope
}

// paramSpellingRange returns one parameter_declaration's spelling
// range for Declaration.ParamSpellings: a named parameter's own
// identifier range, or a zero-length range at the end of the
// declaration when it has no name, per spec.md §4.3 function rule 3's
// "shrink to length 0" rule for unnamed parameters.
func paramSpellingRange(pd *tree_sitter.Node) ids.Range {
	if d := pd.ChildByFieldName("declarator"); d != nil {
		if name := paramDeclaratorName(d); name != nil {
			return frontend.RangeOf(name)
		}
	}
	end := frontend.RangeOf(pd).End
	return ids.Range{Start: end, End: end}
}

// paramDeclaratorName unwraps a parameter declarator down to its bare
// name identifier, or nil when the parameter has none.
func paramDeclaratorName(n *tree_sitter.Node) *tree_sitter.Node {
	switch n.Kind() {
	case "identifier":
		return n
	case "pointer_declarator", "reference_declarator", "array_declarator":
		if d := n.ChildByFieldName("declarator"); d != nil {
			return paramDeclaratorName(d)
		}
	}
	return nil
}
