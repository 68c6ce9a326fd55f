package indexer

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/cindexd/cindex/internal/frontend"
	"github.com/cindexd/cindex/internal/indexfile"
)

// handleVariable indexes a top-level or local variable declarator, per
// spec.md §4.3 "Variables / fields / enum constants / static
// properties" rule 1: one IndexVar per declaring node, USR from the
// qualified name, IsLocal set when declared inside a function body.
//
// A bare declarator with a resolvable class type and no explicit
// initializer ("Type foo;") default-constructs foo; that implicit call
// is recorded against Type's constructor too (spec.md §4.3, scenario
// "a bare object declaration calls its type's default constructor").
func (p *IndexParam) handleVariable(n *tree_sitter.Node, declarator *tree_sitter.Node, name string, typeName string, declaringType *indexfile.IndexType, currentFunc *indexfile.IndexFunc) *indexfile.IndexVar {
	if name == "" {
		return nil
	}
	qualified := p.ns.qualify(name)
	v := p.File.FindOrCreateVar(varUSR(qualified))
	v.Def.ShortName = name
	v.Def.DetailedName = qualified
	v.Def.DefinitionSpelling = frontend.RangeOf(n)
	v.Def.DefinitionExtent = frontend.RangeOf(n)
	v.Def.HasDefinition = true
	v.IsLocal = currentFunc != nil

	if declaringType != nil {
		v.DeclaringType = declaringType.LocalID
		v.HasDeclaringType = true
		if v.Def.Kind == indexfile.Unknown {
			v.Def.Kind = indexfile.Field
		}
		indexfile.AddUniqueVar(&declaringType.Vars, v.LocalID)
	} else if v.Def.Kind == indexfile.Unknown {
		v.Def.Kind = indexfile.Variable
	}

	if typeName != "" {
		vt := p.File.FindOrCreateType(typeUSR(typeName))
		v.VariableType = vt.LocalID
		v.HasVariableType = true
		indexfile.AddUniqueVar(&vt.Instances, v.LocalID)

		if bareObjectDeclarator(declarator) {
			p.handleImplicitConstructorCall(declarator, vt.USR, currentFunc)
		}
	}
	return v
}

// bareObjectDeclarator reports whether declarator names a plain value
// with no pointer/array/reference wrapping and no explicit initializer:
// the shape that default-constructs its object ("Type foo;"), as
// opposed to "Type *foo;", "Type foo[3];", or any declarator already
// carrying an initializer.
func bareObjectDeclarator(n *tree_sitter.Node) bool {
	return n != nil && (n.Kind() == "identifier" || n.Kind() == "field_identifier")
}

// handleEnumConstant indexes one enumerator inside an enum_specifier's
// body, per spec.md's rule that enum constants are IndexVars with
// kind=EnumConstant and declaring_type set to the enclosing enum.
func (p *IndexParam) handleEnumConstant(n *tree_sitter.Node, name string, enclosing *indexfile.IndexType) {
	if name == "" {
		return
	}
	v := p.File.FindOrCreateVar(varUSR(p.ns.qualify(name)))
	v.Def.ShortName = name
	v.Def.DetailedName = p.ns.qualify(name)
	v.Def.Kind = indexfile.EnumConstant
	v.Def.DefinitionSpelling = frontend.RangeOf(n)
	v.Def.DefinitionExtent = frontend.RangeOf(n)
	v.Def.HasDefinition = true
	if enclosing != nil {
		v.DeclaringType = enclosing.LocalID
		v.HasDeclaringType = true
		indexfile.AddUniqueVar(&enclosing.Vars, v.LocalID)
	}
}

// handleObjCProperty indexes an ObjC @property declaration as an
// IndexVar with kind InstanceProperty or StaticProperty (spec.md §4.3
// rule 7: "Obj-C @property declarations are indexed as variables").
func (p *IndexParam) handleObjCProperty(n *tree_sitter.Node, name string, isStatic bool, enclosing *indexfile.IndexType) {
	if name == "" {
		return
	}
	v := p.File.FindOrCreateVar(varUSR(p.ns.qualify(name)))
	v.Def.ShortName = name
	v.Def.DetailedName = p.ns.qualify(name)
	if isStatic {
		v.Def.Kind = indexfile.StaticProperty
	} else {
		v.Def.Kind = indexfile.InstanceProperty
	}
	v.Def.DefinitionSpelling = frontend.RangeOf(n)
	v.Def.DefinitionExtent = frontend.RangeOf(n)
	v.Def.HasDefinition = true
	if enclosing != nil {
		v.DeclaringType = enclosing.LocalID
		v.HasDeclaringType = true
		indexfile.AddUniqueVar(&enclosing.Vars, v.LocalID)
	}
}

// handleMacro indexes a preproc_def / preproc_function_def node as an
// IndexVar with kind=Macro (spec.md §4.3's macro pass: "MacroDefinition
// and MacroExpansion are indexed as IndexVars with kind=Macro").
func (p *IndexParam) handleMacro(n *tree_sitter.Node, name string) {
	if name == "" {
		return
	}
	v := p.File.FindOrCreateVar(macroUSR(name))
	v.Def.ShortName = name
	v.Def.DetailedName = name
	v.Def.Kind = indexfile.Macro
	v.Def.DefinitionSpelling = frontend.RangeOf(n)
	v.Def.DefinitionExtent = frontend.RangeOf(n)
	v.Def.HasDefinition = true
	// The node's own text already spans the full "#define NAME value"
	// statement (spec.md §4.3's macro pass hover rule), plus the line
	// break that ends the directive, which is trimmed off.
	v.Def.Hover = strings.TrimRight(p.text(n), "\r\n")
	v.IsMacro = true
}

// recordMacroExpansion adds a use location to an already-defined macro,
// or to a forward reference placeholder if the definition hasn't been
// seen yet within this translation unit.
func (p *IndexParam) recordMacroExpansion(n *tree_sitter.Node, name string) {
	if name == "" {
		return
	}
	v := p.File.FindOrCreateVar(macroUSR(name))
	if v.Def.ShortName == "" {
		v.Def.ShortName = name
		v.Def.DetailedName = name
		v.Def.Kind = indexfile.Macro
		v.IsMacro = true
	}
	indexfile.AddUniqueLocation(&v.Uses, p.loc(n))
}
