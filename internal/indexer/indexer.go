package indexer

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/cindexd/cindex/internal/fileconsumer"
	"github.com/cindexd/cindex/internal/frontend"
	"github.com/cindexd/cindex/internal/indexfile"
)

// Index runs the full two-pass indexing algorithm over tu and returns
// its IndexFile, plus the subset of tu.Includes whose header this
// translation unit newly claimed ownership of (spec.md §4.2): the
// caller (the import pipeline's parse worker) is responsible for
// enqueuing a follow-up IndexRequest for each such header, since this
// front end parses one file per call rather than expanding includes
// inline.
func Index(tu *frontend.TranslationUnit, consumer *fileconsumer.Consumer) (*indexfile.IndexFile, []string, error) {
	p := newIndexParam(tu, consumer)

	p.File.Language = tu.Language
	p.File.Diagnostics = append(p.File.Diagnostics, tu.Diagnostics...)
	p.File.Includes = tu.Includes
	for _, inc := range tu.Includes {
		p.File.Dependencies = append(p.File.Dependencies, inc.ResolvedPath)
		if consumer != nil && consumer.TryClaim(inc.ResolvedPath, tu.Path) {
			p.newlyOwnedHeaders = append(p.newlyOwnedHeaders, inc.ResolvedPath)
		}
	}

	root := p.root()
	p.walk(root, nil, nil, true)  // pass 1: declare every entity
	p.walk(root, nil, nil, false) // pass 2: resolve calls and references
	p.linkOverrides()

	return p.File, p.newlyOwnedHeaders, nil
}

// walk is the single recursive descent used by both indexing passes.
// declare selects which half of the work a declaration-shaped node
// performs; the namespace/class scope stack is pushed and popped
// identically on both passes so qualified names agree between them.
func (p *IndexParam) walk(n *tree_sitter.Node, enclosing *indexfile.IndexType, currentFunc *indexfile.IndexFunc, declare bool) {
	if n == nil {
		return
	}

	switch n.Kind() {
	case "namespace_definition":
		name := p.containerName(n)
		p.ns.push(name, "namespace")
		p.walkChildren(bodyOf(n), enclosing, currentFunc, declare)
		p.ns.pop()
		return

	case "class_specifier", "struct_specifier", "union_specifier":
		var it *indexfile.IndexType
		if declare {
			it = p.handleTypeContainer(n)
		} else {
			// Re-enter the same scope without re-declaring, so nested
			// reference resolution sees the right qualified prefix.
			name := p.containerName(n)
			word := map[string]string{"class_specifier": "class", "struct_specifier": "struct", "union_specifier": "union"}[n.Kind()]
			it = p.File.FindOrCreateType(typeUSR(p.ns.qualify(name)))
			p.ns.push(name, word)
		}
		p.walkChildren(bodyOf(n), it, currentFunc, declare)
		p.ns.pop()
		return

	case "enum_specifier":
		var it *indexfile.IndexType
		if declare {
			it = p.handleTypeContainer(n)
			if body := bodyOf(n); body != nil {
				for i := uint(0); i < body.ChildCount(); i++ {
					enumr := body.Child(i)
					if enumr.Kind() != "enumerator" {
						continue
					}
					if nameNode := enumr.ChildByFieldName("name"); nameNode != nil {
						p.handleEnumConstant(enumr, p.text(nameNode), it)
					}
				}
			}
			p.ns.pop()
		}
		return

	case "type_definition":
		if declare {
			p.handleTypedef(n)
		}
		return

	case "alias_declaration":
		if declare {
			nameNode := n.ChildByFieldName("name")
			typeNode := n.ChildByFieldName("type")
			if nameNode != nil {
				target := ""
				if typeNode != nil {
					target = leadingTypeIdentifier(p, typeNode)
				}
				p.handleAlias(n, p.text(nameNode), target)
			}
		}
		return

	case "function_definition":
		p.walkFunctionLike(n, enclosing, declare, true)
		return

	case "declaration", "field_declaration":
		if fnDecl := findFunctionDeclarator(n); fnDecl != nil {
			p.walkFunctionLike(n, enclosing, declare, false)
			return
		}
		if declare {
			p.declareDataMember(n, enclosing, currentFunc)
			return
		}
		// Pass 2: descend generically so macro expansions nested in
		// e.g. an array declarator's size expression are still found.

	case "identifier":
		if !declare {
			name := p.text(n)
			if _, ok := p.File.IdCache.VarUSRToID[macroUSR(name)]; ok {
				p.recordMacroExpansion(n, name)
			}
		}

	case "preproc_def":
		if declare {
			if nameNode := n.ChildByFieldName("name"); nameNode != nil {
				p.handleMacro(n, p.text(nameNode))
			}
		}
		return

	case "preproc_function_def":
		if declare {
			if nameNode := n.ChildByFieldName("name"); nameNode != nil {
				p.handleMacroFunctionLike(n, p.text(nameNode))
			}
		}
		return

	case "call_expression":
		if !declare {
			if fn := n.ChildByFieldName("function"); fn != nil {
				p.handleCall(n, calleeText(p, fn), currentFunc)
			}
		}
		// still descend so nested calls in arguments are visited

	case "field_expression":
		if !declare {
			if field := n.ChildByFieldName("field"); field != nil {
				p.handleVarReference(field, p.text(field))
			}
		}

	case "type_identifier", "qualified_identifier":
		if !declare {
			p.handleTypeReference(n, p.text(n))
		}

	case "property_declaration":
		if declare {
			name, isStatic := objcPropertyShape(p, n)
			p.handleObjCProperty(n, name, isStatic, enclosing)
		}
		return

	default:
		if strings.Contains(n.Kind(), "class_interface") || strings.Contains(n.Kind(), "protocol_declaration") {
			var it *indexfile.IndexType
			if declare {
				it = p.handleTypeContainer(n)
				p.walkChildren(n, it, currentFunc, declare)
				p.ns.pop()
			} else {
				it = p.File.FindOrCreateType(typeUSR(p.ns.qualify(p.containerName(n))))
				p.ns.push(p.containerName(n), "interface")
				p.walkChildren(n, it, currentFunc, declare)
				p.ns.pop()
			}
			return
		}
		if strings.Contains(n.Kind(), "method_declaration") || strings.Contains(n.Kind(), "method_definition") {
			p.walkObjCMethod(n, enclosing, declare)
			return
		}
	}

	p.walkChildren(n, enclosing, currentFunc, declare)
}

func (p *IndexParam) walkChildren(n *tree_sitter.Node, enclosing *indexfile.IndexType, currentFunc *indexfile.IndexFunc, declare bool) {
	if n == nil {
		return
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		p.walk(n.Child(i), enclosing, currentFunc, declare)
	}
}

// walkFunctionLike handles both function_definition (has a body) and a
// bare prototype declaration found inside declaration/field_declaration.
func (p *IndexParam) walkFunctionLike(n *tree_sitter.Node, enclosing *indexfile.IndexType, declare bool, hasBody bool) {
	fnDecl := findFunctionDeclarator(n)
	if fnDecl == nil {
		p.walkChildren(n, enclosing, nil, declare)
		return
	}
	enclosingName := ""
	if enclosing != nil {
		enclosingName = enclosing.Def.ShortName
	}
	shape := p.funcShapeFromDeclarator(fnDecl, enclosingName)
	if t := n.ChildByFieldName("type"); t != nil {
		shape.ReturnType = p.text(t)
	}

	var f *indexfile.IndexFunc
	if declare {
		f = p.handleFunction(n, shape, enclosing, hasBody)
	} else {
		qualified := p.ns.qualify(shape.Name)
		if shape.HasScope {
			qualified = p.ns.qualify(shape.ScopeText) + "::" + shape.Name
		}
		f = p.File.FindOrCreateFunc(funcUSR(qualified, shape.ParamTypes))
	}

	if body := n.ChildByFieldName("body"); body != nil {
		p.walkChildren(body, nil, f, declare)
	}
}

// declareDataMember handles a non-function declaration/field_declaration:
// a variable at namespace scope, a local variable inside a function
// body, or a data field inside a class body. currentFunc is non-nil only
// for a local variable, and is threaded through to handleVariable so an
// implicit default-construction call can be attributed to its caller.
func (p *IndexParam) declareDataMember(n *tree_sitter.Node, enclosing *indexfile.IndexType, currentFunc *indexfile.IndexFunc) {
	typeNode := n.ChildByFieldName("type")
	typeName := ""
	// Builtin types (int, unsigned long, ...) declare no entity of their
	// own, so a variable of such a type gets no variable_type.
	if typeNode != nil && typeNode.Kind() != "primitive_type" && typeNode.Kind() != "sized_type_specifier" {
		typeName = leadingTypeIdentifier(p, typeNode)
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		name := declaratorName(p, c)
		if name == "" {
			continue
		}
		p.handleVariable(n, c, name, typeName, enclosing, currentFunc)
	}
}

func (p *IndexParam) handleTypedef(n *tree_sitter.Node) {
	typeNode := n.ChildByFieldName("type")
	target := ""
	if typeNode != nil {
		target = leadingTypeIdentifier(p, typeNode)
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		if typeNode != nil && c.StartByte() == typeNode.StartByte() {
			continue
		}
		name := declaratorName(p, c)
		// The grammars spell a typedef's new name as a type_identifier.
		if name == "" && c.Kind() == "type_identifier" {
			name = p.text(c)
		}
		if name != "" {
			p.handleAlias(n, name, target)
		}
	}
}

func bodyOf(n *tree_sitter.Node) *tree_sitter.Node {
	if b := n.ChildByFieldName("body"); b != nil {
		return b
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		if strings.HasSuffix(c.Kind(), "_list") {
			return c
		}
	}
	return nil
}

// findFunctionDeclarator unwraps pointer_declarator/reference_declarator
// wrappers (for functions returning pointers/references) to find the
// innermost function_declarator, or nil if n declares no function.
func findFunctionDeclarator(n *tree_sitter.Node) *tree_sitter.Node {
	d := n.ChildByFieldName("declarator")
	for d != nil {
		switch d.Kind() {
		case "function_declarator":
			return d
		case "pointer_declarator", "reference_declarator":
			d = d.ChildByFieldName("declarator")
		default:
			return nil
		}
	}
	return nil
}

// declaratorName extracts a plain identifier name from a declarator
// subtree (identifier, field_identifier, or one wrapped in
// pointer_declarator/array_declarator/init_declarator).
func declaratorName(p *IndexParam, n *tree_sitter.Node) string {
	switch n.Kind() {
	case "identifier", "field_identifier":
		return p.text(n)
	case "pointer_declarator", "array_declarator", "init_declarator", "reference_declarator":
		if d := n.ChildByFieldName("declarator"); d != nil {
			return declaratorName(p, d)
		}
	}
	return ""
}

// leadingTypeIdentifier returns the first type_identifier/primitive
// text found in a type node, for best-effort type-name extraction
// without full C++ type-grammar resolution.
func leadingTypeIdentifier(p *IndexParam, n *tree_sitter.Node) string {
	if n.Kind() == "type_identifier" || n.Kind() == "primitive_type" || n.Kind() == "qualified_identifier" {
		return p.text(n)
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		if s := leadingTypeIdentifier(p, n.Child(i)); s != "" {
			return s
		}
	}
	return ""
}

// objcPropertyShape extracts a @property declaration's name and
// whether it was declared "class" (static). tree-sitter-objc's exact
// node shape for attributes varies by grammar version; this scans
// descendants defensively rather than pinning to one field layout.
func objcPropertyShape(p *IndexParam, n *tree_sitter.Node) (name string, isStatic bool) {
	var lastIdent *tree_sitter.Node
	frontend.Walk(n, func(c *tree_sitter.Node) bool {
		switch c.Kind() {
		case "identifier", "property_name":
			lastIdent = c
		case "class_property_attribute":
			isStatic = true
		}
		return true
	})
	if lastIdent != nil {
		name = p.text(lastIdent)
	}
	return name, isStatic
}

// walkObjCMethod indexes an ObjC method declaration/definition as an
// IndexFunc with kind InstanceMethod or ClassMethod, joining selector
// keyword parts into the method's short name.
func (p *IndexParam) walkObjCMethod(n *tree_sitter.Node, enclosing *indexfile.IndexType, declare bool) {
	isClassMethod := false
	if n.ChildCount() > 0 && p.text(n.Child(0)) == "+" {
		isClassMethod = true
	}

	var parts []string
	frontend.Walk(n, func(c *tree_sitter.Node) bool {
		if c.Kind() == "identifier" {
			parts = append(parts, p.text(c))
		}
		return c.Kind() != "method_body" && c.Kind() != "compound_statement"
	})
	name := strings.Join(parts, ":")
	if name == "" {
		return
	}

	qualified := p.ns.qualify(name)
	var f *indexfile.IndexFunc
	if declare {
		f = p.File.FindOrCreateFunc(funcUSR(qualified, nil))
		f.Def.ShortName = name
		f.Def.DetailedName = qualified
		if isClassMethod {
			f.Def.Kind = indexfile.ClassMethod
		} else {
			f.Def.Kind = indexfile.InstanceMethod
		}
		f.Def.DefinitionSpelling = frontend.RangeOf(n)
		f.Def.DefinitionExtent = frontend.RangeOf(n)
		f.Def.HasDefinition = true
		if enclosing != nil {
			f.DeclaringType = enclosing.LocalID
			f.HasDeclaringType = true
			indexfile.AddUniqueFunc(&enclosing.Funcs, f.LocalID)
		}
	} else {
		f = p.File.FindOrCreateFunc(funcUSR(qualified, nil))
	}

	if body := n.ChildByFieldName("body"); body != nil {
		p.walkChildren(body, nil, f, declare)
	}
}

// calleeText extracts the callable name spelling from a call
// expression's function field, unwrapping a field_expression
// (obj.method(...)) down to the member name.
func calleeText(p *IndexParam, fn *tree_sitter.Node) string {
	switch fn.Kind() {
	case "field_expression":
		if field := fn.ChildByFieldName("field"); field != nil {
			return p.text(field)
		}
	case "template_function":
		if name := fn.ChildByFieldName("name"); name != nil {
			return p.text(name)
		}
	}
	return p.text(fn)
}
