package indexer

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/cindexd/cindex/internal/frontend"
	"github.com/cindexd/cindex/internal/ids"
	"github.com/cindexd/cindex/internal/indexfile"
)

// handleTypeContainer indexes class_specifier / struct_specifier /
// union_specifier / enum_specifier / ObjC @interface nodes, per
// spec.md §4.3's "Types / aliases / enums / unions / structs / classes
// / Obj-C interfaces" rules 1-6: one IndexType per declaring node,
// base-class parent/derived symmetry, and namespace-qualified naming.
// Returns the node's own type for use as the enclosing scope by callers
// walking into the body.
func (p *IndexParam) handleTypeContainer(n *tree_sitter.Node) *indexfile.IndexType {
	kind, shortName, containerWord := p.typeContainerShape(n)
	if kind == indexfile.Unknown {
		return nil
	}

	qualified := p.ns.qualify(shortName)
	tUSR := typeUSR(qualified)
	it := p.File.FindOrCreateType(tUSR)
	it.Def.Kind = kind
	it.Def.ShortName = shortName
	it.Def.DetailedName = qualified
	it.Def.DefinitionSpelling = nameRange(n)
	it.Def.DefinitionExtent = frontend.RangeOf(n)
	it.Def.HasDefinition = true

	for _, baseName := range p.baseClassNames(n) {
		baseUSR := typeUSR(baseName)
		base := p.File.FindOrCreateType(baseUSR)
		indexfile.AddUniqueType(&it.Parents, base.LocalID)
		indexfile.AddUniqueType(&base.Derived, it.LocalID)
	}

	p.ns.push(shortName, containerWord)
	return it
}

func (p *IndexParam) typeContainerShape(n *tree_sitter.Node) (kind indexfile.SymbolKind, name string, containerWord string) {
	switch n.Kind() {
	case "class_specifier":
		return indexfile.Class, p.containerName(n), "class"
	case "struct_specifier":
		return indexfile.Struct, p.containerName(n), "struct"
	case "union_specifier":
		return indexfile.Union, p.containerName(n), "union"
	case "enum_specifier":
		return indexfile.Enum, p.containerName(n), "enum"
	}
	if strings.Contains(n.Kind(), "class_interface") {
		return indexfile.Class, p.containerName(n), "interface"
	}
	if strings.Contains(n.Kind(), "protocol_declaration") {
		return indexfile.Protocol, p.containerName(n), "protocol"
	}
	return indexfile.Unknown, "", ""
}

func (p *IndexParam) containerName(n *tree_sitter.Node) string {
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		return p.text(nameNode)
	}
	return ""
}

// baseClassNames extracts base/superclass/protocol names from a
// base_class_clause (C++) or superclass_reference/protocol_reference_list
// (ObjC), used to populate the Parents/Derived symmetric relation.
func (p *IndexParam) baseClassNames(n *tree_sitter.Node) []string {
	var out []string
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		switch {
		case c.Kind() == "base_class_clause":
			for j := uint(0); j < c.ChildCount(); j++ {
				bc := c.Child(j)
				if bc.Kind() == "type_identifier" || bc.Kind() == "qualified_identifier" {
					out = append(out, p.text(bc))
				}
			}
		case strings.Contains(c.Kind(), "superclass_reference"):
			out = append(out, p.text(c))
		case strings.Contains(c.Kind(), "protocol_reference_list"):
			for j := uint(0); j < c.ChildCount(); j++ {
				pc := c.Child(j)
				if pc.Kind() == "identifier" {
					out = append(out, p.text(pc))
				}
			}
		}
	}
	return out
}

// handleAlias indexes type_definition / alias_declaration nodes into
// an IndexType with AliasOf set (spec.md §3: IndexType "alias_of").
func (p *IndexParam) handleAlias(n *tree_sitter.Node, aliasName, targetName string) {
	if aliasName == "" {
		return
	}
	qualified := p.ns.qualify(aliasName)
	aliasUSR := typeUSR(qualified)
	it := p.File.FindOrCreateType(aliasUSR)
	it.Def.Kind = indexfile.TypeAlias
	it.Def.ShortName = aliasName
	it.Def.DetailedName = qualified
	it.Def.DefinitionSpelling = nameRange(n)
	it.Def.DefinitionExtent = frontend.RangeOf(n)
	it.Def.HasDefinition = true

	// For a typedef/using spanning at most 3 lines, synthesize a hover
	// by splicing detailed_name into the source between the name's end
	// and the declaration's own end (spec.md §4.3 type rule 5).
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		// A typedef carries its new name in its declarator field.
		nameNode = n.ChildByFieldName("declarator")
	}
	if nameNode != nil {
		extent := frontend.RangeOf(n)
		if extent.End.Line-extent.Start.Line <= 2 {
			it.Def.Hover = it.Def.DetailedName + string(p.TU.Source[nameNode.EndByte():n.EndByte()])
		}
	}

	if targetName != "" {
		target := p.File.FindOrCreateType(typeUSR(p.ns.qualify(targetName)))
		it.AliasOf = target.LocalID
		it.HasAliasOf = true
	}
}

func nameRange(n *tree_sitter.Node) ids.Range {
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		return frontend.RangeOf(nameNode)
	}
	return frontend.RangeOf(n)
}
