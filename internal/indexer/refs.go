package indexer

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/cindexd/cindex/internal/ids"
	"github.com/cindexd/cindex/internal/indexfile"
	"github.com/cindexd/cindex/internal/usr"
)

// handleTypeReference records a use of a previously (or not yet) seen
// type, per spec.md §4.3 "References" rule for type refs: every
// occurrence of a type name outside its own declaration is recorded in
// that type's uses[].
func (p *IndexParam) handleTypeReference(n *tree_sitter.Node, name string) {
	if name == "" || p.currentlyDeclaring(n) {
		return
	}
	t := p.File.FindOrCreateType(typeUSR(p.resolveScopedName(name)))
	indexfile.AddUniqueLocation(&t.Uses, p.loc(n))
}

// handleVarReference records a use of a variable/field, mirroring
// handleTypeReference for the Variable/Field uses[] rule.
func (p *IndexParam) handleVarReference(n *tree_sitter.Node, name string) {
	if name == "" {
		return
	}
	v := p.File.FindOrCreateVar(varUSR(p.resolveScopedName(name)))
	indexfile.AddUniqueLocation(&v.Uses, p.loc(n))
}

// currentlyDeclaring is a conservative check to avoid double-recording
// a type's own declarator as a "use" of itself; real resolution needs
// semantic context a syntax-only front end doesn't have, so this always
// returns false and lets exact-duplicate uses collapse via the
// unique-add merge rule instead.
func (p *IndexParam) currentlyDeclaring(n *tree_sitter.Node) bool { return false }

// resolveScopedName applies qualified-identifier scoping: "Foo::Bar"
// resolves as-is; a bare name is always qualified with the current
// namespace/class stack, with no fallback to the bare global name.
// This matches how handleTypeContainer/handleFunction compute the USR
// for a declaration in the same scope.
func (p *IndexParam) resolveScopedName(name string) string {
	if strings.Contains(name, "::") {
		return name
	}
	return p.ns.qualify(name)
}

// handleCall indexes a call_expression, resolving the callee by
// qualified name and recording a FuncRef on both sides of the relation
// (spec.md §4.3 "References": calls are run-compressed multisets on
// both caller.callees and callee.callers).
func (p *IndexParam) handleCall(n *tree_sitter.Node, calleeName string, caller *indexfile.IndexFunc) {
	if calleeName == "" {
		return
	}
	callee := p.resolveCallee(calleeName, n)
	if callee == nil {
		return
	}
	ref := indexfile.FuncRef{Loc: p.loc(n), IsImplicit: p.isImplicitCall(n, callee)}
	if caller != nil {
		ref.CallerID = caller.LocalID
		ref.HasCaller = true
		indexfile.AddFuncRefRunCompressed(&caller.Callees, ref)
	}
	indexfile.AddFuncRefRunCompressed(&callee.Callers, ref)
}

// isImplicitCall reports whether a call is implicit, spec.md §4.3's
// rule: the callee's kind must itself permit an implicit call
// (constructor, destructor, or conversion function — an ordinary named
// function call is never implicit no matter what its call-site text
// happens to spell) AND the call site's own source tokens omit the
// callee's short name, the way the compiler-synthesized form of such a
// call (make_unique<Foo> resolved to Foo's constructor, say) never
// spells the callee's name at the call site itself.
func (p *IndexParam) isImplicitCall(n *tree_sitter.Node, callee *indexfile.IndexFunc) bool {
	switch callee.Def.Kind {
	case indexfile.Constructor, indexfile.Destructor, indexfile.ConversionFunction:
	default:
		return false
	}
	short := callee.Def.ShortName
	if short == "" {
		return false
	}
	return !strings.Contains(p.text(n), short)
}

// handleImplicitConstructorCall records the implicit default-construction
// call a bare object declarator performs ("Type foo;" default-constructs
// foo): a caller entry on the best-matching zero-argument constructor in
// declTypeUSR's ConstructorCache, located at the declarator itself since
// no call syntax exists anywhere in the declaration (spec.md §4.3).
func (p *IndexParam) handleImplicitConstructorCall(declarator *tree_sitter.Node, declTypeUSR usr.USR, caller *indexfile.IndexFunc) {
	ctorUSR, ok := p.bestConstructor(declTypeUSR, nil)
	if !ok {
		return
	}
	callee := p.File.FindOrCreateFunc(ctorUSR)
	ref := indexfile.FuncRef{Loc: p.loc(declarator), IsImplicit: true}
	if caller != nil {
		ref.CallerID = caller.LocalID
		ref.HasCaller = true
		indexfile.AddFuncRefRunCompressed(&caller.Callees, ref)
	}
	indexfile.AddFuncRefRunCompressed(&callee.Callers, ref)
}

// resolveCallee looks up the callee IndexFunc by name, applying the
// "make" heuristic (spec.md §4.3) when the callee is a factory
// function (make_unique<Foo>, make_shared<Foo>, or any name beginning
// with "make"): the call is attributed to the best-scoring constructor
// in Foo's ConstructorCache entry instead of to a function literally
// named "make...".
func (p *IndexParam) resolveCallee(calleeName string, n *tree_sitter.Node) *indexfile.IndexFunc {
	base := calleeName
	if i := strings.LastIndex(base, "::"); i >= 0 {
		base = base[i+len("::"):]
	}
	if strings.HasPrefix(base, "make") {
		if targetType, argTypes := p.makeHeuristicTarget(n); targetType != "" {
			if ctorUSR, ok := p.bestConstructor(typeUSR(targetType), argTypes); ok {
				return p.File.FindOrCreateFunc(ctorUSR)
			}
		}
	}
	noArgUSR := funcUSR(p.resolveScopedName(calleeName), nil)
	if existing, ok := p.File.IdCache.FuncUSRToID[noArgUSR]; ok {
		return p.File.Func(existing)
	}
	// Fall back to a bare-name USR when the exact overload (by param
	// signature) can't be determined from a call site alone.
	for u, id := range p.File.IdCache.FuncUSRToID {
		if strings.HasPrefix(string(u), string(noArgUSR)) {
			return p.File.Func(id)
		}
	}
	return nil
}

// makeHeuristicTarget extracts the template argument type name from a
// make_unique<Foo>(...) / make_shared<Foo>(...) call, and the textual
// types of its call arguments, for scoring against ConstructorCache.
func (p *IndexParam) makeHeuristicTarget(n *tree_sitter.Node) (targetType string, argTypes []string) {
	fn := n.ChildByFieldName("function")
	if fn != nil && fn.Kind() == "template_function" {
		if args := fn.ChildByFieldName("arguments"); args != nil {
			for i := uint(0); i < args.ChildCount(); i++ {
				c := args.Child(i)
				if c.Kind() == "type_descriptor" || c.Kind() == "type_identifier" {
					targetType = p.text(c)
					break
				}
			}
		}
	}
	if argList := n.ChildByFieldName("arguments"); argList != nil {
		for i := uint(0); i < argList.ChildCount(); i++ {
			argTypes = append(argTypes, p.text(argList.Child(i)))
		}
	}
	return targetType, argTypes
}

// bestConstructor scores each known constructor of typeUSR against
// argTypes using spec.md §4.3's literal "make" heuristic formula:
// 1000×(same arity) + sum of longest-common-prefix over parameter type
// descriptions + 1 if equal lengths. The 1000-point weight means an
// arity match always outranks any number of LCP points from a
// mismatched-arity candidate; LCP only breaks ties among candidates
// that already match in arity.
func (p *IndexParam) bestConstructor(declTypeUSR usr.USR, argTypes []string) (usr.USR, bool) {
	candidates := p.ctors[declTypeUSR]
	if len(candidates) == 0 {
		return "", false
	}
	best := candidates[0]
	bestScore := -1
	for _, c := range candidates {
		sameArity := len(c.ParamTypes) == len(argTypes)
		score := 0
		if sameArity {
			score += 1000
		}
		for i := 0; i < len(c.ParamTypes) && i < len(argTypes); i++ {
			score += longestCommonPrefix(c.ParamTypes[i], argTypes[i])
		}
		if sameArity {
			score++
		}
		if score > bestScore {
			bestScore = score
			best = c
		}
	}
	return best.FuncUSR, true
}

// longestCommonPrefix returns how many leading characters a and b
// share.
func longestCommonPrefix(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

// linkOverrides resolves virtual-override candidates once both
// indexing passes have finished, since a derived class's Parents chain
// may not be fully known until its own declaration has been walked in
// full: any IndexFunc whose declaring type has a same-short-name,
// same-parameter-signature method somewhere in its base-class chain is
// linked to it bidirectionally (spec.md §4.3 function rule 6).
func (p *IndexParam) linkOverrides() {
	for _, f := range p.File.Funcs {
		if !f.HasDeclaringType || f.Def.Kind != indexfile.InstanceMethod {
			continue
		}
		own := p.File.Type(f.DeclaringType)
		seen := map[ids.TypeId]bool{own.LocalID: true}
		queue := append([]ids.TypeId{}, own.Parents...)
		for len(queue) > 0 {
			tid := queue[0]
			queue = queue[1:]
			if seen[tid] {
				continue
			}
			seen[tid] = true
			base := p.File.Type(tid)
			for _, cid := range base.Funcs {
				c := p.File.Func(cid)
				if c.LocalID == f.LocalID || c.Def.ShortName != f.Def.ShortName {
					continue
				}
				if paramTypesOf(c.USR) != paramTypesOf(f.USR) {
					continue
				}
				indexfile.AddUniqueFunc(&f.Base, c.LocalID)
				indexfile.AddUniqueFunc(&c.Derived, f.LocalID)
			}
			queue = append(queue, base.Parents...)
		}
	}
}

// paramTypesOf extracts the "#"-delimited parameter-type portion of a
// func USR (funcUSR always spells one as "f:@qualified#t1,t2"), used to
// compare two funcs' parameter signatures without needing to carry
// ParamTypes on IndexFunc itself.
func paramTypesOf(u usr.USR) string {
	s := string(u)
	if i := strings.LastIndex(s, "#"); i >= 0 {
		return s[i+1:]
	}
	return ""
}
