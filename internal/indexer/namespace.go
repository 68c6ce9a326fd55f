package indexer

import "strings"

// namespaceHelper tracks the stack of enclosing namespace/class/struct
// names while walking the AST and joins them into a qualified name,
// grounded on the teacher's fqn.Compute (stack of path segments joined
// with a separator) but using "::" scoping and substituting a
// placeholder for anonymous containers instead of dropping them, since
// anonymous namespaces and unions are semantically distinct scopes.
type namespaceHelper struct {
	stack []string
}

func newNamespaceHelper() *namespaceHelper {
	return &namespaceHelper{}
}

// push enters a container scope. An empty name denotes an anonymous
// namespace, struct, or union.
func (h *namespaceHelper) push(name string, kind string) {
	if name == "" {
		name = "(anonymous " + kind + ")"
	}
	h.stack = append(h.stack, name)
}

func (h *namespaceHelper) pop() {
	if len(h.stack) > 0 {
		h.stack = h.stack[:len(h.stack)-1]
	}
}

// qualify joins the current scope stack with name using "::".
func (h *namespaceHelper) qualify(name string) string {
	if len(h.stack) == 0 {
		return name
	}
	return strings.Join(h.stack, "::") + "::" + name
}

// container returns the immediately enclosing container's qualified
// name, or "" at namespace scope.
func (h *namespaceHelper) container() string {
	return strings.Join(h.stack, "::")
}
