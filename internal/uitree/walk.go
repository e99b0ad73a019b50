package uitree

import "strings"

// Walk visits n and every descendant in pre-order, including inactive nodes.
// Returning false from fn skips the node's children.
func Walk(n Node, fn func(Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range n.Children() {
		Walk(c, fn)
	}
}

// Hit pairs a node with one of its components.
type Hit[T any] struct {
	Node      Node
	Component T
}

// Collect returns every component implementing T under the given roots, in
// tree order. Inactive subtrees are included.
func Collect[T any](roots ...Node) []Hit[T] {
	var hits []Hit[T]
	for _, root := range roots {
		Walk(root, func(n Node) bool {
			for _, c := range n.Components() {
				if v, ok := c.(T); ok {
					hits = append(hits, Hit[T]{Node: n, Component: v})
				}
			}
			return true
		})
	}
	return hits
}

// ComponentOf returns the first component of n implementing T.
func ComponentOf[T any](n Node) (T, bool) {
	var zero T
	if n == nil {
		return zero, false
	}
	for _, c := range n.Components() {
		if v, ok := c.(T); ok {
			return v, true
		}
	}
	return zero, false
}

// Has reports whether n carries a component implementing T.
func Has[T any](n Node) bool {
	_, ok := ComponentOf[T](n)
	return ok
}

// FirstInSubtree returns the first component implementing T on n or any of its
// descendants, searching in pre-order.
func FirstInSubtree[T any](n Node) (T, bool) {
	var (
		found T
		ok    bool
	)
	Walk(n, func(cur Node) bool {
		if ok {
			return false
		}
		found, ok = ComponentOf[T](cur)
		return !ok
	})
	return found, ok
}

// IsSurface reports whether n is a drawing-surface boundary.
func IsSurface(n Node) bool { return Has[Surface](n) }

// IsInteractive reports whether n is selectable or handles clicks.
func IsInteractive(n Node) bool {
	return Has[Selectable](n) || Has[ClickHandler](n)
}

// EnclosingUnit walks from n towards the root and returns the interactive unit
// that owns n.
//
// The walk stops as soon as it reaches a node for which boundary returns true;
// that node and everything above it are never considered. Among the nodes
// visited, the last one (closest to the boundary) for which capability returns
// true wins. When no visited node qualifies, n itself is the unit.
func EnclosingUnit(n Node, boundary, capability func(Node) bool) Node {
	if n == nil {
		return nil
	}
	unit := n
	for cur := n; cur != nil; cur = cur.Parent() {
		if boundary(cur) {
			break
		}
		if capability(cur) {
			unit = cur
		}
	}
	return unit
}

// Path renders the node's ancestry as "Root/Child/Leaf".
func Path(n Node) string {
	if n == nil {
		return "(nil)"
	}
	var parts []string
	for cur := n; cur != nil; cur = cur.Parent() {
		parts = append(parts, cur.Name())
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "/")
}

// ActiveInHierarchy reports whether n and all of its ancestors are active.
func ActiveInHierarchy(n Node) bool {
	for cur := n; cur != nil; cur = cur.Parent() {
		if !cur.Active() {
			return false
		}
	}
	return n != nil
}
