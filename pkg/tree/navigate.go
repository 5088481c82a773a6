package tree

import (
	"github.com/pkg/errors"

	"github.com/mattsolo1/grove-itemtree/pkg/itemerr"
)

var errNotNode = errors.New("item is not a node")

// Ancestor returns the ancestor of item at the given absolute degree by
// following parent links. Degree 0 is the root, Depth() is item itself.
// Errors from the parent contract are returned unchanged.
func Ancestor(item Item, degree int) (Item, error) {
	depth := item.Depth()
	if degree < 0 || degree > depth {
		return nil, itemerr.ItemNotFound("no ancestor of degree %d for %s", degree, item.Path())
	}
	cur := item
	for d := depth; d > degree; d-- {
		parent, err := cur.Parent()
		if err != nil {
			return nil, err
		}
		cur = parent
	}
	return cur, nil
}

// Parent is Ancestor(item, Depth()-1). The root has no parent.
func Parent(item Item) (Node, error) {
	if item.Depth() == 0 {
		return nil, itemerr.ItemNotFound("root has no parent")
	}
	return item.Parent()
}

// Root returns the root node of the tree item belongs to.
func Root(item Item) (Node, error) {
	root, err := Ancestor(item, 0)
	if err != nil {
		return nil, err
	}
	n, ok := root.(Node)
	if !ok {
		return nil, itemerr.Repository(errNotNode, root.Path())
	}
	return n, nil
}

// IsSame reports whether a and b denote the same item, regardless of the
// handle, session or pending changes behind them.
func IsSame(a, b Item) bool {
	if a == nil || b == nil {
		return false
	}
	ia, ib := a.Identity(), b.Identity()
	if ia.Store != ib.Store || ia.Kind != ib.Kind {
		return false
	}
	if ia.Identifier != "" && ib.Identifier != "" {
		return ia.Identifier == ib.Identifier
	}
	return ia.Path == ib.Path
}

// CollectNodes drains n.Nodes(patterns...) into a slice.
func CollectNodes(n Node, patterns ...string) ([]Node, error) {
	var out []Node
	for child, err := range n.Nodes(patterns...) {
		if err != nil {
			return nil, err
		}
		out = append(out, child)
	}
	return out, nil
}

// CollectProperties drains n.Properties(patterns...) into a slice.
func CollectProperties(n Node, patterns ...string) ([]Property, error) {
	var out []Property
	for p, err := range n.Properties(patterns...) {
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
