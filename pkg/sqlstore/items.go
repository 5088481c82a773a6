package sqlstore

import (
	"database/sql"
	"iter"

	"github.com/pkg/errors"

	"github.com/mattsolo1/grove-itemtree/pkg/itemerr"
	"github.com/mattsolo1/grove-itemtree/pkg/itempath"
	"github.com/mattsolo1/grove-itemtree/pkg/tree"
)

const columns = "id, parent_id, kind, name, ordinal, identifier, prop_type, value"

// record is one row of the items table.
type record struct {
	id         int64
	parentID   sql.NullInt64
	kind       string
	name       string
	ordinal    int
	identifier string
	propType   string
	value      string
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (record, error) {
	var r record
	err := row.Scan(&r.id, &r.parentID, &r.kind, &r.name, &r.ordinal, &r.identifier, &r.propType, &r.value)
	return r, err
}

func kindColumn(k tree.Kind) string {
	if k == tree.KindNode {
		return kindNode
	}
	return kindProperty
}

func (s *Store) queryOne(where string, args ...any) (record, error) {
	return scanRecord(s.db.QueryRow("SELECT "+columns+" FROM items "+where, args...))
}

// children loads the child rows of parentID in document order. Rows are
// buffered so no result set stays open while callers iterate.
func (s *Store) children(parentID int64, kind tree.Kind) ([]record, error) {
	rows, err := s.db.Query("SELECT "+columns+" FROM items WHERE parent_id = ? AND kind = ? ORDER BY ordinal",
		parentID, kindColumn(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// lookup resolves p segment by segment from the root row.
func (s *Store) lookup(p itempath.Path, kind tree.Kind) (tree.Item, error) {
	root, err := s.Root()
	if err != nil {
		return nil, err
	}
	if p.IsRoot() {
		if kind != tree.KindNode {
			return nil, itemerr.PathNotFound(p.String())
		}
		return root, nil
	}

	cur := root.(*sqlNode)
	segments := p.Segments()
	for i, seg := range segments {
		k := tree.KindNode
		if i == len(segments)-1 {
			k = kind
		}
		if k == tree.KindProperty && seg.Index > 1 {
			return nil, itemerr.PathNotFound(p.String())
		}
		rec, err := s.queryOne("WHERE parent_id = ? AND kind = ? AND name = ? ORDER BY ordinal LIMIT 1 OFFSET ?",
			cur.rec.id, kindColumn(k), seg.Name, seg.Index-1)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, itemerr.PathNotFound(p.String())
		}
		if err != nil {
			return nil, itemerr.Repository(err, "lookup "+p.String())
		}
		path, err := cur.path.Child(seg.Name, seg.Index)
		if err != nil {
			return nil, err
		}
		item := sqlItem{st: s, rec: rec, path: path}
		if k == tree.KindProperty {
			return &sqlProperty{item}, nil
		}
		cur = &sqlNode{item}
	}
	return cur, nil
}

// sqlItem is a handle on one row. The path is fixed when the handle is
// created since stored trees are only replaced wholesale.
type sqlItem struct {
	st   *Store
	rec  record
	path itempath.Path
}

func (i *sqlItem) Path() string { return i.path.String() }

func (i *sqlItem) Name() string { return i.path.Name() }

func (i *sqlItem) Depth() int { return i.path.Depth() }

func (i *sqlItem) IsNode() bool { return i.rec.kind == kindNode }

func (i *sqlItem) IsNew() bool { return false }

func (i *sqlItem) IsModified() bool { return false }

func (i *sqlItem) IsRemoved() bool { return i.live() != nil }

func (i *sqlItem) Identity() tree.Identity {
	kind := tree.KindProperty
	if i.IsNode() {
		kind = tree.KindNode
	}
	return tree.Identity{
		Store:      i.st.name,
		Kind:       kind,
		Identifier: i.rec.identifier,
		Path:       i.path.String(),
	}
}

// live fails with ErrInvalidItemState once the row is gone.
func (i *sqlItem) live() error {
	var n int
	if err := i.st.db.QueryRow("SELECT COUNT(*) FROM items WHERE id = ?", i.rec.id).Scan(&n); err != nil {
		return itemerr.Repository(err, "check "+i.path.String())
	}
	if n == 0 {
		return itemerr.InvalidState(i.path.String())
	}
	return nil
}

func (i *sqlItem) Parent() (tree.Node, error) {
	if !i.rec.parentID.Valid {
		return nil, itemerr.ItemNotFound("root has no parent")
	}
	if err := i.live(); err != nil {
		return nil, err
	}
	rec, err := i.st.queryOne("WHERE id = ?", i.rec.parentID.Int64)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, itemerr.InvalidState(i.path.String())
	}
	if err != nil {
		return nil, itemerr.Repository(err, "load parent of "+i.path.String())
	}
	parent, err := i.path.Parent()
	if err != nil {
		return nil, err
	}
	return &sqlNode{sqlItem{st: i.st, rec: rec, path: parent}}, nil
}

type sqlNode struct{ sqlItem }

func (n *sqlNode) Ancestor(degree int) (tree.Item, error) {
	if err := n.live(); err != nil {
		return nil, err
	}
	return tree.Ancestor(n, degree)
}

func (n *sqlNode) Index() int { return n.path.Index() }

func (n *sqlNode) Identifier() string {
	if n.rec.identifier != "" {
		return n.rec.identifier
	}
	return n.path.String()
}

func (n *sqlNode) IsReferenceable() bool { return n.rec.identifier != "" }

func (n *sqlNode) load(kind tree.Kind) ([]record, error) {
	if err := n.live(); err != nil {
		return nil, err
	}
	recs, err := n.st.children(n.rec.id, kind)
	if err != nil {
		return nil, itemerr.Repository(err, "load children of "+n.path.String())
	}
	return recs, nil
}

func (n *sqlNode) Nodes(patterns ...string) iter.Seq2[tree.Node, error] {
	return func(yield func(tree.Node, error) bool) {
		recs, err := n.load(tree.KindNode)
		if err != nil {
			yield(nil, err)
			return
		}
		seen := make(map[string]int)
		for _, rec := range recs {
			seen[rec.name]++
			if !itempath.MatchAny(patterns, rec.name) {
				continue
			}
			path, err := n.path.Child(rec.name, seen[rec.name])
			if err != nil {
				yield(nil, itemerr.Repository(err, "stored name "+rec.name))
				return
			}
			if !yield(&sqlNode{sqlItem{st: n.st, rec: rec, path: path}}, nil) {
				return
			}
		}
	}
}

func (n *sqlNode) Properties(patterns ...string) iter.Seq2[tree.Property, error] {
	return func(yield func(tree.Property, error) bool) {
		recs, err := n.load(tree.KindProperty)
		if err != nil {
			yield(nil, err)
			return
		}
		for _, rec := range recs {
			if !itempath.MatchAny(patterns, rec.name) {
				continue
			}
			path, err := n.path.Child(rec.name, 1)
			if err != nil {
				yield(nil, itemerr.Repository(err, "stored name "+rec.name))
				return
			}
			if !yield(&sqlProperty{sqlItem{st: n.st, rec: rec, path: path}}, nil) {
				return
			}
		}
	}
}

func (n *sqlNode) Node(relPath string) (tree.Node, error) {
	p, err := n.path.Resolve(relPath)
	if err != nil {
		return nil, err
	}
	item, err := n.st.lookup(p, tree.KindNode)
	if err != nil {
		return nil, err
	}
	return item.(tree.Node), nil
}

func (n *sqlNode) Property(relPath string) (tree.Property, error) {
	p, err := n.path.Resolve(relPath)
	if err != nil {
		return nil, err
	}
	item, err := n.st.lookup(p, tree.KindProperty)
	if err != nil {
		return nil, err
	}
	return item.(tree.Property), nil
}

type sqlProperty struct{ sqlItem }

func (p *sqlProperty) Ancestor(degree int) (tree.Item, error) {
	if err := p.live(); err != nil {
		return nil, err
	}
	return tree.Ancestor(p, degree)
}

func (p *sqlProperty) Type() tree.PropertyType {
	if t, ok := tree.ParsePropertyType(p.rec.propType); ok {
		return t
	}
	return tree.TypeUndefined
}

func (p *sqlProperty) Value() (string, error) {
	if err := p.live(); err != nil {
		return "", err
	}
	return p.rec.value, nil
}
