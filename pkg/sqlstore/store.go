// Package sqlstore keeps an item tree in a sqlite database and serves it
// back through the tree contracts, loading children lazily.
package sqlstore

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mattsolo1/grove-itemtree/pkg/itemerr"
	"github.com/mattsolo1/grove-itemtree/pkg/itempath"
	"github.com/mattsolo1/grove-itemtree/pkg/traverse"
	"github.com/mattsolo1/grove-itemtree/pkg/tree"
)

const (
	kindNode     = "node"
	kindProperty = "property"
)

// Store is a sqlite-backed item tree.
type Store struct {
	db   *sql.DB
	name string
	log  logrus.FieldLogger
}

// Option configures a Store.
type Option func(*Store)

// WithName sets the store name reported in item identities. It defaults to
// the database path.
func WithName(name string) Option {
	return func(s *Store) { s.name = name }
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Store) { s.log = log }
}

// Open opens or creates the database at path.
func Open(path string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db, name: path}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		s.log = discard
	}

	if err := s.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize store: %w", err)
	}
	return s, nil
}

// init creates the schema and the root row.
func (s *Store) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		parent_id INTEGER REFERENCES items(id),
		kind TEXT NOT NULL,
		name TEXT NOT NULL,
		ordinal INTEGER NOT NULL,
		identifier TEXT NOT NULL DEFAULT '',
		prop_type TEXT NOT NULL DEFAULT '',
		value TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_items_parent ON items(parent_id, kind, ordinal);
	CREATE INDEX IF NOT EXISTS idx_items_identifier ON items(identifier);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM items WHERE parent_id IS NULL").Scan(&count); err != nil {
		return err
	}
	if count == 0 {
		_, err := s.db.Exec("INSERT INTO items (parent_id, kind, name, ordinal) VALUES (NULL, ?, '', 0)", kindNode)
		return err
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Import replaces the stored tree with root and its subtree. The tree is
// walked depth-first in a single transaction, so a failed import leaves the
// previous content in place. root must not come from this store.
func (s *Store) Import(root tree.Node) error {
	if root.Identity().Store == s.name {
		return errors.Errorf("cannot import %s into the store it was read from", root.Path())
	}

	tx, err := s.db.Begin()
	if err != nil {
		return itemerr.Repository(err, "begin import")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.Exec("DELETE FROM items"); err != nil {
		return itemerr.Repository(err, "clear items")
	}

	type frame struct {
		id   int64
		next int
	}
	var (
		stack []*frame
		count int
	)
	insert := func(kind, name, identifier, ptype, value string) (int64, error) {
		var parent sql.NullInt64
		ordinal := 0
		if len(stack) > 0 {
			top := stack[len(stack)-1]
			parent = sql.NullInt64{Int64: top.id, Valid: true}
			ordinal = top.next
			top.next++
		}
		res, err := tx.Exec(`
			INSERT INTO items (parent_id, kind, name, ordinal, identifier, prop_type, value)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, parent, kind, name, ordinal, identifier, ptype, value)
		if err != nil {
			return 0, itemerr.Repository(err, "insert "+name)
		}
		count++
		return res.LastInsertId()
	}

	v := traverse.Funcs{
		OnEntering: func(item tree.Item, depth int) error {
			if !item.IsNode() {
				prop, ok := item.(tree.Property)
				if !ok {
					return fmt.Errorf("%s is not a property", item.Path())
				}
				value, err := prop.Value()
				if err != nil {
					return err
				}
				_, err = insert(kindProperty, prop.Name(), "", string(prop.Type()), value)
				return err
			}
			name, identifier := item.Name(), ""
			if depth == 0 {
				name = ""
			}
			if n, ok := item.(tree.Node); ok && n.IsReferenceable() {
				identifier = n.Identifier()
			}
			id, err := insert(kindNode, name, identifier, "", "")
			if err != nil {
				return err
			}
			stack = append(stack, &frame{id: id})
			return nil
		},
		OnLeaving: func(item tree.Item, _ int) error {
			if item.IsNode() {
				stack = stack[:len(stack)-1]
			}
			return nil
		},
	}
	if err := traverse.Accept(root, v); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return itemerr.Repository(err, "commit import")
	}
	s.log.WithFields(logrus.Fields{"root": root.Path(), "items": count}).Info("tree imported")
	return nil
}

// Root returns the root node.
func (s *Store) Root() (tree.Node, error) {
	rec, err := s.queryOne("WHERE parent_id IS NULL")
	if err != nil {
		return nil, itemerr.Repository(err, "load root")
	}
	return &sqlNode{sqlItem{st: s, rec: rec, path: itempath.Root}}, nil
}

// Lookup returns the node or property at absPath, preferring nodes.
func (s *Store) Lookup(absPath string) (tree.Item, error) {
	p, err := itempath.Parse(absPath)
	if err != nil {
		return nil, err
	}
	n, err := s.lookup(p, tree.KindNode)
	if err == nil {
		return n, nil
	}
	if !errors.Is(err, itemerr.ErrPathNotFound) {
		return nil, err
	}
	return s.lookup(p, tree.KindProperty)
}
