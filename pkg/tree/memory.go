package tree

import (
	"io"
	"iter"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mattsolo1/grove-itemtree/pkg/itemerr"
	"github.com/mattsolo1/grove-itemtree/pkg/itempath"
)

type state uint8

const (
	stateNew state = 1 << iota
	stateModified
	stateRemoved
)

// entry is the shared record behind every handle.
type entry struct {
	kind       Kind
	name       string
	parent     *entry
	nodes      []*entry
	props      []*entry
	identifier string
	ptype      PropertyType
	value      string
	state      state
	// detached is the same-name-sibling index at removal, 0 while attached.
	detached int
}

func (e *entry) index() int {
	if e.parent == nil || e.kind != KindNode {
		return 1
	}
	if e.detached > 0 {
		return e.detached
	}
	idx := 1
	for _, sib := range e.parent.nodes {
		if sib == e {
			break
		}
		if sib.name == e.name {
			idx++
		}
	}
	return idx
}

func (e *entry) depth() int {
	d := 0
	for p := e.parent; p != nil; p = p.parent {
		d++
	}
	return d
}

func (e *entry) path() itempath.Path {
	if e.parent == nil {
		return itempath.Root
	}
	parent := e.parent.path()
	// Names are validated on insert, so Child cannot fail here.
	p, _ := parent.Child(e.name, e.index())
	return p
}

func (e *entry) markModified() {
	if e.state&stateNew == 0 {
		e.state |= stateModified
	}
}

func (e *entry) markRemoved() {
	e.state |= stateRemoved
	for _, p := range e.props {
		p.markRemoved()
	}
	for _, n := range e.nodes {
		n.markRemoved()
	}
}

// Repository is an in-memory item tree shared by any number of sessions.
// It is safe for concurrent use.
type Repository struct {
	mu   sync.RWMutex
	name string
	root *entry
	log  logrus.FieldLogger
}

// RepositoryOption configures a Repository.
type RepositoryOption func(*Repository)

// WithName sets the store name reported in item identities.
func WithName(name string) RepositoryOption {
	return func(r *Repository) { r.name = name }
}

// WithLogger sets the logger used for mutation diagnostics.
func WithLogger(log logrus.FieldLogger) RepositoryOption {
	return func(r *Repository) { r.log = log }
}

// NewRepository creates an empty repository holding only the root node.
func NewRepository(opts ...RepositoryOption) *Repository {
	r := &Repository{
		name: "default",
		root: &entry{kind: KindNode, identifier: uuid.NewString()},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		r.log = discard
	}
	return r
}

// Name returns the store name.
func (r *Repository) Name() string { return r.name }

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithAccessCheck installs a read check. Any error it returns, typically
// wrapping itemerr.ErrAccessDenied, is returned to the caller unchanged.
func WithAccessCheck(check func(itempath.Path) error) SessionOption {
	return func(s *Session) { s.check = check }
}

// Login opens a session on the repository.
func (r *Repository) Login(opts ...SessionOption) *Session {
	s := &Session{repo: r}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save persists all pending changes: new and modified flags are cleared.
func (r *Repository) Save() {
	r.mu.Lock()
	defer r.mu.Unlock()

	var reset func(e *entry)
	reset = func(e *entry) {
		e.state &^= stateNew | stateModified
		for _, p := range e.props {
			reset(p)
		}
		for _, n := range e.nodes {
			reset(n)
		}
	}
	reset(r.root)
	r.log.Debug("repository saved")
}

// Session is a view on a Repository. Every lookup returns a fresh handle.
type Session struct {
	repo  *Repository
	check func(itempath.Path) error
}

// Repository returns the repository the session belongs to.
func (s *Session) Repository() *Repository { return s.repo }

func (s *Session) allowed(p itempath.Path) error {
	if s.check == nil {
		return nil
	}
	return s.check(p)
}

func (s *Session) handle(e *entry) Item {
	if e.kind == KindNode {
		return &memNode{memItem{s: s, e: e}}
	}
	return &memProperty{memItem{s: s, e: e}}
}

// Root returns the root node.
func (s *Session) Root() (Node, error) {
	if err := s.allowed(itempath.Root); err != nil {
		return nil, err
	}
	return &memNode{memItem{s: s, e: s.repo.root}}, nil
}

// Item returns the node or property at absPath, preferring nodes.
func (s *Session) Item(absPath string) (Item, error) {
	p, err := itempath.Parse(absPath)
	if err != nil {
		return nil, err
	}
	s.repo.mu.RLock()
	e := s.repo.lookup(p, KindNode)
	if e == nil {
		e = s.repo.lookup(p, KindProperty)
	}
	s.repo.mu.RUnlock()
	if e == nil {
		return nil, itemerr.PathNotFound(p.String())
	}
	if err := s.allowed(p); err != nil {
		return nil, err
	}
	return s.handle(e), nil
}

// NodeAt returns the node at absPath.
func (s *Session) NodeAt(absPath string) (Node, error) {
	p, err := itempath.Parse(absPath)
	if err != nil {
		return nil, err
	}
	return s.nodeAt(p)
}

func (s *Session) nodeAt(p itempath.Path) (Node, error) {
	s.repo.mu.RLock()
	e := s.repo.lookup(p, KindNode)
	s.repo.mu.RUnlock()
	if e == nil {
		return nil, itemerr.PathNotFound(p.String())
	}
	if err := s.allowed(p); err != nil {
		return nil, err
	}
	return &memNode{memItem{s: s, e: e}}, nil
}

// PropertyAt returns the property at absPath.
func (s *Session) PropertyAt(absPath string) (Property, error) {
	p, err := itempath.Parse(absPath)
	if err != nil {
		return nil, err
	}
	return s.propertyAt(p)
}

func (s *Session) propertyAt(p itempath.Path) (Property, error) {
	s.repo.mu.RLock()
	e := s.repo.lookup(p, KindProperty)
	s.repo.mu.RUnlock()
	if e == nil {
		return nil, itemerr.PathNotFound(p.String())
	}
	if err := s.allowed(p); err != nil {
		return nil, err
	}
	return &memProperty{memItem{s: s, e: e}}, nil
}

// ItemExists reports whether absPath resolves to a readable item.
func (s *Session) ItemExists(absPath string) bool {
	_, err := s.Item(absPath)
	return err == nil
}

func (r *Repository) pathOf(e *entry) (itempath.Path, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p := e.path()
	if e.state&stateRemoved != 0 {
		return p, itemerr.InvalidState(p.String())
	}
	return p, nil
}

// lookup resolves p to an entry of the given kind. Callers hold r.mu.
func (r *Repository) lookup(p itempath.Path, kind Kind) *entry {
	segments := p.Segments()
	if len(segments) == 0 {
		if kind == KindNode {
			return r.root
		}
		return nil
	}
	cur := r.root
	for _, seg := range segments[:len(segments)-1] {
		cur = childNode(cur, seg)
		if cur == nil {
			return nil
		}
	}
	last := segments[len(segments)-1]
	if kind == KindNode {
		return childNode(cur, last)
	}
	if last.Index != 1 {
		return nil
	}
	for _, prop := range cur.props {
		if prop.name == last.Name {
			return prop
		}
	}
	return nil
}

func childNode(parent *entry, seg itempath.Segment) *entry {
	idx := 0
	for _, n := range parent.nodes {
		if n.name != seg.Name {
			continue
		}
		idx++
		if idx == seg.Index {
			return n
		}
	}
	return nil
}

// NodeOption configures a node created by AddNode.
type NodeOption func(*entry)

// Referenceable gives the new node a UUID identifier.
func Referenceable() NodeOption {
	return func(e *entry) { e.identifier = uuid.NewString() }
}

// WithIdentifier gives the new node a fixed identifier, e.g. when loading a
// previously exported tree.
func WithIdentifier(id string) NodeOption {
	return func(e *entry) { e.identifier = id }
}

func (s *Session) own(n Node) (*entry, error) {
	mn, ok := n.(*memNode)
	if !ok || mn.s.repo != s.repo {
		return nil, errors.Errorf("node %s does not belong to repository %q", n.Path(), s.repo.name)
	}
	return mn.e, nil
}

// AddNode appends a child node called name to parent. Children sharing a
// name become same-name siblings indexed in creation order.
func (s *Session) AddNode(parent Node, name string, opts ...NodeOption) (Node, error) {
	pe, err := s.own(parent)
	if err != nil {
		return nil, err
	}
	name, err = itempath.ValidateName(name)
	if err != nil {
		return nil, err
	}

	s.repo.mu.Lock()
	defer s.repo.mu.Unlock()
	if pe.state&stateRemoved != 0 {
		return nil, itemerr.InvalidState(pe.path().String())
	}
	e := &entry{kind: KindNode, name: name, parent: pe, state: stateNew}
	for _, opt := range opts {
		opt(e)
	}
	pe.nodes = append(pe.nodes, e)
	pe.markModified()
	return &memNode{memItem{s: s, e: e}}, nil
}

// SetProperty sets or creates the property called name on node.
func (s *Session) SetProperty(node Node, name string, typ PropertyType, value string) (Property, error) {
	ne, err := s.own(node)
	if err != nil {
		return nil, err
	}
	name, err = itempath.ValidateName(name)
	if err != nil {
		return nil, err
	}

	s.repo.mu.Lock()
	defer s.repo.mu.Unlock()
	if ne.state&stateRemoved != 0 {
		return nil, itemerr.InvalidState(ne.path().String())
	}
	for _, prop := range ne.props {
		if prop.name == name {
			prop.ptype, prop.value = typ, value
			prop.markModified()
			return &memProperty{memItem{s: s, e: prop}}, nil
		}
	}
	e := &entry{kind: KindProperty, name: name, parent: ne, ptype: typ, value: value, state: stateNew}
	ne.props = append(ne.props, e)
	ne.markModified()
	return &memProperty{memItem{s: s, e: e}}, nil
}

// Remove detaches item and invalidates its whole subtree. Later siblings
// sharing its name shift down one index.
func (s *Session) Remove(item Item) error {
	var (
		e    *entry
		repo *Repository
	)
	switch it := item.(type) {
	case *memNode:
		e, repo = it.e, it.s.repo
	case *memProperty:
		e, repo = it.e, it.s.repo
	}
	if e == nil || repo != s.repo {
		return errors.Errorf("item %s does not belong to repository %q", item.Path(), s.repo.name)
	}

	s.repo.mu.Lock()
	defer s.repo.mu.Unlock()
	if e.state&stateRemoved != 0 {
		return itemerr.InvalidState(e.path().String())
	}
	if e.parent == nil {
		return errors.New("the root node cannot be removed")
	}
	path := e.path()
	parent := e.parent
	if e.kind == KindNode {
		e.detached = path.Index()
		parent.nodes = without(parent.nodes, e)
	} else {
		parent.props = without(parent.props, e)
	}
	e.markRemoved()
	parent.markModified()
	s.repo.log.WithField("path", path.String()).Debug("item removed")
	return nil
}

func without(list []*entry, e *entry) []*entry {
	out := list[:0:0]
	for _, x := range list {
		if x != e {
			out = append(out, x)
		}
	}
	return out
}

// memItem is the handle shared by nodes and properties.
type memItem struct {
	s *Session
	e *entry
}

func (i *memItem) Path() string {
	i.s.repo.mu.RLock()
	defer i.s.repo.mu.RUnlock()
	return i.e.path().String()
}

func (i *memItem) Name() string { return i.e.name }

func (i *memItem) Depth() int {
	i.s.repo.mu.RLock()
	defer i.s.repo.mu.RUnlock()
	return i.e.depth()
}

func (i *memItem) IsNode() bool { return i.e.kind == KindNode }

func (i *memItem) IsNew() bool { return i.flag(stateNew) }

func (i *memItem) IsModified() bool { return i.flag(stateModified) }

func (i *memItem) IsRemoved() bool { return i.flag(stateRemoved) }

func (i *memItem) flag(f state) bool {
	i.s.repo.mu.RLock()
	defer i.s.repo.mu.RUnlock()
	return i.e.state&f != 0
}

func (i *memItem) Identity() Identity {
	i.s.repo.mu.RLock()
	defer i.s.repo.mu.RUnlock()
	return Identity{
		Store:      i.s.repo.name,
		Kind:       i.e.kind,
		Identifier: i.e.identifier,
		Path:       i.e.path().String(),
	}
}

// live returns the current path, or ErrInvalidItemState once removed.
func (i *memItem) live() (itempath.Path, error) { return i.s.repo.pathOf(i.e) }

func (i *memItem) Parent() (Node, error) {
	p, err := i.live()
	if err != nil {
		return nil, err
	}
	if i.e.parent == nil {
		return nil, itemerr.ItemNotFound("root has no parent")
	}
	parent, _ := p.Parent()
	if err := i.s.allowed(parent); err != nil {
		return nil, err
	}
	return &memNode{memItem{s: i.s, e: i.e.parent}}, nil
}

type memNode struct{ memItem }

func (n *memNode) Ancestor(degree int) (Item, error) {
	if _, err := n.live(); err != nil {
		return nil, err
	}
	return Ancestor(n, degree)
}

func (n *memNode) Index() int {
	n.s.repo.mu.RLock()
	defer n.s.repo.mu.RUnlock()
	return n.e.index()
}

func (n *memNode) Identifier() string {
	if n.e.identifier != "" {
		return n.e.identifier
	}
	return n.Path()
}

func (n *memNode) IsReferenceable() bool { return n.e.identifier != "" }

// snapshot copies the child list so iteration never holds the lock while
// yielding to callers.
func (n *memNode) snapshot(kind Kind) ([]*entry, error) {
	n.s.repo.mu.RLock()
	defer n.s.repo.mu.RUnlock()
	if n.e.state&stateRemoved != 0 {
		return nil, itemerr.InvalidState(n.e.path().String())
	}
	src := n.e.nodes
	if kind == KindProperty {
		src = n.e.props
	}
	out := make([]*entry, len(src))
	copy(out, src)
	return out, nil
}

func (n *memNode) children(kind Kind, patterns []string) iter.Seq2[Item, error] {
	return func(yield func(Item, error) bool) {
		entries, err := n.snapshot(kind)
		if err != nil {
			yield(nil, err)
			return
		}
		for _, e := range entries {
			if !itempath.MatchAny(patterns, e.name) {
				continue
			}
			p, err := n.s.repo.pathOf(e)
			if err == nil {
				err = n.s.allowed(p)
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(n.s.handle(e), nil) {
				return
			}
		}
	}
}

func (n *memNode) Nodes(patterns ...string) iter.Seq2[Node, error] {
	return func(yield func(Node, error) bool) {
		for item, err := range n.children(KindNode, patterns) {
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(item.(Node), nil) {
				return
			}
		}
	}
}

func (n *memNode) Properties(patterns ...string) iter.Seq2[Property, error] {
	return func(yield func(Property, error) bool) {
		for item, err := range n.children(KindProperty, patterns) {
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(item.(Property), nil) {
				return
			}
		}
	}
}

func (n *memNode) Node(relPath string) (Node, error) {
	base, err := n.live()
	if err != nil {
		return nil, err
	}
	p, err := base.Resolve(relPath)
	if err != nil {
		return nil, err
	}
	return n.s.nodeAt(p)
}

func (n *memNode) Property(relPath string) (Property, error) {
	base, err := n.live()
	if err != nil {
		return nil, err
	}
	p, err := base.Resolve(relPath)
	if err != nil {
		return nil, err
	}
	return n.s.propertyAt(p)
}

type memProperty struct{ memItem }

func (p *memProperty) Ancestor(degree int) (Item, error) {
	if _, err := p.live(); err != nil {
		return nil, err
	}
	return Ancestor(p, degree)
}

func (p *memProperty) Type() PropertyType {
	p.s.repo.mu.RLock()
	defer p.s.repo.mu.RUnlock()
	return p.e.ptype
}

func (p *memProperty) Value() (string, error) {
	if _, err := p.live(); err != nil {
		return "", err
	}
	p.s.repo.mu.RLock()
	defer p.s.repo.mu.RUnlock()
	return p.e.value, nil
}
