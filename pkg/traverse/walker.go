// Package traverse walks an item tree with a visitor, depth-first (the
// default) or breadth-first, optionally bounded to a maximum depth.
//
// Depth-first walking calls Leaving for a node after its whole subtree has
// been visited. Breadth-first walking calls Entering and Leaving for a node
// back to back, before any of its children is visited. Visitors that rely on
// Leaving must therefore know which mode they run in.
package traverse

import (
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mattsolo1/grove-itemtree/pkg/itemerr"
	"github.com/mattsolo1/grove-itemtree/pkg/tree"
)

// Unbounded disables the depth bound.
const Unbounded = -1

var errNotNode = errors.New("item reports node kind but does not implement tree.Node")

// Visitor receives traversal callbacks. Returning an error from either
// method aborts the whole traversal and the error is returned unchanged.
type Visitor interface {
	Entering(item tree.Item, depth int) error
	Leaving(item tree.Item, depth int) error
}

// Funcs adapts plain functions to a Visitor. Nil functions are skipped.
type Funcs struct {
	OnEntering func(item tree.Item, depth int) error
	OnLeaving  func(item tree.Item, depth int) error
}

func (f Funcs) Entering(item tree.Item, depth int) error {
	if f.OnEntering == nil {
		return nil
	}
	return f.OnEntering(item, depth)
}

func (f Funcs) Leaving(item tree.Item, depth int) error {
	if f.OnLeaving == nil {
		return nil
	}
	return f.OnLeaving(item, depth)
}

// Options selects the traversal mode. Start from DefaultOptions: the zero
// value has MaxDepth 0, which visits the root and its properties only.
type Options struct {
	// BreadthFirst selects breadth-first over depth-first walking.
	BreadthFirst bool
	// MaxDepth bounds descent into child nodes: Unbounded (-1) walks
	// everything, 0 visits only the root and its direct properties, N > 0
	// descends N levels below the root.
	MaxDepth int
}

// DefaultOptions returns depth-first, unbounded options.
func DefaultOptions() Options {
	return Options{MaxDepth: Unbounded}
}

// Option configures a Walker.
type Option func(*Walker)

// BreadthFirst selects breadth-first walking.
func BreadthFirst() Option {
	return func(w *Walker) { w.opts.BreadthFirst = true }
}

// MaxDepth bounds the walk. Negative values mean Unbounded.
func MaxDepth(n int) Option {
	return func(w *Walker) {
		if n < 0 {
			n = Unbounded
		}
		w.opts.MaxDepth = n
	}
}

// WithLogger sets the logger used for traversal diagnostics.
func WithLogger(log logrus.FieldLogger) Option {
	return func(w *Walker) { w.log = log }
}

// Walker walks item trees. It holds configuration only; every Traverse call
// keeps its own depth counter and level queues, so a Walker may be reused
// and shared between goroutines.
type Walker struct {
	opts Options
	log  logrus.FieldLogger
}

// New returns a depth-first, unbounded Walker adjusted by opts.
func New(opts ...Option) *Walker {
	return NewWithOptions(DefaultOptions(), opts...)
}

// NewWithOptions returns a Walker starting from o, adjusted by opts.
func NewWithOptions(o Options, opts ...Option) *Walker {
	if o.MaxDepth < 0 {
		o.MaxDepth = Unbounded
	}
	w := &Walker{opts: o}
	for _, opt := range opts {
		opt(w)
	}
	if w.log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		w.log = discard
	}
	return w
}

// Options returns the walker configuration.
func (w *Walker) Options() Options { return w.opts }

// Traverse visits root and, if it is a node, its subtree.
func (w *Walker) Traverse(root tree.Item, v Visitor) error {
	log := w.log.WithFields(logrus.Fields{
		"root":          root.Path(),
		"breadth_first": w.opts.BreadthFirst,
		"max_depth":     w.opts.MaxDepth,
	})
	log.Debug("traversal started")

	state := &walk{Options: w.opts, v: v}
	if err := state.accept(root); err != nil {
		log.WithError(err).Debug("traversal aborted")
		return err
	}
	log.Debug("traversal finished")
	return nil
}

// Traverse walks root with the given options.
func Traverse(root tree.Item, v Visitor, o Options) error {
	return NewWithOptions(o).Traverse(root, v)
}

// Accept walks item depth-first without a depth bound.
func Accept(item tree.Item, v Visitor) error {
	return New().Traverse(item, v)
}

// walk is the state of one traversal.
type walk struct {
	Options
	v     Visitor
	depth int

	// Level queues, breadth-first only. current holds the items at depth,
	// next collects the items one level below until current is drained.
	current []tree.Item
	next    []tree.Item
}

// accept dispatches on the item kind.
func (w *walk) accept(item tree.Item) error {
	if !item.IsNode() {
		return w.visitProperty(item)
	}
	n, ok := item.(tree.Node)
	if !ok {
		return w.abort(itemerr.Repository(errNotNode, item.Path()))
	}
	if w.BreadthFirst {
		return w.breadthFirst(n)
	}
	return w.depthFirst(n)
}

// abort resets the traversal state and hands err back unchanged.
func (w *walk) abort(err error) error {
	w.depth = 0
	w.current, w.next = nil, nil
	return err
}

// descend reports whether the child nodes of a node at the current depth
// are visited. Properties of a visited node are always visited.
func (w *walk) descend() bool {
	return w.MaxDepth == Unbounded || w.depth < w.MaxDepth
}

func (w *walk) visitProperty(p tree.Item) error {
	if err := w.v.Entering(p, w.depth); err != nil {
		return w.abort(err)
	}
	if err := w.v.Leaving(p, w.depth); err != nil {
		return w.abort(err)
	}
	return nil
}

func (w *walk) depthFirst(n tree.Node) error {
	if err := w.v.Entering(n, w.depth); err != nil {
		return w.abort(err)
	}
	descend := w.descend()
	w.depth++
	for p, err := range n.Properties() {
		if err != nil {
			return w.abort(err)
		}
		if err := w.accept(p); err != nil {
			return err
		}
	}
	if descend {
		for child, err := range n.Nodes() {
			if err != nil {
				return w.abort(err)
			}
			if err := w.accept(child); err != nil {
				return err
			}
		}
	}
	w.depth--
	if err := w.v.Leaving(n, w.depth); err != nil {
		return w.abort(err)
	}
	return nil
}

func (w *walk) breadthFirst(n tree.Node) error {
	if err := w.v.Entering(n, w.depth); err != nil {
		return w.abort(err)
	}
	if err := w.v.Leaving(n, w.depth); err != nil {
		return w.abort(err)
	}
	for p, err := range n.Properties() {
		if err != nil {
			return w.abort(err)
		}
		w.next = append(w.next, p)
	}
	if w.descend() {
		for child, err := range n.Nodes() {
			if err != nil {
				return w.abort(err)
			}
			w.next = append(w.next, child)
		}
	}
	for len(w.current) > 0 || len(w.next) > 0 {
		if len(w.current) == 0 {
			w.depth++
			w.current, w.next = w.next, nil
		}
		item := w.current[0]
		w.current[0] = nil
		w.current = w.current[1:]
		if err := w.accept(item); err != nil {
			return err
		}
	}
	w.depth = 0
	return nil
}
