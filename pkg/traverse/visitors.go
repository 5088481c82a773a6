package traverse

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mattsolo1/grove-itemtree/pkg/tree"
)

// EventKind tells which callback produced an Event.
type EventKind int

const (
	EventEntering EventKind = iota
	EventLeaving
)

func (k EventKind) String() string {
	if k == EventLeaving {
		return "leaving"
	}
	return "entering"
}

// Event is one recorded callback.
type Event struct {
	Kind   EventKind
	Path   string
	Depth  int
	IsNode bool
}

func (e Event) String() string {
	return fmt.Sprintf("%s(%s,%d)", e.Kind, e.Path, e.Depth)
}

// Recorder is a Visitor that records every callback in order.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Entering(item tree.Item, depth int) error {
	r.Events = append(r.Events, Event{Kind: EventEntering, Path: item.Path(), Depth: depth, IsNode: item.IsNode()})
	return nil
}

func (r *Recorder) Leaving(item tree.Item, depth int) error {
	r.Events = append(r.Events, Event{Kind: EventLeaving, Path: item.Path(), Depth: depth, IsNode: item.IsNode()})
	return nil
}

// Strings returns the recorded events in their String form.
func (r *Recorder) Strings() []string {
	out := make([]string, len(r.Events))
	for i, e := range r.Events {
		out[i] = e.String()
	}
	return out
}

// Printer is a Visitor writing one indented line per item on Entering.
type Printer struct {
	W io.Writer
	// Values prints property values next to their names.
	Values bool
	// FullPaths prints absolute paths instead of names.
	FullPaths bool
}

func (p *Printer) Entering(item tree.Item, depth int) error {
	label, err := p.label(item)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(p.W, "%s%s\n", strings.Repeat("  ", depth), label)
	return err
}

func (p *Printer) Leaving(tree.Item, int) error { return nil }

func (p *Printer) label(item tree.Item) (string, error) {
	var name string
	switch {
	case p.FullPaths:
		name = item.Path()
	case item.Depth() == 0:
		name = "/"
	default:
		name = item.Name()
		if n, ok := item.(tree.Node); ok && item.IsNode() && n.Index() > 1 {
			name += "[" + strconv.Itoa(n.Index()) + "]"
		}
	}
	if item.IsNode() {
		return name, nil
	}
	if !p.FullPaths {
		name = "@" + name
	}
	prop, ok := item.(tree.Property)
	if !p.Values || !ok {
		return name, nil
	}
	value, err := prop.Value()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s = %s", name, value), nil
}

// Collect walks root with o and returns, in visiting order, every item
// for which match returns true. A nil match collects everything.
func Collect(root tree.Item, o Options, match func(tree.Item) bool) ([]tree.Item, error) {
	var out []tree.Item
	v := Funcs{OnEntering: func(item tree.Item, _ int) error {
		if match == nil || match(item) {
			out = append(out, item)
		}
		return nil
	}}
	if err := Traverse(root, v, o); err != nil {
		return nil, err
	}
	return out, nil
}
