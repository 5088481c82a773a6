// Package tree defines the item hierarchy of a content repository: nodes
// that own ordered child nodes and properties, and properties that are
// always leaves. It also provides an in-memory repository implementing the
// contracts, used for fixtures, tests and the command line.
package tree

import (
	"iter"
	"strings"
)

// Kind discriminates the two item variants.
type Kind int

const (
	KindNode Kind = iota + 1
	KindProperty
)

func (k Kind) String() string {
	switch k {
	case KindNode:
		return "node"
	case KindProperty:
		return "property"
	default:
		return "unknown"
	}
}

// PropertyType categorizes property values.
type PropertyType string

const (
	TypeString    PropertyType = "String"
	TypeLong      PropertyType = "Long"
	TypeDouble    PropertyType = "Double"
	TypeBoolean   PropertyType = "Boolean"
	TypeDate      PropertyType = "Date"
	TypeBinary    PropertyType = "Binary"
	TypeName      PropertyType = "Name"
	TypePath      PropertyType = "Path"
	TypeReference PropertyType = "Reference"
	TypeUndefined PropertyType = "Undefined"
)

var propertyTypes = []PropertyType{
	TypeString, TypeLong, TypeDouble, TypeBoolean, TypeDate,
	TypeBinary, TypeName, TypePath, TypeReference, TypeUndefined,
}

// ParsePropertyType returns the property type named s, ignoring case.
// Unknown names map to TypeUndefined with ok set to false.
func ParsePropertyType(s string) (PropertyType, bool) {
	for _, t := range propertyTypes {
		if strings.EqualFold(string(t), s) {
			return t, true
		}
	}
	return TypeUndefined, false
}

// Identity is the resolved identity of an item. Two handles denote the same
// item iff their identities match, see IsSame.
type Identity struct {
	Store      string // repository or database the item lives in
	Kind       Kind
	Identifier string // set for referenceable nodes only
	Path       string
}

// Item is the capability set shared by nodes and properties.
type Item interface {
	// Path returns the normalized absolute path.
	Path() string
	// Name returns the last path segment without index; "" for the root.
	Name() string
	// Depth returns 0 for the root and parent depth + 1 otherwise.
	Depth() int
	// Parent returns the owning node. The root has none (ErrItemNotFound).
	Parent() (Node, error)
	// Ancestor returns the ancestor at the given absolute degree.
	Ancestor(degree int) (Item, error)
	// IsNode discriminates nodes from properties.
	IsNode() bool

	IsNew() bool
	IsModified() bool
	IsRemoved() bool

	Identity() Identity
}

// Node is an item owning ordered child nodes and properties.
type Node interface {
	Item

	// Index returns the 1-based same-name-sibling index.
	Index() int
	// Identifier returns the UUID of a referenceable node, otherwise its path.
	Identifier() string
	IsReferenceable() bool

	// Nodes yields the direct child nodes in order, optionally filtered by
	// name patterns (see itempath.MatchName). A failure is yielded as
	// (nil, err) and ends the sequence.
	Nodes(patterns ...string) iter.Seq2[Node, error]
	// Properties yields the direct properties in order, optionally filtered
	// by name patterns.
	Properties(patterns ...string) iter.Seq2[Property, error]

	// Node resolves a descendant node by relative path.
	Node(relPath string) (Node, error)
	// Property resolves a descendant property by relative path.
	Property(relPath string) (Property, error)
}

// Property is a leaf item carrying a typed value.
type Property interface {
	Item

	Type() PropertyType
	// Value returns the textual form of the value.
	Value() (string, error)
}
