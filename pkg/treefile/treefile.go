// Package treefile reads and writes item trees as YAML documents.
//
// A document describes one node:
//
//	name: a                     # omitted for the root
//	referenceable: true         # optional, assigns a UUID
//	identifier: 5f0c...         # optional, fixed identifier
//	properties:                 # ordered
//	  title: Hello              # String
//	  count: 3                  # Long (from the !!int tag)
//	  target: {type: Path, value: /a/b}
//	nodes:
//	  - name: child
//	  - name: child             # same-name sibling, child[2]
package treefile

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mattsolo1/grove-itemtree/pkg/traverse"
	"github.com/mattsolo1/grove-itemtree/pkg/tree"
)

// Document is the YAML form of a node and its subtree.
type Document struct {
	Name          string      `yaml:"name,omitempty"`
	Referenceable bool        `yaml:"referenceable,omitempty"`
	Identifier    string      `yaml:"identifier,omitempty"`
	Properties    yaml.Node   `yaml:"properties,omitempty"`
	Nodes         []*Document `yaml:"nodes,omitempty"`
}

type typedValue struct {
	Type  string `yaml:"type"`
	Value string `yaml:"value"`
}

var tagTypes = map[string]tree.PropertyType{
	"!!str":       tree.TypeString,
	"!!int":       tree.TypeLong,
	"!!float":     tree.TypeDouble,
	"!!bool":      tree.TypeBoolean,
	"!!timestamp": tree.TypeDate,
}

// LoadFile loads the tree described in path, see Load.
func LoadFile(path string, s *tree.Session) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open tree file: %w", err)
	}
	defer f.Close()
	return Load(f, s)
}

// Load reads one document and adds its properties and nodes under the
// session's root node, then saves the repository.
func Load(r io.Reader, s *tree.Session) error {
	var doc Document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return fmt.Errorf("failed to parse tree file: %w", err)
	}
	if doc.Name != "" {
		return fmt.Errorf("root document must not have a name, got %q", doc.Name)
	}

	root, err := s.Root()
	if err != nil {
		return err
	}
	if err := fill(s, root, &doc); err != nil {
		return err
	}
	s.Repository().Save()
	return nil
}

func fill(s *tree.Session, n tree.Node, doc *Document) error {
	if err := setProperties(s, n, &doc.Properties); err != nil {
		return err
	}
	for _, child := range doc.Nodes {
		if child == nil {
			continue
		}
		var opts []tree.NodeOption
		switch {
		case child.Identifier != "":
			opts = append(opts, tree.WithIdentifier(child.Identifier))
		case child.Referenceable:
			opts = append(opts, tree.Referenceable())
		}
		c, err := s.AddNode(n, child.Name, opts...)
		if err != nil {
			return fmt.Errorf("add node %q under %s: %w", child.Name, n.Path(), err)
		}
		if err := fill(s, c, child); err != nil {
			return err
		}
	}
	return nil
}

func setProperties(s *tree.Session, n tree.Node, props *yaml.Node) error {
	if props.Kind == 0 {
		return nil
	}
	if props.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: properties of %s must be a mapping", props.Line, n.Path())
	}
	for i := 0; i+1 < len(props.Content); i += 2 {
		key, val := props.Content[i], props.Content[i+1]
		typ, value, err := decodeValue(val)
		if err != nil {
			return fmt.Errorf("line %d: property %q: %w", val.Line, key.Value, err)
		}
		if _, err := s.SetProperty(n, key.Value, typ, value); err != nil {
			return fmt.Errorf("set property %q on %s: %w", key.Value, n.Path(), err)
		}
	}
	return nil
}

func decodeValue(val *yaml.Node) (tree.PropertyType, string, error) {
	switch val.Kind {
	case yaml.ScalarNode:
		typ, ok := tagTypes[val.ShortTag()]
		if !ok {
			typ = tree.TypeString
		}
		return typ, val.Value, nil
	case yaml.MappingNode:
		var tv typedValue
		if err := val.Decode(&tv); err != nil {
			return "", "", err
		}
		typ, ok := tree.ParsePropertyType(tv.Type)
		if !ok {
			return "", "", fmt.Errorf("unknown property type %q", tv.Type)
		}
		return typ, tv.Value, nil
	default:
		return "", "", fmt.Errorf("unsupported value")
	}
}

// Dump writes root and its subtree as a YAML document.
func Dump(w io.Writer, root tree.Node) error {
	doc, err := Build(root)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode tree: %w", err)
	}
	return enc.Close()
}

// Build converts root and its subtree into a Document by walking it
// depth-first.
func Build(root tree.Node) (*Document, error) {
	var (
		top   *Document
		stack []*Document
	)
	v := traverse.Funcs{
		OnEntering: func(item tree.Item, depth int) error {
			if !item.IsNode() {
				return addProperty(stack[len(stack)-1], item)
			}
			doc := &Document{}
			if depth > 0 {
				doc.Name = item.Name()
			}
			if n, ok := item.(tree.Node); ok && n.IsReferenceable() && depth > 0 {
				doc.Identifier = n.Identifier()
			}
			if len(stack) == 0 {
				top = doc
			} else {
				parent := stack[len(stack)-1]
				parent.Nodes = append(parent.Nodes, doc)
			}
			stack = append(stack, doc)
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
		return nil, err
	}
	return top, nil
}

func addProperty(doc *Document, item tree.Item) error {
	prop, ok := item.(tree.Property)
	if !ok {
		return fmt.Errorf("%s is not a property", item.Path())
	}
	value, err := prop.Value()
	if err != nil {
		return err
	}
	if doc.Properties.Kind == 0 {
		doc.Properties = yaml.Node{Kind: yaml.MappingNode}
	}
	key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: prop.Name()}
	doc.Properties.Content = append(doc.Properties.Content, key, encodeValue(prop.Type(), value))
	return nil
}

func encodeValue(typ tree.PropertyType, value string) *yaml.Node {
	for tag, t := range tagTypes {
		if t == typ {
			return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
		}
	}
	node := &yaml.Node{}
	// Encoding a plain struct into a node cannot fail.
	_ = node.Encode(typedValue{Type: string(typ), Value: value})
	return node
}
