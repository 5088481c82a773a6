// Package itempath implements the addressing scheme shared by every node and
// property: normalized absolute paths built from qualified names with
// optional 1-based same-name-sibling indices.
package itempath

import (
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/mattsolo1/grove-itemtree/pkg/itemerr"
)

// Separator separates path segments.
const Separator = "/"

// Segment is one step of a path: a name plus its same-name-sibling index.
type Segment struct {
	Name  string
	Index int
}

// String returns the segment in bracket notation. Index 1 is implied and
// therefore omitted.
func (s Segment) String() string {
	if s.Index > 1 {
		return s.Name + "[" + strconv.Itoa(s.Index) + "]"
	}
	return s.Name
}

// Path is a normalized absolute path. The zero value is the root path.
type Path struct {
	segments []Segment
}

// Root is the path of the root node.
var Root = Path{}

// Parse parses and normalizes an absolute path. "." segments are dropped,
// ".." segments are resolved, a trailing separator is ignored and explicit
// "[1]" indices are removed.
func Parse(s string) (Path, error) {
	if s == "" {
		return Path{}, itemerr.Malformed("empty path")
	}
	if !strings.HasPrefix(s, Separator) {
		return Path{}, itemerr.Malformed("%q is not an absolute path", s)
	}

	raw := strings.Split(s[1:], Separator)
	segments := make([]Segment, 0, len(raw))
	for i, r := range raw {
		switch r {
		case "":
			if i == len(raw)-1 {
				continue
			}
			return Path{}, itemerr.Malformed("%q has an empty segment", s)
		case ".":
			continue
		case "..":
			if len(segments) == 0 {
				return Path{}, itemerr.PathNotFound(s)
			}
			segments = segments[:len(segments)-1]
			continue
		}
		seg, err := parseSegment(r)
		if err != nil {
			return Path{}, err
		}
		segments = append(segments, seg)
	}
	return Path{segments: segments}, nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// constant paths.
func MustParse(s string) Path {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

func parseSegment(raw string) (Segment, error) {
	name, index := raw, 1
	if strings.HasSuffix(raw, "]") {
		open := strings.LastIndex(raw, "[")
		if open < 0 {
			return Segment{}, itemerr.Malformed("segment %q has an unbalanced index", raw)
		}
		n, err := strconv.Atoi(raw[open+1 : len(raw)-1])
		if err != nil || n < 1 {
			return Segment{}, itemerr.Malformed("segment %q has an invalid index", raw)
		}
		name, index = raw[:open], n
	}
	name, err := ValidateName(name)
	if err != nil {
		return Segment{}, err
	}
	return Segment{Name: name, Index: index}, nil
}

// ValidateName checks that name is a legal qualified name ("local" or
// "prefix:local") and returns its NFC-normalized form.
func ValidateName(name string) (string, error) {
	n := norm.NFC.String(name)
	if strings.TrimSpace(n) == "" {
		return "", itemerr.Malformed("empty name")
	}
	if n == "." || n == ".." {
		return "", itemerr.Malformed("%q is not a valid name", n)
	}
	if strings.ContainsAny(n, "/[]*|") {
		return "", itemerr.Malformed("name %q contains an illegal character", n)
	}
	if prefix, local, ok := strings.Cut(n, ":"); ok {
		if prefix == "" || local == "" || strings.Contains(local, ":") {
			return "", itemerr.Malformed("name %q is not a valid qualified name", n)
		}
	}
	return n, nil
}

// String returns the path in its normalized textual form.
func (p Path) String() string {
	if len(p.segments) == 0 {
		return Separator
	}
	var sb strings.Builder
	for _, s := range p.segments {
		sb.WriteString(Separator)
		sb.WriteString(s.String())
	}
	return sb.String()
}

// Name returns the last segment's name without index; "" for the root.
func (p Path) Name() string {
	if len(p.segments) == 0 {
		return ""
	}
	return p.segments[len(p.segments)-1].Name
}

// Index returns the last segment's same-name-sibling index; 1 for the root.
func (p Path) Index() int {
	if len(p.segments) == 0 {
		return 1
	}
	return p.segments[len(p.segments)-1].Index
}

// Depth returns the number of segments; 0 for the root.
func (p Path) Depth() int { return len(p.segments) }

// IsRoot reports whether p is the root path.
func (p Path) IsRoot() bool { return len(p.segments) == 0 }

// Segments returns a copy of the path segments.
func (p Path) Segments() []Segment {
	out := make([]Segment, len(p.segments))
	copy(out, p.segments)
	return out
}

// Ancestor returns the ancestor at the given absolute degree. Degree 0 is
// the root and degree Depth() is p itself. Any other degree is
// ErrItemNotFound.
func (p Path) Ancestor(degree int) (Path, error) {
	if degree < 0 || degree > len(p.segments) {
		return Path{}, itemerr.ItemNotFound("no ancestor of degree %d for %s", degree, p)
	}
	return Path{segments: p.segments[:degree:degree]}, nil
}

// Parent returns the parent path. The root has no parent.
func (p Path) Parent() (Path, error) {
	if p.IsRoot() {
		return Path{}, itemerr.ItemNotFound("root has no parent")
	}
	return p.Ancestor(len(p.segments) - 1)
}

// Child returns the path of the child called name with the given
// same-name-sibling index.
func (p Path) Child(name string, index int) (Path, error) {
	name, err := ValidateName(name)
	if err != nil {
		return Path{}, err
	}
	if index < 1 {
		return Path{}, itemerr.Malformed("invalid index %d for %q", index, name)
	}
	segments := make([]Segment, len(p.segments), len(p.segments)+1)
	copy(segments, p.segments)
	return Path{segments: append(segments, Segment{Name: name, Index: index})}, nil
}

// Resolve resolves rel against p. An absolute rel is parsed on its own.
func (p Path) Resolve(rel string) (Path, error) {
	if rel == "" {
		return Path{}, itemerr.Malformed("empty relative path")
	}
	if strings.HasPrefix(rel, Separator) {
		return Parse(rel)
	}
	if p.IsRoot() {
		return Parse(Separator + rel)
	}
	return Parse(p.String() + Separator + rel)
}

// Equal reports whether p and o denote the same location.
func (p Path) Equal(o Path) bool {
	if len(p.segments) != len(o.segments) {
		return false
	}
	for i := range p.segments {
		if p.segments[i] != o.segments[i] {
			return false
		}
	}
	return true
}

// IsAncestorOf reports whether p is a strict ancestor of o.
func (p Path) IsAncestorOf(o Path) bool {
	if len(p.segments) >= len(o.segments) {
		return false
	}
	for i := range p.segments {
		if p.segments[i] != o.segments[i] {
			return false
		}
	}
	return true
}

// IsDescendantOf reports whether p is a strict descendant of o.
func (p Path) IsDescendantOf(o Path) bool { return o.IsAncestorOf(p) }
