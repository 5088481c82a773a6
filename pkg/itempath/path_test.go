package itempath

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattsolo1/grove-itemtree/pkg/itemerr"
)

func TestParseNormalizes(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/", "/"},
		{"/a", "/a"},
		{"/a/", "/a"},
		{"/a/b[2]/c", "/a/b[2]/c"},
		{"/a/b[1]/c", "/a/b/c"},
		{"/a/./b", "/a/b"},
		{"/a/b/../c", "/a/c"},
		{"/jcr:content/x", "/jcr:content/x"},
		{"/café", "/café"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			p, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.String())
		})
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		in   string
		kind error
	}{
		{"", itemerr.ErrMalformedPath},
		{"a/b", itemerr.ErrMalformedPath},
		{"/a//b", itemerr.ErrMalformedPath},
		{"/a[0]", itemerr.ErrMalformedPath},
		{"/a[x]", itemerr.ErrMalformedPath},
		{"/a]", itemerr.ErrMalformedPath},
		{"/a*b", itemerr.ErrMalformedPath},
		{"/:local", itemerr.ErrMalformedPath},
		{"/a:b:c", itemerr.ErrMalformedPath},
		{"/  ", itemerr.ErrMalformedPath},
		{"/..", itemerr.ErrPathNotFound},
		{"/a/../..", itemerr.ErrPathNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := Parse(tt.in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.kind), "got %v", err)
		})
	}
}

func TestNameIndexDepth(t *testing.T) {
	p := MustParse("/a/b[3]")
	assert.Equal(t, "b", p.Name())
	assert.Equal(t, 3, p.Index())
	assert.Equal(t, 2, p.Depth())
	assert.False(t, p.IsRoot())

	assert.Equal(t, "", Root.Name())
	assert.Equal(t, 1, Root.Index())
	assert.Equal(t, 0, Root.Depth())
	assert.True(t, Root.IsRoot())
	assert.Equal(t, []Segment{{"a", 1}, {"b", 3}}, p.Segments())
}

func TestAncestorBoundaries(t *testing.T) {
	p := MustParse("/a/b/c")

	root, err := p.Ancestor(0)
	require.NoError(t, err)
	assert.True(t, root.IsRoot())

	self, err := p.Ancestor(p.Depth())
	require.NoError(t, err)
	assert.True(t, self.Equal(p))

	mid, err := p.Ancestor(2)
	require.NoError(t, err)
	assert.Equal(t, "/a/b", mid.String())

	_, err = p.Ancestor(p.Depth() + 1)
	assert.True(t, errors.Is(err, itemerr.ErrItemNotFound))

	_, err = p.Ancestor(-1)
	assert.True(t, errors.Is(err, itemerr.ErrItemNotFound))
}

func TestParent(t *testing.T) {
	parent, err := MustParse("/a/b[2]").Parent()
	require.NoError(t, err)
	assert.Equal(t, "/a", parent.String())

	_, err = Root.Parent()
	assert.True(t, errors.Is(err, itemerr.ErrItemNotFound))
}

func TestAncestorDoesNotAlias(t *testing.T) {
	p := MustParse("/a/b/c")
	anc, err := p.Ancestor(1)
	require.NoError(t, err)

	child, err := anc.Child("x", 1)
	require.NoError(t, err)
	assert.Equal(t, "/a/x", child.String())
	assert.Equal(t, "/a/b/c", p.String())
}

func TestChildAndResolve(t *testing.T) {
	c, err := Root.Child("a", 2)
	require.NoError(t, err)
	assert.Equal(t, "/a[2]", c.String())

	_, err = Root.Child("a", 0)
	assert.True(t, errors.Is(err, itemerr.ErrMalformedPath))
	_, err = Root.Child("a/b", 1)
	assert.True(t, errors.Is(err, itemerr.ErrMalformedPath))

	base := MustParse("/a/b")
	tests := []struct {
		rel  string
		want string
	}{
		{"c", "/a/b/c"},
		{"c[2]/d", "/a/b/c[2]/d"},
		{"..", "/a"},
		{"../x", "/a/x"},
		{"/z", "/z"},
	}
	for _, tt := range tests {
		got, err := base.Resolve(tt.rel)
		require.NoError(t, err, tt.rel)
		assert.Equal(t, tt.want, got.String(), tt.rel)
	}

	got, err := Root.Resolve("a")
	require.NoError(t, err)
	assert.Equal(t, "/a", got.String())
}

func TestAncestry(t *testing.T) {
	a := MustParse("/a")
	ab := MustParse("/a/b")
	ab2 := MustParse("/a/b[2]")

	assert.True(t, a.IsAncestorOf(ab))
	assert.True(t, ab.IsDescendantOf(a))
	assert.True(t, Root.IsAncestorOf(a))
	assert.False(t, ab.IsAncestorOf(ab))
	assert.False(t, ab.IsAncestorOf(ab2))
	assert.False(t, ab.Equal(ab2))
	assert.True(t, ab.Equal(MustParse("/a/b[1]")))
}
