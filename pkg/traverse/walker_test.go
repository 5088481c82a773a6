package traverse_test

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattsolo1/grove-itemtree/pkg/itemerr"
	"github.com/mattsolo1/grove-itemtree/pkg/itempath"
	"github.com/mattsolo1/grove-itemtree/pkg/traverse"
	"github.com/mattsolo1/grove-itemtree/pkg/tree"
)

// buildTree creates root -> [A, B], A -> [A1]. With props set, the root
// carries @p and A carries @q.
func buildTree(t *testing.T, props bool) (*tree.Session, tree.Node) {
	t.Helper()

	repo := tree.NewRepository()
	s := repo.Login()
	root, err := s.Root()
	require.NoError(t, err)

	a, err := s.AddNode(root, "A")
	require.NoError(t, err)
	_, err = s.AddNode(a, "A1")
	require.NoError(t, err)
	_, err = s.AddNode(root, "B")
	require.NoError(t, err)

	if props {
		_, err = s.SetProperty(root, "p", tree.TypeLong, "1")
		require.NoError(t, err)
		_, err = s.SetProperty(a, "q", tree.TypeLong, "2")
		require.NoError(t, err)
	}
	repo.Save()
	return s, root
}

func record(t *testing.T, w *traverse.Walker, root tree.Item) []string {
	t.Helper()
	rec := &traverse.Recorder{}
	require.NoError(t, w.Traverse(root, rec))
	return rec.Strings()
}

var (
	depthFirstOrder = []string{
		"entering(/,0)",
		"entering(/A,1)",
		"entering(/A/A1,2)",
		"leaving(/A/A1,2)",
		"leaving(/A,1)",
		"entering(/B,1)",
		"leaving(/B,1)",
		"leaving(/,0)",
	}
	breadthFirstOrder = []string{
		"entering(/,0)", "leaving(/,0)",
		"entering(/A,1)", "leaving(/A,1)",
		"entering(/B,1)", "leaving(/B,1)",
		"entering(/A/A1,2)", "leaving(/A/A1,2)",
	}
)

func TestDepthFirstOrder(t *testing.T) {
	_, root := buildTree(t, false)
	assert.Equal(t, depthFirstOrder, record(t, traverse.New(), root))
}

func TestBreadthFirstOrder(t *testing.T) {
	_, root := buildTree(t, false)
	assert.Equal(t, breadthFirstOrder, record(t, traverse.New(traverse.BreadthFirst()), root))
}

func TestPropertiesPrecedeChildNodes(t *testing.T) {
	_, root := buildTree(t, true)

	assert.Equal(t, []string{
		"entering(/,0)",
		"entering(/p,1)", "leaving(/p,1)",
		"entering(/A,1)",
		"entering(/A/q,2)", "leaving(/A/q,2)",
		"entering(/A/A1,2)", "leaving(/A/A1,2)",
		"leaving(/A,1)",
		"entering(/B,1)", "leaving(/B,1)",
		"leaving(/,0)",
	}, record(t, traverse.New(), root))

	assert.Equal(t, []string{
		"entering(/,0)", "leaving(/,0)",
		"entering(/p,1)", "leaving(/p,1)",
		"entering(/A,1)", "leaving(/A,1)",
		"entering(/B,1)", "leaving(/B,1)",
		"entering(/A/q,2)", "leaving(/A/q,2)",
		"entering(/A/A1,2)", "leaving(/A/A1,2)",
	}, record(t, traverse.New(traverse.BreadthFirst()), root))
}

func TestBreadthFirstLevelsAreContiguous(t *testing.T) {
	s, root := buildTree(t, true)
	a1, err := s.NodeAt("/A/A1")
	require.NoError(t, err)
	_, err = s.AddNode(a1, "deep")
	require.NoError(t, err)
	b, err := s.NodeAt("/B")
	require.NoError(t, err)
	_, err = s.AddNode(b, "B1")
	require.NoError(t, err)

	rec := &traverse.Recorder{}
	require.NoError(t, traverse.New(traverse.BreadthFirst()).Traverse(root, rec))

	last := 0
	for _, e := range rec.Events {
		assert.GreaterOrEqual(t, e.Depth, last, e.String())
		last = e.Depth
		p, err := itempath.Parse(e.Path)
		require.NoError(t, err)
		assert.Equal(t, p.Depth(), e.Depth, e.String())
	}
	assert.Equal(t, 3, last)
}

func TestMaxDepth(t *testing.T) {
	_, root := buildTree(t, true)

	tests := []struct {
		name string
		opts []traverse.Option
		want []string
	}{
		{
			name: "depth-first bound 0 keeps root properties",
			opts: []traverse.Option{traverse.MaxDepth(0)},
			want: []string{
				"entering(/,0)",
				"entering(/p,1)", "leaving(/p,1)",
				"leaving(/,0)",
			},
		},
		{
			name: "breadth-first bound 0 keeps root properties",
			opts: []traverse.Option{traverse.BreadthFirst(), traverse.MaxDepth(0)},
			want: []string{
				"entering(/,0)", "leaving(/,0)",
				"entering(/p,1)", "leaving(/p,1)",
			},
		},
		{
			name: "depth-first bound 1",
			opts: []traverse.Option{traverse.MaxDepth(1)},
			want: []string{
				"entering(/,0)",
				"entering(/p,1)", "leaving(/p,1)",
				"entering(/A,1)",
				"entering(/A/q,2)", "leaving(/A/q,2)",
				"leaving(/A,1)",
				"entering(/B,1)", "leaving(/B,1)",
				"leaving(/,0)",
			},
		},
		{
			name: "breadth-first bound 1",
			opts: []traverse.Option{traverse.BreadthFirst(), traverse.MaxDepth(1)},
			want: []string{
				"entering(/,0)", "leaving(/,0)",
				"entering(/p,1)", "leaving(/p,1)",
				"entering(/A,1)", "leaving(/A,1)",
				"entering(/B,1)", "leaving(/B,1)",
				"entering(/A/q,2)", "leaving(/A/q,2)",
			},
		},
		{
			name: "negative bound is unbounded",
			opts: []traverse.Option{traverse.MaxDepth(-7)},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := record(t, traverse.New(tt.opts...), root)
			if tt.want == nil {
				assert.Len(t, got, 12)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOptionsAndPackageEntryPoints(t *testing.T) {
	_, root := buildTree(t, false)

	assert.Equal(t, traverse.Options{MaxDepth: traverse.Unbounded}, traverse.DefaultOptions())
	assert.Equal(t, traverse.Options{BreadthFirst: true, MaxDepth: 2},
		traverse.New(traverse.BreadthFirst(), traverse.MaxDepth(2)).Options())

	rec := &traverse.Recorder{}
	require.NoError(t, traverse.Accept(root, rec))
	assert.Equal(t, depthFirstOrder, rec.Strings())

	rec = &traverse.Recorder{}
	require.NoError(t, traverse.Traverse(root, rec, traverse.Options{BreadthFirst: true, MaxDepth: -1}))
	assert.Equal(t, breadthFirstOrder, rec.Strings())
}

func TestPropertyRoot(t *testing.T) {
	s, _ := buildTree(t, true)
	p, err := s.PropertyAt("/A/q")
	require.NoError(t, err)

	for _, w := range []*traverse.Walker{traverse.New(), traverse.New(traverse.BreadthFirst())} {
		assert.Equal(t, []string{"entering(/A/q,0)", "leaving(/A/q,0)"}, record(t, w, p))
	}
}

func TestAbortAndReset(t *testing.T) {
	_, root := buildTree(t, false)
	boom := errors.New("boom")

	for _, tc := range []struct {
		name string
		w    *traverse.Walker
		want []string
	}{
		{"depth-first", traverse.New(), depthFirstOrder},
		{"breadth-first", traverse.New(traverse.BreadthFirst()), breadthFirstOrder},
	} {
		t.Run(tc.name, func(t *testing.T) {
			calls := 0
			var seen []string
			v := traverse.Funcs{OnEntering: func(item tree.Item, depth int) error {
				calls++
				seen = append(seen, item.Path())
				if calls == 3 {
					return boom
				}
				return nil
			}}

			err := tc.w.Traverse(root, v)
			require.Error(t, err)
			assert.Same(t, boom, err)
			assert.Len(t, seen, 3)

			// The same walker starts over at depth 0.
			assert.Equal(t, tc.want, record(t, tc.w, root))
		})
	}
}

func TestLeavingErrorAborts(t *testing.T) {
	_, root := buildTree(t, false)
	boom := errors.New("leaving failed")

	entered := 0
	v := traverse.Funcs{
		OnEntering: func(tree.Item, int) error { entered++; return nil },
		OnLeaving: func(item tree.Item, _ int) error {
			if item.Path() == "/A/A1" {
				return boom
			}
			return nil
		},
	}
	err := traverse.Accept(root, v)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, entered)
}

func TestConcurrentRemovalSignalsInvalidState(t *testing.T) {
	s, root := buildTree(t, false)

	v := traverse.Funcs{OnEntering: func(item tree.Item, _ int) error {
		if item.Path() == "/A" {
			b, err := s.NodeAt("/B")
			if err != nil {
				return err
			}
			return s.Remove(b)
		}
		return nil
	}}
	err := traverse.Accept(root, v)
	assert.True(t, errors.Is(err, itemerr.ErrInvalidItemState), "got %v", err)
}

func TestAccessDeniedPropagates(t *testing.T) {
	s, _ := buildTree(t, false)
	denied := s.Repository().Login(tree.WithAccessCheck(func(p itempath.Path) error {
		if p.String() == "/A/A1" {
			return itemerr.AccessDenied(p.String())
		}
		return nil
	}))
	root, err := denied.Root()
	require.NoError(t, err)

	for _, w := range []*traverse.Walker{traverse.New(), traverse.New(traverse.BreadthFirst())} {
		err := w.Traverse(root, &traverse.Recorder{})
		assert.True(t, errors.Is(err, itemerr.ErrAccessDenied))
	}
}

// fakeNode claims to be a node without implementing tree.Node.
type fakeNode struct{}

func (fakeNode) Path() string { return "/fake" }
func (fakeNode) Name() string { return "fake" }
func (fakeNode) Depth() int { return 1 }
func (fakeNode) Parent() (tree.Node, error) { return nil, nil }
func (fakeNode) Ancestor(int) (tree.Item, error) { return nil, nil }
func (fakeNode) IsNode() bool { return true }
func (fakeNode) IsNew() bool { return false }
func (fakeNode) IsModified() bool { return false }
func (fakeNode) IsRemoved() bool { return false }
func (fakeNode) Identity() tree.Identity { return tree.Identity{Path: "/fake"} }

func TestNodeKindWithoutNodeContract(t *testing.T) {
	err := traverse.Accept(fakeNode{}, &traverse.Recorder{})
	assert.True(t, errors.Is(err, itemerr.ErrRepository))
}

func TestWalkerIsReusableAcrossGoroutines(t *testing.T) {
	_, root := buildTree(t, true)
	w := traverse.New(traverse.BreadthFirst())
	want := record(t, w, root)

	var wg sync.WaitGroup
	results := make([][]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := &traverse.Recorder{}
			if err := w.Traverse(root, rec); err == nil {
				results[i] = rec.Strings()
			}
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, want, got)
	}
}

func TestPrinter(t *testing.T) {
	s, root := buildTree(t, true)
	_, err := s.AddNode(root, "B")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, traverse.Accept(root, &traverse.Printer{W: &buf, Values: true}))
	assert.Equal(t, strings.Join([]string{
		"/",
		"  @p = 1",
		"  A",
		"    @q = 2",
		"    A1",
		"  B",
		"  B[2]",
		"",
	}, "\n"), buf.String())

	buf.Reset()
	require.NoError(t, traverse.New(traverse.MaxDepth(1)).Traverse(root, &traverse.Printer{W: &buf, FullPaths: true}))
	assert.Equal(t, "/\n  /p\n  /A\n    /A/q\n  /B\n  /B[2]\n", buf.String())
}

func TestCollect(t *testing.T) {
	_, root := buildTree(t, true)

	nodes, err := traverse.Collect(root, traverse.DefaultOptions(), func(i tree.Item) bool { return i.IsNode() })
	require.NoError(t, err)
	var paths []string
	for _, n := range nodes {
		paths = append(paths, n.Path())
	}
	assert.Equal(t, []string{"/", "/A", "/A/A1", "/B"}, paths)

	all, err := traverse.Collect(root, traverse.Options{BreadthFirst: true, MaxDepth: traverse.Unbounded}, nil)
	require.NoError(t, err)
	assert.Len(t, all, 6)
}
