package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattsolo1/grove-itemtree/pkg/itemerr"
	"github.com/mattsolo1/grove-itemtree/pkg/service"
	"github.com/mattsolo1/grove-itemtree/pkg/traverse"
)

const cmdTree = `
properties:
  title: Root
nodes:
  - name: a
    properties:
      x: 1
    nodes:
      - name: a1
  - name: b
`

func fileService(t *testing.T) *service.Service {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tree.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cmdTree), 0644))
	svc, err := service.New(&service.Config{File: path, MaxDepth: traverse.Unbounded, MaxDepthSet: true}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	return svc
}

func run(t *testing.T, cmd *cobra.Command, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return out.String()
}

func TestWalkCmd(t *testing.T) {
	svc := fileService(t)

	out := run(t, NewWalkCmd(&svc), "/a")
	assert.Equal(t, "a\n  @x = 1\n  a1\n", out)

	out = run(t, NewWalkCmd(&svc), "/a/a1", "--events")
	assert.Equal(t, "entering(/a/a1,0)\nleaving(/a/a1,0)\n", out)
}

func TestListCmdJSON(t *testing.T) {
	svc := fileService(t)

	out := run(t, NewListCmd(&svc), "/", "--json")
	var entries []listEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 3)
	assert.Equal(t, listEntry{Path: "/title", Kind: "property", Type: "String", Value: "Root"}, entries[0])
	assert.Equal(t, "/a", entries[1].Path)
	assert.Equal(t, "node", entries[2].Kind)
}

func TestListCmdTable(t *testing.T) {
	svc := fileService(t)

	out := run(t, NewListCmd(&svc), "/a")
	assert.Contains(t, out, "KIND")
	assert.Contains(t, out, "/a/x")
	assert.Contains(t, out, "Long")
	assert.Contains(t, out, "/a/a1")
}

func TestAncestorCmd(t *testing.T) {
	svc := fileService(t)

	assert.Equal(t, "/a\n", run(t, NewAncestorCmd(&svc), "/a/a1", "1"))

	cmd := NewAncestorCmd(&svc)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"/a/a1", "x"})
	assert.Error(t, cmd.Execute())
}

func TestAncestorCmdNegativeDegree(t *testing.T) {
	svc := fileService(t)

	cmd := NewAncestorCmd(&svc)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"/a/a1", "-1"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.True(t, errors.Is(err, itemerr.ErrItemNotFound), "got %v", err)
}

func TestVersionCmdHelp(t *testing.T) {
	cmd := NewVersionCmd()
	assert.Contains(t, cmd.Short, "itree")
	assert.Contains(t, cmd.Long, "itree version --json")
	assert.NotNil(t, cmd.Flags().Lookup("json"))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "abcdefg...", truncateString("abcdefghijklmnop", 10))
}
