package znode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContainer_SeededWithRoot(t *testing.T) {
	c := NewContainer()

	assert.Equal(t, 1, c.Len())
	root, ok := c.Get("/")
	require.True(t, ok)
	assert.False(t, root.Ephemeral)
}

func TestContainer_PutGetRemove(t *testing.T) {
	c := NewContainer()

	c.Put("/a", NewNode([]byte("x"), false, false))

	node, ok := c.Get("/a")
	require.True(t, ok)
	assert.Equal(t, []byte("x"), node.Data)
	assert.Equal(t, 2, c.Len())

	c.Remove("/a")
	_, ok = c.Get("/a")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())
}

func TestContainer_Children(t *testing.T) {
	tests := []struct {
		name             string
		paths            []string
		query            string
		expectedChildren []string
	}{
		{
			name:             "empty root",
			paths:            nil,
			query:            "/",
			expectedChildren: nil,
		},
		{
			name:             "children of root",
			paths:            []string{"/b", "/a", "/a/nested"},
			query:            "/",
			expectedChildren: []string{"a", "b"},
		},
		{
			name:             "direct children only",
			paths:            []string{"/a", "/a/x", "/a/y", "/a/x/deep", "/ab"},
			query:            "/a",
			expectedChildren: []string{"x", "y"},
		},
		{
			name:             "sibling prefix does not leak",
			paths:            []string{"/a", "/ab", "/ab/c"},
			query:            "/a",
			expectedChildren: nil,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := NewContainer()
			for _, path := range test.paths {
				c.Put(path, NewNode(nil, false, false))
			}
			assert.Equal(t, test.expectedChildren, c.Children(test.query))
		})
	}
}

func TestContainer_CloneIsIndependent(t *testing.T) {
	c := NewContainer()
	c.Put("/a", NewNode([]byte("before"), false, false))

	snapshot := c.Clone()

	// Mutate the original: replace data, bump a stat, add a node.
	node, ok := c.Get("/a")
	require.True(t, ok)
	node.Data = []byte("after")
	node.Stat.Version++
	c.Put("/b", NewNode(nil, false, false))

	snapNode, ok := snapshot.Get("/a")
	require.True(t, ok)
	assert.Equal(t, []byte("before"), snapNode.Data)
	assert.Equal(t, int32(0), snapNode.Stat.Version)
	_, ok = snapshot.Get("/b")
	assert.False(t, ok)
}

func TestContainer_Restore(t *testing.T) {
	c := NewContainer()
	c.Put("/a", NewNode(nil, false, false))
	snapshot := c.Clone()

	c.Put("/b", NewNode(nil, false, false))
	c.Remove("/a")

	c.Restore(snapshot)

	_, ok := c.Get("/a")
	assert.True(t, ok)
	_, ok = c.Get("/b")
	assert.False(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestContainer_WalkOrdered(t *testing.T) {
	c := NewContainer()
	for _, path := range []string{"/c", "/a", "/b"} {
		c.Put(path, NewNode(nil, false, false))
	}

	var visited []string
	c.Walk(func(path string, _ *Node) bool {
		visited = append(visited, path)
		return true
	})
	assert.Equal(t, []string{"/", "/a", "/b", "/c"}, visited)
}
