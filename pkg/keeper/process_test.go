package keeper

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/testkeeper/testkeeper/pkg/znode"
	"github.com/testkeeper/testkeeper/pkg/zxid"
)

// mustCreate seeds a container through the engine itself so the stat
// bookkeeping under test is also what builds the fixtures.
func mustCreate(t *testing.T, c *znode.Container, xid zxid.ZXID, req *CreateRequest) *CreateResponse {
	t.Helper()
	resp := req.process(c, xid).(*CreateResponse)
	require.Equal(t, CodeOk, resp.Err)
	return resp
}

// checkTreeInvariants verifies the structural rules that must hold after
// every committed operation: parents exist, child counts match, data
// lengths match.
func checkTreeInvariants(t *testing.T, c *znode.Container) {
	t.Helper()

	counts := map[string]int32{}
	c.Walk(func(path string, _ *znode.Node) bool {
		if path != "/" {
			parent := znode.ParentPath(path)
			_, ok := c.Get(parent)
			require.True(t, ok, "parent %q of %q missing", parent, path)
			counts[parent]++
		}
		return true
	})
	c.Walk(func(path string, node *znode.Node) bool {
		assert.Equal(t, counts[path], node.Stat.NumChildren, "numChildren of %q", path)
		assert.Equal(t, int32(len(node.Data)), node.Stat.DataLength, "dataLength of %q", path)
		return true
	})
}

func TestProcess_Create(t *testing.T) {
	const existing = "/existing"

	tests := []struct {
		name            string
		path            string
		parentEphemeral bool
		expectedCode    Code
	}{
		{
			name:         "node already exists",
			path:         existing,
			expectedCode: CodeNodeExists,
		},
		{
			name:         "root already exists",
			path:         "/",
			expectedCode: CodeNodeExists,
		},
		{
			name:         "parent missing",
			path:         "/x/y",
			expectedCode: CodeNoNode,
		},
		{
			name:         "valid create under root",
			path:         "/new",
			expectedCode: CodeOk,
		},
		{
			name:         "valid create under existing node",
			path:         existing + "/new",
			expectedCode: CodeOk,
		},
		{
			name:            "parent is ephemeral",
			path:            existing + "/new",
			parentEphemeral: true,
			expectedCode:    CodeNoChildrenForEphemerals,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := znode.NewContainer()
			mustCreate(t, c, 1, &CreateRequest{Path: existing, Ephemeral: test.parentEphemeral})

			resp := (&CreateRequest{Path: test.path, Data: []byte("data")}).process(c, 2).(*CreateResponse)

			assert.Equal(t, test.expectedCode, resp.Err)
			if test.expectedCode == CodeOk {
				assert.Equal(t, test.path, resp.PathCreated)

				node, ok := c.Get(test.path)
				require.True(t, ok)
				assert.Equal(t, []byte("data"), node.Data)
				assert.Equal(t, int64(2), node.Stat.Czxid)
				assert.Equal(t, int64(2), node.Stat.Mzxid)
				assert.Equal(t, int32(0), node.Stat.Version)
				assert.Equal(t, int32(4), node.Stat.DataLength)
			}
			checkTreeInvariants(t, c)
		})
	}
}

func TestProcess_Create_ParentStat(t *testing.T) {
	c := znode.NewContainer()
	mustCreate(t, c, 1, &CreateRequest{Path: "/parent"})
	mustCreate(t, c, 2, &CreateRequest{Path: "/parent/a"})
	mustCreate(t, c, 3, &CreateRequest{Path: "/parent/b"})

	parent, ok := c.Get("/parent")
	require.True(t, ok)
	assert.Equal(t, int32(2), parent.Stat.NumChildren)
	assert.Equal(t, int32(2), parent.Stat.Cversion)
	// Creating children does not move the parent's own data version.
	assert.Equal(t, int32(0), parent.Stat.Version)
}

func TestProcess_Create_Sequential(t *testing.T) {
	c := znode.NewContainer()
	mustCreate(t, c, 1, &CreateRequest{Path: "/seq"})

	var paths []string
	for i := 0; i < 3; i++ {
		resp := mustCreate(t, c, zxid.ZXID(2+i), &CreateRequest{Path: "/seq/n-", Sequential: true})
		paths = append(paths, resp.PathCreated)
	}

	assert.Equal(t, []string{
		"/seq/n-0000000000",
		"/seq/n-0000000001",
		"/seq/n-0000000002",
	}, paths)

	parent, ok := c.Get("/seq")
	require.True(t, ok)
	assert.Equal(t, int32(3), parent.SeqNum)
	assert.Equal(t, int32(3), parent.Stat.NumChildren)

	// A plain create under the same parent leaves the counter alone.
	mustCreate(t, c, 5, &CreateRequest{Path: "/seq/plain"})
	assert.Equal(t, int32(3), parent.SeqNum)

	checkTreeInvariants(t, c)
}

func TestProcess_Remove(t *testing.T) {
	const target = "/target"

	tests := []struct {
		name         string
		path         string
		version      int32
		withChild    bool
		expectedCode Code
	}{
		{
			name:         "node missing",
			path:         "/missing",
			version:      -1,
			expectedCode: CodeNoNode,
		},
		{
			name:         "version mismatch",
			path:         target,
			version:      7,
			expectedCode: CodeBadVersion,
		},
		{
			name:         "node has children",
			path:         target,
			version:      -1,
			withChild:    true,
			expectedCode: CodeNotEmpty,
		},
		{
			name:         "removing the root",
			path:         "/",
			version:      -1,
			expectedCode: CodeBadArguments,
		},
		{
			name:         "unconditional remove",
			path:         target,
			version:      -1,
			expectedCode: CodeOk,
		},
		{
			name:         "matching version",
			path:         target,
			version:      0,
			expectedCode: CodeOk,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := znode.NewContainer()
			mustCreate(t, c, 1, &CreateRequest{Path: target})
			if test.withChild {
				mustCreate(t, c, 2, &CreateRequest{Path: target + "/child"})
			}

			resp := (&RemoveRequest{Path: test.path, Version: test.version}).process(c, 3).(*RemoveResponse)

			assert.Equal(t, test.expectedCode, resp.Err)
			_, stillThere := c.Get(target)
			assert.Equal(t, test.expectedCode != CodeOk, stillThere)
			if test.expectedCode == CodeOk {
				root, ok := c.Get("/")
				require.True(t, ok)
				assert.Equal(t, int32(0), root.Stat.NumChildren)
				assert.Equal(t, int32(2), root.Stat.Cversion)
			}
			checkTreeInvariants(t, c)
		})
	}
}

func TestProcess_ExistsAndGet(t *testing.T) {
	c := znode.NewContainer()
	mustCreate(t, c, 1, &CreateRequest{Path: "/known", Data: []byte("payload")})

	exists := (&ExistsRequest{Path: "/known"}).process(c, 2).(*ExistsResponse)
	require.Equal(t, CodeOk, exists.Err)
	assert.Equal(t, int64(1), exists.Stat.Czxid)

	missing := (&ExistsRequest{Path: "/unknown"}).process(c, 3).(*ExistsResponse)
	assert.Equal(t, CodeNoNode, missing.Err)

	get := (&GetRequest{Path: "/known"}).process(c, 4).(*GetResponse)
	require.Equal(t, CodeOk, get.Err)
	assert.Equal(t, []byte("payload"), get.Data)
	assert.Equal(t, int32(7), get.Stat.DataLength)

	getMissing := (&GetRequest{Path: "/unknown"}).process(c, 5).(*GetResponse)
	assert.Equal(t, CodeNoNode, getMissing.Err)
}

func TestProcess_Set(t *testing.T) {
	tests := []struct {
		name         string
		path         string
		version      int32
		expectedCode Code
	}{
		{
			name:         "node missing",
			path:         "/missing",
			version:      -1,
			expectedCode: CodeNoNode,
		},
		{
			name:         "version mismatch",
			path:         "/k",
			version:      3,
			expectedCode: CodeBadVersion,
		},
		{
			name:         "unconditional set",
			path:         "/k",
			version:      -1,
			expectedCode: CodeOk,
		},
		{
			name:         "matching version",
			path:         "/k",
			version:      0,
			expectedCode: CodeOk,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := znode.NewContainer()
			mustCreate(t, c, 1, &CreateRequest{Path: "/k", Data: []byte("old")})

			resp := (&SetRequest{Path: test.path, Data: []byte("newer"), Version: test.version}).process(c, 9).(*SetResponse)

			assert.Equal(t, test.expectedCode, resp.Err)
			node, ok := c.Get("/k")
			require.True(t, ok)
			if test.expectedCode == CodeOk {
				assert.Equal(t, []byte("newer"), node.Data)
				assert.Equal(t, int32(1), node.Stat.Version)
				assert.Equal(t, int64(9), node.Stat.Mzxid)
				assert.Equal(t, int32(1), resp.Stat.Version)
				// The creation stamp never moves.
				assert.Equal(t, int64(1), node.Stat.Czxid)
			} else {
				assert.Equal(t, []byte("old"), node.Data)
				assert.Equal(t, int32(0), node.Stat.Version)
			}
			checkTreeInvariants(t, c)
		})
	}
}

func TestProcess_Set_VersionIncrementsByOne(t *testing.T) {
	c := znode.NewContainer()
	mustCreate(t, c, 1, &CreateRequest{Path: "/k"})

	for i := 0; i < 5; i++ {
		resp := (&SetRequest{Path: "/k", Data: []byte(fmt.Sprintf("v%d", i)), Version: int32(i)}).process(c, zxid.ZXID(2+i)).(*SetResponse)
		require.Equal(t, CodeOk, resp.Err)
		assert.Equal(t, int32(i+1), resp.Stat.Version)
	}
}

func TestProcess_List(t *testing.T) {
	c := znode.NewContainer()
	mustCreate(t, c, 1, &CreateRequest{Path: "/dir"})
	mustCreate(t, c, 2, &CreateRequest{Path: "/dir/b"})
	mustCreate(t, c, 3, &CreateRequest{Path: "/dir/a"})
	mustCreate(t, c, 4, &CreateRequest{Path: "/dir/a/nested"})

	resp := (&ListRequest{Path: "/dir"}).process(c, 5).(*ListResponse)
	require.Equal(t, CodeOk, resp.Err)
	assert.Equal(t, []string{"a", "b"}, resp.Names)
	assert.Equal(t, int32(2), resp.Stat.NumChildren)

	missing := (&ListRequest{Path: "/nope"}).process(c, 6).(*ListResponse)
	assert.Equal(t, CodeNoNode, missing.Err)

	root := (&ListRequest{Path: "/"}).process(c, 7).(*ListResponse)
	require.Equal(t, CodeOk, root.Err)
	assert.Equal(t, []string{"dir"}, root.Names)
}

func TestProcess_Check(t *testing.T) {
	tests := []struct {
		name         string
		path         string
		version      int32
		expectedCode Code
	}{
		{
			name:         "node missing",
			path:         "/missing",
			version:      -1,
			expectedCode: CodeNoNode,
		},
		{
			name:         "version mismatch",
			path:         "/k",
			version:      1,
			expectedCode: CodeBadVersion,
		},
		{
			name:         "wildcard version",
			path:         "/k",
			version:      -1,
			expectedCode: CodeOk,
		},
		{
			name:         "matching version",
			path:         "/k",
			version:      0,
			expectedCode: CodeOk,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := znode.NewContainer()
			mustCreate(t, c, 1, &CreateRequest{Path: "/k"})

			resp := (&CheckRequest{Path: test.path, Version: test.version}).process(c, 2).(*CheckResponse)
			assert.Equal(t, test.expectedCode, resp.Err)
		})
	}
}
