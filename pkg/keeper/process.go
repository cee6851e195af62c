package keeper

import (
	"time"

	"github.com/testkeeper/testkeeper/pkg/znode"
	"github.com/testkeeper/testkeeper/pkg/zxid"
)

// The process functions below are the mutation engine: one per request
// variant, each applying the request to the container under the current
// transaction id and reporting the outcome as a code in the response.
// They run on the mutator goroutine only.

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// matchVersion implements the conditional checks of remove/set/check. A
// requested version of -1 disables the check.
func matchVersion(requested, actual int32) bool {
	return requested == -1 || requested == actual
}

func (r *CreateRequest) process(c *znode.Container, xid zxid.ZXID) Response {
	resp := &CreateResponse{}

	if _, ok := c.Get(r.Path); ok {
		resp.Err = CodeNodeExists
		return resp
	}

	parentPath := znode.ParentPath(r.Path)
	parent, ok := c.Get(parentPath)
	if !ok {
		resp.Err = CodeNoNode
		return resp
	}
	if parent.Ephemeral {
		resp.Err = CodeNoChildrenForEphemerals
		return resp
	}

	pathCreated := r.Path
	if r.Sequential {
		pathCreated = znode.JoinSeq(r.Path, parent.SeqNum)
		parent.SeqNum++
	}

	node := znode.NewNode(r.Data, r.Ephemeral, r.Sequential)
	now := nowMillis()
	node.Stat.Czxid = int64(xid)
	node.Stat.Mzxid = int64(xid)
	node.Stat.Ctime = now
	node.Stat.Mtime = now
	node.Stat.DataLength = int32(len(r.Data))
	c.Put(pathCreated, node)

	parent.Stat.Cversion++
	parent.Stat.NumChildren++

	resp.PathCreated = pathCreated
	resp.Err = CodeOk
	return resp
}

func (r *RemoveRequest) process(c *znode.Container, _ zxid.ZXID) Response {
	resp := &RemoveResponse{}

	if r.Path == "/" {
		// The root has no parent to account the removal against.
		resp.Err = CodeBadArguments
		return resp
	}

	node, ok := c.Get(r.Path)
	if !ok {
		resp.Err = CodeNoNode
		return resp
	}
	if !matchVersion(r.Version, node.Stat.Version) {
		resp.Err = CodeBadVersion
		return resp
	}
	if node.Stat.NumChildren > 0 {
		resp.Err = CodeNotEmpty
		return resp
	}

	c.Remove(r.Path)
	parent, _ := c.Get(znode.ParentPath(r.Path))
	parent.Stat.NumChildren--
	parent.Stat.Cversion++

	resp.Err = CodeOk
	return resp
}

func (r *ExistsRequest) process(c *znode.Container, _ zxid.ZXID) Response {
	resp := &ExistsResponse{}

	node, ok := c.Get(r.Path)
	if !ok {
		resp.Err = CodeNoNode
		return resp
	}

	resp.Stat = node.Stat
	resp.Err = CodeOk
	return resp
}

func (r *GetRequest) process(c *znode.Container, _ zxid.ZXID) Response {
	resp := &GetResponse{}

	node, ok := c.Get(r.Path)
	if !ok {
		resp.Err = CodeNoNode
		return resp
	}

	resp.Stat = node.Stat
	resp.Data = node.Data
	resp.Err = CodeOk
	return resp
}

func (r *SetRequest) process(c *znode.Container, xid zxid.ZXID) Response {
	resp := &SetResponse{}

	node, ok := c.Get(r.Path)
	if !ok {
		resp.Err = CodeNoNode
		return resp
	}
	if !matchVersion(r.Version, node.Stat.Version) {
		resp.Err = CodeBadVersion
		return resp
	}

	node.Data = r.Data
	node.Stat.Version++
	node.Stat.Mzxid = int64(xid)
	node.Stat.Mtime = nowMillis()
	node.Stat.DataLength = int32(len(r.Data))

	parent, _ := c.Get(znode.ParentPath(r.Path))
	parent.Stat.Cversion++

	resp.Stat = node.Stat
	resp.Err = CodeOk
	return resp
}

func (r *ListRequest) process(c *znode.Container, _ zxid.ZXID) Response {
	resp := &ListResponse{}

	node, ok := c.Get(r.Path)
	if !ok {
		resp.Err = CodeNoNode
		return resp
	}

	resp.Names = c.Children(r.Path)
	resp.Stat = node.Stat
	resp.Err = CodeOk
	return resp
}

func (r *CheckRequest) process(c *znode.Container, _ zxid.ZXID) Response {
	resp := &CheckResponse{}

	node, ok := c.Get(r.Path)
	if !ok {
		resp.Err = CodeNoNode
		return resp
	}
	if !matchVersion(r.Version, node.Stat.Version) {
		resp.Err = CodeBadVersion
		return resp
	}

	resp.Err = CodeOk
	return resp
}
