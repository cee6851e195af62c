package znode

import (
	"strings"

	"github.com/emirpasic/gods/maps/treemap"
)

// Container is the source of truth for all data held by a session: an
// ordered mapping from full path to node record. Path-string ordering means
// all descendants of a node sit in one contiguous key range, so direct
// children fall out of a prefix walk. A fresh container holds exactly the
// root entry.
//
// Container does no locking. A single mutator owns it; everyone else talks
// to that mutator through the request queue.
type Container struct {
	nodes *treemap.Map
}

func NewContainer() *Container {
	c := &Container{
		nodes: treemap.NewWithStringComparator(),
	}
	c.nodes.Put("/", &Node{})
	return c
}

// Get returns the node stored under path, if any.
func (c *Container) Get(path string) (*Node, bool) {
	v, found := c.nodes.Get(path)
	if !found {
		return nil, false
	}
	return v.(*Node), true
}

func (c *Container) Put(path string, node *Node) {
	c.nodes.Put(path, node)
}

func (c *Container) Remove(path string) {
	c.nodes.Remove(path)
}

// Len returns the number of nodes, the root included.
func (c *Container) Len() int {
	return c.nodes.Size()
}

// Children returns the base names of the direct children of path in key
// order. The walk visits every descendant of path and keeps the ones whose
// parent is path itself.
func (c *Container) Children(path string) []string {
	prefix := path
	if prefix != "/" {
		prefix += "/"
	}

	var names []string
	for iter := c.nodes.Iterator(); iter.Next(); {
		key := iter.Key().(string)
		if key == path || !strings.HasPrefix(key, prefix) {
			continue
		}
		if ParentPath(key) == path {
			names = append(names, BaseName(key))
		}
	}
	return names
}

// Clone deep-copies the container. Multi-requests snapshot the container
// this way before applying and restore the snapshot on abort.
func (c *Container) Clone() *Container {
	out := &Container{
		nodes: treemap.NewWithStringComparator(),
	}
	for iter := c.nodes.Iterator(); iter.Next(); {
		out.nodes.Put(iter.Key(), iter.Value().(*Node).clone())
	}
	return out
}

// Restore replaces this container's contents with those of other.
func (c *Container) Restore(other *Container) {
	c.nodes = other.nodes
}

// Walk visits every entry in key order until fn returns false.
func (c *Container) Walk(fn func(path string, node *Node) bool) {
	for iter := c.nodes.Iterator(); iter.Next(); {
		if !fn(iter.Key().(string), iter.Value().(*Node)) {
			return
		}
	}
}
