package znode

import (
	"github.com/go-zookeeper/zk"
)

// Node is a single entry in the tree. The stat record uses the wire type
// from the real client library so that consumers written against a live
// ensemble can read emulator responses unchanged.
type Node struct {
	// Data is the data stored here by the client.
	Data []byte

	// Ephemeral nodes may not have children. The flag is otherwise
	// informational; there is no surviving session to tie it to.
	Ephemeral bool
	// Sequential records that the node's name was assigned a counter suffix
	// at create time.
	Sequential bool

	// SeqNum is the counter used to name sequential children of this node.
	SeqNum int32

	Stat zk.Stat
}

// NewNode builds a node with the given payload and flags. Stat fields are
// stamped by the caller, which knows the current transaction id.
func NewNode(data []byte, ephemeral, sequential bool) *Node {
	return &Node{
		Data:       data,
		Ephemeral:  ephemeral,
		Sequential: sequential,
	}
}

// clone copies the node record. Data is shared between the copies: payloads
// are replaced wholesale on writes, never mutated in place.
func (n *Node) clone() *Node {
	c := *n
	return &c
}
