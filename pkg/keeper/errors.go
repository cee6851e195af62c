package keeper

import (
	"fmt"

	"github.com/go-zookeeper/zk"
)

// Code is the result code carried in every response. The numeric values
// match the ZooKeeper wire protocol so logs and dumps line up with what a
// real ensemble would report.
type Code int32

const (
	CodeOk                      Code = 0
	CodeOperationTimeout        Code = -7
	CodeBadArguments            Code = -8
	CodeNoNode                  Code = -101
	CodeBadVersion              Code = -103
	CodeNoChildrenForEphemerals Code = -108
	CodeNodeExists              Code = -110
	CodeNotEmpty                Code = -111
	CodeSessionExpired          Code = -112
)

func (c Code) String() string {
	switch c {
	case CodeOk:
		return "ZOK"
	case CodeOperationTimeout:
		return "ZOPERATIONTIMEOUT"
	case CodeBadArguments:
		return "ZBADARGUMENTS"
	case CodeNoNode:
		return "ZNONODE"
	case CodeBadVersion:
		return "ZBADVERSION"
	case CodeNoChildrenForEphemerals:
		return "ZNOCHILDRENFOREPHEMERALS"
	case CodeNodeExists:
		return "ZNODEEXISTS"
	case CodeNotEmpty:
		return "ZNOTEMPTY"
	case CodeSessionExpired:
		return "ZSESSIONEXPIRED"
	default:
		return fmt.Sprintf("Code(%d)", int32(c))
	}
}

// Error makes codes usable as errors on the submission side, where Go
// surfaces failures as return values rather than response fields.
func (c Code) Error() string {
	return c.String()
}

// Err returns nil for CodeOk and otherwise an error for the code. Codes
// that exist in the real client library map to its sentinel errors, so
// callers can errors.Is against zk.ErrNoNode and friends.
func (c Code) Err() error {
	switch c {
	case CodeOk:
		return nil
	case CodeNoNode:
		return zk.ErrNoNode
	case CodeBadVersion:
		return zk.ErrBadVersion
	case CodeNoChildrenForEphemerals:
		return zk.ErrNoChildrenForEphemerals
	case CodeNodeExists:
		return zk.ErrNodeExists
	case CodeNotEmpty:
		return zk.ErrNotEmpty
	case CodeSessionExpired:
		return zk.ErrSessionExpired
	default:
		return c
	}
}
