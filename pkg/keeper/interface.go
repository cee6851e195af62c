package keeper

import (
	"github.com/go-zookeeper/zk"
)

// Keeper is the client-facing surface of the emulator. Hosts program
// against this interface so a test binary can hand out a Session where
// production code would wrap a real coordination client.
//
// All methods are asynchronous: they enqueue the operation and return, and
// the completion callback runs later on the session's mutator goroutine.
// The returned error is non-nil only when the operation could not be
// enqueued at all (malformed path, expired session, full queue).
type Keeper interface {
	// Create makes a node at path holding data. acl is accepted and not
	// enforced. With sequential set, the final path gains a zero-padded
	// counter suffix assigned by the parent.
	Create(path string, data []byte, ephemeral, sequential bool, acl []zk.ACL, cb CreateCallback) error
	// Remove deletes the childless node at path if version matches (-1
	// skips the check).
	Remove(path string, version int32, cb RemoveCallback) error
	// Exists reports the node's stat. watch, if non-nil, fires once on the
	// next successful mutation of path.
	Exists(path string, cb ExistsCallback, watch WatchCallback) error
	// Get reads the node's data and stat. watch behaves as in Exists.
	Get(path string, cb GetCallback, watch WatchCallback) error
	// Set replaces the node's data if version matches (-1 skips the check).
	Set(path string, data []byte, version int32, cb SetCallback) error
	// List names the node's direct children. watch, if non-nil, fires once
	// on the next successful create, remove or set directly under path.
	List(path string, cb ListCallback, watch WatchCallback) error
	// Check asserts the node's version without mutating anything.
	Check(path string, version int32, cb CheckCallback) error
	// Multi applies create/remove/set/check sub-operations atomically.
	Multi(requests []Request, cb MultiCallback) error
	// Close expires the session and delivers terminal notifications to
	// every queued request and registered data watch; registered child
	// watches are dropped without a notification.
	Close()
}

var _ Keeper = (*Session)(nil)
