package keeper

import (
	"strings"

	"github.com/go-zookeeper/zk"

	"github.com/testkeeper/testkeeper/pkg/znode"
	"github.com/testkeeper/testkeeper/pkg/zxid"
)

// Request is the closed family of operations a session accepts. Concrete
// request types are plain structs so callers can build the sub-operations
// of a Multi directly; everything behavioral stays inside the package.
type Request interface {
	// op names the operation for logs and metrics.
	op() string
	// reqPath is the target path, after any root-prefix rewrite.
	reqPath() string
	// addRootPrefix rewrites the request's path(s) in place.
	addRootPrefix(prefix string)
	// process applies the request to the container at the given
	// transaction id and returns the typed response.
	process(c *znode.Container, xid zxid.ZXID) Response
	// blankResponse builds an empty response of the matching variant
	// carrying only a result code. Used to answer drained requests.
	blankResponse(code Code) Response
	// watchTouches lists the paths whose watches fire if this request
	// commits. Empty for reads and version checks.
	watchTouches() []string
	// clone copies the request struct so the root-prefix rewrite of queued
	// work never touches the caller's request. Data payloads are shared
	// with the caller, not copied.
	clone() Request
}

// Response is the closed family of operation results. Callers switch on the
// concrete type to recover the fields of a Multi sub-response.
type Response interface {
	// Code reports the result code of the operation.
	Code() Code
	// stripRootPrefix removes the session root prefix from any path carried
	// by the response.
	stripRootPrefix(prefix string)
}

// Completion callbacks, one per operation. They run on the mutator
// goroutine and must not block.
type (
	CreateCallback func(*CreateResponse)
	RemoveCallback func(*RemoveResponse)
	ExistsCallback func(*ExistsResponse)
	GetCallback    func(*GetResponse)
	SetCallback    func(*SetResponse)
	ListCallback   func(*ListResponse)
	CheckCallback  func(*CheckResponse)
	MultiCallback  func(*MultiResponse)

	// WatchCallback receives one-shot notifications. It also runs on the
	// mutator goroutine and must not block.
	WatchCallback func(*WatchResponse)
)

// WatchResponse is delivered to a watch callback. After a successful
// mutation Type and State are left at their zero values and Path names the
// mutated node (data watch) or its parent (child watch). On session
// expiration Type is zk.EventSession, State is zk.StateExpired and Err is
// CodeSessionExpired.
type WatchResponse struct {
	Type  zk.EventType
	State zk.State
	Path  string
	Err   Code
}

func prefixPath(prefix, path string) string {
	if prefix == "" {
		return path
	}
	if path == "/" {
		return prefix
	}
	return prefix + path
}

func stripPath(prefix, path string) string {
	if prefix == "" || !strings.HasPrefix(path, prefix) {
		return path
	}
	out := path[len(prefix):]
	if out == "" {
		return "/"
	}
	return out
}

type CreateRequest struct {
	Path       string
	Data       []byte
	Ephemeral  bool
	Sequential bool
}

type CreateResponse struct {
	// PathCreated is the final path of the new node, including any
	// sequential suffix.
	PathCreated string
	Err         Code
}

func (r *CreateRequest) op() string { return "create" }
func (r *CreateRequest) reqPath() string { return r.Path }
func (r *CreateRequest) addRootPrefix(prefix string) { r.Path = prefixPath(prefix, r.Path) }
func (r *CreateRequest) blankResponse(code Code) Response {
	return &CreateResponse{Err: code}
}
func (r *CreateRequest) watchTouches() []string { return []string{r.Path} }
func (r *CreateRequest) clone() Request {
	c := *r
	return &c
}

func (r *CreateResponse) Code() Code { return r.Err }
func (r *CreateResponse) stripRootPrefix(prefix string) {
	r.PathCreated = stripPath(prefix, r.PathCreated)
}

type RemoveRequest struct {
	Path string
	// Version must match the node's data version unless -1.
	Version int32
}

type RemoveResponse struct {
	Err Code
}

func (r *RemoveRequest) op() string { return "remove" }
func (r *RemoveRequest) reqPath() string { return r.Path }
func (r *RemoveRequest) addRootPrefix(prefix string) { r.Path = prefixPath(prefix, r.Path) }
func (r *RemoveRequest) blankResponse(code Code) Response {
	return &RemoveResponse{Err: code}
}
func (r *RemoveRequest) watchTouches() []string { return []string{r.Path} }
func (r *RemoveRequest) clone() Request {
	c := *r
	return &c
}

func (r *RemoveResponse) Code() Code { return r.Err }
func (r *RemoveResponse) stripRootPrefix(string) {}

type ExistsRequest struct {
	Path string
}

type ExistsResponse struct {
	Stat zk.Stat
	Err  Code
}

func (r *ExistsRequest) op() string { return "exists" }
func (r *ExistsRequest) reqPath() string { return r.Path }
func (r *ExistsRequest) addRootPrefix(prefix string) { r.Path = prefixPath(prefix, r.Path) }
func (r *ExistsRequest) blankResponse(code Code) Response {
	return &ExistsResponse{Err: code}
}
func (r *ExistsRequest) watchTouches() []string { return nil }
func (r *ExistsRequest) clone() Request {
	c := *r
	return &c
}

func (r *ExistsResponse) Code() Code { return r.Err }
func (r *ExistsResponse) stripRootPrefix(string) {}

type GetRequest struct {
	Path string
}

type GetResponse struct {
	Stat zk.Stat
	Data []byte
	Err  Code
}

func (r *GetRequest) op() string { return "get" }
func (r *GetRequest) reqPath() string { return r.Path }
func (r *GetRequest) addRootPrefix(prefix string) { r.Path = prefixPath(prefix, r.Path) }
func (r *GetRequest) blankResponse(code Code) Response {
	return &GetResponse{Err: code}
}
func (r *GetRequest) watchTouches() []string { return nil }
func (r *GetRequest) clone() Request {
	c := *r
	return &c
}

func (r *GetResponse) Code() Code { return r.Err }
func (r *GetResponse) stripRootPrefix(string) {}

type SetRequest struct {
	Path string
	Data []byte
	// Version must match the node's data version unless -1.
	Version int32
}

type SetResponse struct {
	Stat zk.Stat
	Err  Code
}

func (r *SetRequest) op() string { return "set" }
func (r *SetRequest) reqPath() string { return r.Path }
func (r *SetRequest) addRootPrefix(prefix string) { r.Path = prefixPath(prefix, r.Path) }
func (r *SetRequest) blankResponse(code Code) Response {
	return &SetResponse{Err: code}
}
func (r *SetRequest) watchTouches() []string { return []string{r.Path} }
func (r *SetRequest) clone() Request {
	c := *r
	return &c
}

func (r *SetResponse) Code() Code { return r.Err }
func (r *SetResponse) stripRootPrefix(string) {}

type ListRequest struct {
	Path string
}

type ListResponse struct {
	// Names holds the base names of the direct children, in path order.
	Names []string
	Stat  zk.Stat
	Err   Code
}

func (r *ListRequest) op() string { return "list" }
func (r *ListRequest) reqPath() string { return r.Path }
func (r *ListRequest) addRootPrefix(prefix string) { r.Path = prefixPath(prefix, r.Path) }
func (r *ListRequest) blankResponse(code Code) Response {
	return &ListResponse{Err: code}
}
func (r *ListRequest) watchTouches() []string { return nil }
func (r *ListRequest) clone() Request {
	c := *r
	return &c
}

func (r *ListResponse) Code() Code { return r.Err }
func (r *ListResponse) stripRootPrefix(string) {}

type CheckRequest struct {
	Path string
	// Version must match the node's data version unless -1.
	Version int32
}

type CheckResponse struct {
	Err Code
}

func (r *CheckRequest) op() string { return "check" }
func (r *CheckRequest) reqPath() string { return r.Path }
func (r *CheckRequest) addRootPrefix(prefix string) { r.Path = prefixPath(prefix, r.Path) }
func (r *CheckRequest) blankResponse(code Code) Response {
	return &CheckResponse{Err: code}
}
func (r *CheckRequest) watchTouches() []string { return nil }
func (r *CheckRequest) clone() Request {
	c := *r
	return &c
}

func (r *CheckResponse) Code() Code { return r.Err }
func (r *CheckResponse) stripRootPrefix(string) {}
