package keeper

import (
	"github.com/testkeeper/testkeeper/pkg/znode"
	"github.com/testkeeper/testkeeper/pkg/zxid"
)

// multiRequest is the atomic batch. Only create, remove, set and check are
// admissible sub-operations; newMultiRequest rejects everything else before
// the batch ever reaches the queue.
type multiRequest struct {
	requests []Request
}

// MultiResponse reports one response per attempted sub-operation, in
// submission order. On abort the slice stops at the failing sub-operation
// and Err echoes its code; sub-operations after it were never attempted.
type MultiResponse struct {
	Responses []Response
	Err       Code
}

func (r *MultiResponse) Code() Code { return r.Err }
func (r *MultiResponse) stripRootPrefix(prefix string) {
	for _, sub := range r.Responses {
		sub.stripRootPrefix(prefix)
	}
}

func newMultiRequest(requests []Request) (*multiRequest, error) {
	subs := make([]Request, 0, len(requests))
	for _, req := range requests {
		switch req.(type) {
		case *CreateRequest, *RemoveRequest, *SetRequest, *CheckRequest:
			subs = append(subs, req.clone())
		default:
			return nil, CodeBadArguments
		}
	}
	return &multiRequest{requests: subs}, nil
}

func (r *multiRequest) op() string { return "multi" }

func (r *multiRequest) reqPath() string {
	if len(r.requests) == 0 {
		return "/"
	}
	return r.requests[0].reqPath()
}

func (r *multiRequest) addRootPrefix(prefix string) {
	for _, sub := range r.requests {
		sub.addRootPrefix(prefix)
	}
}

func (r *multiRequest) blankResponse(code Code) Response {
	return &MultiResponse{Err: code}
}

// watchTouches reports the touches of every mutating sub-operation in
// submission order; they fire only after the whole batch commits.
func (r *multiRequest) watchTouches() []string {
	var touches []string
	for _, sub := range r.requests {
		touches = append(touches, sub.watchTouches()...)
	}
	return touches
}

func (r *multiRequest) clone() Request {
	subs := make([]Request, 0, len(r.requests))
	for _, sub := range r.requests {
		subs = append(subs, sub.clone())
	}
	return &multiRequest{requests: subs}
}

// process applies the sub-operations sequentially against the live
// container, all at the same transaction id. The container is snapshotted
// up front; the first non-OK sub-response or any panic restores the
// snapshot, so a failed batch leaves the store exactly as it found it.
func (r *multiRequest) process(c *znode.Container, xid zxid.ZXID) Response {
	resp := &MultiResponse{
		Responses: make([]Response, 0, len(r.requests)),
	}

	snapshot := c.Clone()

	defer func() {
		if p := recover(); p != nil {
			c.Restore(snapshot)
			panic(p)
		}
	}()

	for _, sub := range r.requests {
		subResp := sub.process(c, xid)
		resp.Responses = append(resp.Responses, subResp)
		if code := subResp.Code(); code != CodeOk {
			resp.Err = code
			c.Restore(snapshot)
			return resp
		}
	}

	resp.Err = CodeOk
	return resp
}
