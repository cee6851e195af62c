package keeper

import (
	"time"
)

// requestInfo is the envelope a submission moves through the queue: the
// request itself, the completion callback, an optional watch, and the
// submission time. An envelope is pushed once and consumed once.
type requestInfo struct {
	req      Request
	callback func(Response)
	watch    WatchCallback
	pushed   time.Time
}

// requestQueue is the bounded, blocking hand-off between submitters and the
// mutator goroutine.
type requestQueue struct {
	ch chan requestInfo
}

func newRequestQueue(capacity int) requestQueue {
	return requestQueue{
		ch: make(chan requestInfo, capacity),
	}
}

// tryPush enqueues the envelope, waiting at most timeout for space. It
// reports whether the envelope was accepted.
func (q requestQueue) tryPush(info requestInfo, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case q.ch <- info:
		return true
	case <-timer.C:
		return false
	}
}

// tryPop dequeues one envelope, waiting at most timeout for work.
func (q requestQueue) tryPop(timeout time.Duration) (requestInfo, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case info := <-q.ch:
		return info, true
	case <-timer.C:
		return requestInfo{}, false
	}
}

// tryPushNow enqueues without waiting. The mutator uses it to hand back an
// envelope popped in the same instant the session expired.
func (q requestQueue) tryPushNow(info requestInfo) bool {
	select {
	case q.ch <- info:
		return true
	default:
		return false
	}
}

// tryPopNow dequeues one envelope without waiting. The expiration drain
// uses it to empty a queue that can no longer grow.
func (q requestQueue) tryPopNow() (requestInfo, bool) {
	select {
	case info := <-q.ch:
		return info, true
	default:
		return requestInfo{}, false
	}
}
