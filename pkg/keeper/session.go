package keeper

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-zookeeper/zk"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/testkeeper/testkeeper/pkg/znode"
	"github.com/testkeeper/testkeeper/pkg/zxid"
)

const defaultQueueCapacity = 1

// Session is a single-node, in-process stand-in for a coordination service
// connection. One mutator goroutine owns the entire store; submissions from
// any goroutine are serialized through a bounded queue, so every request
// sees a totally ordered history and consumes exactly one transaction id.
//
// A session starts open and ends expired. Expiration is one-way: once the
// session is closed, or a push times out, or the mutator hits an internal
// fault, every queued request and registered data watch receives a terminal
// notification and every later submission fails with zk.ErrSessionExpired
// (CodeSessionExpired.Err()).
type Session struct {
	rootPrefix       string
	operationTimeout time.Duration

	id  string
	log zerolog.Logger

	queue requestQueue

	// pushMu serializes pushes against the expiration transition so no
	// envelope can slip into the queue after the drain began. expired is
	// written only under pushMu and never cleared.
	pushMu  sync.Mutex
	expired atomic.Bool

	// Mutator-owned state. Nothing below is touched off the mutator
	// goroutine until it has exited.
	container    *znode.Container
	xid          zxid.ZXID
	dataWatches  map[string][]WatchCallback
	childWatches map[string][]WatchCallback

	loopDone chan struct{}
}

// Option adjusts a session at construction.
type Option func(*Session)

// WithLogger attaches a logger. The default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Session) {
		s.log = log
	}
}

// WithQueueCapacity sets the request queue bound. The default of 1 makes a
// slow mutator visible to submitters as back-pressure almost immediately.
func WithQueueCapacity(capacity int) Option {
	return func(s *Session) {
		s.queue = newRequestQueue(capacity)
	}
}

// NewSession starts a session. Every path submitted is rewritten by
// rootPrefix before processing and stripped of it in responses; a trailing
// slash on the prefix is normalized away. operationTimeout bounds both the
// submitters' wait for queue space and the mutator's idle wake-up.
func NewSession(rootPrefix string, operationTimeout time.Duration, opts ...Option) *Session {
	s := &Session{
		rootPrefix:       strings.TrimSuffix(rootPrefix, "/"),
		operationTimeout: operationTimeout,
		id:               uuid.New().String(),
		log:              zerolog.Nop(),
		queue:            newRequestQueue(defaultQueueCapacity),
		container:        znode.NewContainer(),
		dataWatches:      map[string][]WatchCallback{},
		childWatches:     map[string][]WatchCallback{},
		loopDone:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("session", s.id).Logger()
	s.seedRootPrefix()

	go s.run()
	return s
}

// seedRootPrefix materializes the chroot chain so that a prefixed session
// starts with a usable root. A plain "/" session seeds nothing beyond the
// container's own root entry.
func (s *Session) seedRootPrefix() {
	if s.rootPrefix == "" {
		return
	}
	current := ""
	for _, segment := range strings.Split(strings.TrimPrefix(s.rootPrefix, "/"), "/") {
		current += "/" + segment
		if _, ok := s.container.Get(current); ok {
			continue
		}
		s.container.Put(current, znode.NewNode(nil, false, false))
		parent, _ := s.container.Get(znode.ParentPath(current))
		parent.Stat.NumChildren++
	}
}

// ID returns the session's identifier, used in its log context.
func (s *Session) ID() string {
	return s.id
}

// Expired reports whether the session has terminated.
func (s *Session) Expired() bool {
	return s.expired.Load()
}

// Close expires the session. Safe to call more than once; the first call
// drains every registered data watch and queued request with a
// session-expired notification before returning. Registered child watches
// (from List) are discarded without a notification.
func (s *Session) Close() {
	s.finalize()
}

// Create submits a create. The acl parameter is accepted for signature
// compatibility and not enforced. cb receives the final path of the node,
// including the sequential suffix when sequential is set.
func (s *Session) Create(path string, data []byte, ephemeral, sequential bool, _ []zk.ACL, cb CreateCallback) error {
	if err := znode.ValidatePath(path); err != nil {
		return CodeBadArguments
	}
	req := &CreateRequest{Path: path, Data: data, Ephemeral: ephemeral, Sequential: sequential}
	var callback func(Response)
	if cb != nil {
		callback = func(r Response) { cb(r.(*CreateResponse)) }
	}
	return s.pushRequest(requestInfo{req: req, callback: callback})
}

// Remove submits a remove, guarded by version unless it is -1.
func (s *Session) Remove(path string, version int32, cb RemoveCallback) error {
	if err := znode.ValidatePath(path); err != nil {
		return CodeBadArguments
	}
	req := &RemoveRequest{Path: path, Version: version}
	var callback func(Response)
	if cb != nil {
		callback = func(r Response) { cb(r.(*RemoveResponse)) }
	}
	return s.pushRequest(requestInfo{req: req, callback: callback})
}

// Exists submits an existence probe. A non-nil watch is registered on the
// path and fires once on the next successful mutation of it.
func (s *Session) Exists(path string, cb ExistsCallback, watch WatchCallback) error {
	if err := znode.ValidatePath(path); err != nil {
		return CodeBadArguments
	}
	req := &ExistsRequest{Path: path}
	var callback func(Response)
	if cb != nil {
		callback = func(r Response) { cb(r.(*ExistsResponse)) }
	}
	return s.pushRequest(requestInfo{req: req, callback: callback, watch: watch})
}

// Get submits a data read. A non-nil watch behaves as in Exists.
func (s *Session) Get(path string, cb GetCallback, watch WatchCallback) error {
	if err := znode.ValidatePath(path); err != nil {
		return CodeBadArguments
	}
	req := &GetRequest{Path: path}
	var callback func(Response)
	if cb != nil {
		callback = func(r Response) { cb(r.(*GetResponse)) }
	}
	return s.pushRequest(requestInfo{req: req, callback: callback, watch: watch})
}

// Set submits a data write, guarded by version unless it is -1.
func (s *Session) Set(path string, data []byte, version int32, cb SetCallback) error {
	if err := znode.ValidatePath(path); err != nil {
		return CodeBadArguments
	}
	req := &SetRequest{Path: path, Data: data, Version: version}
	var callback func(Response)
	if cb != nil {
		callback = func(r Response) { cb(r.(*SetResponse)) }
	}
	return s.pushRequest(requestInfo{req: req, callback: callback})
}

// List submits a child enumeration. A non-nil watch is registered on the
// path and fires once on the next successful create, remove or set of a
// direct child.
func (s *Session) List(path string, cb ListCallback, watch WatchCallback) error {
	if err := znode.ValidatePath(path); err != nil {
		return CodeBadArguments
	}
	req := &ListRequest{Path: path}
	var callback func(Response)
	if cb != nil {
		callback = func(r Response) { cb(r.(*ListResponse)) }
	}
	return s.pushRequest(requestInfo{req: req, callback: callback, watch: watch})
}

// Check submits a version assertion that mutates nothing. Mostly useful as
// a sub-operation of Multi.
func (s *Session) Check(path string, version int32, cb CheckCallback) error {
	if err := znode.ValidatePath(path); err != nil {
		return CodeBadArguments
	}
	req := &CheckRequest{Path: path, Version: version}
	var callback func(Response)
	if cb != nil {
		callback = func(r Response) { cb(r.(*CheckResponse)) }
	}
	return s.pushRequest(requestInfo{req: req, callback: callback})
}

// Multi submits an atomic batch of create/remove/set/check sub-operations.
// Either every sub-operation commits, at a single shared transaction id, or
// the store is left exactly as it was. Any other sub-operation kind fails
// the whole call with CodeBadArguments before it is enqueued.
func (s *Session) Multi(requests []Request, cb MultiCallback) error {
	for _, req := range requests {
		if err := znode.ValidatePath(req.reqPath()); err != nil {
			return CodeBadArguments
		}
	}
	req, err := newMultiRequest(requests)
	if err != nil {
		return err
	}
	var callback func(Response)
	if cb != nil {
		callback = func(r Response) { cb(r.(*MultiResponse)) }
	}
	return s.pushRequest(requestInfo{req: req, callback: callback})
}

// pushRequest serializes against finalize so that no envelope is forgotten:
// once expired is set, the queue is stable and the drain owns it. Any push
// failure expires the session, matching the contract that submission errors
// are terminal.
func (s *Session) pushRequest(info requestInfo) error {
	info.pushed = time.Now()

	s.pushMu.Lock()
	if s.expired.Load() {
		s.pushMu.Unlock()
		s.finalize()
		return CodeSessionExpired.Err()
	}
	ok := s.queue.tryPush(info, s.operationTimeout)
	s.pushMu.Unlock()

	if !ok {
		s.finalize()
		return CodeOperationTimeout.Err()
	}
	return nil
}

// run is the mutator loop. It is the only goroutine that touches the
// container, the watch registries and the transaction id.
func (s *Session) run() {
	defer close(s.loopDone)
	defer func() {
		if p := recover(); p != nil {
			s.log.Error().Interface("panic", p).Msg("mutator failed, expiring session")
			go s.finalize()
		}
	}()

	s.log.Debug().Msg("mutator started")
	for {
		info, ok := s.queue.tryPop(s.operationTimeout)
		if s.expired.Load() {
			if ok {
				// Hand the envelope back for the drain. New pushes are
				// fenced off by the expired flag, but a pusher that was
				// already waiting may have taken the slot just freed; the
				// envelope is then answered here instead.
				if !s.queue.tryPushNow(info) {
					if info.callback != nil {
						s.invokeCallbackSafely(info.callback, info.req.blankResponse(CodeSessionExpired))
					}
					if info.watch != nil {
						s.invokeWatchSafely(info.watch, expiredWatchResponse())
					}
				}
			}
			s.log.Debug().Msg("mutator stopped")
			return
		}
		if !ok {
			continue
		}
		s.processOne(info)
	}
}

func (s *Session) processOne(info requestInfo) {
	info.req.addRootPrefix(s.rootPrefix)

	// Watches register before the request is evaluated and stay registered
	// even if it fails, keyed by the rewritten path.
	if info.watch != nil {
		key := info.req.reqPath()
		if _, isList := info.req.(*ListRequest); isList {
			s.childWatches[key] = append(s.childWatches[key], info.watch)
		} else {
			s.dataWatches[key] = append(s.dataWatches[key], info.watch)
		}
	}

	s.xid++
	resp := info.req.process(s.container, s.xid)

	if resp.Code() == CodeOk {
		for _, path := range info.req.watchTouches() {
			s.fireWatches(path)
		}
	}

	resp.stripRootPrefix(s.rootPrefix)
	requestsTotal(info.req.op()).Inc()
	s.log.Debug().
		Str("op", info.req.op()).
		Stringer("code", resp.Code()).
		Int64("zxid", int64(s.xid)).
		Dur("queued", time.Since(info.pushed)).
		Msg("processed")

	if info.callback != nil {
		info.callback(resp)
	}
}

// fireWatches delivers and removes the one-shot watches touched by a
// committed mutation of path: data watches on the path itself, child
// watches on its parent. Removal precedes invocation, so re-delivery is
// impossible even if a callback submits new work.
func (s *Session) fireWatches(path string) {
	if callbacks, ok := s.dataWatches[path]; ok {
		delete(s.dataWatches, path)
		resp := &WatchResponse{Path: stripPath(s.rootPrefix, path)}
		for _, cb := range callbacks {
			if cb != nil {
				cb(resp)
			}
		}
		watchesFiredTotal("data").Add(len(callbacks))
	}

	parent := znode.ParentPath(path)
	if callbacks, ok := s.childWatches[parent]; ok {
		delete(s.childWatches, parent)
		resp := &WatchResponse{Path: stripPath(s.rootPrefix, parent)}
		for _, cb := range callbacks {
			if cb != nil {
				cb(resp)
			}
		}
		watchesFiredTotal("child").Add(len(callbacks))
	}
}

func expiredWatchResponse() *WatchResponse {
	return &WatchResponse{
		Type:  zk.EventSession,
		State: zk.StateExpired,
		Err:   CodeSessionExpired,
	}
}

// finalize is the single path out of the session. It flips the expired
// flag under the push mutex, waits for the mutator to exit, then delivers a
// terminal notification to every registered data watch and every envelope
// still in the queue. Reentrant-safe; callback panics during the drain are
// swallowed and logged so the drain always completes.
func (s *Session) finalize() {
	s.pushMu.Lock()
	if s.expired.Load() {
		s.pushMu.Unlock()
		return
	}
	s.expired.Store(true)
	s.pushMu.Unlock()

	<-s.loopDone

	sessionsExpiredTotal.Inc()
	s.log.Info().Msg("session expired, draining")

	for _, callbacks := range s.dataWatches {
		for _, cb := range callbacks {
			if cb != nil {
				s.invokeWatchSafely(cb, expiredWatchResponse())
			}
		}
	}
	s.dataWatches = map[string][]WatchCallback{}

	for {
		info, ok := s.queue.tryPopNow()
		if !ok {
			break
		}
		if info.callback != nil {
			s.invokeCallbackSafely(info.callback, info.req.blankResponse(CodeSessionExpired))
		}
		if info.watch != nil {
			s.invokeWatchSafely(info.watch, expiredWatchResponse())
		}
	}
}

func (s *Session) invokeCallbackSafely(cb func(Response), resp Response) {
	defer func() {
		if p := recover(); p != nil {
			s.log.Error().Interface("panic", p).Msg("completion callback panicked during drain")
		}
	}()
	cb(resp)
}

func (s *Session) invokeWatchSafely(cb WatchCallback, resp *WatchResponse) {
	defer func() {
		if p := recover(); p != nil {
			s.log.Error().Interface("panic", p).Msg("watch callback panicked during drain")
		}
	}()
	cb(resp)
}
