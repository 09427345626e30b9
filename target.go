package vizdb

import (
	"encoding/json"
	"sync"

	"github.com/getlantern/mtime"
	"github.com/getlantern/vizdb/dataset"
	"github.com/getlantern/vizdb/metrics"
	"golang.org/x/net/context"
)

// Handler executes one operation on a remote object, emitting any number of
// data frames before returning. The returned error classifies the terminal
// state: nil for completion, dataset.ErrStopped and expired contexts
// (Canceled/DeadlineExceeded) for cancellation, anything else for failure.
type Handler func(ctx context.Context, args json.RawMessage, emit Emit) error

// Emit sends one data frame to the requesting client.
type Emit func(data interface{}) error

// Target is a live remote object: a stable id plus an explicit table mapping
// operation names to handlers, built at construction time. At most one
// subscription (in-flight cancellable computation) exists per target at any
// time; the subscribe/cancel/complete transitions are serialized by a mutex
// so a late cancellation cannot race a just-completed subscription.
type Target struct {
	id       string
	registry *Registry
	handlers map[string]Handler

	mx        sync.Mutex
	cancelSub context.CancelFunc
	cancelled bool
}

// ID returns the object's stable identifier.
func (t *Target) ID() string {
	return t.id
}

// Registry returns the registry this target lives in.
func (t *Target) Registry() *Registry {
	return t.registry
}

// RegisterHandler adds an operation to the target's dispatch table. Call
// only during construction, before the id is exposed to clients.
func (t *Target) RegisterHandler(operation string, h Handler) {
	t.handlers[operation] = h
}

// CancelSubscription cancels the in-flight subscription, if any. It is safe
// to call at any time; cancelling an idle target is a no-op.
func (t *Target) CancelSubscription() {
	t.mx.Lock()
	defer t.mx.Unlock()
	if t.cancelSub == nil {
		return
	}
	log.Debugf("Cancelling subscription on %v", t.id)
	t.cancelled = true
	t.cancelSub()
}

func (t *Target) subscribe(ctx context.Context) (context.Context, error) {
	t.mx.Lock()
	defer t.mx.Unlock()
	if t.cancelSub != nil {
		return nil, ErrBusy
	}
	subCtx, cancel := context.WithCancel(ctx)
	t.cancelSub = cancel
	t.cancelled = false
	return subCtx, nil
}

// complete transitions the target back to accepting requests and reports
// whether the subscription was cancelled while in flight.
func (t *Target) complete() bool {
	t.mx.Lock()
	defer t.mx.Unlock()
	if t.cancelSub != nil {
		t.cancelSub()
		t.cancelSub = nil
	}
	wasCancelled := t.cancelled
	t.cancelled = false
	return wasCancelled
}

func (t *Target) execute(ctx context.Context, req *Request, sess Session) error {
	handler := t.handlers[req.Operation]
	if handler == nil {
		log.Debugf("Request %v named unknown operation '%v' on %v", req.RequestID, req.Operation, t.id)
		sess.Send(&Reply{RequestID: req.RequestID, Done: true, Error: ErrUnknownOperation.Error()})
		return ErrUnknownOperation
	}

	subCtx, err := t.subscribe(ctx)
	if err != nil {
		log.Debugf("Rejecting request %v on busy object %v", req.RequestID, t.id)
		sess.Send(&Reply{RequestID: req.RequestID, Done: true, Error: err.Error()})
		return err
	}
	metrics.SubscriptionStarted()
	elapsed := mtime.Stopwatch()

	emit := func(data interface{}) error {
		encoded, merr := json.Marshal(data)
		if merr != nil {
			return merr
		}
		serr := sess.Send(&Reply{RequestID: req.RequestID, Data: encoded})
		if serr == nil {
			metrics.PartialResultForwarded()
		}
		return serr
	}

	err = handler(subCtx, req.Args, emit)
	wasCancelled := t.complete()

	terminal := &Reply{RequestID: req.RequestID, Done: true}
	switch {
	case err == nil:
		metrics.SubscriptionCompleted()
	case wasCancelled || err == dataset.ErrStopped || err == context.Canceled || err == context.DeadlineExceeded:
		terminal.Cancelled = true
		metrics.SubscriptionCancelled()
		log.Debugf("Cancelled '%v' on %v after %v", req.Operation, t.id, elapsed())
	default:
		terminal.Error = err.Error()
		metrics.SubscriptionFailed()
		log.Errorf("Failed '%v' on %v after %v: %v", req.Operation, t.id, elapsed(), err)
	}
	sess.Send(terminal)
	log.Debugf("Executed '%v' on %v in %v", req.Operation, t.id, elapsed())
	return err
}
