// Package vizdb implements the backend engine of a progressive big-data
// visualization system. Datasets are trees of partitions over which clients
// execute map and sketch operations through a remote-object protocol; sketch
// results stream back as progressively refined partial results that can be
// rendered long before the computation finishes.
package vizdb

import (
	"sync"

	"github.com/getlantern/golog"
	"github.com/getlantern/uuid"
	"github.com/getlantern/vizdb/metrics"
	"golang.org/x/net/context"
)

var (
	log = golog.LoggerFor("vizdb")
)

// Registry tracks every live remote object by its stable id. It is passed
// by reference to whatever needs it (dispatchers, tests) rather than being
// ambient global state.
type Registry struct {
	mx      sync.RWMutex
	targets map[string]*Target
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{targets: make(map[string]*Target)}
}

// NewTarget registers a new remote object. An empty id assigns a fresh
// opaque one. The caller wires the object's operation table before exposing
// the id to clients.
func (r *Registry) NewTarget(id string) *Target {
	if id == "" {
		id = uuid.New().String()
	}
	t := &Target{id: id, registry: r, handlers: make(map[string]Handler)}
	r.mx.Lock()
	r.targets[id] = t
	r.mx.Unlock()
	metrics.ObjectAdded()
	log.Debugf("Registered object %v", id)
	return t
}

// Lookup resolves an object id, returning nil for unknown or evicted ids.
func (r *Registry) Lookup(id string) *Target {
	r.mx.RLock()
	defer r.mx.RUnlock()
	return r.targets[id]
}

// NumObjects returns the number of live objects.
func (r *Registry) NumObjects() int {
	r.mx.RLock()
	defer r.mx.RUnlock()
	return len(r.targets)
}

// Evict destroys an object: any in-flight subscription is cancelled and the
// id stops resolving. Evicting an unknown id is an error.
func (r *Registry) Evict(id string) error {
	r.mx.Lock()
	t := r.targets[id]
	delete(r.targets, id)
	r.mx.Unlock()
	if t == nil {
		return ErrNoSuchObject
	}
	t.CancelSubscription()
	metrics.ObjectEvicted()
	log.Debugf("Evicted object %v", id)
	return nil
}

// Dispatch resolves the request's object id and executes the named
// operation, streaming reply frames to sess. The terminal frame is always
// sent, including for protocol errors. The returned error reports how the
// stream ended: nil for completion, the dataset/protocol error otherwise.
func (r *Registry) Dispatch(ctx context.Context, req *Request, sess Session) error {
	target := r.Lookup(req.ObjectID)
	if target == nil {
		log.Debugf("Request %v named unknown object %v", req.RequestID, req.ObjectID)
		sess.Send(&Reply{RequestID: req.RequestID, Done: true, Error: ErrNoSuchObject.Error()})
		return ErrNoSuchObject
	}
	return target.execute(ctx, req, sess)
}

// Cancel stops the named object's in-flight subscription, if any. The
// subscription's own stream emits the terminal cancelled frame.
func (r *Registry) Cancel(id string) error {
	target := r.Lookup(id)
	if target == nil {
		return ErrNoSuchObject
	}
	target.CancelSubscription()
	return nil
}
