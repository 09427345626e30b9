package dataset

import (
	"time"

	"github.com/getlantern/errors"
	"golang.org/x/net/context"
)

const (
	// DefaultMaxPendingJobs caps how many computations may be queued on one
	// leaf's worker before submissions start blocking.
	DefaultMaxPendingJobs = 16

	// DefaultQueueWait bounds how long a submission blocks on a full worker
	// queue before failing.
	DefaultQueueWait = 1 * time.Minute
)

// LocalOpts configures a Local dataset.
type LocalOpts struct {
	// OnWorker runs computations on background goroutines that push results
	// asynchronously instead of computing on the caller's goroutine. This
	// changes scheduling only, never the sequence of emitted values.
	OnWorker bool

	// MaxPendingJobs caps concurrent computations when OnWorker is set.
	// Defaults to DefaultMaxPendingJobs.
	MaxPendingJobs int

	// QueueWait bounds how long to wait for a free worker slot before
	// failing the computation. Defaults to DefaultQueueWait.
	QueueWait time.Duration

	// BundleInterval is the chunk size for sketch computations. When the
	// partition data implements Sliceable and BundleInterval > 0, the sketch
	// runs over successive slices of that many rows, emitting one partial
	// result per slice. Zero disables chunking: the sketch emits exactly one
	// partial result with Done = 1.
	BundleInterval int
}

// Local is a leaf dataset owning one partition of data in memory. The data
// is read-only once wrapped.
type Local struct {
	data      interface{}
	opts      LocalOpts
	slots     chan struct{}
	queueWait time.Duration
}

// NewLocal wraps data in a leaf dataset. opts may be nil.
func NewLocal(data interface{}, opts *LocalOpts) *Local {
	if opts == nil {
		opts = &LocalOpts{}
	}
	l := &Local{data: data, opts: *opts, queueWait: opts.QueueWait}
	if l.queueWait <= 0 {
		l.queueWait = DefaultQueueWait
	}
	if opts.OnWorker {
		pending := opts.MaxPendingJobs
		if pending <= 0 {
			pending = DefaultMaxPendingJobs
		}
		l.slots = make(chan struct{}, pending)
	}
	return l
}

// Data returns the wrapped partition data.
func (l *Local) Data() interface{} {
	return l.data
}

// Map applies m to the owned data, returning a new leaf with the same
// configuration. Derived leaves share the parent's worker capacity.
func (l *Local) Map(ctx context.Context, m Map) (Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result, err := m.Apply(l.data)
	if err != nil {
		return nil, err
	}
	derived := &Local{data: result, opts: l.opts, slots: l.slots, queueWait: l.queueWait}
	return derived, nil
}

// Sketch computes s over the owned partition. See Dataset.Sketch.
func (l *Local) Sketch(ctx context.Context, s Sketch, onResult OnPartial) error {
	if l.slots == nil {
		return l.runSketch(ctx, s, onResult)
	}
	if err := l.acquire(ctx); err != nil {
		return err
	}
	defer l.release()

	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan PartialResult, 16)
	errCh := make(chan error, 1)
	go func() {
		errCh <- l.runSketch(subCtx, s, func(pr PartialResult) (bool, error) {
			select {
			case results <- pr:
				return true, nil
			case <-subCtx.Done():
				return false, subCtx.Err()
			}
		})
		close(results)
	}()

	for pr := range results {
		more, err := onResult(pr)
		if err != nil {
			cancel()
			return err
		}
		if !more {
			cancel()
			return ErrStopped
		}
	}
	return <-errCh
}

// runSketch does the actual computation, inline or on a worker goroutine.
// Cancellation is cooperative: the current chunk always completes, then the
// loop observes ctx and stops before starting the next one.
func (l *Local) runSketch(ctx context.Context, s Sketch, emit OnPartial) error {
	sl, sliceable := l.data.(Sliceable)
	if l.opts.BundleInterval <= 0 || !sliceable {
		if err := ctx.Err(); err != nil {
			return err
		}
		value, err := s.Create(l.data)
		if err != nil {
			return err
		}
		return deliver(emit, PartialResult{Done: 1, Value: value})
	}

	n := sl.Len()
	if n == 0 {
		return deliver(emit, PartialResult{Done: 1, Value: s.Zero()})
	}
	total := s.Zero()
	for lo := 0; lo < n; lo += l.opts.BundleInterval {
		if err := ctx.Err(); err != nil {
			return err
		}
		hi := lo + l.opts.BundleInterval
		if hi > n {
			hi = n
		}
		chunk, err := s.Create(sl.Slice(lo, hi))
		if err != nil {
			return err
		}
		total, err = s.Add(total, chunk)
		if err != nil {
			return err
		}
		err = deliver(emit, PartialResult{Done: float64(hi) / float64(n), Value: total})
		if err != nil {
			return err
		}
	}
	return nil
}

func (l *Local) acquire(ctx context.Context) error {
	timeout := time.NewTimer(l.queueWait)
	defer timeout.Stop()
	select {
	case l.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timeout.C:
		return errors.New("worker queue full after waiting %v", l.queueWait)
	}
}

func (l *Local) release() {
	<-l.slots
}
