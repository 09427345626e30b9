package dataset

import (
	"github.com/getlantern/golog"
	"github.com/getlantern/mtime"
	"golang.org/x/net/context"
)

var (
	log = golog.LoggerFor("vizdb.dataset")
)

// Parallel is a composite dataset fanning operations out to an ordered,
// immutable sequence of children. Ownership of the underlying data remains
// with the children; child order is fixed for the composite's lifetime and
// determines merge order.
type Parallel struct {
	children []Dataset
}

// NewParallel builds a composite over the given children. The slice is
// copied, so the tree cannot be mutated after construction.
func NewParallel(children []Dataset) *Parallel {
	copied := make([]Dataset, len(children))
	copy(copied, children)
	return &Parallel{children: copied}
}

// NumChildren returns the number of direct children.
func (p *Parallel) NumChildren() int {
	return len(p.children)
}

// Map invokes m on every child concurrently, preserving child order in the
// result. The call is atomic: if any child fails, siblings are cancelled and
// no partial composite is returned.
func (p *Parallel) Map(ctx context.Context, m Map) (Dataset, error) {
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	mapped := make([]Dataset, len(p.children))
	errs := make(chan error, len(p.children))
	for i, c := range p.children {
		index := i
		child := c
		go func() {
			result, err := child.Map(subCtx, m)
			if err == nil {
				mapped[index] = result
			}
			errs <- err
		}()
	}

	var finalErr error
	for range p.children {
		err := <-errs
		if err != nil && finalErr == nil {
			finalErr = err
			cancel()
		}
	}
	if finalErr != nil {
		return nil, finalErr
	}
	return NewParallel(mapped), nil
}

// childResult multiplexes the children's streams onto a single channel.
// A nil pr marks the terminal message for a child.
type childResult struct {
	index int
	pr    *PartialResult
	err   error
}

// Sketch invokes s on every child concurrently and merges the resulting
// streams. Every time any child emits, the composite emits a combined
// partial result whose value is the Add-fold of the most recent value seen
// from each child (Zero for children that have not yet reported) and whose
// Done is the arithmetic mean of the children's Done fractions. Because Add
// is associative and commutative, the final combined value is independent of
// arrival interleaving.
func (p *Parallel) Sketch(ctx context.Context, s Sketch, onResult OnPartial) error {
	numChildren := len(p.children)
	if numChildren == 0 {
		return deliver(onResult, PartialResult{Done: 1, Value: s.Zero()})
	}

	elapsed := mtime.Stopwatch()
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan *childResult, numChildren*16)
	for i, c := range p.children {
		index := i
		child := c
		go func() {
			err := child.Sketch(subCtx, s, func(pr PartialResult) (bool, error) {
				select {
				case results <- &childResult{index: index, pr: &pr}:
					return true, nil
				case <-subCtx.Done():
					return false, subCtx.Err()
				}
			})
			results <- &childResult{index: index, err: err}
		}()
	}

	lastValue := make([]interface{}, numChildren)
	lastDone := make([]float64, numChildren)
	var finalErr error
	stopped := false
	for pending := numChildren; pending > 0; {
		result := <-results
		if result.pr == nil {
			pending--
			err := result.err
			if err != nil && err != ErrStopped && finalErr == nil && !stopped {
				log.Debugf("Child %d failed, cancelling siblings: %v", result.index, err)
				finalErr = err
				cancel()
			}
			continue
		}
		if finalErr != nil || stopped {
			// Drain stragglers that were already in flight when we cancelled.
			continue
		}

		lastValue[result.index] = result.pr.Value
		lastDone[result.index] = result.pr.Done
		merged, err := p.merge(s, lastValue)
		if err != nil {
			finalErr = err
			cancel()
			continue
		}
		done := float64(0)
		for _, d := range lastDone {
			done += d
		}
		more, err := onResult(PartialResult{Done: done / float64(numChildren), Value: merged})
		if err != nil {
			finalErr = err
			cancel()
		} else if !more {
			stopped = true
			cancel()
		}
	}

	log.Debugf("Sketched %d children in %v", numChildren, elapsed())
	if finalErr != nil {
		return finalErr
	}
	if stopped {
		return ErrStopped
	}
	return nil
}

// merge Add-folds the most recent value from every child, substituting Zero
// for children that have not yet emitted.
func (p *Parallel) merge(s Sketch, values []interface{}) (interface{}, error) {
	merged := s.Zero()
	var err error
	for _, v := range values {
		if v == nil {
			continue
		}
		merged, err = s.Add(merged, v)
		if err != nil {
			return nil, err
		}
	}
	return merged, nil
}
