// Package dataset provides the distributed dataset abstraction at the heart
// of vizdb: a tree of partitions over which two primitive operations can be
// executed, map (transform every partition, yielding a new tree of the same
// shape) and sketch (compute a mergeable summary over all partitions,
// streaming progressively refined partial results back to the caller).
package dataset

import (
	serrors "errors"

	"golang.org/x/net/context"
)

// ErrStopped is returned by Sketch when the consumer stopped the stream by
// returning more=false from its OnPartial callback. It lets callers
// distinguish a stream that was cut short from one that ran to completion.
var ErrStopped = serrors.New("stopped by consumer")

// PartialResult is a progressively refined summary. Done is the cumulative
// fraction of the input consumed so far, in [0, 1]. Within one Sketch
// invocation the sequence of Done values observed by the consumer is
// monotonically non-decreasing and reaches exactly 1 on completion. Value is
// the sketch of everything consumed so far.
type PartialResult struct {
	Done  float64
	Value interface{}
}

// OnPartial is invoked for each partial result of a sketch computation.
// Returning more=false stops the computation (the enclosing Sketch call
// returns ErrStopped). Returning an error fails the computation.
type OnPartial func(pr PartialResult) (more bool, err error)

// Map is a pure transformation of one partition's data. Apply must have no
// side effects visible outside the call.
type Map interface {
	Apply(data interface{}) (interface{}, error)
}

// Sketch is a summary computation that forms a commutative monoid: Add must
// be associative and commutative and Zero must be its identity. The engine
// relies on these properties to merge partial results regardless of tree
// shape or arrival order.
type Sketch interface {
	// Zero returns the identity summary.
	Zero() interface{}

	// Create computes the summary of one partition.
	Create(data interface{}) (interface{}, error)

	// Add merges two summaries. Merging summaries with incompatible
	// configurations (e.g. mismatched histogram buckets) must fail rather
	// than produce an undefined result.
	Add(left, right interface{}) (interface{}, error)
}

// Dataset is a node in a tree of partitions: either a Local leaf owning one
// partition or a Parallel composite fanning out to children. Trees are
// constructed bottom-up and never mutated, so concurrent operations on the
// same tree are safe.
type Dataset interface {
	// Map applies m to every leaf's data, returning a new tree of identical
	// shape. If any leaf fails, the whole call fails and no partial tree is
	// returned.
	Map(ctx context.Context, m Map) (Dataset, error)

	// Sketch computes s over all partitions, streaming partial results to
	// onResult as they become available. It returns nil on completion,
	// ErrStopped if onResult stopped the stream, the ctx error on
	// cancellation, or the first computation error encountered.
	Sketch(ctx context.Context, s Sketch, onResult OnPartial) error
}

// Sliceable is implemented by partition data that can report progress
// incrementally: a leaf with a bundle interval configured sketches
// successive slices and emits one partial result per slice.
type Sliceable interface {
	Len() int
	Slice(lo, hi int) interface{}
}

// BlockingSketch runs s over ds and returns the final summary, discarding
// intermediate partial results.
func BlockingSketch(ctx context.Context, ds Dataset, s Sketch) (interface{}, error) {
	last := s.Zero()
	err := ds.Sketch(ctx, s, func(pr PartialResult) (bool, error) {
		last = pr.Value
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return last, nil
}

func deliver(onResult OnPartial, pr PartialResult) error {
	more, err := onResult(pr)
	if err != nil {
		return err
	}
	if !more {
		return ErrStopped
	}
	return nil
}
