package dataset

import (
	serrors "errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/net/context"
)

var errTest = serrors.New("test error")

// ints is the simplest possible partition data, used to exercise the tree
// machinery without dragging in real tables.
type ints []int

func (d ints) Len() int { return len(d) }

func (d ints) Slice(lo, hi int) interface{} { return d[lo:hi] }

// incrementMap adds a constant to every element.
type incrementMap struct {
	by int
}

func (m *incrementMap) Apply(data interface{}) (interface{}, error) {
	in := data.(ints)
	out := make(ints, len(in))
	for i, v := range in {
		out[i] = v + m.by
	}
	return out, nil
}

// failingMap fails on every partition.
type failingMap struct{}

func (m *failingMap) Apply(data interface{}) (interface{}, error) {
	return nil, errTest
}

// sumSketch sums the elements. Its Add is associative and commutative with
// identity 0, as the engine requires.
type sumSketch struct{}

func (s *sumSketch) Zero() interface{} { return 0 }

func (s *sumSketch) Create(data interface{}) (interface{}, error) {
	total := 0
	for _, v := range data.(ints) {
		total += v
	}
	return total, nil
}

func (s *sumSketch) Add(left, right interface{}) (interface{}, error) {
	return left.(int) + right.(int), nil
}

// failingSketch fails while creating the summary of any partition.
type failingSketch struct {
	sumSketch
}

func (s *failingSketch) Create(data interface{}) (interface{}, error) {
	return nil, errTest
}

// jitterInts delays each slice by a small random amount so sibling shards
// deliver their partials in a different interleaving on every run.
type jitterInts struct {
	ints
	rnd *rand.Rand
}

func (d *jitterInts) Slice(lo, hi int) interface{} {
	time.Sleep(time.Duration(d.rnd.Intn(3)) * time.Millisecond)
	return d.ints[lo:hi]
}

func blockingSum(t *testing.T, ds Dataset) int {
	result, err := BlockingSketch(context.Background(), ds, &sumSketch{})
	if !assert.NoError(t, err) {
		return -1
	}
	return result.(int)
}

func parallelOf(data []ints, opts *LocalOpts) *Parallel {
	children := make([]Dataset, 0, len(data))
	for _, d := range data {
		children = append(children, NewLocal(d, opts))
	}
	return NewParallel(children)
}

func TestMapThenSketch(t *testing.T) {
	ds := parallelOf([]ints{{1, 2}, {3, 3}}, nil)
	assert.Equal(t, 9, blockingSum(t, ds))

	incremented, err := ds.Map(context.Background(), &incrementMap{by: 1})
	assert.NoError(t, err)
	assert.Equal(t, 13, blockingSum(t, incremented))
	assert.Equal(t, 9, blockingSum(t, ds), "mapping must not mutate the original tree")
}

func TestTwoLeaves(t *testing.T) {
	ds := parallelOf([]ints{{1, 1, 1, 1}, {1, 1, 1, 1, 1}}, nil)
	assert.Equal(t, 2, ds.NumChildren())
	assert.Equal(t, 9, blockingSum(t, ds))
}

func TestShuffledDelivery(t *testing.T) {
	for trial := 0; trial < 20; trial++ {
		children := make([]Dataset, 0, 10)
		for i := 1; i <= 10; i++ {
			data := make(ints, i)
			for j := range data {
				data[j] = 1
			}
			jittered := &jitterInts{ints: data, rnd: rand.New(rand.NewSource(int64(trial*100 + i)))}
			children = append(children, NewLocal(jittered, &LocalOpts{BundleInterval: 1, OnWorker: true}))
		}
		ds := NewParallel(children)

		lastDone := -1.0
		var final interface{}
		err := ds.Sketch(context.Background(), &sumSketch{}, func(pr PartialResult) (bool, error) {
			assert.True(t, pr.Done >= lastDone, "progress must never regress")
			lastDone = pr.Done
			final = pr.Value
			return true, nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 1.0, lastDone)
		assert.Equal(t, 55, final, "the fold must not depend on arrival order")
	}
}

func TestMapFailureIsAtomic(t *testing.T) {
	ds := parallelOf([]ints{{1}, {2}, {3}}, nil)
	mapped, err := ds.Map(context.Background(), &failingMap{})
	assert.Equal(t, errTest, err)
	assert.Nil(t, mapped)
}

func TestEmptyPartition(t *testing.T) {
	l := NewLocal(ints{}, &LocalOpts{BundleInterval: 10})
	calls := 0
	err := l.Sketch(context.Background(), &sumSketch{}, func(pr PartialResult) (bool, error) {
		calls++
		assert.Equal(t, 1.0, pr.Done)
		assert.Equal(t, 0, pr.Value)
		return true, nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestEmptyComposite(t *testing.T) {
	ds := NewParallel(nil)
	result, err := BlockingSketch(context.Background(), ds, &sumSketch{})
	assert.NoError(t, err)
	assert.Equal(t, 0, result)
}

func TestBundledMatchesDirect(t *testing.T) {
	const n = 10485760
	data := make(ints, n)
	for i := range data {
		data[i] = i % 7
	}

	direct := blockingSum(t, NewParallel([]Dataset{NewLocal(data, nil)}))
	bundled := blockingSum(t, NewParallel([]Dataset{NewLocal(data, &LocalOpts{BundleInterval: 100})}))
	assert.Equal(t, direct, bundled, "chunked computation must produce the same final summary")
}

func TestWorkerMatchesInline(t *testing.T) {
	data := []ints{{1, 2, 3}, {4, 5}, {6}}
	inline := blockingSum(t, parallelOf(data, &LocalOpts{BundleInterval: 2}))
	onWorker := blockingSum(t, parallelOf(data, &LocalOpts{BundleInterval: 2, OnWorker: true}))
	assert.Equal(t, 21, inline)
	assert.Equal(t, inline, onWorker)
}

func TestProgressIsMonotonic(t *testing.T) {
	data := make(ints, 1000)
	for i := range data {
		data[i] = 1
	}
	ds := parallelOf([]ints{data, data, data}, &LocalOpts{BundleInterval: 100})

	lastDone := float64(0)
	lastValue := 0
	err := ds.Sketch(context.Background(), &sumSketch{}, func(pr PartialResult) (bool, error) {
		assert.True(t, pr.Done >= lastDone, "progress must never go backwards")
		lastDone = pr.Done
		lastValue = pr.Value.(int)
		return true, nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 1.0, lastDone, "progress must finish at exactly 1")
	assert.Equal(t, 3000, lastValue)
}

func TestStopAfterThreePartials(t *testing.T) {
	data := make(ints, 1000)
	ds := parallelOf([]ints{data, data}, &LocalOpts{BundleInterval: 10})

	seen := 0
	err := ds.Sketch(context.Background(), &sumSketch{}, func(pr PartialResult) (bool, error) {
		seen++
		return seen < 3, nil
	})
	assert.Equal(t, ErrStopped, err)
	assert.Equal(t, 3, seen, "no partial results may be delivered after the consumer stops the stream")
}

func TestConsumerError(t *testing.T) {
	l := NewLocal(make(ints, 100), &LocalOpts{BundleInterval: 10})
	err := l.Sketch(context.Background(), &sumSketch{}, func(pr PartialResult) (bool, error) {
		return false, errTest
	})
	assert.Equal(t, errTest, err)
}

func TestSketchFailure(t *testing.T) {
	ds := parallelOf([]ints{{1}, {2}}, nil)
	err := ds.Sketch(context.Background(), &failingSketch{}, func(pr PartialResult) (bool, error) {
		return true, nil
	})
	assert.Equal(t, errTest, err)
}

func TestContextCancellation(t *testing.T) {
	data := make(ints, 100000)
	ds := parallelOf([]ints{data, data}, &LocalOpts{BundleInterval: 10})

	ctx, cancel := context.WithCancel(context.Background())
	seen := 0
	err := ds.Sketch(ctx, &sumSketch{}, func(pr PartialResult) (bool, error) {
		seen++
		if seen == 2 {
			cancel()
		}
		return true, nil
	})
	assert.Equal(t, context.Canceled, err)
}

func TestWorkerQueueFull(t *testing.T) {
	l := NewLocal(ints{1, 2, 3}, &LocalOpts{OnWorker: true, MaxPendingJobs: 1, QueueWait: 25 * time.Millisecond})

	started := make(chan struct{})
	release := make(chan struct{})
	firstDone := make(chan error, 1)
	go func() {
		firstDone <- l.Sketch(context.Background(), &sumSketch{}, func(pr PartialResult) (bool, error) {
			close(started)
			<-release
			return true, nil
		})
	}()
	<-started

	err := l.Sketch(context.Background(), &sumSketch{}, func(pr PartialResult) (bool, error) {
		return true, nil
	})
	assert.Error(t, err, "second computation should fail while the only worker slot is held")

	close(release)
	assert.NoError(t, <-firstDone)
}

func TestDerivedLeafSharesWorker(t *testing.T) {
	l := NewLocal(ints{1, 2, 3}, &LocalOpts{OnWorker: true, MaxPendingJobs: 2})
	derived, err := l.Map(context.Background(), &incrementMap{by: 1})
	assert.NoError(t, err)
	assert.True(t, l.slots == derived.(*Local).slots, "derived leaf should share the parent's worker capacity")
	assert.Equal(t, ints{2, 3, 4}, derived.(*Local).Data())
}

func TestBlockingSketch(t *testing.T) {
	ds := parallelOf([]ints{{5, 5}, {1}}, &LocalOpts{BundleInterval: 1})
	result, err := BlockingSketch(context.Background(), ds, &sumSketch{})
	assert.NoError(t, err)
	assert.Equal(t, 11, result)
}
