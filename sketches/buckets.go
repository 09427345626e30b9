// Package sketches provides the mergeable approximate summary computations
// that run over dataset trees: bucketed histograms in one, two and three
// dimensions, and Misra-Gries heavy hitters with a provable error bound.
// Every sketch here forms a commutative monoid (Zero/Create/Add), which is
// what lets the engine merge partial results regardless of tree shape or
// arrival order.
package sketches

import (
	"encoding/binary"
	"math"

	"github.com/getlantern/errors"
	"github.com/spaolacci/murmur3"
)

// Buckets describes a uniform bucketing of a numeric column into Count
// buckets over [Min, Max]. Values outside the range, missing values and
// non-numeric values all land in the histogram's missing counter.
type Buckets struct {
	Column string  `json:"column"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Count  int     `json:"count"`
}

// Validate rejects inconsistent bucket specs before any computation starts.
func (b Buckets) Validate() error {
	if b.Column == "" {
		return errors.New("bucket spec needs a column")
	}
	if b.Count <= 0 {
		return errors.New("bucket count must be positive, got %d", b.Count)
	}
	if !(b.Min < b.Max) {
		return errors.New("bucket range [%v, %v) is empty", b.Min, b.Max)
	}
	return nil
}

// Index maps a value to its bucket, returning ok=false for values that
// belong in the missing counter. Max is inclusive and maps to the last
// bucket.
func (b Buckets) Index(v float64) (int, bool) {
	if math.IsNaN(v) || v < b.Min || v > b.Max {
		return 0, false
	}
	i := int(float64(b.Count) * (v - b.Min) / (b.Max - b.Min))
	if i == b.Count {
		i = b.Count - 1
	}
	return i, true
}

// sampler decides deterministically whether a row participates in a sampled
// sketch. Decisions hash the row's value with a fixed seed, so the same
// multiset of rows yields the same sample no matter how the partition is
// chunked.
type sampler struct {
	threshold uint32
	seed      uint32
	all       bool
}

func newSampler(rate float64, seed uint32) (*sampler, error) {
	if rate <= 0 || rate > 1 {
		return nil, errors.New("sampling rate must be in (0, 1], got %v", rate)
	}
	if rate == 1 {
		return &sampler{all: true}, nil
	}
	return &sampler{threshold: uint32(rate * float64(math.MaxUint32)), seed: seed}, nil
}

func (s *sampler) sampleFloat(v float64) bool {
	if s.all {
		return true
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
	return murmur3.Sum32WithSeed(buf[:], s.seed) < s.threshold
}
