package sketches

import (
	"github.com/getlantern/errors"
	"github.com/getlantern/vizdb/table"
)

// Histogram counts rows per bucket, plus one counter for rows that are
// missing or out of range.
type Histogram struct {
	Counts  []int64 `json:"counts"`
	Missing int64   `json:"missing"`
}

// Total returns the number of rows counted, including missing ones.
func (h *Histogram) Total() int64 {
	total := h.Missing
	for _, c := range h.Counts {
		total += c
	}
	return total
}

func (h *Histogram) add(other *Histogram) error {
	if len(h.Counts) != len(other.Counts) {
		return errors.New("merging histograms with %d and %d buckets", len(h.Counts), len(other.Counts))
	}
	for i, c := range other.Counts {
		h.Counts[i] += c
	}
	h.Missing += other.Missing
	return nil
}

// HistogramSketch computes a 1D histogram over one column of a table
// partition. A SamplingRate below 1 trades accuracy for speed; with a fixed
// Seed the sample is deterministic. The bucket configuration is read once at
// construction and must be identical across all partitions being merged.
type HistogramSketch struct {
	Buckets      Buckets
	SamplingRate float64
	Seed         uint32

	sampler *sampler
}

// NewHistogramSketch validates the bucket spec and sampling parameters.
// samplingRate 0 means unsampled.
func NewHistogramSketch(buckets Buckets, samplingRate float64, seed uint32) (*HistogramSketch, error) {
	if err := buckets.Validate(); err != nil {
		return nil, err
	}
	if samplingRate == 0 {
		samplingRate = 1
	}
	smp, err := newSampler(samplingRate, seed)
	if err != nil {
		return nil, err
	}
	return &HistogramSketch{Buckets: buckets, SamplingRate: samplingRate, Seed: seed, sampler: smp}, nil
}

// Zero implements dataset.Sketch.
func (s *HistogramSketch) Zero() interface{} {
	return &Histogram{Counts: make([]int64, s.Buckets.Count)}
}

// Create implements dataset.Sketch. data must be a *table.Table.
func (s *HistogramSketch) Create(data interface{}) (interface{}, error) {
	t, ok := data.(*table.Table)
	if !ok {
		return nil, errors.New("histogram sketch needs a table partition, got %T", data)
	}
	col, err := t.Column(s.Buckets.Column)
	if err != nil {
		return nil, err
	}
	h := s.Zero().(*Histogram)
	for i := 0; i < t.NumRows(); i++ {
		if col.IsMissing(i) {
			// Missing rows are counted exactly, never sampled.
			h.Missing++
			continue
		}
		v := col.Float(i)
		if !s.sampler.sampleFloat(v) {
			continue
		}
		if bucket, ok := s.Buckets.Index(v); ok {
			h.Counts[bucket]++
		} else {
			h.Missing++
		}
	}
	return h, nil
}

// Add implements dataset.Sketch. Merging histograms with mismatched bucket
// counts fails fast.
func (s *HistogramSketch) Add(left, right interface{}) (interface{}, error) {
	l, lok := left.(*Histogram)
	r, rok := right.(*Histogram)
	if !lok || !rok {
		return nil, errors.New("cannot merge %T and %T as histograms", left, right)
	}
	merged := &Histogram{Counts: make([]int64, len(l.Counts)), Missing: l.Missing}
	copy(merged.Counts, l.Counts)
	if err := merged.add(r); err != nil {
		return nil, err
	}
	return merged, nil
}
