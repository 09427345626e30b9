package sketches

import (
	"github.com/getlantern/errors"
	"github.com/getlantern/vizdb/table"
)

// Histogram2D is a histogram over one dimension whose per-bucket value is
// itself a full histogram over the next dimension. Rows whose outer value is
// missing or out of range are still bucketed on the inner dimension, under
// Missing.
type Histogram2D struct {
	Buckets []*Histogram `json:"buckets"`
	Missing *Histogram   `json:"missing"`
}

// Histogram3D nests once more: per outer bucket, a full 2D histogram.
type Histogram3D struct {
	Buckets []*Histogram2D `json:"buckets"`
	Missing *Histogram2D   `json:"missing"`
}

// Histogram2DSketch computes a 2D histogram, grouping by Outer and
// bucketing each group by Inner.
type Histogram2DSketch struct {
	Outer Buckets
	Inner *HistogramSketch

	sampler *sampler
}

// NewHistogram2DSketch validates both bucket specs. samplingRate 0 means
// unsampled; sampling decides on the outer value.
func NewHistogram2DSketch(outer, inner Buckets, samplingRate float64, seed uint32) (*Histogram2DSketch, error) {
	if err := outer.Validate(); err != nil {
		return nil, err
	}
	innerSketch, err := NewHistogramSketch(inner, 0, 0)
	if err != nil {
		return nil, err
	}
	if samplingRate == 0 {
		samplingRate = 1
	}
	smp, err := newSampler(samplingRate, seed)
	if err != nil {
		return nil, err
	}
	return &Histogram2DSketch{Outer: outer, Inner: innerSketch, sampler: smp}, nil
}

// Zero implements dataset.Sketch.
func (s *Histogram2DSketch) Zero() interface{} {
	h := &Histogram2D{
		Buckets: make([]*Histogram, s.Outer.Count),
		Missing: s.Inner.Zero().(*Histogram),
	}
	for i := range h.Buckets {
		h.Buckets[i] = s.Inner.Zero().(*Histogram)
	}
	return h
}

// Create implements dataset.Sketch.
func (s *Histogram2DSketch) Create(data interface{}) (interface{}, error) {
	t, ok := data.(*table.Table)
	if !ok {
		return nil, errors.New("2D histogram sketch needs a table partition, got %T", data)
	}
	outerCol, err := t.Column(s.Outer.Column)
	if err != nil {
		return nil, err
	}
	innerCol, err := t.Column(s.Inner.Buckets.Column)
	if err != nil {
		return nil, err
	}
	h := s.Zero().(*Histogram2D)
	for i := 0; i < t.NumRows(); i++ {
		target := h.Missing
		outerMissing := outerCol.IsMissing(i)
		if !outerMissing {
			v := outerCol.Float(i)
			if !s.sampler.sampleFloat(v) {
				continue
			}
			if bucket, ok := s.Outer.Index(v); ok {
				target = h.Buckets[bucket]
			}
		}
		if innerCol.IsMissing(i) {
			target.Missing++
			continue
		}
		if bucket, ok := s.Inner.Buckets.Index(innerCol.Float(i)); ok {
			target.Counts[bucket]++
		} else {
			target.Missing++
		}
	}
	return h, nil
}

// Add implements dataset.Sketch, recursing structurally.
func (s *Histogram2DSketch) Add(left, right interface{}) (interface{}, error) {
	l, lok := left.(*Histogram2D)
	r, rok := right.(*Histogram2D)
	if !lok || !rok {
		return nil, errors.New("cannot merge %T and %T as 2D histograms", left, right)
	}
	if len(l.Buckets) != len(r.Buckets) {
		return nil, errors.New("merging 2D histograms with %d and %d buckets", len(l.Buckets), len(r.Buckets))
	}
	merged := s.Zero().(*Histogram2D)
	for i := range merged.Buckets {
		if err := addInto(merged.Buckets[i], l.Buckets[i], r.Buckets[i]); err != nil {
			return nil, err
		}
	}
	if err := addInto(merged.Missing, l.Missing, r.Missing); err != nil {
		return nil, err
	}
	return merged, nil
}

func addInto(dst, l, r *Histogram) error {
	if err := dst.add(l); err != nil {
		return err
	}
	return dst.add(r)
}

// Histogram3DSketch computes a 3D histogram by nesting a 2D sketch under
// one more grouping dimension.
type Histogram3DSketch struct {
	Outer Buckets
	Inner *Histogram2DSketch

	sampler *sampler
}

// NewHistogram3DSketch validates all three bucket specs. samplingRate 0
// means unsampled; sampling decides on the outermost value.
func NewHistogram3DSketch(outer, mid, inner Buckets, samplingRate float64, seed uint32) (*Histogram3DSketch, error) {
	if err := outer.Validate(); err != nil {
		return nil, err
	}
	innerSketch, err := NewHistogram2DSketch(mid, inner, 0, 0)
	if err != nil {
		return nil, err
	}
	if samplingRate == 0 {
		samplingRate = 1
	}
	smp, err := newSampler(samplingRate, seed)
	if err != nil {
		return nil, err
	}
	return &Histogram3DSketch{Outer: outer, Inner: innerSketch, sampler: smp}, nil
}

// Zero implements dataset.Sketch.
func (s *Histogram3DSketch) Zero() interface{} {
	h := &Histogram3D{
		Buckets: make([]*Histogram2D, s.Outer.Count),
		Missing: s.Inner.Zero().(*Histogram2D),
	}
	for i := range h.Buckets {
		h.Buckets[i] = s.Inner.Zero().(*Histogram2D)
	}
	return h
}

// Create implements dataset.Sketch.
func (s *Histogram3DSketch) Create(data interface{}) (interface{}, error) {
	t, ok := data.(*table.Table)
	if !ok {
		return nil, errors.New("3D histogram sketch needs a table partition, got %T", data)
	}
	outerCol, err := t.Column(s.Outer.Column)
	if err != nil {
		return nil, err
	}
	h := s.Zero().(*Histogram3D)
	// Group rows by outer bucket, then let the 2D sketch fill each group.
	// One pass per group keeps the inner logic in one place at the cost of
	// scanning the partition once per outer bucket; partitions are sliced
	// small by the bundle interval, so this stays cheap.
	groups := make([][]int, s.Outer.Count)
	var missingRows []int
	for i := 0; i < t.NumRows(); i++ {
		if outerCol.IsMissing(i) {
			missingRows = append(missingRows, i)
			continue
		}
		v := outerCol.Float(i)
		if !s.sampler.sampleFloat(v) {
			continue
		}
		if bucket, ok := s.Outer.Index(v); ok {
			groups[bucket] = append(groups[bucket], i)
		} else {
			missingRows = append(missingRows, i)
		}
	}
	for bucket, rows := range groups {
		if err := s.fillGroup(t, rows, h.Buckets[bucket]); err != nil {
			return nil, err
		}
	}
	if err := s.fillGroup(t, missingRows, h.Missing); err != nil {
		return nil, err
	}
	return h, nil
}

func (s *Histogram3DSketch) fillGroup(t *table.Table, rows []int, into *Histogram2D) error {
	midCol, err := t.Column(s.Inner.Outer.Column)
	if err != nil {
		return err
	}
	innerCol, err := t.Column(s.Inner.Inner.Buckets.Column)
	if err != nil {
		return err
	}
	for _, i := range rows {
		target := into.Missing
		if !midCol.IsMissing(i) {
			if bucket, ok := s.Inner.Outer.Index(midCol.Float(i)); ok {
				target = into.Buckets[bucket]
			}
		}
		if innerCol.IsMissing(i) {
			target.Missing++
			continue
		}
		if bucket, ok := s.Inner.Inner.Buckets.Index(innerCol.Float(i)); ok {
			target.Counts[bucket]++
		} else {
			target.Missing++
		}
	}
	return nil
}

// Add implements dataset.Sketch, recursing structurally.
func (s *Histogram3DSketch) Add(left, right interface{}) (interface{}, error) {
	l, lok := left.(*Histogram3D)
	r, rok := right.(*Histogram3D)
	if !lok || !rok {
		return nil, errors.New("cannot merge %T and %T as 3D histograms", left, right)
	}
	if len(l.Buckets) != len(r.Buckets) {
		return nil, errors.New("merging 3D histograms with %d and %d buckets", len(l.Buckets), len(r.Buckets))
	}
	merged := s.Zero().(*Histogram3D)
	var err error
	for i := range merged.Buckets {
		var v interface{}
		v, err = s.Inner.Add(l.Buckets[i], r.Buckets[i])
		if err != nil {
			return nil, err
		}
		merged.Buckets[i] = v.(*Histogram2D)
	}
	v, err := s.Inner.Add(l.Missing, r.Missing)
	if err != nil {
		return nil, err
	}
	merged.Missing = v.(*Histogram2D)
	return merged, nil
}
