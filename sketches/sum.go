package sketches

import (
	"github.com/getlantern/errors"
	"github.com/getlantern/vizdb/table"
)

// SumSketch totals one numeric column of a table partition. Missing values
// contribute nothing.
type SumSketch struct {
	Column string
}

// NewSumSketch validates the parameters.
func NewSumSketch(column string) (*SumSketch, error) {
	if column == "" {
		return nil, errors.New("sum sketch needs a column")
	}
	return &SumSketch{Column: column}, nil
}

// Zero implements dataset.Sketch.
func (s *SumSketch) Zero() interface{} {
	return float64(0)
}

// Create implements dataset.Sketch.
func (s *SumSketch) Create(data interface{}) (interface{}, error) {
	t, ok := data.(*table.Table)
	if !ok {
		return nil, errors.New("sum sketch needs a table partition, got %T", data)
	}
	col, err := t.Column(s.Column)
	if err != nil {
		return nil, err
	}
	total := float64(0)
	for i := 0; i < t.NumRows(); i++ {
		if col.IsMissing(i) {
			continue
		}
		total += col.Float(i)
	}
	return total, nil
}

// Add implements dataset.Sketch.
func (s *SumSketch) Add(left, right interface{}) (interface{}, error) {
	l, lok := left.(float64)
	r, rok := right.(float64)
	if !lok || !rok {
		return nil, errors.New("cannot merge %T and %T as sums", left, right)
	}
	return l + r, nil
}
