package sketches

import (
	"encoding/json"

	"github.com/getlantern/errors"
	"github.com/getlantern/vizdb/dataset"
)

// The transport names sketches and maps by registered id, never by code.
// These tables are the explicit mapping from id + JSON parameters to a
// concrete operation.

// SketchArgs carries the parameters common to the named sketches. Which
// fields matter depends on the sketch.
type SketchArgs struct {
	Column       string   `json:"column,omitempty"`
	Buckets      *Buckets `json:"buckets,omitempty"`
	Mid          *Buckets `json:"mid,omitempty"`
	Inner        *Buckets `json:"inner,omitempty"`
	SamplingRate float64  `json:"samplingRate,omitempty"`
	Seed         uint32   `json:"seed,omitempty"`
	MaxSize      int      `json:"maxSize,omitempty"`
	Columns      []string `json:"columns,omitempty"`
}

// MapArgs carries the parameters of the named maps.
type MapArgs struct {
	Column  string   `json:"column,omitempty"`
	By      float64  `json:"by,omitempty"`
	Columns []string `json:"columns,omitempty"`
}

// SketchFor resolves a named sketch and its JSON parameters to a concrete
// dataset.Sketch, validating the parameters before any computation starts.
func SketchFor(name string, args json.RawMessage) (dataset.Sketch, error) {
	var parsed SketchArgs
	if len(args) > 0 {
		if err := json.Unmarshal(args, &parsed); err != nil {
			return nil, errors.New("malformed arguments for sketch '%v': %v", name, err)
		}
	}
	switch name {
	case "sum":
		return NewSumSketch(parsed.Column)
	case "histogram":
		if parsed.Buckets == nil {
			return nil, errors.New("histogram needs a bucket spec")
		}
		return NewHistogramSketch(*parsed.Buckets, parsed.SamplingRate, parsed.Seed)
	case "histogram2d":
		if parsed.Buckets == nil || parsed.Inner == nil {
			return nil, errors.New("histogram2d needs two bucket specs")
		}
		return NewHistogram2DSketch(*parsed.Buckets, *parsed.Inner, parsed.SamplingRate, parsed.Seed)
	case "histogram3d":
		if parsed.Buckets == nil || parsed.Mid == nil || parsed.Inner == nil {
			return nil, errors.New("histogram3d needs three bucket specs")
		}
		return NewHistogram3DSketch(*parsed.Buckets, *parsed.Mid, *parsed.Inner, parsed.SamplingRate, parsed.Seed)
	case "heavyhitters":
		return NewHeavyHittersSketch(parsed.MaxSize, parsed.Columns)
	}
	return nil, errors.New("no such sketch '%v'", name)
}

// MapFor resolves a named map and its JSON parameters to a concrete
// dataset.Map.
func MapFor(name string, args json.RawMessage) (dataset.Map, error) {
	var parsed MapArgs
	if len(args) > 0 {
		if err := json.Unmarshal(args, &parsed); err != nil {
			return nil, errors.New("malformed arguments for map '%v': %v", name, err)
		}
	}
	switch name {
	case "increment":
		if parsed.Column == "" {
			return nil, errors.New("increment needs a column")
		}
		return &IncrementMap{Column: parsed.Column, By: parsed.By}, nil
	case "project":
		if len(parsed.Columns) == 0 {
			return nil, errors.New("project needs at least one column")
		}
		return &ProjectMap{Columns: parsed.Columns}, nil
	}
	return nil, errors.New("no such map '%v'", name)
}
