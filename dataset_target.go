package vizdb

import (
	"encoding/json"

	"github.com/getlantern/errors"
	"github.com/getlantern/vizdb/dataset"
	"github.com/getlantern/vizdb/sketches"
	"golang.org/x/net/context"
)

// DataSetTarget exposes a dataset tree as a remote object with two
// operations: "map", which derives a new tree (and a new remote object) by
// applying a named transform to every partition, and "sketch", which streams
// the partial results of a named summary computation.
type DataSetTarget struct {
	*Target
	ds dataset.Dataset
}

// NewDataSetTarget registers ds as a remote object. An empty id assigns a
// fresh opaque one.
func NewDataSetTarget(r *Registry, id string, ds dataset.Dataset) *DataSetTarget {
	t := &DataSetTarget{Target: r.NewTarget(id), ds: ds}
	t.RegisterHandler("sketch", t.runSketch)
	t.RegisterHandler("map", t.runMap)
	return t
}

// DataSet returns the underlying dataset tree.
func (t *DataSetTarget) DataSet() dataset.Dataset {
	return t.ds
}

type sketchArgs struct {
	Sketch string          `json:"sketch"`
	Args   json.RawMessage `json:"args,omitempty"`
}

func (t *DataSetTarget) runSketch(ctx context.Context, args json.RawMessage, emit Emit) error {
	var parsed sketchArgs
	if err := json.Unmarshal(args, &parsed); err != nil {
		return errors.New("malformed sketch request: %v", err)
	}
	s, err := sketches.SketchFor(parsed.Sketch, parsed.Args)
	if err != nil {
		return err
	}
	return t.ds.Sketch(ctx, s, func(pr dataset.PartialResult) (bool, error) {
		if err := emit(&PartialPayload{Progress: pr.Done, Value: pr.Value}); err != nil {
			return false, err
		}
		return true, nil
	})
}

type mapArgs struct {
	Map  string          `json:"map"`
	Args json.RawMessage `json:"args,omitempty"`
}

func (t *DataSetTarget) runMap(ctx context.Context, args json.RawMessage, emit Emit) error {
	var parsed mapArgs
	if err := json.Unmarshal(args, &parsed); err != nil {
		return errors.New("malformed map request: %v", err)
	}
	m, err := sketches.MapFor(parsed.Map, parsed.Args)
	if err != nil {
		return err
	}
	derived, err := t.ds.Map(ctx, m)
	if err != nil {
		return err
	}
	derivedTarget := NewDataSetTarget(t.registry, "", derived)
	return emit(&MapPayload{ObjectID: derivedTarget.ID()})
}
