// Package table provides the in-memory columnar partition type over which
// the built-in sketches operate. A Table is immutable once built and cheap
// to slice, so leaf datasets can report progress over large partitions.
package table

import (
	"math"

	"github.com/getlantern/bytemap"
	"github.com/getlantern/errors"
)

// Column holds one named column of a partition. Exactly one of Floats and
// Strings is set. Missing marks rows with no value; a nil Missing means no
// row is missing.
type Column struct {
	Name    string
	Floats  []float64
	Strings []string
	Missing []bool
}

// Len returns the number of rows in the column.
func (c *Column) Len() int {
	if c.Floats != nil {
		return len(c.Floats)
	}
	return len(c.Strings)
}

// IsMissing indicates whether row i has no value.
func (c *Column) IsMissing(i int) bool {
	return c.Missing != nil && c.Missing[i]
}

// Float returns the numeric value at row i. For string columns it returns
// NaN, which buckets as missing.
func (c *Column) Float(i int) float64 {
	if c.Floats == nil {
		return math.NaN()
	}
	return c.Floats[i]
}

// Value returns the value at row i as an interface, or nil if missing.
func (c *Column) Value(i int) interface{} {
	if c.IsMissing(i) {
		return nil
	}
	if c.Floats != nil {
		return c.Floats[i]
	}
	return c.Strings[i]
}

func (c *Column) slice(lo, hi int) *Column {
	sliced := &Column{Name: c.Name}
	if c.Floats != nil {
		sliced.Floats = c.Floats[lo:hi]
	}
	if c.Strings != nil {
		sliced.Strings = c.Strings[lo:hi]
	}
	if c.Missing != nil {
		sliced.Missing = c.Missing[lo:hi]
	}
	return sliced
}

// Table is one partition of rows laid out column-wise.
type Table struct {
	numRows int
	names   []string
	columns map[string]*Column
}

// New builds a table from the given columns, which must all have the same
// number of rows.
func New(columns ...*Column) (*Table, error) {
	t := &Table{columns: make(map[string]*Column, len(columns))}
	for i, col := range columns {
		if col.Name == "" {
			return nil, errors.New("column %d has no name", i)
		}
		if _, exists := t.columns[col.Name]; exists {
			return nil, errors.New("duplicate column '%v'", col.Name)
		}
		if i == 0 {
			t.numRows = col.Len()
		} else if col.Len() != t.numRows {
			return nil, errors.New("column '%v' has %d rows, expected %d", col.Name, col.Len(), t.numRows)
		}
		t.names = append(t.names, col.Name)
		t.columns[col.Name] = col
	}
	return t, nil
}

// NumRows returns the number of rows in the partition.
func (t *Table) NumRows() int {
	return t.numRows
}

// Names returns the column names in declaration order.
func (t *Table) Names() []string {
	return t.names
}

// Column returns the named column.
func (t *Table) Column(name string) (*Column, error) {
	col := t.columns[name]
	if col == nil {
		return nil, errors.New("no such column '%v'", name)
	}
	return col, nil
}

// Project returns a table containing only the named columns.
func (t *Table) Project(names []string) (*Table, error) {
	columns := make([]*Column, 0, len(names))
	for _, name := range names {
		col, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		columns = append(columns, col)
	}
	return New(columns...)
}

// Len implements dataset.Sliceable.
func (t *Table) Len() int {
	return t.numRows
}

// Slice implements dataset.Sliceable. The slice shares the parent's backing
// arrays.
func (t *Table) Slice(lo, hi int) interface{} {
	sliced := &Table{numRows: hi - lo, names: t.names, columns: make(map[string]*Column, len(t.names))}
	for name, col := range t.columns {
		sliced.columns[name] = col.slice(lo, hi)
	}
	return sliced
}

// RowSnapshot encodes the values of the given columns at row i as a
// bytemap, suitable for use as a heavy-hitters key. Missing values are
// encoded as nil.
func (t *Table) RowSnapshot(names []string, i int) (bytemap.ByteMap, error) {
	values := make(map[string]interface{}, len(names))
	for _, name := range names {
		col, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		values[name] = col.Value(i)
	}
	return bytemap.New(values), nil
}
