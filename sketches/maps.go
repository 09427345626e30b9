package sketches

import (
	"github.com/getlantern/errors"
	"github.com/getlantern/vizdb/table"
)

// IncrementMap adds a constant to one numeric column, producing a new
// partition. Missing values stay missing.
type IncrementMap struct {
	Column string
	By     float64
}

// Apply implements dataset.Map.
func (m *IncrementMap) Apply(data interface{}) (interface{}, error) {
	t, ok := data.(*table.Table)
	if !ok {
		return nil, errors.New("increment map needs a table partition, got %T", data)
	}
	by := m.By
	if by == 0 {
		by = 1
	}
	columns := make([]*table.Column, 0, len(t.Names()))
	found := false
	for _, name := range t.Names() {
		col, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		if name != m.Column {
			columns = append(columns, col)
			continue
		}
		found = true
		if col.Floats == nil {
			return nil, errors.New("column '%v' is not numeric", name)
		}
		bumped := &table.Column{Name: name, Floats: make([]float64, len(col.Floats)), Missing: col.Missing}
		for i, v := range col.Floats {
			bumped.Floats[i] = v + by
		}
		columns = append(columns, bumped)
	}
	if !found {
		return nil, errors.New("no such column '%v'", m.Column)
	}
	return table.New(columns...)
}

// ProjectMap keeps only the named columns.
type ProjectMap struct {
	Columns []string
}

// Apply implements dataset.Map.
func (m *ProjectMap) Apply(data interface{}) (interface{}, error) {
	t, ok := data.(*table.Table)
	if !ok {
		return nil, errors.New("project map needs a table partition, got %T", data)
	}
	if len(m.Columns) == 0 {
		return nil, errors.New("project map needs at least one column")
	}
	return t.Project(m.Columns)
}
