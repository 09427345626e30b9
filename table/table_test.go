package table

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testTable(t *testing.T) *Table {
	tbl, err := New(
		&Column{Name: "value", Floats: []float64{1, 2, 3, 4}, Missing: []bool{false, true, false, false}},
		&Column{Name: "category", Strings: []string{"a", "b", "a", "c"}},
	)
	assert.NoError(t, err)
	return tbl
}

func TestNew(t *testing.T) {
	tbl := testTable(t)
	assert.Equal(t, 4, tbl.NumRows())
	assert.Equal(t, []string{"value", "category"}, tbl.Names())

	col, err := tbl.Column("value")
	assert.NoError(t, err)
	assert.Equal(t, 2.0, col.Float(1))
	assert.True(t, col.IsMissing(1))
	assert.Nil(t, col.Value(1))
	assert.Equal(t, 3.0, col.Value(2))

	_, err = tbl.Column("nope")
	assert.Error(t, err)
}

func TestNewRejectsBadColumns(t *testing.T) {
	_, err := New(&Column{Floats: []float64{1}})
	assert.Error(t, err, "unnamed column")

	_, err = New(
		&Column{Name: "x", Floats: []float64{1}},
		&Column{Name: "x", Floats: []float64{2}},
	)
	assert.Error(t, err, "duplicate column")

	_, err = New(
		&Column{Name: "x", Floats: []float64{1, 2}},
		&Column{Name: "y", Floats: []float64{1}},
	)
	assert.Error(t, err, "mismatched lengths")
}

func TestStringColumnFloat(t *testing.T) {
	tbl := testTable(t)
	col, err := tbl.Column("category")
	assert.NoError(t, err)
	assert.True(t, math.IsNaN(col.Float(0)))
}

func TestSlice(t *testing.T) {
	tbl := testTable(t)
	sliced := tbl.Slice(1, 3).(*Table)
	assert.Equal(t, 2, sliced.NumRows())

	col, err := sliced.Column("value")
	assert.NoError(t, err)
	assert.True(t, col.IsMissing(0))
	assert.Equal(t, 3.0, col.Float(1))

	cat, err := sliced.Column("category")
	assert.NoError(t, err)
	assert.Equal(t, "b", cat.Value(0))
}

func TestProject(t *testing.T) {
	tbl := testTable(t)
	projected, err := tbl.Project([]string{"category"})
	assert.NoError(t, err)
	assert.Equal(t, []string{"category"}, projected.Names())
	assert.Equal(t, 4, projected.NumRows())

	_, err = tbl.Project([]string{"nope"})
	assert.Error(t, err)
}

func TestRowSnapshot(t *testing.T) {
	tbl := testTable(t)
	key, err := tbl.RowSnapshot([]string{"value", "category"}, 0)
	assert.NoError(t, err)
	assert.Equal(t, 1.0, key.Get("value"))
	assert.Equal(t, "a", key.Get("category"))

	missing, err := tbl.RowSnapshot([]string{"value"}, 1)
	assert.NoError(t, err)
	assert.Nil(t, missing.Get("value"))

	same, err := tbl.RowSnapshot([]string{"category"}, 2)
	assert.NoError(t, err)
	other, err2 := tbl.RowSnapshot([]string{"category"}, 0)
	assert.NoError(t, err2)
	assert.Equal(t, same, other, "equal rows must produce identical keys")

	_, err = tbl.RowSnapshot([]string{"nope"}, 0)
	assert.Error(t, err)
}
