package sketches

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/getlantern/vizdb/table"
	"github.com/stretchr/testify/assert"
)

func categoryTable(t *testing.T, values ...string) *table.Table {
	tbl, err := table.New(&table.Column{Name: "category", Strings: values})
	assert.NoError(t, err)
	return tbl
}

func keyFor(t *testing.T, tbl *table.Table, row int) string {
	key, err := tbl.RowSnapshot([]string{"category"}, row)
	assert.NoError(t, err)
	return string(key)
}

func countOf(t *testing.T, list *FreqKList, value string) int64 {
	tbl := categoryTable(t, value)
	key, err := tbl.RowSnapshot([]string{"category"}, 0)
	assert.NoError(t, err)
	return list.Get(key)
}

func TestMisraGries(t *testing.T) {
	s, err := NewHeavyHittersSketch(3, []string{"category"})
	assert.NoError(t, err)

	tbl := categoryTable(t, "a", "a", "a", "b", "b", "c", "d", "e")
	result, err := s.Create(tbl)
	assert.NoError(t, err)
	list := result.(*FreqKList)

	// The arrival of d triggers the decrement sweep: a drops to 2, b to 1,
	// c is compacted away and d itself is not inserted, leaving room for e.
	assert.Equal(t, int64(8), list.TotalRows)
	assert.Len(t, list.Entries, 3)
	assert.Equal(t, int64(2), countOf(t, list, "a"))
	assert.Equal(t, int64(1), countOf(t, list, "b"))
	assert.Equal(t, int64(1), countOf(t, list, "e"))
	assert.Equal(t, int64(0), countOf(t, list, "c"))
	assert.Equal(t, int64(0), countOf(t, list, "d"))

	// 8 rows, 4 counted, so the bound is (8-4)/(3+1) = 1 and every true
	// frequency lies within [estimate, estimate+bound].
	assert.Equal(t, int64(1), list.ErrBound())
	assert.True(t, countOf(t, list, "a") <= 3 && 3 <= countOf(t, list, "a")+list.ErrBound())
}

func TestTopOrdering(t *testing.T) {
	s, err := NewHeavyHittersSketch(4, []string{"category"})
	assert.NoError(t, err)

	result, err := s.Create(categoryTable(t, "a", "b", "b", "c", "a"))
	assert.NoError(t, err)
	list := result.(*FreqKList)

	top := list.Top(2)
	assert.Len(t, top, 2)
	// a and b tie at 2; a was inserted first so it ranks first.
	tbl := categoryTable(t, "a", "b")
	assert.Equal(t, keyFor(t, tbl, 0), string(top[0].Key))
	assert.Equal(t, int64(2), top[0].Count)
	assert.Equal(t, keyFor(t, tbl, 1), string(top[1].Key))
	assert.Equal(t, int64(2), top[1].Count)
}

func TestHeavyHittersValidation(t *testing.T) {
	_, err := NewHeavyHittersSketch(0, []string{"category"})
	assert.Error(t, err)
	_, err = NewHeavyHittersSketch(3, nil)
	assert.Error(t, err)

	s, err := NewHeavyHittersSketch(3, []string{"category"})
	assert.NoError(t, err)
	_, err = s.Create("not a table")
	assert.Error(t, err)
	_, err = s.Add(&FreqKList{MaxSize: 3}, &FreqKList{MaxSize: 4})
	assert.Error(t, err, "mismatched maxSize must not merge")
	_, err = s.Add(&FreqKList{MaxSize: 3}, 42)
	assert.Error(t, err)
}

// checkBound verifies the frequency guarantee on a computed list: every
// estimate is at most the true frequency and undercounts by at most the
// error bound, for stored and unstored keys alike.
func checkBound(t *testing.T, list *FreqKList, trueCounts map[string]int64, totalRows int64) {
	assert.Equal(t, totalRows, list.TotalRows)
	assert.True(t, len(list.Entries) <= list.MaxSize)
	bound := list.ErrBound()
	for value, trueCount := range trueCounts {
		est := countOf(t, list, value)
		assert.True(t, est <= trueCount, "estimate for %v overshoots: %d > %d", value, est, trueCount)
		assert.True(t, trueCount-est <= bound, "estimate for %v misses the bound: true %d, estimate %d, bound %d", value, trueCount, est, bound)
	}
}

func TestFrequencyBound(t *testing.T) {
	rnd := rand.New(rand.NewSource(0))
	zipf := rand.NewZipf(rnd, 1.3, 1, 49)

	const n = 20000
	values := make([]string, n)
	trueCounts := make(map[string]int64, 50)
	for i := range values {
		values[i] = fmt.Sprintf("k%02d", zipf.Uint64())
		trueCounts[values[i]]++
	}
	tbl := categoryTable(t, values...)

	s, err := NewHeavyHittersSketch(8, []string{"category"})
	assert.NoError(t, err)

	// Single pass over the whole partition.
	whole, err := s.Create(tbl)
	assert.NoError(t, err)
	checkBound(t, whole.(*FreqKList), trueCounts, n)

	// Sharded and merged, forward and backward: the bound must survive
	// merging and must not depend on merge order.
	var shards []interface{}
	for lo := 0; lo < n; lo += 2500 {
		shard, err := s.Create(tbl.Slice(lo, lo+2500))
		assert.NoError(t, err)
		shards = append(shards, shard)
	}
	forward := s.Zero()
	for _, shard := range shards {
		forward, err = s.Add(forward, shard)
		assert.NoError(t, err)
	}
	checkBound(t, forward.(*FreqKList), trueCounts, n)

	backward := s.Zero()
	for i := len(shards) - 1; i >= 0; i-- {
		backward, err = s.Add(backward, shards[i])
		assert.NoError(t, err)
	}
	checkBound(t, backward.(*FreqKList), trueCounts, n)
}

func TestAddDoesNotMutateInputs(t *testing.T) {
	s, err := NewHeavyHittersSketch(2, []string{"category"})
	assert.NoError(t, err)

	left, err := s.Create(categoryTable(t, "a", "a", "b"))
	assert.NoError(t, err)
	right, err := s.Create(categoryTable(t, "a", "c", "c"))
	assert.NoError(t, err)

	_, err = s.Add(left, right)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), countOf(t, left.(*FreqKList), "a"))
	assert.Equal(t, int64(1), countOf(t, left.(*FreqKList), "b"))
	assert.Equal(t, int64(1), countOf(t, right.(*FreqKList), "a"))
}

func TestFreqKListString(t *testing.T) {
	s, err := NewHeavyHittersSketch(3, []string{"category"})
	assert.NoError(t, err)
	result, err := s.Create(categoryTable(t, "a", "a", "a", "b", "b", "c", "d", "e"))
	assert.NoError(t, err)

	rendered := result.(*FreqKList).String()
	lines := strings.Split(strings.TrimSpace(rendered), "\n")
	assert.Len(t, lines, 4)
	assert.Equal(t, "category=a: (2-3)", lines[0])
	assert.Equal(t, "Error bound: 1", lines[3])
}

func TestFreqKListJSON(t *testing.T) {
	s, err := NewHeavyHittersSketch(3, []string{"category"})
	assert.NoError(t, err)
	result, err := s.Create(categoryTable(t, "a", "a", "a", "b"))
	assert.NoError(t, err)

	encoded, err := json.Marshal(result)
	assert.NoError(t, err)

	var decoded struct {
		TotalRows int64 `json:"totalRows"`
		MaxSize   int   `json:"maxSize"`
		ErrBound  int64 `json:"errBound"`
		Entries   []struct {
			Row   map[string]interface{} `json:"row"`
			Count int64                  `json:"count"`
		} `json:"entries"`
	}
	assert.NoError(t, json.Unmarshal(encoded, &decoded))
	assert.Equal(t, int64(4), decoded.TotalRows)
	assert.Equal(t, 3, decoded.MaxSize)
	assert.Equal(t, int64(0), decoded.ErrBound)
	assert.Len(t, decoded.Entries, 2)
	assert.Equal(t, "a", decoded.Entries[0].Row["category"])
	assert.Equal(t, int64(3), decoded.Entries[0].Count)
}
