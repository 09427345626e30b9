package sketches

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/getlantern/bytemap"
	"github.com/getlantern/errors"
	"github.com/getlantern/vizdb/table"
)

// FreqEntry is one heavy-hitter candidate: an encoded row snapshot and its
// estimated frequency. The estimate never exceeds the true frequency.
type FreqEntry struct {
	Key   bytemap.ByteMap
	Count int64
}

// FreqKList stores the top-K heavy hitters out of TotalRows elements,
// computed by the mergeable variant of Misra-Gries described in "Mergeable
// Summaries" (Agarwal et al., ACM TODS). Entries are kept in insertion
// order, which pins down a deterministic output: decrement sweeps, slot
// reuse and equal-count ranking all follow insertion order.
type FreqKList struct {
	TotalRows int64
	MaxSize   int
	Entries   []FreqEntry
}

// TotalCount returns the sum of all stored estimates, always at most
// TotalRows.
func (f *FreqKList) TotalCount() int64 {
	var total int64
	for _, e := range f.Entries {
		total += e.Count
	}
	return total
}

// ErrBound returns the error bound e guaranteed by the mergeable-summaries
// analysis: for every stored entry, the true frequency lies in
// [Count, Count+e]. It is recomputed from the current state, never cached
// across merges.
func (f *FreqKList) ErrBound() int64 {
	return (f.TotalRows - f.TotalCount()) / int64(f.MaxSize+1)
}

// Top returns up to k entries sorted by descending count, breaking ties by
// insertion order.
func (f *FreqKList) Top(k int) []FreqEntry {
	sorted := make([]FreqEntry, len(f.Entries))
	copy(sorted, f.Entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Count > sorted[j].Count
	})
	if k < len(sorted) {
		sorted = sorted[:k]
	}
	return sorted
}

// Get returns the estimated count for key, or 0 if the key is not stored.
func (f *FreqKList) Get(key bytemap.ByteMap) int64 {
	k := string(key)
	for _, e := range f.Entries {
		if string(e.Key) == k {
			return e.Count
		}
	}
	return 0
}

func (f *FreqKList) String() string {
	bound := f.ErrBound()
	var sb strings.Builder
	for _, e := range f.Top(len(f.Entries)) {
		sb.WriteString(fmt.Sprintf("%v: (%d-%d)\n", renderKey(e.Key), e.Count, e.Count+bound))
	}
	sb.WriteString(fmt.Sprintf("Error bound: %d\n", bound))
	return sb.String()
}

func renderKey(key bytemap.ByteMap) string {
	m := key.AsMap()
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%v=%v", name, m[name]))
	}
	return strings.Join(parts, ",")
}

// MarshalJSON renders entries by descending count with the decoded row
// values and the current error bound, which is what the UI consumes.
func (f *FreqKList) MarshalJSON() ([]byte, error) {
	type jsonEntry struct {
		Row   map[string]interface{} `json:"row"`
		Count int64                  `json:"count"`
	}
	entries := make([]jsonEntry, 0, len(f.Entries))
	for _, e := range f.Top(len(f.Entries)) {
		entries = append(entries, jsonEntry{Row: e.Key.AsMap(), Count: e.Count})
	}
	return json.Marshal(struct {
		TotalRows int64       `json:"totalRows"`
		MaxSize   int         `json:"maxSize"`
		ErrBound  int64       `json:"errBound"`
		Entries   []jsonEntry `json:"entries"`
	}{f.TotalRows, f.MaxSize, f.ErrBound(), entries})
}

// HeavyHittersSketch finds the most frequent row values over the given
// column set using Misra-Gries with up to MaxSize counters.
type HeavyHittersSketch struct {
	MaxSize int
	Columns []string
}

// NewHeavyHittersSketch validates the parameters.
func NewHeavyHittersSketch(maxSize int, columns []string) (*HeavyHittersSketch, error) {
	if maxSize <= 0 {
		return nil, errors.New("heavy hitters needs a positive maxSize, got %d", maxSize)
	}
	if len(columns) == 0 {
		return nil, errors.New("heavy hitters needs at least one column")
	}
	return &HeavyHittersSketch{MaxSize: maxSize, Columns: columns}, nil
}

// Zero implements dataset.Sketch.
func (s *HeavyHittersSketch) Zero() interface{} {
	return &FreqKList{MaxSize: s.MaxSize}
}

// Create implements dataset.Sketch: the classic Misra-Gries counting pass.
// An existing key's count is incremented; a new key is inserted with count 1
// while capacity remains; otherwise every count is decremented by one and
// entries that reach zero are dropped, the arriving key not being inserted.
// All sweeps run in insertion order.
func (s *HeavyHittersSketch) Create(data interface{}) (interface{}, error) {
	t, ok := data.(*table.Table)
	if !ok {
		return nil, errors.New("heavy hitters sketch needs a table partition, got %T", data)
	}
	list := &FreqKList{MaxSize: s.MaxSize, TotalRows: int64(t.NumRows())}
	index := make(map[string]int, s.MaxSize)
	for i := 0; i < t.NumRows(); i++ {
		key, err := t.RowSnapshot(s.Columns, i)
		if err != nil {
			return nil, err
		}
		k := string(key)
		if at, found := index[k]; found {
			list.Entries[at].Count++
			continue
		}
		if len(list.Entries) < s.MaxSize {
			index[k] = len(list.Entries)
			list.Entries = append(list.Entries, FreqEntry{Key: key, Count: 1})
			continue
		}
		decrementAll(list, index)
	}
	return list, nil
}

// Add implements dataset.Sketch using the merge rule from the
// mergeable-summaries paper: sum shared keys, then reduce the union back to
// at most MaxSize entries by subtracting the (MaxSize+1)-st largest count
// from every entry and dropping those that fall to zero or below. This is
// the rule proven to preserve the error bound of the inputs.
func (s *HeavyHittersSketch) Add(left, right interface{}) (interface{}, error) {
	l, lok := left.(*FreqKList)
	r, rok := right.(*FreqKList)
	if !lok || !rok {
		return nil, errors.New("cannot merge %T and %T as heavy hitters", left, right)
	}
	if l.MaxSize != r.MaxSize {
		return nil, errors.New("merging heavy hitters with maxSize %d and %d", l.MaxSize, r.MaxSize)
	}
	merged := &FreqKList{MaxSize: l.MaxSize, TotalRows: l.TotalRows + r.TotalRows}
	index := make(map[string]int, len(l.Entries)+len(r.Entries))
	for _, e := range l.Entries {
		index[string(e.Key)] = len(merged.Entries)
		merged.Entries = append(merged.Entries, e)
	}
	for _, e := range r.Entries {
		if at, found := index[string(e.Key)]; found {
			merged.Entries[at].Count += e.Count
			continue
		}
		index[string(e.Key)] = len(merged.Entries)
		merged.Entries = append(merged.Entries, e)
	}
	if len(merged.Entries) > merged.MaxSize {
		counts := make([]int64, len(merged.Entries))
		for i, e := range merged.Entries {
			counts[i] = e.Count
		}
		sort.Slice(counts, func(i, j int) bool { return counts[i] > counts[j] })
		pivot := counts[merged.MaxSize]
		kept := merged.Entries[:0]
		for _, e := range merged.Entries {
			if e.Count > pivot {
				e.Count -= pivot
				kept = append(kept, e)
			}
		}
		merged.Entries = kept
	}
	return merged, nil
}

// decrementAll lowers every count by one and compacts away entries that
// reach zero, preserving insertion order.
func decrementAll(list *FreqKList, index map[string]int) {
	kept := list.Entries[:0]
	for _, e := range list.Entries {
		e.Count--
		if e.Count <= 0 {
			delete(index, string(e.Key))
			continue
		}
		index[string(e.Key)] = len(kept)
		kept = append(kept, e)
	}
	list.Entries = kept
}
