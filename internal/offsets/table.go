// Package offsets keeps cumulative item offsets for a vertical list so that
// viewport to index translation is a binary search.
package offsets

import "sort"

// SizeFunc returns the full size of the item at index, spacing included.
type SizeFunc func(index int) float64

// Table holds per-item sizes and their prefix sums. The prefix slice always
// has len(sizes)+1 entries with prefix[0] == 0.
type Table struct {
	paddingTop float64
	sizes      []float64
	prefix     []float64
}

// New returns an empty table.
func New() *Table {
	return &Table{prefix: []float64{0}}
}

// SetPaddingTop sets the padding added by TopOffset.
func (t *Table) SetPaddingTop(padding float64) {
	t.paddingTop = max(0, padding)
}

// PaddingTop returns the current top padding.
func (t *Table) PaddingTop() float64 {
	return t.paddingTop
}

// Rebuild recomputes every size and prefix sum from scratch. Negative sizes
// are treated as zero.
func (t *Table) Rebuild(count int, size SizeFunc) {
	count = max(0, count)
	if cap(t.sizes) < count {
		t.sizes = make([]float64, count)
	}
	t.sizes = t.sizes[:count]
	if cap(t.prefix) < count+1 {
		t.prefix = make([]float64, count+1)
	}
	t.prefix = t.prefix[:count+1]

	t.prefix[0] = 0
	for i := range count {
		s := max(0, size(i))
		t.sizes[i] = s
		t.prefix[i+1] = t.prefix[i] + s
	}
}

// Patch replaces the size of a single item and shifts every later prefix by
// the difference. It returns false when index is out of range.
func (t *Table) Patch(index int, size float64) bool {
	if index < 0 || index >= len(t.sizes) {
		return false
	}
	size = max(0, size)
	diff := size - t.sizes[index]
	if diff == 0 {
		return true
	}
	t.sizes[index] = size
	for i := index + 1; i < len(t.prefix); i++ {
		t.prefix[i] += diff
	}
	return true
}

// Len returns the number of items in the table.
func (t *Table) Len() int {
	return len(t.sizes)
}

// Size returns the full size of the item at index, or 0 when out of range.
func (t *Table) Size(index int) float64 {
	if index < 0 || index >= len(t.sizes) {
		return 0
	}
	return t.sizes[index]
}

// Prefix returns prefix[index] for index in [0, Len()]. Values outside that
// range are clamped.
func (t *Table) Prefix(index int) float64 {
	index = min(max(0, index), len(t.sizes))
	return t.prefix[index]
}

// Total is the sum of all item sizes, padding excluded.
func (t *Table) Total() float64 {
	return t.prefix[len(t.sizes)]
}

// TopOffset returns paddingTop + prefix[index]. The boolean is false when
// index is outside [0, Len()).
func (t *Table) TopOffset(index int) (float64, bool) {
	if index < 0 || index >= len(t.sizes) {
		return 0, false
	}
	return t.paddingTop + t.prefix[index], true
}

// RangeExtent returns the combined size of items start..end inclusive. It is
// 0 when the range is empty or the table has no items.
func (t *Table) RangeExtent(start, end int) float64 {
	n := len(t.sizes)
	if n == 0 || start > end {
		return 0
	}
	start = max(0, start)
	end = min(end, n-1)
	if start > end {
		return 0
	}
	return t.prefix[end+1] - t.prefix[start]
}

// LowerBound returns the smallest i in [0, Len()) with prefix[i] >= value, or
// Len() when there is none.
func (t *Table) LowerBound(value float64) int {
	return sort.Search(len(t.sizes), func(i int) bool {
		return t.prefix[i] >= value
	})
}

// UpperBound returns the smallest i in [0, Len()) with prefix[i] > value, or
// Len() when there is none.
func (t *Table) UpperBound(value float64) int {
	return sort.Search(len(t.sizes), func(i int) bool {
		return t.prefix[i] > value
	})
}

// IndexAt returns the index of the item that covers the given offset
// (relative to the first item, padding excluded), clamped to [0, Len()-1].
// It returns -1 for an empty table.
func (t *Table) IndexAt(value float64) int {
	n := len(t.sizes)
	if n == 0 {
		return -1
	}
	return min(max(0, t.UpperBound(value)-1), n-1)
}
