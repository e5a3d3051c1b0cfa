package dirty

import (
	"slices"
	"sort"
)

const (
	// defaultRangeCapacity is the pre-allocated capacity for write ranges.
	defaultRangeCapacity = 64

	// standardPageSize is the page granularity used for page accounting.
	standardPageSize = 4096
)

// Range is a written byte range (arena offsets).
type Range struct {
	Off int64
	Len int64
}

// End returns the offset one past the range.
func (r Range) End() int64 { return r.Off + r.Len }

// Tracker accumulates the byte ranges written into an arena.
//
// NOT thread-safe. Only one goroutine should use it at a time.
type Tracker struct {
	ranges   []Range
	pageSize int64
}

// NewTracker creates a tracker with capacity for 64 ranges.
func NewTracker() *Tracker {
	return &Tracker{
		ranges:   make([]Range, 0, defaultRangeCapacity),
		pageSize: standardPageSize,
	}
}

// Add records a written range. Zero-length ranges are ignored.
//
// Performance: amortized O(1); it only appends to a slice.
func (t *Tracker) Add(off, length int) {
	if length <= 0 {
		return
	}
	t.ranges = append(t.ranges, Range{
		Off: int64(off),
		Len: int64(length),
	})
}

// Len returns the number of recorded ranges.
func (t *Tracker) Len() int { return len(t.ranges) }

// Ranges returns the raw ranges sorted by offset.
func (t *Tracker) Ranges() []Range {
	out := slices.Clone(t.ranges)
	sort.Slice(out, func(i, j int) bool { return out[i].Off < out[j].Off })
	return out
}

// Overlap returns the first pair of recorded ranges that share at least one
// byte. Adjacent ranges do not overlap.
func (t *Tracker) Overlap() (a, b Range, ok bool) {
	sorted := t.Ranges()
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Off < sorted[i-1].End() {
			return sorted[i-1], sorted[i], true
		}
	}
	return Range{}, Range{}, false
}

// Pages returns the number of distinct pages touched by the recorded ranges.
func (t *Tracker) Pages() int {
	n, last := 0, int64(-1)
	for _, r := range t.Ranges() {
		first, end := r.Off/t.pageSize, (r.End()-1)/t.pageSize
		first = max(first, last+1)
		if end < first {
			continue
		}
		n += int(end - first + 1)
		last = end
	}
	return n
}
