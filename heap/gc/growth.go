package gc

import (
	"fmt"

	"github.com/joshuapare/gckit/heap"
	"github.com/joshuapare/gckit/internal/buf"
)

// nextArenaSize returns the to-space size for collecting from: double when
// the previous collection left from over the high-water mark, else equal.
// Arenas never shrink.
func nextArenaSize(from *heap.Arena, limit int) (int, error) {
	size := from.Size()
	if from.GrowNext() {
		doubled, ok := buf.MulOverflowSafe(size, 2)
		if !ok {
			return 0, fmt.Errorf("arena size %d overflows when doubled", size)
		}
		size = doubled
	}
	if size > limit {
		return 0, fmt.Errorf("arena size %d exceeds limit %d", size, limit)
	}
	return size, nil
}

// overHighWater reports whether more than 15/16 of a is in use.
func overHighWater(a *heap.Arena) bool {
	total := a.Size()
	return total-total>>4 < a.Used()
}
