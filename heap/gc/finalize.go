package gc

import (
	"github.com/joshuapare/gckit/heap"
	"github.com/joshuapare/gckit/internal/format"
)

// migrateFinalizers walks from's finalizer list after tracing. Records of
// forwarded allocations move to to, pointing at the new header; the rest
// are unreachable and have fin invoked on them, then are dropped. It
// returns the number of finalizers run.
func migrateFinalizers(from, to *heap.Arena, fin heap.Finalizer) int {
	list := from.Finalizers()
	ran := 0
	var next *heap.FinalizerRecord
	for r := list.Front(); r != nil; r = next {
		next = r.Next()
		h, err := from.HeaderAt(r.Header)
		if err != nil {
			panic(fatal(KindHeapCorruption, r.Header, err))
		}
		if fwd := h.Forward(); fwd != heap.Nil {
			list.MoveTo(to.Finalizers(), r, fwd-format.HeaderSize)
			continue
		}
		list.Remove(r)
		if fin != nil {
			fin(h.DataAddr(), h.Payload())
		}
		ran++
	}
	return ran
}
